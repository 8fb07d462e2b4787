// Package dbfile implements the page cache and block allocator shared
// by every table file: it maps a Ref to an in-memory Block, allocates
// new pages (recycling the free list before growing the file), and
// keeps a bounded set of hot blocks cached. One Dbfile owns exactly
// one underlying *os.File; cross-table references don't exist because
// each table is a separate file (spec section 4.3).
package dbfile

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"container/list"
	"os"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/prinbee/prinbee/pkg/plog"
)

// Ref is a 64-bit file offset; 0 is the null reference. Every
// non-null Ref is a multiple of the file's page size.
type Ref uint64

// NullRef is the null reference: no block.
const NullRef Ref = 0

// DefaultCacheSize bounds how many pages stay hot in memory before
// the least-recently-used clean block is evicted.
const DefaultCacheSize = 512

// FreeList is implemented by the table header (PTBL) view so the
// allocator can pop/push the free-block singly-linked list without
// pkg/dbfile needing to know the rest of the header's layout. It is
// backed by the same memory GetBlock(0) returns, so writes through it
// are visible to both the allocator and to whoever holds the PTBL
// block open.
type FreeList interface {
	First() Ref
	SetFirst(Ref)
}

// Block is a handle to one cached page: its reference, its magic, and
// the live page buffer. Callers mutate Page directly and call
// MarkDirty so the Dbfile knows to flush it; this matches the design
// note that the cache exclusively owns the bytes and callers merely
// borrow a handle to them, rather than every subsystem holding its
// own copy.
type Block struct {
	Ref   Ref
	Magic block.Magic
	Page  []byte

	dbfile *Dbfile
	dirty  bool
}

// MarkDirty flags the block for write-back on the next Flush or Sync;
// a dirty block is never evicted from the cache.
func (b *Block) MarkDirty() {
	b.dirty = true
}

// Flush writes this block's page back to disk immediately, regardless
// of sync mode - callers that need fsync-level durability call
// (*Dbfile).Sync afterwards.
func (b *Block) Flush() error {
	if !b.dirty {
		return nil
	}
	if err := b.dbfile.writePage(b.Ref, b.Page); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

type cacheEntry struct {
	block *Block
	elem  *list.Element
}

// Dbfile owns one table file: its descriptor, page size, the free
// list, and a bounded LRU page cache.
type Dbfile struct {
	file      *os.File
	pageSize  uint32
	cache     map[Ref]*cacheEntry
	lru       *list.List
	maxCached int
	freeList  FreeList
	log       plog.View
	size      int64
}

// New wraps an already-open file. pageSize must already be known
// (read from an existing header, or chosen at creation time); the
// free list adapter is installed afterwards with SetFreeList once the
// caller has the PTBL block in hand, since obtaining it is itself a
// GetBlock(0) call against this Dbfile.
func New(file *os.File, pageSize uint32, log plog.View) (*Dbfile, error) {
	fi, err := file.Stat()
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "stat table file")
	}
	if log == nil {
		log = plog.Discard
	}
	return &Dbfile{
		file:      file,
		pageSize:  pageSize,
		cache:     make(map[Ref]*cacheEntry),
		lru:       list.New(),
		maxCached: DefaultCacheSize,
		log:       log,
		size:      fi.Size(),
	}, nil
}

// SetFreeList installs the free-list adapter; see FreeList.
func (d *Dbfile) SetFreeList(fl FreeList) {
	d.freeList = fl
}

// SetMaxCached overrides the default cache bound.
func (d *Dbfile) SetMaxCached(n int) {
	d.maxCached = n
}

// PageSize returns the file's fixed page size.
func (d *Dbfile) PageSize() uint32 {
	return d.pageSize
}

// GetBlock returns a shared, typed handle for ref. A cached block is
// returned as-is; otherwise one page is read from the file, its magic
// identifies the type, and the new block is cached before being
// returned. An unknown magic fails CorruptedData; a ref past the
// current file size fails BlockNotFound.
func (d *Dbfile) GetBlock(ref Ref) (*Block, error) {
	if entry, ok := d.cache[ref]; ok {
		d.lru.MoveToFront(entry.elem)
		return entry.block, nil
	}

	if int64(ref)+int64(d.pageSize) > d.size {
		return nil, perrors.New(perrors.BlockNotFound, "ref %d is past end of file (size %d)", ref, d.size)
	}

	page := make([]byte, d.pageSize)
	if _, err := d.file.ReadAt(page, int64(ref)); err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "read page at %d", ref)
	}

	magic, err := block.ReadMagic(page)
	if err != nil {
		return nil, err
	}
	if !magic.Known() {
		return nil, perrors.New(perrors.CorruptedData, "unknown magic %q at ref %d", magic, ref)
	}

	b := &Block{Ref: ref, Magic: magic, Page: page, dbfile: d}
	d.insertCache(b)
	return b, nil
}

// AllocateBlock returns a fresh, zero-filled block of the given magic.
// If the free list is non-empty its head is popped (the FREE block's
// next_free_block is spliced into the header, matching the free list
// contract); otherwise the file is extended by one page.
func (d *Dbfile) AllocateBlock(magic block.Magic) (*Block, error) {
	if d.freeList == nil {
		return nil, perrors.New(perrors.LogicError, "dbfile: free list not installed")
	}

	head := Ref(d.freeList.First())
	if head != NullRef {
		freeBlock, err := d.GetBlock(head)
		if err != nil {
			return nil, err
		}
		if freeBlock.Magic != block.FREE {
			return nil, perrors.New(perrors.CorruptedData, "free list head %d is not a FREE block (magic %s)", head, freeBlock.Magic)
		}
		next := Ref(readRef(freeBlock.Page, freeListNextOffset))
		d.freeList.SetFirst(next)

		zero(freeBlock.Page)
		if err := block.WriteHeader(freeBlock.Page, magic, block.CurrentVersion); err != nil {
			return nil, err
		}
		freeBlock.Magic = magic
		freeBlock.MarkDirty()
		if err := freeBlock.Flush(); err != nil {
			return nil, err
		}
		return freeBlock, nil
	}

	ref := Ref(d.size)
	page := make([]byte, d.pageSize)
	if err := block.WriteHeader(page, magic, block.CurrentVersion); err != nil {
		return nil, err
	}
	if err := d.writePage(ref, page); err != nil {
		return nil, err
	}
	d.size += int64(d.pageSize)

	b := &Block{Ref: ref, Magic: magic, Page: page, dbfile: d}
	d.insertCache(b)
	return b, nil
}

// InitFirstBlock bootstraps ref 0 on a brand-new, empty file: it
// writes a fresh header of the given magic, extends the file by one
// page, and caches the result. It exists because AllocateBlock needs a
// free list, and the free list for every table file lives inside the
// very block this call creates; callers use it exactly once, then
// call SetFreeList before any further allocation.
func (d *Dbfile) InitFirstBlock(magic block.Magic) (*Block, error) {
	if d.size != 0 {
		return nil, perrors.New(perrors.LogicError, "dbfile: InitFirstBlock called on a non-empty file (size %d)", d.size)
	}

	page := make([]byte, d.pageSize)
	if err := block.WriteHeader(page, magic, block.CurrentVersion); err != nil {
		return nil, err
	}
	if err := d.writePage(0, page); err != nil {
		return nil, err
	}
	d.size = int64(d.pageSize)

	b := &Block{Ref: NullRef, Magic: magic, Page: page, dbfile: d}
	d.insertCache(b)
	return b, nil
}

// freeListNextOffset is the byte offset of the FREE block's
// next_free_block field, right after the 8-byte header.
const freeListNextOffset = block.HeaderSize

// FreeBlock returns b to the head of the free list (LIFO): its magic
// is overwritten with FREE, its next_free_block is set to the current
// head, and the header's first_free_block becomes b.Ref. The file is
// never shrunk; sparse-file hole recovery is future work, per spec.
func (d *Dbfile) FreeBlock(b *Block) error {
	if d.freeList == nil {
		return perrors.New(perrors.LogicError, "dbfile: free list not installed")
	}

	current := d.freeList.First()

	zero(b.Page)
	if err := block.WriteHeader(b.Page, block.FREE, block.CurrentVersion); err != nil {
		return err
	}
	writeRef(b.Page, freeListNextOffset, uint64(current))
	b.Magic = block.FREE
	b.MarkDirty()
	if err := b.Flush(); err != nil {
		return err
	}

	d.freeList.SetFirst(b.Ref)
	return nil
}

// Sync flushes all dirty cached pages and, if full is true, fsyncs
// the underlying file descriptor.
func (d *Dbfile) Sync(full bool) error {
	for _, entry := range d.cache {
		if err := entry.block.Flush(); err != nil {
			return err
		}
	}
	if full {
		if err := d.file.Sync(); err != nil {
			return perrors.Wrap(err, perrors.IoError, "fsync table file")
		}
	}
	return nil
}

// Close flushes dirty pages and closes the underlying file.
func (d *Dbfile) Close() error {
	if err := d.Sync(true); err != nil {
		return err
	}
	return d.file.Close()
}

func (d *Dbfile) writePage(ref Ref, page []byte) error {
	if _, err := d.file.WriteAt(page, int64(ref)); err != nil {
		return perrors.Wrap(err, perrors.IoError, "write page at %d", ref)
	}
	return nil
}

func (d *Dbfile) insertCache(b *Block) {
	elem := d.lru.PushFront(b.Ref)
	d.cache[b.Ref] = &cacheEntry{block: b, elem: elem}
	d.evictIfNeeded()
}

func (d *Dbfile) evictIfNeeded() {
	// One bounded pass from the cold end. Ref 0 is pinned: the table
	// header view holds that block's buffer for the life of the table,
	// so evicting it would split the header into two divergent copies.
	// Dirty pages stay resident until the next Sync.
	attempts := d.lru.Len()
	for len(d.cache) > d.maxCached && attempts > 0 {
		back := d.lru.Back()
		if back == nil {
			return
		}
		attempts--
		ref := back.Value.(Ref)
		entry := d.cache[ref]
		if ref == NullRef || entry.block.dirty {
			d.lru.MoveToFront(back)
			continue
		}
		d.lru.Remove(back)
		delete(d.cache, ref)
	}
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

func readRef(page []byte, offset int) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(page[offset+i])
	}
	return v
}

func writeRef(page []byte, offset int, v uint64) {
	for i := 0; i < 8; i++ {
		page[offset+i] = byte(v)
		v >>= 8
	}
}
