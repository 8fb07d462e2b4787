package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prinbee/prinbee/pkg/perrors"
)

func newTestJournal(t *testing.T, cfg Config) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, dir
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.MaximumNumberOfFiles = 2
	cfg.MaximumFileSize = 64 * 1024
	cfg.MaximumEvents = 100
	cfg.InlineAttachmentSizeThreshold = 4096
	cfg.Sync = SyncFull
	return cfg
}

// S3: events round-trip and come back out in strictly increasing time
// order, including the 1ns collision bump.
func TestS3RoundTripAndTimeOrder(t *testing.T) {
	j, _ := newTestJournal(t, smallConfig())

	base := time.Now().Add(-time.Minute).UTC()
	_, err := j.AddEvent([]byte("req-b"), base, nil)
	require.NoError(t, err)
	evA, err := j.AddEvent([]byte("req-a"), base, nil) // same time -> bumped
	require.NoError(t, err)
	require.True(t, evA.Time.After(base))

	_, err = j.AddEvent([]byte("req-c"), base.Add(time.Second), nil)
	require.NoError(t, err)

	require.Equal(t, 3, j.Size())

	j.Rewind()
	var last time.Time
	count := 0
	for {
		ev, _, err := j.NextEvent(true, false)
		require.NoError(t, err)
		if ev == nil {
			break
		}
		if count > 0 {
			require.True(t, ev.Time.After(last), "events must come out in strictly increasing time order")
		}
		last = ev.Time
		count++
	}
	require.Equal(t, 3, count)
}

func TestAddEventRejectsFarFutureTime(t *testing.T) {
	j, _ := newTestJournal(t, smallConfig())
	_, err := j.AddEvent([]byte("req"), time.Now().Add(time.Hour), nil)
	require.Error(t, err)
}

func TestAddEventRejectsDuplicateRequestID(t *testing.T) {
	j, _ := newTestJournal(t, smallConfig())
	_, err := j.AddEvent([]byte("dup"), time.Now(), nil)
	require.NoError(t, err)
	_, err = j.AddEvent([]byte("dup"), time.Now(), nil)
	require.Error(t, err)
}

// S4: legal transitions succeed, illegal ones are refused, and once an
// event reaches a terminal state it disappears from the live set; once
// a file's last live event terminates with file_management=keep, its
// append cursor resets.
func TestS4StatusTransitions(t *testing.T) {
	cfg := smallConfig()
	cfg.FileManagement = FileKeep
	j, _ := newTestJournal(t, cfg)

	req := []byte("only-event")
	_, err := j.AddEvent(req, time.Now(), nil)
	require.NoError(t, err)

	ok, err := j.EventForwarded(req)
	require.NoError(t, err)
	require.True(t, ok)

	// Ready is no longer reachable from Forwarded.
	ok, err = j.transition(req, StatusReady)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = j.EventAcknowledged(req)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = j.EventCompleted(req)
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, j.Empty())

	_, err = j.EventCompleted(req)
	require.Error(t, err)

	// Reopen: still empty, and the next append lands right after the
	// file header because completing the last live event reset the
	// file's cursor.
	require.NoError(t, j.Close())
	j2, err := Open(j.dir, nil)
	require.NoError(t, err)
	defer j2.Close()
	require.True(t, j2.Empty())

	_, err = j2.AddEvent([]byte("after-reset"), time.Now(), nil)
	require.NoError(t, err)
	ev, dbg, err := j2.NextEvent(false, true)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, int64(fileHeaderSize), dbg.Offset)
}

// S5: a truncated trailing record is dropped on reopen; everything
// before it replays, and new appends start exactly where the garbage
// began.
func TestS5CrashRecoveryTruncatesPartialRecord(t *testing.T) {
	cfg := smallConfig()
	dir := t.TempDir()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)

	_, err = j.AddEvent([]byte("first"), time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	_, err = j.AddEvent([]byte("second"), time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	path := filepath.Join(dir, "journal-0.events")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, fi.Size()-10))

	j2, err := Open(dir, nil)
	require.NoError(t, err)
	defer j2.Close()

	require.Equal(t, 1, j2.Size())
	ev, err := j2.AddEvent([]byte("third"), time.Now(), nil)
	require.NoError(t, err)
	require.NotNil(t, ev)
}

// S6: an external attachment past the inline threshold is materialized
// as <id>.bin (a symlink under the default softlink policy), with the
// correct is_file/size/bytes.
func TestS6ExternalAttachmentSoftlink(t *testing.T) {
	cfg := smallConfig()
	cfg.AttachmentCopyHandling = AttachSoftlink
	dir := t.TempDir()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)
	defer j.Close()

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "blob.bin")
	payload := make([]byte, 32*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(srcPath, payload, 0o644))

	ev, err := j.AddEvent([]byte("with-attachment"), time.Now(), []AttachmentInput{{FilePath: srcPath}})
	require.NoError(t, err)
	require.Len(t, ev.Attachments, 1)

	att := ev.Attachments[0]
	require.True(t, att.IsFile())
	require.Equal(t, int64(len(payload)), att.Size())

	linkPath := filepath.Join(dir, attachmentFilename(att.ExternalID))
	target, err := os.Readlink(linkPath)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(target))

	data, err := j.ReadAttachment(att)
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

// Property 4: time-ordered replay is strictly increasing and every
// live event appears exactly once.
func TestPropertyTimeOrderIsCompleteAndStrictlyIncreasing(t *testing.T) {
	j, _ := newTestJournal(t, smallConfig())

	base := time.Now().Add(-time.Hour).UTC()
	ids := []string{"e1", "e2", "e3", "e4", "e5"}
	for i, id := range ids {
		_, err := j.AddEvent([]byte(id), base.Add(time.Duration(i)*time.Millisecond), nil)
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var last time.Time
	for i := 0; ; i++ {
		ev, _, err := j.NextEvent(true, false)
		require.NoError(t, err)
		if ev == nil {
			break
		}
		if i > 0 {
			require.True(t, ev.Time.After(last))
		}
		last = ev.Time
		seen[string(ev.RequestID)] = true
	}
	require.Len(t, seen, len(ids))
}

// Property 5: final status equals the last successful transition, and
// crash-then-reopen preserves exactly the non-terminal events.
func TestPropertyFinalStatusAndRecoverySet(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)

	_, err = j.AddEvent([]byte("stays-ready"), time.Now(), nil)
	require.NoError(t, err)
	_, err = j.AddEvent([]byte("goes-forwarded"), time.Now(), nil)
	require.NoError(t, err)
	_, err = j.AddEvent([]byte("goes-completed"), time.Now(), nil)
	require.NoError(t, err)

	_, err = j.EventForwarded([]byte("goes-forwarded"))
	require.NoError(t, err)
	_, err = j.EventForwarded([]byte("goes-completed"))
	require.NoError(t, err)
	_, err = j.EventCompleted([]byte("goes-completed"))
	require.NoError(t, err)

	require.NoError(t, j.Close())

	j2, err := Open(dir, nil)
	require.NoError(t, err)
	defer j2.Close()

	require.Equal(t, 2, j2.Size())
	require.Equal(t, StatusReady, j2.live[string("stays-ready")].Status)
	require.Equal(t, StatusForwarded, j2.live[string("goes-forwarded")].Status)
	_, stillThere := j2.live[string("goes-completed")]
	require.False(t, stillThere)
}

// Property 8: a record too large for any configured file fails without
// writing anything. Each attachment here is kept just under the inline
// threshold so they all stay inline, adding up to more than the file
// size rather than spilling to external storage.
func TestPropertyOversizedRecordFailsWithoutWriting(t *testing.T) {
	cfg := smallConfig()
	cfg.MaximumFileSize = 64 * 1024
	cfg.CompressWhenFull = false
	j, _ := newTestJournal(t, cfg)

	chunk := make([]byte, cfg.InlineAttachmentSizeThreshold-1)
	var attachments []AttachmentInput
	for i := 0; i < 20; i++ {
		attachments = append(attachments, AttachmentInput{Data: chunk})
	}

	_, err := j.AddEvent([]byte("too-big"), time.Now(), attachments)
	require.Error(t, err)
	require.Equal(t, 0, j.Size())
}

// Compaction slides live records down over the first completed one and
// terminates the live region, so a reopen sees exactly the compacted
// layout and never walks into the stale tail copies.
func TestCompactionRelocatesAndSealsFile(t *testing.T) {
	cfg := smallConfig()
	cfg.Sync = SyncNone
	dir := t.TempDir()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)

	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		_, err := j.AddEvent([]byte(id), base.Add(time.Duration(i)*time.Second), nil)
		require.NoError(t, err)
	}

	ok, err := j.EventCompleted([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	// Every record here is header + 1-byte request id with no
	// attachments, so the layout is exact: "a" at 8, "b" at 41, "c" at
	// 74 before compaction; "b" at 8 and "c" at 41 after.
	f := j.files[0]
	require.Equal(t, int64(fileHeaderSize), f.firstHole)
	relocated, err := f.compact(cfg.Sync)
	require.NoError(t, err)
	require.Len(t, relocated, 2)
	require.Equal(t, int64(fileHeaderSize+2*33), f.nextAppend)

	require.NoError(t, j.Close())

	j2, err := Open(dir, nil)
	require.NoError(t, err)
	defer j2.Close()

	require.Equal(t, 2, j2.Size())
	require.Equal(t, int64(fileHeaderSize), j2.live["b"].offset)
	require.Equal(t, int64(fileHeaderSize+33), j2.live["c"].offset)
}

// Completing an event during the session marks its file compactable,
// so a full journal with compress_when_full set frees the space
// without needing a reopen first.
func TestCompressWhenFullReclaimsCompletedEvents(t *testing.T) {
	cfg := smallConfig()
	cfg.Sync = SyncNone
	cfg.CompressWhenFull = true
	j, _ := newTestJournal(t, cfg)

	// Fill both files nearly to the byte limit with inline payloads.
	chunk := make([]byte, 3500)
	base := time.Now().Add(-time.Hour)
	var ids [][]byte
	for i := 0; ; i++ {
		id := []byte{byte('A' + i/26), byte('a' + i%26)}
		_, err := j.AddEvent(id, base.Add(time.Duration(i)*time.Second), []AttachmentInput{{Data: chunk}})
		if err != nil {
			require.True(t, perrors.Is(err, perrors.Full))
			break
		}
		ids = append(ids, id)
	}
	require.NotEmpty(t, ids)

	// Complete a few early events and retry: compaction must make room.
	for _, id := range ids[:3] {
		ok, err := j.EventCompleted(id)
		require.NoError(t, err)
		require.True(t, ok)
	}
	before := j.Size()
	_, err := j.AddEvent([]byte("fits-now"), time.Now(), []AttachmentInput{{Data: chunk}})
	require.NoError(t, err)
	require.Equal(t, before+1, j.Size())
}

// file_management=delete unlinks a file once its last live event
// terminates, recreates it transparently on the next append, and
// tolerates the missing file on reopen.
func TestFileDeleteManagement(t *testing.T) {
	cfg := smallConfig()
	cfg.FileManagement = FileDelete
	dir := t.TempDir()
	j, err := Create(dir, cfg, nil)
	require.NoError(t, err)

	_, err = j.AddEvent([]byte("x"), time.Now(), nil)
	require.NoError(t, err)
	_, err = j.EventCompleted([]byte("x"))
	require.NoError(t, err)

	path := filepath.Join(dir, "journal-0.events")
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	_, err = j.AddEvent([]byte("y"), time.Now(), nil)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = j.EventCompleted([]byte("y"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j2, err := Open(dir, nil)
	require.NoError(t, err)
	defer j2.Close()
	require.True(t, j2.Empty())
}
