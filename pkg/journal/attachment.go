package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// materializeAttachment copies (or links) srcPath into the journal
// directory as <id>.bin. The configured AttachmentCopyHandling is tried
// first; if it fails, the remaining methods are tried in the order
// hard-link, reflink, full copy, symlink (see attachmentFallbackOrder).
// The last method's error is returned only when every method fails.
func (j *Journal) materializeAttachment(srcPath string, id uint32) error {
	dst := j.attachmentPath(id)

	order := attachmentFallbackOrder(j.cfg.AttachmentCopyHandling)
	var lastErr error
	for _, method := range order {
		var err error
		switch method {
		case AttachHardlink:
			err = os.Link(srcPath, dst)
		case AttachReflink:
			err = reflink(srcPath, dst)
		case AttachFull:
			err = copyFile(srcPath, dst)
		case AttachSoftlink:
			err = symlinkAbsolute(srcPath, dst)
		}
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return perrors.Wrap(lastErr, perrors.IoError, "materialize attachment %s", srcPath)
}

// attachmentFallbackOrder returns the methods to try, starting from
// the configured preference and falling through the rest of
// spec.md's documented chain (hardlink -> reflink -> full copy ->
// symlink) after it.
func attachmentFallbackOrder(preferred AttachmentCopyHandling) []AttachmentCopyHandling {
	full := []AttachmentCopyHandling{AttachHardlink, AttachReflink, AttachFull, AttachSoftlink}
	out := make([]AttachmentCopyHandling, 0, len(full))
	out = append(out, preferred)
	for _, m := range full {
		if m != preferred {
			out = append(out, m)
		}
	}
	return out
}

func (j *Journal) attachmentPath(id uint32) string {
	return filepath.Join(j.dir, attachmentFilename(id))
}

func attachmentFilename(id uint32) string {
	return strconv.FormatUint(uint64(id), 10) + ".bin"
}

// copyFile stages the copy under a uuid-suffixed temp name in the same
// directory as dst and renames it into place once fully written, so a
// crash mid-copy can never leave a partial file visible under dst's
// final name for a concurrent scan to trip over.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + "." + uuid.New().String() + ".tmp"
	out, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func symlinkAbsolute(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	return os.Symlink(abs, dst)
}

// ReadAttachment returns an external attachment's bytes, opening
// <dir>/<id>.bin.
func (j *Journal) ReadAttachment(a Attachment) ([]byte, error) {
	if !a.External {
		return a.data, nil
	}
	path := j.attachmentPath(a.ExternalID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "read attachment %s", path)
	}
	return data, nil
}

// attachmentSize stats an external attachment without reading it, so
// scan/decode can populate Attachment.size without loading the file.
func (j *Journal) attachmentSize(id uint32) (int64, error) {
	fi, err := os.Stat(j.attachmentPath(id))
	if err != nil {
		return 0, perrors.Wrap(err, perrors.IoError, "stat attachment")
	}
	return fi.Size(), nil
}
