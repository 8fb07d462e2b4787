//go:build linux

package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// reflink attempts a copy-on-write clone via the FICLONE ioctl, the
// same primitive btrfs/xfs/zfs expose for instant, space-sharing
// copies; it fails (falling through to a full copy) on filesystems
// that don't support it.
func reflink(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return perrors.Wrap(err, perrors.IoError, "open reflink source")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return perrors.Wrap(err, perrors.IoError, "create reflink destination")
	}
	defer out.Close()

	if err := unix.IoctlFileClone(int(out.Fd()), int(in.Fd())); err != nil {
		os.Remove(dst)
		return perrors.Wrap(err, perrors.IoError, "FICLONE not supported")
	}
	return nil
}
