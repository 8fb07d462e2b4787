//go:build !linux

package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import "github.com/prinbee/prinbee/pkg/perrors"

// reflink is unsupported outside Linux's FICLONE ioctl; callers treat
// its failure as a signal to fall through to a full copy.
func reflink(src, dst string) error {
	return perrors.New(perrors.IoError, "reflink not supported on this platform")
}
