package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"os"
	"time"

	"github.com/imdario/mergo"
	"github.com/sisatech/toml"
	"github.com/spf13/viper"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// SyncMode controls how aggressively a mutation is pushed to disk
// before add_event/event_* returns (spec.md section 4.9).
type SyncMode string

const (
	SyncNone  SyncMode = "none"
	SyncFlush SyncMode = "flush"
	SyncFull  SyncMode = "full"
)

// FileManagement controls what happens to a data file once every
// event in it has completed (spec.md section 4.9).
type FileManagement string

const (
	FileKeep     FileManagement = "keep"
	FileTruncate FileManagement = "truncate"
	FileDelete   FileManagement = "delete"
)

// AttachmentCopyHandling controls how an external attachment source
// file is materialized into the journal directory (spec.md section
// 4.9's fallback chain: hardlink -> reflink -> full copy -> symlink).
type AttachmentCopyHandling string

const (
	AttachSoftlink AttachmentCopyHandling = "softlink"
	AttachHardlink AttachmentCopyHandling = "hardlink"
	AttachReflink  AttachmentCopyHandling = "reflink"
	AttachFull     AttachmentCopyHandling = "full"
)

// Config is journal.conf's schema, written and read with the teacher's
// TOML stack.
type Config struct {
	Sync                         SyncMode               `toml:"sync"`
	FileManagement               FileManagement         `toml:"file_management"`
	CompressWhenFull             bool                   `toml:"compress_when_full"`
	MaximumNumberOfFiles         int                     `toml:"maximum_number_of_files"`
	MaximumFileSize              int64                  `toml:"maximum_file_size"`
	MaximumEvents                int                     `toml:"maximum_events"`
	InlineAttachmentSizeThreshold int                    `toml:"inline_attachment_size_threshold"`
	AttachmentCopyHandling       AttachmentCopyHandling `toml:"attachment_copy_handling"`
}

// DefaultConfig matches spec.md section 4.9's documented defaults and
// bounds.
func DefaultConfig() Config {
	return Config{
		Sync:                          SyncFull,
		FileManagement:                FileKeep,
		CompressWhenFull:              true,
		MaximumNumberOfFiles:          2,
		MaximumFileSize:               16 * 1024 * 1024,
		MaximumEvents:                 10000,
		InlineAttachmentSizeThreshold: 4096,
		AttachmentCopyHandling:        AttachSoftlink,
	}
}

// Validate enforces spec.md section 4.9's bounds table.
func (c Config) Validate() error {
	if c.MaximumNumberOfFiles < 2 || c.MaximumNumberOfFiles > 255 {
		return perrors.New(perrors.OutOfRange, "maximum_number_of_files must be 2..255, got %d", c.MaximumNumberOfFiles)
	}
	if c.MaximumFileSize < 64*1024 || c.MaximumFileSize > 128*1024*1024 {
		return perrors.New(perrors.OutOfRange, "maximum_file_size must be 64KiB..128MiB, got %d", c.MaximumFileSize)
	}
	if c.MaximumEvents < 100 || c.MaximumEvents > 100000 {
		return perrors.New(perrors.OutOfRange, "maximum_events must be 100..100000, got %d", c.MaximumEvents)
	}
	if c.InlineAttachmentSizeThreshold < 256 || c.InlineAttachmentSizeThreshold > 16*1024 {
		return perrors.New(perrors.OutOfRange, "inline_attachment_size_threshold must be 256B..16KiB, got %d", c.InlineAttachmentSizeThreshold)
	}
	switch c.Sync {
	case SyncNone, SyncFlush, SyncFull:
	default:
		return perrors.New(perrors.InvalidParameter, "unknown sync mode %q", c.Sync)
	}
	switch c.FileManagement {
	case FileKeep, FileTruncate, FileDelete:
	default:
		return perrors.New(perrors.InvalidParameter, "unknown file_management %q", c.FileManagement)
	}
	switch c.AttachmentCopyHandling {
	case AttachSoftlink, AttachHardlink, AttachReflink, AttachFull:
	default:
		return perrors.New(perrors.InvalidParameter, "unknown attachment_copy_handling %q", c.AttachmentCopyHandling)
	}
	return nil
}

// LoadConfig reads journal.conf at path if present, overlays it onto
// viper (so PRINBEE_JOURNAL_* environment variables can override
// individual keys, matching how the teacher layers file+env config
// for its own settings), and merges the result over DefaultConfig so
// any key the file omits still carries its default rather than a zero
// value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, perrors.Wrap(err, perrors.IoError, "read journal config %s", path)
		}
		var fromFile Config
		if _, err := toml.Decode(string(data), &fromFile); err != nil {
			return Config{}, perrors.Wrap(err, perrors.UnexpectedToken, "decode journal config %s", path)
		}

		v := viper.New()
		v.SetEnvPrefix("PRINBEE_JOURNAL")
		v.AutomaticEnv()
		if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
			return Config{}, perrors.Wrap(err, perrors.LogicError, "merge journal config")
		}
		applyEnvOverrides(v, &cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig encodes cfg as journal.conf at path.
func SaveConfig(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return perrors.Wrap(err, perrors.IoError, "create journal config %s", path)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return perrors.Wrap(err, perrors.IoError, "encode journal config")
	}
	return nil
}

func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("sync") {
		cfg.Sync = SyncMode(v.GetString("sync"))
	}
	if v.IsSet("file_management") {
		cfg.FileManagement = FileManagement(v.GetString("file_management"))
	}
	if v.IsSet("maximum_number_of_files") {
		cfg.MaximumNumberOfFiles = v.GetInt("maximum_number_of_files")
	}
}

// maxFutureSkew is how far ahead of "now" an add_event time is allowed
// to be (spec.md section 4.9's add_event contract).
const maxFutureSkew = 5 * time.Second
