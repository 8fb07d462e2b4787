/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */
// Command crc16 computes the CRC-16 framing checksum spec.md section 6
// describes: either over literal hex-encoded bytes given with --hex,
// or over the contents of one or more files given with --file. It
// exits 0 on success and 1 on a usage or I/O error, matching the
// external-collaborator contract the storage core exposes for this
// tool.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prinbee/prinbee/pkg/crc16"
	"github.com/prinbee/prinbee/pkg/plog"
)

var (
	flagHex     []string
	flagFile    []string
	flagVerbose bool
	flagDebug   bool
	log         plog.View
)

var rootCmd = &cobra.Command{
	Use:   "crc16",
	Short: "Compute a CRC-16 checksum over hex literals or files",
	Long: `crc16 computes the CRC-16 checksum the prinbee binary message
layer stamps onto its frames, over one or more inputs given either as
hex-encoded bytes or as file paths.`,
	RunE: runCRC16,
}

func commandInit() {
	rootCmd.Flags().StringArrayVar(&flagHex, "hex", nil, "hex-encoded bytes to checksum (may be repeated)")
	rootCmd.Flags().StringArrayVar(&flagFile, "file", nil, "path to a file to checksum (may be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log = plog.NewCLI(flagDebug, flagVerbose)
		return nil
	}
}

func runCRC16(cmd *cobra.Command, args []string) error {
	if len(flagHex) == 0 && len(flagFile) == 0 {
		return fmt.Errorf("crc16: at least one --hex or --file input is required")
	}

	crc := uint16(crc16.Init)
	for _, h := range flagHex {
		data, err := hex.DecodeString(h)
		if err != nil {
			return fmt.Errorf("crc16: bad --hex value %q: %w", h, err)
		}
		crc = crc16.Update(crc, data)
		log.Debugf("folded %d hex bytes", len(data))
	}
	for _, path := range flagFile {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("crc16: read %s: %w", path, err)
		}
		crc = crc16.Update(crc, data)
		log.Debugf("folded %d bytes from %s", len(data), path)
	}

	fmt.Printf("%04x\n", crc)
	return nil
}

func main() {
	commandInit()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
