/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */
// Command prinbee-journal dumps a journal directory for inspection:
// every live event, in request-id or event-time order, as a table or
// as raw binary-id hex, per spec.md section 6.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sisatech/tablewriter"
	"github.com/spf13/cobra"

	"github.com/prinbee/prinbee/pkg/journal"
	"github.com/prinbee/prinbee/pkg/plog"
)

var (
	flagDir      string
	flagList     bool
	flagByTime   bool
	flagText     bool
	flagBinaryID bool
	flagVerbose  bool
	flagDebug    bool
	log          *plog.CLI
)

var rootCmd = &cobra.Command{
	Use:   "prinbee-journal",
	Short: "Dump a prinbee journal directory for inspection",
	RunE:  run,
}

func commandInit() {
	rootCmd.Flags().StringVar(&flagDir, "dir", ".", "path to the journal directory")
	rootCmd.Flags().BoolVar(&flagList, "list", false, "list live events")
	rootCmd.Flags().BoolVar(&flagByTime, "by-time", false, "order --list output by event time instead of request id")
	rootCmd.Flags().BoolVar(&flagText, "text", false, "render printable-ASCII request ids as text instead of hex")
	rootCmd.Flags().BoolVar(&flagBinaryID, "binary-id", false, "render request ids as hex even if they decode as text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log = plog.NewCLI(flagDebug, flagVerbose)
		return nil
	}
}

func run(cmd *cobra.Command, args []string) error {
	if !flagList {
		return fmt.Errorf("prinbee-journal: --list is currently the only supported operation")
	}

	j, err := journal.Open(flagDir, log)
	if err != nil {
		return fmt.Errorf("prinbee-journal: open %s: %w", flagDir, err)
	}
	defer j.Close()

	log.Infof("journal %s has %d live event(s)", flagDir, j.Size())

	bar := log.NewProgress("scanning events", int64(j.Size()))
	rows := [][]string{{"request_id", "status", "time", "attachments", "file", "offset"}}
	j.Rewind()
	for {
		ev, dbg, err := j.NextEvent(flagByTime, true)
		if err != nil {
			bar.Finish()
			return fmt.Errorf("prinbee-journal: next event: %w", err)
		}
		if ev == nil {
			break
		}
		bar.Increment(1)

		var loc string
		if dbg != nil {
			loc = dbg.File
		}
		var offset string
		if dbg != nil {
			offset = fmt.Sprintf("%d", dbg.Offset)
		}

		rows = append(rows, []string{
			renderRequestID(ev.RequestID),
			ev.Status.String(),
			ev.Time.Format("2006-01-02T15:04:05.000000000Z07:00"),
			fmt.Sprintf("%d", len(ev.Attachments)),
			loc,
			offset,
		})
	}
	bar.Finish()

	printTable(rows)
	return nil
}

func renderRequestID(id []byte) string {
	if flagBinaryID {
		return hex.EncodeToString(id)
	}
	if flagText && isPrintable(id) {
		return string(id)
	}
	return hex.EncodeToString(id)
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func printTable(rows [][]string) {
	if len(rows) <= 1 {
		fmt.Println("(no live events)")
		return
	}
	t := tablewriter.NewWriter(os.Stdout)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetColumnSeparator("")
	t.SetHeader(rows[0])
	for _, r := range rows[1:] {
		t.Append(r)
	}
	t.Render()
}

func main() {
	commandInit()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
