/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */
// Command language-manager inspects and maintains a prinbee language
// registry file: listing what's currently assigned, listing what's
// available to merge in, and merging the built-in locale set into the
// file with freshly (randomly ordered) assigned ids (spec.md section
// 6).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/sisatech/tablewriter"
	"github.com/spf13/cobra"

	"github.com/prinbee/prinbee/pkg/language"
	"github.com/prinbee/prinbee/pkg/plog"
)

var (
	flagFile    string
	flagList    bool
	flagListAv  bool
	flagCreate  bool
	flagVerbose bool
	flagDebug   bool
	log         plog.View
)

var rootCmd = &cobra.Command{
	Use:   "language-manager",
	Short: "Inspect and maintain a prinbee language registry file",
	RunE:  run,
}

func commandInit() {
	rootCmd.Flags().StringVar(&flagFile, "file", "~/.prinbee/language.ini", "path to the language registry file")
	rootCmd.Flags().BoolVar(&flagList, "list", false, "list every language id currently assigned in --file")
	rootCmd.Flags().BoolVar(&flagListAv, "list-available", false, "list built-in locales not yet assigned an id in --file")
	rootCmd.Flags().BoolVar(&flagCreate, "create", false, "merge unassigned built-in locales into --file, assigning random ids")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log = plog.NewCLI(flagDebug, flagVerbose)
		return nil
	}
}

func run(cmd *cobra.Command, args []string) error {
	if !flagList && !flagListAv && !flagCreate {
		return fmt.Errorf("language-manager: one of --list, --list-available, or --create is required")
	}

	path, err := homedir.Expand(flagFile)
	if err != nil {
		return fmt.Errorf("language-manager: expand --file: %w", err)
	}

	reg, err := openOrEmpty(path)
	if err != nil {
		return err
	}

	switch {
	case flagList:
		return listAssigned(reg)
	case flagListAv:
		return listAvailable(reg)
	case flagCreate:
		return create(reg, path)
	}
	return nil
}

func openOrEmpty(path string) (*language.Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("%s does not exist yet, starting from an empty registry", path)
		return language.New(language.DuplicateForbidden), nil
	}
	reg, err := language.Load(path, language.DuplicateForbidden)
	if err != nil {
		return nil, fmt.Errorf("language-manager: load %s: %w", path, err)
	}
	return reg, nil
}

func listAssigned(reg *language.Registry) error {
	rows := [][]string{{"id", "key", "country", "language"}}
	for _, e := range reg.All() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID), e.Key(), e.Country, e.Language,
		})
	}
	printTable(rows)
	return nil
}

func listAvailable(reg *language.Registry) error {
	assigned := make(map[string]bool)
	for _, e := range reg.All() {
		assigned[e.Key()] = true
	}

	rows := [][]string{{"key", "country", "language"}}
	for _, c := range builtinLocales {
		e := language.Entry{
			Country: c.Country, Language: c.Language,
			Country2Letters: c.Country2Letters,
			Language2Letters: c.Language2Letters, Language3Letters: c.Language3Letters,
		}
		if assigned[e.Key()] {
			continue
		}
		rows = append(rows, []string{e.Key(), e.Country, e.Language})
	}
	printTable(rows)
	return nil
}

func create(reg *language.Registry, path string) error {
	assigned := make(map[string]bool)
	for _, e := range reg.All() {
		assigned[e.Key()] = true
	}

	var candidates []language.Candidate
	for _, c := range builtinLocales {
		probe := language.Entry{Country2Letters: c.Country2Letters, Language2Letters: c.Language2Letters, Language3Letters: c.Language3Letters}
		if assigned[probe.Key()] {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		log.Infof("nothing new to merge into %s", path)
		return nil
	}

	newEntries, err := reg.Assign(candidates)
	if err != nil {
		return fmt.Errorf("language-manager: assign ids: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("language-manager: create %s: %w", filepath.Dir(path), err)
	}
	if err := reg.Save(path); err != nil {
		return fmt.Errorf("language-manager: save %s: %w", path, err)
	}

	log.Infof("merged %d locale(s) into %s", len(newEntries), path)
	rows := [][]string{{"id", "key", "country", "language"}}
	for _, e := range newEntries {
		rows = append(rows, []string{fmt.Sprintf("%d", e.ID), e.Key(), e.Country, e.Language})
	}
	printTable(rows)
	return nil
}

func printTable(rows [][]string) {
	if len(rows) <= 1 {
		fmt.Println("(none)")
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
