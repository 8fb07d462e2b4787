// Package plog is the logging glue shared by the storage core and the
// CLI tools. It wraps logrus behind a small interface so call sites
// never depend on the logging backend directly.
package plog

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v5"
)

// View is the logging surface every component and CLI tool is handed.
type View interface {
	Debugf(format string, x ...interface{})
	Infof(format string, x ...interface{})
	Warnf(format string, x ...interface{})
	Errorf(format string, x ...interface{})
	IsDebugEnabled() bool
}

// CLI is a terminal-oriented View that colors output when attached to
// a tty and disables color otherwise (redirected output, CI logs).
type CLI struct {
	DisableColors bool
	IsDebug       bool
	IsVerbose     bool

	progressOnce sync.Once
	progress     *mpb.Progress
}

// NewCLI builds a CLI logger, auto-detecting whether stderr is a
// terminal to decide on colorization.
func NewCLI(debug, verbose bool) *CLI {
	l := &CLI{IsDebug: debug, IsVerbose: verbose}
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		l.DisableColors = true
	}
	logrus.SetFormatter(l)
	logrus.SetLevel(logrus.TraceLevel)
	return l
}

// Debugf logs at trace level, gated on IsDebug.
func (l *CLI) Debugf(format string, x ...interface{}) {
	if l.IsDebug {
		logrus.Tracef(format, x...)
	}
}

// Infof logs at debug level, gated on IsVerbose.
func (l *CLI) Infof(format string, x ...interface{}) {
	if l.IsVerbose || l.IsDebug {
		logrus.Debugf(format, x...)
	}
}

// Warnf always logs at warn level.
func (l *CLI) Warnf(format string, x ...interface{}) {
	logrus.Warnf(format, x...)
}

// Errorf always logs at error level.
func (l *CLI) Errorf(format string, x ...interface{}) {
	logrus.Errorf(format, x...)
}

// IsDebugEnabled reports whether debug-level logging is active.
func (l *CLI) IsDebugEnabled() bool {
	return l.IsDebug
}

// Format implements logrus.Formatter.
func (l *CLI) Format(entry *logrus.Entry) ([]byte, error) {
	buf := new(bytes.Buffer)
	msg := entry.Message

	if l.DisableColors {
		fmt.Fprintf(buf, "%s\n", msg)
		return buf.Bytes(), nil
	}

	faint := color.New(color.Faint).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch entry.Level {
	case logrus.TraceLevel:
		fmt.Fprintf(buf, "%s\n", faint(msg))
	case logrus.DebugLevel:
		fmt.Fprintf(buf, "%s\n", blue(msg))
	case logrus.WarnLevel:
		fmt.Fprintf(buf, "%s\n", yellow(msg))
	case logrus.ErrorLevel:
		fmt.Fprintf(buf, "%s\n", red(msg))
	default:
		fmt.Fprintf(buf, "%s\n", msg)
	}

	return buf.Bytes(), nil
}

// Discard is a View that drops everything; used by library callers
// that don't want storage-core diagnostics on stderr.
var Discard View = discard{}

type discard struct{}

func (discard) Debugf(string, ...interface{}) {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Warnf(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}
func (discard) IsDebugEnabled() bool          { return false }
