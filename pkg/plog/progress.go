package plog

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// Progress tracks one long-running operation's completion, mirroring
// the teacher's elog.Progress: increment as units complete, finish
// once, regardless of whether a real bar or a no-op backs it.
type Progress interface {
	Increment(n int64)
	Finish()
}

// ProgressReporter is implemented by loggers that can surface a
// Progress bar; cmd/prinbee-journal uses one for its --list event
// scan.
type ProgressReporter interface {
	NewProgress(label string, total int64) Progress
}

// NewProgress renders a real mpb bar when attached to a terminal (or a
// spinner when total is 0, i.e. the unit count isn't known up front),
// and a no-op otherwise so piped/redirected output stays clean.
func (l *CLI) NewProgress(label string, total int64) Progress {
	if l.DisableColors {
		return noopProgress{}
	}

	l.progressOnce.Do(func() {
		l.progress = mpb.New(mpb.WithWidth(60))
	})

	var bar *mpb.Bar
	if total <= 0 {
		bar = l.progress.AddSpinner(0, mpb.SpinnerOnLeft,
			mpb.PrependDecorators(decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DidentRight})))
	} else {
		bar = l.progress.AddBar(total,
			mpb.PrependDecorators(
				decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DidentRight}),
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}
	return &mpbProgress{bar: bar, total: total}
}

type mpbProgress struct {
	bar     *mpb.Bar
	current int64
	total   int64
}

func (p *mpbProgress) Increment(n int64) {
	p.current += n
	p.bar.IncrInt64(n)
}

// Finish aborts the bar if it never reached its declared total (the
// label stops at whatever fraction actually completed, rather than
// hanging at an incomplete percentage), matching the teacher's
// Finish(success) check against pb.total.
func (p *mpbProgress) Finish() {
	if p.total > 0 && p.current < p.total {
		p.bar.Abort(false)
	}
}

type noopProgress struct{}

func (noopProgress) Increment(int64) {}
func (noopProgress) Finish()         {}

var _ ProgressReporter = (*CLI)(nil)
