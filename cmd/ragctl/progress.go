package main

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

var barTheme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// ingestProgress draws one bar per document, sized on the first update
type ingestProgress struct {
	w    io.Writer
	desc string
	bar  *progressbar.ProgressBar
}

func newIngestProgress(w io.Writer, desc string) *ingestProgress {
	return &ingestProgress{w: w, desc: desc}
}

func (p *ingestProgress) Update(done, total int) {
	if p.bar == nil {
		if total <= 0 {
			return
		}
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(p.desc),
			progressbar.OptionSetWidth(32),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(barTheme),
		)
	}
	_ = p.bar.Set(done)
}

func (p *ingestProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// startSpinner shows an indeterminate spinner until the returned func is called
func startSpinner(enabled bool, w io.Writer, desc string) func() {
	if !enabled {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(10),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(barTheme),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Add(1)
			case <-done:
				_ = bar.Finish()
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
