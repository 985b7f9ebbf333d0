package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/famomatic/bvdl/client"
)

type barFactory struct {
	out io.Writer
}

func newBarFactory(out io.Writer) *barFactory {
	return &barFactory{out: out}
}

func (f *barFactory) NewReporter(label string) client.ProgressReporter {
	return &barReporter{out: f.out, label: label}
}

// barReporter draws one byte progress bar per stream download.
type barReporter struct {
	out   io.Writer
	label string
	bar   *progressbar.ProgressBar
}

func (r *barReporter) OnStart(total int64) {
	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(r.label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) OnProgress(written int64) {
	if r.bar == nil {
		return
	}
	_ = r.bar.Set64(written)
}

func (r *barReporter) OnFinish(err error) {
	if r.bar == nil {
		return
	}
	if err != nil {
		_ = r.bar.Clear()
		return
	}
	_ = r.bar.Finish()
}
