package downloader

import (
	"io"

	"github.com/famomatic/bvdl/internal/transport"
)

// ProgressReporter is an interface for reporting download progress.
type ProgressReporter interface {
	// OnStart is called once the expected size is known. total is -1 when unknown.
	OnStart(total int64)
	OnProgress(bytesWritten int64)
	OnFinish(err error)
}

// ProgressFactory creates one reporter per stream download.
type ProgressFactory interface {
	NewReporter(label string) ProgressReporter
}

type progressWriter struct {
	w        io.Writer
	reporter ProgressReporter
	started  bool
	written  int64
}

var _ transport.SizeAware = (*progressWriter)(nil)

func newProgressWriter(w io.Writer, reporter ProgressReporter) *progressWriter {
	return &progressWriter{w: w, reporter: reporter}
}

func (p *progressWriter) ExpectSize(n int64) {
	if p.reporter == nil || p.started {
		return
	}
	p.started = true
	p.reporter.OnStart(n)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if p.reporter != nil && !p.started {
		p.started = true
		p.reporter.OnStart(-1)
	}
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.reporter != nil && n > 0 {
		p.reporter.OnProgress(p.written)
	}
	return n, err
}

func (p *progressWriter) finish(err error) {
	if p.reporter == nil {
		return
	}
	if !p.started {
		p.started = true
		p.reporter.OnStart(-1)
	}
	p.reporter.OnFinish(err)
}
