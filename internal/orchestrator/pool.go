package orchestrator

import (
	"context"
	"errors"
	"sync"
)

type job func(ctx context.Context)

// workerPool runs part jobs with bounded concurrency. Jobs always run once
// submitted; they are expected to check ctx themselves so that a canceled run
// still reports every part.
type workerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup
}

func newWorkerPool(parent context.Context, concurrency, queueSize int) (*workerPool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	p := &workerPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, queueSize),
	}
	p.start(concurrency)
	return p, nil
}

func (p *workerPool) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for fn := range p.jobs {
				fn(p.ctx)
			}
		}()
	}
}

func (p *workerPool) submit(fn job) error {
	select {
	case p.jobs <- fn:
		return nil
	default:
		return errors.New("worker pool queue is full")
	}
}

// abort cancels the context handed to jobs that have not finished yet.
func (p *workerPool) abort() { p.cancel() }

// wait closes the queue and blocks until every submitted job returned.
func (p *workerPool) wait() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}
