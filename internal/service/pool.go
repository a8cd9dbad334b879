package service

import (
	"context"
	"sync"

	"instaweb/internal/core/domain"
)

type task struct {
	jobID string
	proxy string
}

// pool runs download tasks on a fixed number of workers fed by a bounded
// queue. A job stays queued until a worker picks it up.
type pool struct {
	size  int
	tasks chan task
	run   func(ctx context.Context, t task)
	wg    sync.WaitGroup
}

func newPool(size, queueSize int, run func(ctx context.Context, t task)) *pool {
	return &pool{
		size:  size,
		tasks: make(chan task, queueSize),
		run:   run,
	}
}

// start launches the workers. They exit when ctx is cancelled; a task
// already picked up runs to completion first.
func (p *pool) start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-p.tasks:
					p.run(ctx, t)
				}
			}
		}()
	}
}

// enqueue never blocks.
func (p *pool) enqueue(t task) error {
	select {
	case p.tasks <- t:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

func (p *pool) wait() {
	p.wg.Wait()
}
