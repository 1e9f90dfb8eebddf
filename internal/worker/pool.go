package worker

import (
	"context"
	"sync"
)

// TaskFunc is one unit of background work.
type TaskFunc func(context.Context)

// Pool is a fixed-size goroutine pool for generation runs. Runs are CPU-bound
// batch jobs and must never execute inline with the request that starts them.
type Pool struct {
	size   int
	tasks  chan TaskFunc
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool of the given size, minimum one.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		size:   size,
		tasks:  make(chan TaskFunc, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case fn := <-p.tasks:
					if fn != nil {
						fn(p.ctx)
					}
				}
			}
		}()
	}
}

// Submit hands work to the pool; it drops the task if the pool is stopped.
func (p *Pool) Submit(fn TaskFunc) {
	select {
	case <-p.ctx.Done():
	case p.tasks <- fn:
	}
}

// Context returns the pool's lifecycle context; it ends when Stop is called.
func (p *Pool) Context() context.Context { return p.ctx }

// Stop cancels the workers and waits for in-flight tasks.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}
