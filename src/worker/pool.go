package worker

import (
	"context"
	"log"
	"runtime"
	"sync"

	"subtitle-translator-llm/src/validation"
)

// Job runs one translation pipeline and returns the normalized record.
type Job func(ctx context.Context) (validation.Translation, error)

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the loop safely.
type ResultCallback func(rec validation.Translation, err error)

// Pool is a fixed-size translation worker pool with a 1-slot input queue
// (strict back-pressure: a capture burst never queues stale frames).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx context.Context
	run Job
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				rec, err := j.run(j.ctx)
				log.Printf("Worker: translation completed, translation length=%d, err=%v", len(rec.Translation), err)
				j.cb(rec, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, run Job, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, run: run, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
