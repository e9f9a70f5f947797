package provenance

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs validation jobs with bounded parallelism so Layer 2
// fetches respect upstream API rate limits.
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWorkerPool creates a pool with the given worker count; a
// non-positive size falls back to CPU-based sizing.
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		totalCPU := runtime.NumCPU()
		systemReserve := maxInt(1, totalCPU/4)
		size = maxInt(1, totalCPU-systemReserve)
	}
	log.Info().
		Int("workers", size).
		Msg("Validation worker pool initialized")
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	pool.start()

	return pool
}

func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Error().Err(err).Msg("Worker failed to execute job")
			}
		}
	}
}

// Submit queues a job for execution.
func (p *WorkerPool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close shuts the pool down and waits for all workers to finish.
func (p *WorkerPool) Close() {
	close(p.jobQueue)
	p.cancel()
	p.wg.Wait()
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.workers
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
