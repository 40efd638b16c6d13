package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vodarr/vodarr/internal/models"
)

// ErrQueueFull is returned by Submit when the buffered queue is saturated.
var ErrQueueFull = errors.New("transcode queue is full")

// ErrPoolStopped is returned by Submit after the pool has been stopped.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Pool is a bounded worker pool running upload jobs. Each worker owns one
// job at a time; stages and retries run inside the owning worker.
type Pool struct {
	workers      int
	queue        chan models.ULID
	orchestrator *Orchestrator
	logger       *slog.Logger

	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(workers, queueSize int, orchestrator *Orchestrator, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers:      workers,
		queue:        make(chan models.ULID, queueSize),
		orchestrator: orchestrator,
		logger:       logger,
		quit:         make(chan struct{}),
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight jobs; use Stop
// for a graceful shutdown that lets them finish.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("worker pool starting", slog.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(slog.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case jobID := <-p.queue:
			logger.Debug("job picked up", slog.String("upload_id", jobID.String()))
			p.orchestrator.Process(ctx, jobID)
		}
	}
}

// Submit enqueues a job for processing without blocking.
func (p *Pool) Submit(jobID models.ULID) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting work and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// QueueDepth returns the number of queued (not yet picked up) jobs.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}
