package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// JobDeliverer delivers a single job.
type JobDeliverer interface {
	Deliver(ctx context.Context, job domain.DeliveryJob)
}

// Pool manages a fixed number of worker goroutines that process delivery
// jobs. Each worker owns a queue and every source channel hashes to one
// worker, so jobs for the same channel run in submission order while
// different channels proceed in parallel.
type Pool struct {
	queues    []chan domain.DeliveryJob
	deliverer JobDeliverer
	logger    *slog.Logger
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a worker pool with numWorkers workers, each buffering up
// to queueSize jobs.
func NewPool(numWorkers, queueSize int, deliverer JobDeliverer, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	queues := make([]chan domain.DeliveryJob, numWorkers)
	for i := range queues {
		queues[i] = make(chan domain.DeliveryJob, queueSize)
	}
	return &Pool{
		queues:    queues,
		deliverer: deliverer,
		logger:    logger,
	}
}

// Start launches all worker goroutines. They read from their queue until it
// is closed by Stop.
func (p *Pool) Start(ctx context.Context) {
	for i := range p.queues {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", len(p.queues))
}

// Submit queues job on the worker owning its source channel. It blocks
// while that worker's queue is full and reports false once the pool is
// stopped.
func (p *Pool) Submit(job domain.DeliveryJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.logger.Warn("worker pool stopped, dropping delivery",
			"delivery_id", job.ID,
			"channel_id", job.Entry.SourceChannelID,
		)
		return false
	}

	p.queues[p.shard(job.Entry.SourceChannelID)] <- job
	return true
}

// Pending returns the number of queued jobs not yet picked up.
func (p *Pool) Pending() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

// Stop closes the queues and waits for queued and in-flight deliveries.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) shard(channelID string) int {
	return int(xxhash.Sum64String(channelID) % uint64(len(p.queues)))
}

// worker is a single goroutine that processes jobs from its queue. Once ctx
// is cancelled remaining jobs are drained without being delivered.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.queues[id] {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker shutting down, dropping delivery",
				"worker", id,
				"delivery_id", job.ID,
			)
		default:
			p.deliverer.Deliver(ctx, job)
		}
	}
}
