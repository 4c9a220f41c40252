// Package worker provides an asynchronous worker pool for ingesting
// documents off the request path. The inbox watcher feeds it files as they
// settle; the pool bounds how many documents are extracted and embedded at
// once so embedding providers are not flooded.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/logger"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Input      documents.Input
	EnqueuedAt time.Time
}

// HandlerFunc ingests one job.
type HandlerFunc func(ctx context.Context, job Job) error

// Config is the configuration options for the worker pool.
type Config struct {
	// Handler processes each job. Required.
	Handler HandlerFunc

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single job; zero means no limit.
	JobTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Stats counts jobs by outcome.
type Stats struct {
	Processed uint64
	Failed    uint64
	Dropped   uint64
}

// Pool processes ingest jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	processed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Handler == nil {
		return nil, errors.New("worker pool handler is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"path", job.Input.Path,
			"source", job.Input.Source,
		)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Error("job not queued, queue full, job dropped",
			"path", job.Input.Path,
			"source", job.Input.Source,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		p.cancel()
	})
}

// Abort cancels in-flight jobs, then drains like Close. Queued jobs still
// run but see a cancelled context.
func (p *Pool) Abort() {
	p.cancel()
	p.Close()
}

// Stats returns a snapshot of the job counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(id, job)
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}

// processJob runs the handler for job, recording the outcome. A panicking
// handler counts as a failure and does not take the worker down.
func (p *Pool) processJob(id uint, job Job) {
	ctx := p.ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.run(ctx, job)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("ingest job failed",
			"worker_id", id,
			"path", job.Input.Path,
			"error", err,
		)
		return
	}

	p.processed.Add(1)
	p.logger.Info("document ingested",
		"worker_id", id,
		"path", job.Input.Path,
		"queued_for", start.Sub(job.EnqueuedAt),
		"took", time.Since(start),
	)
}

func (p *Pool) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.config.Handler(ctx, job)
}
