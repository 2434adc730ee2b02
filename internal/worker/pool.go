// Package worker runs download jobs off the bot handler path so slow
// strategy chains never block message handling.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/queue"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Downloader resolves a request into a staged local file.
type Downloader interface {
	Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error)
}

// ResultFunc receives the outcome of a finished job. The file is nil
// when err is set; otherwise the receiver owns the file and must remove
// it after delivery.
type ResultFunc func(job *domain.DownloadJob, file *domain.DownloadedFile, err error)

// Pool polls the queue and runs jobs through the download pipeline.
type Pool struct {
	workers      int
	pollInterval time.Duration
	queue        *queue.Queue
	downloader   Downloader
	onResult     ResultFunc
	logger       *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration
}

// NewPool creates a worker pool. onResult may be nil when nobody needs
// delivery callbacks.
func NewPool(cfg Config, q *queue.Queue, downloader Downloader, onResult ResultFunc, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		queue:        q,
		downloader:   downloader,
		onResult:     onResult,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			p.processNextJob(logger)
		}
	}
}

func (p *Pool) processNextJob(logger *slog.Logger) {
	job, err := p.queue.Dequeue(p.ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoJobs) {
			logger.Error("failed to dequeue job", "error", err)
		}
		return
	}

	logger = logger.With("job_id", job.ID, "url", job.Request.URL)
	logger.Info("processing job")

	job.MarkProcessing()
	if err := p.queue.Update(p.ctx, job); err != nil {
		logger.Error("failed to update job status", "error", err)
		return
	}

	file, err := p.downloader.Download(p.ctx, job.Request)
	if err != nil {
		job.MarkFailed(err.Error())
		if updateErr := p.queue.Update(p.ctx, job); updateErr != nil {
			logger.Error("failed to update job after failure", "error", updateErr)
		}
		logger.Error("job failed", "error", err)
		p.deliver(job, nil, err)
		return
	}

	job.MarkCompleted()
	if err := p.queue.Update(p.ctx, job); err != nil {
		logger.Error("failed to mark job completed", "error", err)
	}

	logger.Info("job completed", "path", file.Path, "size", file.Size)
	p.deliver(job, file, nil)
}

func (p *Pool) deliver(job *domain.DownloadJob, file *domain.DownloadedFile, err error) {
	if p.onResult == nil {
		if file != nil {
			file.Remove()
		}
		return
	}
	p.onResult(job, file, err)
}
