// Package queue holds pending download jobs between the bot handlers
// and the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/MaximPuga/savebot/internal/domain"
)

// Stats is a point-in-time count of jobs by status.
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Queue is an in-memory FIFO job queue. Jobs stay in the index after
// completion so stats and lookups keep working.
type Queue struct {
	mu    sync.RWMutex
	jobs  map[domain.JobID]*domain.DownloadJob
	order []domain.JobID
}

func New() *Queue {
	return &Queue{
		jobs:  make(map[domain.JobID]*domain.DownloadJob),
		order: make([]domain.JobID, 0),
	}
}

// Enqueue adds a job to the back of the queue.
func (q *Queue) Enqueue(ctx context.Context, job *domain.DownloadJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	return nil
}

// Dequeue returns the oldest queued job, or ErrNoJobs when nothing is
// waiting.
func (q *Queue) Dequeue(ctx context.Context) (*domain.DownloadJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, id := range q.order {
		job, ok := q.jobs[id]
		if !ok {
			continue
		}
		if job.Status == domain.JobStatusQueued {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return job, nil
		}
	}
	return nil, domain.ErrNoJobs
}

// Update replaces the stored job state.
func (q *Queue) Update(ctx context.Context, job *domain.DownloadJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	q.jobs[job.ID] = job
	return nil
}

// Get retrieves a job by ID.
func (q *Queue) Get(ctx context.Context, id domain.JobID) (*domain.DownloadJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// Stats counts jobs by status.
func (q *Queue) Stats(ctx context.Context) Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var stats Stats
	for _, job := range q.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Clear drops all jobs.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = make(map[domain.JobID]*domain.DownloadJob)
	q.order = q.order[:0]
}
