package domain

import (
	"time"
)

// JobID is a unique identifier for a download job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a download job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// DownloadJob ties a download request to the chat that asked for it.
// A job runs the strategy chain at most once; fallbacks happen inside
// the pipeline, not by re-queueing.
type DownloadJob struct {
	ID        JobID
	Request   DownloadRequest
	ChatID    int64
	MessageID int
	Status    JobStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDownloadJob creates a queued job for a chat's download request.
func NewDownloadJob(id JobID, req DownloadRequest, chatID int64, messageID int) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		ID:        id,
		Request:   req,
		ChatID:    chatID,
		MessageID: messageID,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing updates the job status to processing.
func (j *DownloadJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted updates the job status to completed.
func (j *DownloadJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *DownloadJob) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}
