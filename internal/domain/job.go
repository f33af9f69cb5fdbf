package domain

import (
	"time"
)

// JobID is a unique identifier for a remux job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents one queued remux request.
type Job struct {
	ID          JobID
	URL         string
	Status      JobStatus
	Attempts    int
	MaxRetries  int
	FailureKind FailureKind
	LastError   string

	// Result fields, populated once the job completes.
	MediaType string
	SizeBytes int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a new job for the given source URL.
func NewJob(id JobID, url string, maxRetries int) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		URL:        url,
		Status:     JobStatusQueued,
		Attempts:   0,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry returns true if the job can be retried.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxRetries
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records a delivered payload's metadata.
func (j *Job) MarkCompleted(mediaType string, sizeBytes int64) {
	j.Status = JobStatusCompleted
	j.MediaType = mediaType
	j.SizeBytes = sizeBytes
	j.FailureKind = ""
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed records a failure. The job moves to retrying if attempts remain.
func (j *Job) MarkFailed(kind FailureKind, message string) {
	j.Attempts++
	j.FailureKind = kind
	j.LastError = message
	j.UpdatedAt = time.Now()

	if j.CanRetry() {
		j.Status = JobStatusRetrying
	} else {
		j.Status = JobStatusFailed
	}
}
