package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// JobStatus is the observable state of a correlation job.
type JobStatus string

const (
	JobPending  JobStatus = "PENDING"
	JobComplete JobStatus = "COMPLETE"
	// JobUnknown covers "never existed", "expired while pending" and
	// "expired after completion"; they cannot be told apart.
	JobUnknown JobStatus = "UNKNOWN"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Job is a submitted risk assessment whose result is retrieved by polling.
type Job struct {
	ID        string          `json:"job_id"`
	Status    JobStatus       `json:"status"`
	Scope     string          `json:"scope,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// UnknownJob is what callers observe for an absent or invisible job.
func UnknownJob(id string) *Job {
	return &Job{ID: id, Status: JobUnknown}
}
