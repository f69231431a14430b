package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// RiskTask is the message handed to the work queue for one submitted job.
type RiskTask struct {
	JobID   string          `json:"job_id"`
	Scope   string          `json:"scope,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// JobStore persists correlation jobs with a TTL.
type JobStore interface {
	// Put writes the job unconditionally.
	Put(ctx context.Context, job *domain.Job, ttl time.Duration) error
	// Replace overwrites an existing job; it returns domain.ErrJobNotFound
	// when the job is absent.
	Replace(ctx context.Context, job *domain.Job, ttl time.Duration) error
	// Get returns domain.ErrJobNotFound when the job is absent or expired.
	Get(ctx context.Context, id string) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
}

// JobQueue hands tasks to an at-least-once work queue.
type JobQueue interface {
	Publish(ctx context.Context, task RiskTask) error
}

// RiskService is the submit/poll correlation flow.
type RiskService interface {
	Submit(ctx context.Context, id *domain.Identity, payload json.RawMessage) (string, error)
	ReportResult(ctx context.Context, jobID string, result json.RawMessage) error
	Poll(ctx context.Context, id *domain.Identity, jobID string) (*domain.Job, error)
}

// RiskProcessor consumes one task from the queue.
type RiskProcessor interface {
	Process(ctx context.Context, task RiskTask) error
}

// Analyzer computes a risk assessment for a payload.
type Analyzer interface {
	Assess(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}
