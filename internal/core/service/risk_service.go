package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api/metrics"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const defaultJobTTL = time.Hour

// RiskService correlates asynchronously processed risk assessments with the
// callers that submitted them. The store TTL is the only timeout: a job that
// is never reported simply disappears and is observed as UNKNOWN.
type RiskService struct {
	store  ports.JobStore
	queue  ports.JobQueue
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

func NewRiskService(store ports.JobStore, queue ports.JobQueue, ttl time.Duration, logger zerolog.Logger) *RiskService {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &RiskService{
		store:  store,
		queue:  queue,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Submit records a PENDING job owned by the caller's scope and hands the
// payload to the work queue. It does not wait for processing.
func (s *RiskService) Submit(ctx context.Context, id *domain.Identity, payload json.RawMessage) (string, error) {
	if id == nil {
		return "", domain.ErrIdentityMissing
	}
	if err := id.Validate(); err != nil {
		return "", err
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return "", domain.ErrInvalidPayload
	}

	now := s.now().UTC()
	job := &domain.Job{
		ID:        s.newID(),
		Status:    domain.JobPending,
		Scope:     id.Scope(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, job, s.ttl); err != nil {
		return "", fmt.Errorf("submit risk job: store: %w", err)
	}

	task := ports.RiskTask{JobID: job.ID, Scope: job.Scope, Payload: payload}
	if err := s.queue.Publish(ctx, task); err != nil {
		if derr := s.store.Delete(ctx, job.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("job_id", job.ID).Msg("failed to remove unpublished job")
		}
		return "", fmt.Errorf("submit risk job: publish: %w", err)
	}

	metrics.JobsSubmittedTotal.Inc()
	s.logger.Info().
		Str("job_id", job.ID).
		Str("subject", id.SubjectID).
		Str("scope", job.Scope).
		Msg("risk job submitted")
	return job.ID, nil
}

// ReportResult marks the job COMPLETE with result and refreshes its TTL.
// Reports for jobs that already expired are dropped with domain.ErrJobNotFound.
func (s *RiskService) ReportResult(ctx context.Context, jobID string, result json.RawMessage) error {
	if jobID == "" || len(result) == 0 || !json.Valid(result) {
		return domain.ErrInvalidPayload
	}

	existing, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			metrics.JobResultsTotal.WithLabelValues("dropped").Inc()
		}
		return fmt.Errorf("report risk result: %w", err)
	}

	done := &domain.Job{
		ID:        jobID,
		Status:    domain.JobComplete,
		Scope:     existing.Scope,
		Result:    result,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.Replace(ctx, done, s.ttl); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			metrics.JobResultsTotal.WithLabelValues("dropped").Inc()
		}
		return fmt.Errorf("report risk result: %w", err)
	}

	metrics.JobResultsTotal.WithLabelValues("stored").Inc()
	s.logger.Info().Str("job_id", jobID).Msg("risk result stored")
	return nil
}

// Poll returns the job as visible to id. Absent, expired, malformed and
// other-tenant jobs are all reported as UNKNOWN.
func (s *RiskService) Poll(ctx context.Context, id *domain.Identity, jobID string) (*domain.Job, error) {
	if id == nil {
		return nil, domain.ErrIdentityMissing
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(jobID); err != nil {
		metrics.JobPollsTotal.WithLabelValues(string(domain.JobUnknown)).Inc()
		return domain.UnknownJob(jobID), nil
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			metrics.JobPollsTotal.WithLabelValues(string(domain.JobUnknown)).Inc()
			return domain.UnknownJob(jobID), nil
		}
		return nil, fmt.Errorf("poll risk job: %w", err)
	}
	if !id.CanSee(job.Scope) {
		metrics.JobPollsTotal.WithLabelValues(string(domain.JobUnknown)).Inc()
		return domain.UnknownJob(jobID), nil
	}

	metrics.JobPollsTotal.WithLabelValues(string(job.Status)).Inc()
	return job, nil
}
