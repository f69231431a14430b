package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// JobKeyPrefix namespaces correlation jobs.
// Key format: risk_assessment_status:<job_id>
const JobKeyPrefix = "risk_assessment_status:"

// JobStore keeps risk jobs as JSON values that expire with their TTL.
type JobStore struct {
	client redis.UniversalClient
}

// NewJobStore creates a JobStore wrapping the given Redis client.
func NewJobStore(client redis.UniversalClient) *JobStore {
	return &JobStore{client: client}
}

func (s *JobStore) Put(ctx context.Context, job *domain.Job, ttl time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.client.Set(ctx, s.key(job.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

// Replace only writes when the key still exists (SET XX), so a result that
// arrives after expiry cannot resurrect the job.
func (s *JobStore) Replace(ctx context.Context, job *domain.Job, ttl time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key(job.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("replace job: %w", err)
	}
	if !ok {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *JobStore) key(id string) string {
	return JobKeyPrefix + id
}
