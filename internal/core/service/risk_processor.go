package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

type riskProcessor struct {
	analyzer ports.Analyzer
	results  ports.RiskService
	log      zerolog.Logger
}

// NewRiskProcessor returns the queue consumer for risk tasks.
func NewRiskProcessor(analyzer ports.Analyzer, results ports.RiskService, log zerolog.Logger) ports.RiskProcessor {
	return &riskProcessor{analyzer: analyzer, results: results, log: log}
}

// Process assesses one task and reports its result. Analyzer failures are
// returned so the queue redelivers; a job that expired in the meantime is
// acknowledged without a result.
func (p *riskProcessor) Process(ctx context.Context, task ports.RiskTask) error {
	if task.JobID == "" {
		return fmt.Errorf("process risk task: %w: missing job id", domain.ErrInvalidPayload)
	}

	result, err := p.analyzer.Assess(ctx, task.Payload)
	if err != nil {
		return fmt.Errorf("process risk task: assess: %w", err)
	}

	if err := p.results.ReportResult(ctx, task.JobID, result); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			p.log.Warn().Str("job_id", task.JobID).Msg("job expired before its result arrived")
			return nil
		}
		return fmt.Errorf("process risk task: report: %w", err)
	}

	p.log.Info().
		Str("job_id", task.JobID).
		Str("scope", task.Scope).
		Msg("risk task processed")
	return nil
}
