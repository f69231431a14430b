package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const (
	// QueueRisk is the asynq queue that carries risk assessments.
	QueueRisk = "risk"
	// TaskTypeRiskAssess is the task type for one submitted risk job.
	TaskTypeRiskAssess = "risk:assess"

	defaultMaxRetry    = 5
	defaultConcurrency = 10
)

// NewRiskTask wraps a RiskTask as an asynq task.
func NewRiskTask(task ports.RiskTask) (*asynq.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode risk task: %w", err)
	}
	return asynq.NewTask(TaskTypeRiskAssess, data), nil
}

// Publisher is the Redis-backed JobQueue.
type Publisher struct {
	client   *asynq.Client
	maxRetry int
}

func NewPublisher(redisOpt asynq.RedisClientOpt, maxRetry int) *Publisher {
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &Publisher{client: asynq.NewClient(redisOpt), maxRetry: maxRetry}
}

func (p *Publisher) Publish(ctx context.Context, task ports.RiskTask) error {
	t, err := NewRiskTask(task)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, t,
		asynq.Queue(QueueRisk),
		asynq.MaxRetry(p.maxRetry),
		asynq.TaskID(task.JobID),
	)
	if err != nil {
		return fmt.Errorf("enqueue risk task: %w", err)
	}
	return nil
}

// Close releases client resources.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// HandleRiskTask adapts a RiskProcessor to an asynq handler. Undecodable or
// invalid tasks are not retried; every other failure is.
func HandleRiskTask(processor ports.RiskProcessor, log zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var task ports.RiskTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			log.Error().Err(err).Msg("dropping undecodable risk task")
			return fmt.Errorf("decode risk task: %v: %w", err, asynq.SkipRetry)
		}
		if err := processor.Process(ctx, task); err != nil {
			if errors.Is(err, domain.ErrInvalidPayload) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// Worker wraps the asynq server consuming the risk queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    zerolog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpt    asynq.RedisClientOpt
	Concurrency int
	Processor   ports.RiskProcessor
	Logger      zerolog.Logger
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Processor == nil {
		return nil, errors.New("worker: processor is required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	log := cfg.Logger
	srv := asynq.NewServer(cfg.RedisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueRisk: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			log.Error().Err(err).Str("type", t.Type()).Msg("risk task failed")
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeRiskAssess, HandleRiskTask(cfg.Processor, log))

	return &Worker{server: srv, mux: mux, log: log}, nil
}

// Run starts processing tasks and blocks until ctx is cancelled, then waits
// for in-flight tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start risk worker: %w", err)
	}
	w.log.Info().Str("queue", QueueRisk).Msg("risk worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info().Msg("risk worker stopped")
	return nil
}
