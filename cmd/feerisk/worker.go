package main

import (
	"github.com/spf13/cobra"

	"github.com/deeprisk/fee-risk-system/internal/core/service"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/analyzer"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/redis"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/queue"
)

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume risk tasks from the queue and report results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap(cmd, "worker")
			ctx, stop := signalContext()
			defer stop()

			rdb, err := connectRedis(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()

			// The worker never submits; RiskService still needs a queue.
			publisher := queue.NewPublisher(asynqRedis(cfg), cfg.Queue.MaxRetry)
			defer func() { _ = publisher.Close() }()

			results := service.NewRiskService(redis.NewJobStore(rdb), publisher, cfg.Jobs.TTL, log)
			processor := service.NewRiskProcessor(
				analyzer.NewClient(cfg.Analyzer.URL, cfg.Analyzer.Timeout),
				results,
				log,
			)

			concurrency, _ := cmd.Flags().GetInt("concurrency")
			if concurrency <= 0 {
				concurrency = cfg.Queue.Workers
			}
			w, err := queue.NewWorker(queue.WorkerConfig{
				RedisOpt:    asynqRedis(cfg),
				Concurrency: concurrency,
				Processor:   processor,
				Logger:      log,
			})
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	cmd.Flags().Int("concurrency", 0, "Concurrent tasks (defaults to QUEUE_WORKERS)")
	return cmd
}
