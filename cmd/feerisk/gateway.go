package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/deeprisk/fee-risk-system/internal/api"
	"github.com/deeprisk/fee-risk-system/internal/api/handler"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/core/service"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/analyzer"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/mongo"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/redis"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/http/handlers"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/queue"
	"github.com/deeprisk/fee-risk-system/internal/pkg/config"
)

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the edge gateway (auth, async risk assessment, query proxy)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap(cmd, "gateway")
			ctx, stop := signalContext()
			defer stop()

			// --- Account store ---
			mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
				URI:      cfg.Mongo.URI,
				Database: cfg.Mongo.Database,
			})
			if err != nil {
				return err
			}
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()

			users := mongo.NewAuthRepository(db)
			if err := users.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("ensure user indexes: %w", err)
			}

			// --- Job store ---
			rdb, err := connectRedis(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()
			jobs := redis.NewJobStore(rdb)

			// --- Risk queue ---
			var jobQueue ports.JobQueue
			var dispatcher *queue.Dispatcher
			switch cfg.Queue.Driver {
			case config.QueueMemory:
				dispatcher = queue.NewDispatcher(cfg.Queue.Workers, log)
				jobQueue = dispatcher
			default:
				publisher := queue.NewPublisher(asynqRedis(cfg), cfg.Queue.MaxRetry)
				defer func() { _ = publisher.Close() }()
				jobQueue = publisher
			}

			riskService := service.NewRiskService(jobs, jobQueue, cfg.Jobs.TTL, log)
			if dispatcher != nil {
				client := analyzer.NewClient(cfg.Analyzer.URL, cfg.Analyzer.Timeout)
				dispatcher.Start(ctx, service.NewRiskProcessor(client, riskService, log))
				log.Info().Int("workers", cfg.Queue.Workers).Msg("in-process risk dispatcher started")
			}

			queryURL, err := url.Parse(cfg.Gateway.QueryServiceURL)
			if err != nil {
				return fmt.Errorf("parse QUERY_SERVICE_URL: %w", err)
			}

			authService := service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL)

			e := api.NewGatewayRouter(api.GatewayDeps{
				Logger:         log,
				ServiceName:    cfg.ServiceName + "-gateway",
				Development:    cfg.IsDevelopment(),
				Validator:      service.NewTokenValidator(cfg.JWTSecret),
				Auth:           handler.NewAuthHandler(authService),
				Risk:           handler.NewRiskHandler(riskService),
				QueryService:   queryURL,
				LoginRateLimit: cfg.Gateway.LoginRateLimit,
				Readiness: map[string]handlers.Check{
					"mongo": handlers.MongoCheck(db),
					"redis": handlers.RedisCheck(rdb),
				},
			})

			return serve(ctx, e, cfg.Port, log)
		},
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}
