package main

import (
	"github.com/spf13/cobra"

	"github.com/deeprisk/fee-risk-system/internal/api"
	"github.com/deeprisk/fee-risk-system/internal/api/handler"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/core/service"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/postgres"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/redis"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/http/handlers"
	"github.com/deeprisk/fee-risk-system/internal/pkg/config"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run the fee query service behind the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap(cmd, "query")
			ctx, stop := signalContext()
			defer stop()

			pool, err := postgres.Connect(ctx, postgres.Config{
				DSN:      cfg.Postgres.DSN,
				MaxConns: cfg.Postgres.MaxConns,
			})
			if err != nil {
				return err
			}
			defer pool.Close()
			log.Info().Msg("postgres connected")

			rdb, err := connectRedis(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()

			settlements := service.NewSettlementService(
				postgres.NewSettlementRepository(pool),
				redis.NewCache(rdb, cfg.Cache.Prefix),
				cfg.Cache.TTL,
				log,
			)

			var verifier ports.TokenValidator
			if cfg.TrustMode == config.TrustToken {
				verifier = service.NewTokenValidator(cfg.JWTSecret)
			}

			e := api.NewQueryRouter(api.QueryDeps{
				Logger:      log,
				ServiceName: cfg.ServiceName + "-query",
				Verifier:    verifier,
				Settlements: handler.NewSettlementHandler(settlements),
				Readiness: map[string]handlers.Check{
					"postgres": handlers.PingCheck(pool),
					"redis":    handlers.RedisCheck(rdb),
				},
			})

			log.Info().Str("trust_mode", cfg.TrustMode).Msg("fee query service configured")
			return serve(ctx, e, cfg.Port, log)
		},
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}
