package main

import (
	"context"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/pkg/config"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/db/redis"
)

func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*goredis.Client, error) {
	client, err := redis.Connect(ctx, redisConfig(cfg))
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("redis connected")
	return client, nil
}

func redisConfig(cfg *config.Config) redis.Config {
	return redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// asynqRedis points the risk queue at the same Redis as the job store.
func asynqRedis(cfg *config.Config) asynq.RedisClientOpt {
	opts := redisConfig(cfg).Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}
