package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/descriptor"
	"github.com/tensorplex-labs/simsal/internal/metrics"
	"github.com/tensorplex-labs/simsal/internal/pipeline"
	"github.com/tensorplex-labs/simsal/internal/server"
	"github.com/tensorplex-labs/simsal/internal/utils/logger"
	"github.com/tensorplex-labs/simsal/internal/utils/redis"
)

func main() {
	logger.Init()
	log.Info().Msg("Starting saliency server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	var store descriptor.Store
	if cfg.RedisHost != "" {
		r, err := redis.NewRedis(&cfg.RedisEnvConfig)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("failed to init redis client, continuing without redis")
		case r.Ping(ctx) != nil:
			log.Error().Str("host", cfg.RedisHost).Msg("redis unreachable, continuing without redis")
			r.Close()
		default:
			defer r.Close()
			store = r
		}
	}

	src, err := descriptor.FromConfig(&cfg.DescriptorEnvConfig, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init descriptor source")
	}

	m := metrics.New()
	pipe, err := pipeline.FromConfig(cfg.SaliencyEnvConfig, cfg.PerturberEnvConfig, pipeline.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build saliency pipeline")
	}

	s, err := server.NewServer(&cfg.ServerEnvConfig, pipe, src, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init server")
	}

	// stop accepting requests once a shutdown signal arrives
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	if err := s.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
	log.Info().Msg("server stopped")
}
