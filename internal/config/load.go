// Package config defines environment configuration structs and loaders.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type AppConfig struct {
	SaliencyEnvConfig
	PerturberEnvConfig
	DescriptorEnvConfig
	RedisEnvConfig
	ServerEnvConfig
	Environment string `env:"ENVIRONMENT, default=prod"`
}

func LoadConfig(ctx context.Context) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaliencyEnvConfig configures the scorer and the occlusion pipeline.
type SaliencyEnvConfig struct {
	ProximityMetric string `env:"SALIENCY_METRIC, default=euclidean"`
	Threads         int    `env:"SALIENCY_THREADS, default=4"`
	Fill            string `env:"SALIENCY_FILL"` // comma separated, empty derives the fill
}

// PerturberEnvConfig selects and parameterizes the mask generator.
type PerturberEnvConfig struct {
	PerturberType string  `env:"PERTURBER_TYPE, default=sliding_window"`
	WindowRows    int     `env:"PERTURBER_WINDOW_ROWS, default=50"`
	WindowCols    int     `env:"PERTURBER_WINDOW_COLS, default=50"`
	StrideRows    int     `env:"PERTURBER_STRIDE_ROWS, default=20"`
	StrideCols    int     `env:"PERTURBER_STRIDE_COLS, default=20"`
	RISEMasks     int     `env:"RISE_MASKS, default=500"`
	RISECells     int     `env:"RISE_CELLS, default=8"`
	RISEKeepProb  float64 `env:"RISE_KEEP_PROB, default=0.5"`
	RISESeed      uint64  `env:"RISE_SEED, default=0"`
}

// DescriptorEnvConfig points at the black-box descriptor service.
type DescriptorEnvConfig struct {
	DescriptorURL     string        `env:"DESCRIPTOR_URL, default=http://127.0.0.1:5005"`
	DescriptorTimeout time.Duration `env:"DESCRIPTOR_TIMEOUT, default=30s"`
	DescriptorRetries int           `env:"DESCRIPTOR_RETRIES, default=3"`
	DescriptorZstd    bool          `env:"DESCRIPTOR_ZSTD, default=false"`
	CacheSize         int           `env:"DESCRIPTOR_CACHE_SIZE, default=1024"`
	CacheTTL          time.Duration `env:"DESCRIPTOR_CACHE_TTL, default=1h"`
}

// RedisEnvConfig configures the shared descriptor cache. An empty host
// disables it.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT, default=6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB, default=0"`
	RedisUsername string `env:"REDIS_USERNAME"`
}

// ServerEnvConfig configures the HTTP API.
type ServerEnvConfig struct {
	Address       string `env:"SERVER_ADDRESS, default=0.0.0.0"`
	Port          int    `env:"SERVER_PORT, default=8888"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT, default=16777216"`
}
