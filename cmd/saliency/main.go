package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/descriptor"
	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/pipeline"
	"github.com/tensorplex-labs/simsal/internal/utils/logger"
	"github.com/tensorplex-labs/simsal/internal/utils/redis"
)

var (
	refPath   = flag.String("ref", "", "path to the reference image (png, jpeg or gif)")
	queryPath = flag.String("query", "", "path to the query image (png, jpeg or gif)")
	outPath   = flag.String("out", "", "optional path for the saliency map as JSON")
	metric    = flag.String("metric", "", "proximity metric, overrides SALIENCY_METRIC")
	noPlot    = flag.Bool("no-plot", false, "skip the terminal heatmap")
)

type result struct {
	Height          int         `json:"height"`
	Width           int         `json:"width"`
	ProximityMetric string      `json:"proximity_metric"`
	Saliency        [][]float64 `json:"saliency"`
}

func main() {
	logger.Init()

	if *refPath == "" || *queryPath == "" {
		fmt.Fprintln(os.Stderr, "usage: saliency -ref <image> -query <image> [-out map.json] [-metric name]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}
	if *metric != "" {
		cfg.ProximityMetric = *metric
	}

	ref, err := loadImage(*refPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *refPath).Msg("failed to load reference image")
	}
	query, err := loadImage(*queryPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *queryPath).Msg("failed to load query image")
	}

	var store descriptor.Store
	if cfg.RedisHost != "" {
		r, err := redis.NewRedis(&cfg.RedisEnvConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to init redis client, continuing without redis")
		} else {
			defer r.Close()
			store = r
		}
	}

	src, err := descriptor.FromConfig(&cfg.DescriptorEnvConfig, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init descriptor source")
	}

	pipe, err := pipeline.FromConfig(cfg.SaliencyEnvConfig, cfg.PerturberEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build saliency pipeline")
	}

	sal, err := pipe.Run(ctx, ref, query, src)
	if err != nil {
		log.Fatal().Err(err).Msg("saliency run failed")
	}

	if !*noPlot {
		saliencyPlot(sal, cfg.ProximityMetric)
	}

	if *outPath != "" {
		if err := writeResult(*outPath, sal, cfg.ProximityMetric); err != nil {
			log.Fatal().Err(err).Str("path", *outPath).Msg("failed to write saliency map")
		}
		log.Info().Str("path", *outPath).Msg("saliency map written")
	}
}

func loadImage(path string) (*imaging.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imaging.Decode(f)
}

func writeResult(path string, sal *mat.Dense, metric string) error {
	rows, cols := sal.Dims()
	res := result{Height: rows, Width: cols, ProximityMetric: metric, Saliency: make([][]float64, rows)}
	for r := range rows {
		res.Saliency[r] = mat.Row(nil, r, sal)
	}

	data, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
