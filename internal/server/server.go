// Package server exposes the saliency pipeline over HTTP.
package server

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/descriptor"
	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/metrics"
	"github.com/tensorplex-labs/simsal/internal/pipeline"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// NewServer wires the saliency routes around pipe and src. m may be nil,
// in which case /metrics is not served.
func NewServer(
	serverConfig *config.ServerEnvConfig,
	pipe *pipeline.PerturbationOcclusion,
	src descriptor.Generator,
	m *metrics.Metrics,
) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if src == nil {
		return nil, errors.New("descriptor source cannot be nil")
	}
	if serverConfig == nil {
		serverConfig = &config.ServerEnvConfig{
			Address:       DefaultServerAddress,
			Port:          DefaultServerPort,
			BodySizeLimit: DefaultBodyLimit,
		}
	}

	log.Info().
		Any("serverConfig", serverConfig).
		Msg("Server configuration loaded")

	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             serverConfig.BodySizeLimit,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(ZstdMiddleware(nil, serverConfig.BodySizeLimit))

	s := &Server{
		App:      app,
		config:   serverConfig,
		pipeline: pipe,
		source:   src,
		metrics:  m,
	}

	app.Get(HealthPath, s.handleHealth)
	app.Post(SaliencyPath, s.handleSaliency)
	if m != nil {
		app.Get(MetricsPath, adaptor.HTTPHandler(m.Handler()))
	}

	return s, nil
}

func fiberErrHandler(ctx *fiber.Ctx, err error) error {
	code := statusFor(err)

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", ctx.Path()).
		Str("method", ctx.Method()).
		Msg("Fiber error handler triggered")

	return ctx.Status(code).JSON(createResponse(code, map[string]any{}, err))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(createResponse(fiber.StatusOK, HealthResponse{Status: "ok"}, nil))
}

func (s *Server) handleSaliency(c *fiber.Ctx) error {
	var req SaliencyRequest
	if err := c.BodyParser(&req); err != nil {
		log.Error().Err(err).Str("route", SaliencyPath).Msg("Failed to parse request body")
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Reference) == 0 || len(req.Query) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "reference and query images are required")
	}

	ref, err := decodeImage(req.Reference, "reference")
	if err != nil {
		return err
	}
	query, err := decodeImage(req.Query, "query")
	if err != nil {
		return err
	}

	pipe, err := s.pipelineFor(req.ProximityMetric)
	if err != nil {
		return err
	}

	sal, err := pipe.Run(c.UserContext(), ref, query, s.source)
	if err != nil {
		log.Error().Err(err).Str("route", SaliencyPath).Msg("Saliency pipeline failed")
		return err
	}

	return c.JSON(createResponse(fiber.StatusOK, newSaliencyResponse(sal, pipe), nil))
}

// pipelineFor returns the configured pipeline, or a copy scoring with a
// different proximity metric when the request names one.
func (s *Server) pipelineFor(metric string) (*pipeline.PerturbationOcclusion, error) {
	if metric == "" {
		return s.pipeline, nil
	}

	scorer, err := saliency.NewSimilarityScoring(metric)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPerturbationOcclusion(
		s.pipeline.Perturber(),
		scorer,
		pipeline.WithFill(s.pipeline.Fill()),
		pipeline.WithThreads(s.pipeline.Threads()),
		pipeline.WithMetrics(s.metrics),
	)
}

func newSaliencyResponse(sal *mat.Dense, pipe *pipeline.PerturbationOcclusion) SaliencyResponse {
	rows, cols := sal.Dims()
	resp := SaliencyResponse{Height: rows, Width: cols, Saliency: denseRows(sal)}
	if scorer, ok := pipe.Generator().(*saliency.SimilarityScoring); ok {
		resp.ProximityMetric = scorer.ProximityMetric().String()
	}
	return resp
}

func decodeImage(raw []byte, name string) (*imaging.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("decode %s image: %v", name, err))
	}
	return img, nil
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	log.Info().Str("address", addr).Msg("Starting saliency server")
	return s.App.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}
