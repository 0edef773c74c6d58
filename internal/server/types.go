package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/descriptor"
	"github.com/tensorplex-labs/simsal/internal/metrics"
	"github.com/tensorplex-labs/simsal/internal/pipeline"
)

const (
	SaliencyPath = "/saliency"
	HealthPath   = "/health"
	MetricsPath  = "/metrics"

	DefaultServerAddress = "0.0.0.0"
	DefaultServerPort    = 8888
	DefaultBodyLimit     = 16 * 1024 * 1024 // 16MB
)

// Server is the saliency HTTP API.
type Server struct {
	App      *fiber.App
	config   *config.ServerEnvConfig
	pipeline *pipeline.PerturbationOcclusion
	source   descriptor.Generator
	metrics  *metrics.Metrics
}

// StdResponse represents the standardized response structure
type StdResponse[T any] struct {
	StatusCode int     `json:"statusCode"`
	Success    bool    `json:"success"`
	Data       T       `json:"data"`
	Error      *string `json:"error"`
}

// SaliencyRequest carries two encoded image files (png, jpeg or gif).
// Byte fields travel as base64 strings.
type SaliencyRequest struct {
	Reference       []byte `json:"reference"`
	Query           []byte `json:"query"`
	ProximityMetric string `json:"proximity_metric,omitempty"`
}

type SaliencyResponse struct {
	Height          int         `json:"height"`
	Width           int         `json:"width"`
	ProximityMetric string      `json:"proximity_metric"`
	Saliency        [][]float64 `json:"saliency"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
