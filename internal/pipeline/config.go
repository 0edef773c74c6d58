package pipeline

import (
	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/perturb"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// FromConfig builds a pipeline from the environment configuration. Extra
// options are applied after the configured ones.
func FromConfig(sc config.SaliencyEnvConfig, pc config.PerturberEnvConfig, opts ...Option) (*PerturbationOcclusion, error) {
	generatorCfg, err := sc.GeneratorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "build generator config")
	}
	generator, err := saliency.NewGenerator(generatorCfg)
	if err != nil {
		return nil, err
	}

	perturberCfg, err := pc.PerturberConfig()
	if err != nil {
		return nil, errors.Wrap(err, "build perturber config")
	}
	perturber, err := perturb.New(perturberCfg)
	if err != nil {
		return nil, err
	}

	fill, err := imaging.ParseFill(sc.Fill)
	if err != nil {
		return nil, err
	}

	configured := []Option{WithThreads(sc.Threads), WithFill(fill)}
	return NewPerturbationOcclusion(perturber, generator, append(configured, opts...)...)
}
