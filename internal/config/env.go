package config

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"github.com/tensorplex-labs/simsal/internal/perturb"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// GeneratorConfig maps the environment onto the saliency generator table.
func (c SaliencyEnvConfig) GeneratorConfig() (saliency.Config, error) {
	params, err := marshalParams(map[string]any{
		"proximity_metric": c.ProximityMetric,
	})
	if err != nil {
		return saliency.Config{}, err
	}

	return saliency.Config{Type: saliency.SimilarityScoringType, Params: params}, nil
}

// PerturberConfig maps the environment onto the perturber table. Only the
// parameters of the selected type are emitted.
func (c PerturberEnvConfig) PerturberConfig() (perturb.Config, error) {
	var fields map[string]any
	switch c.PerturberType {
	case perturb.SlidingWindowType:
		fields = map[string]any{
			"window_size": [2]int{c.WindowRows, c.WindowCols},
			"stride":      [2]int{c.StrideRows, c.StrideCols},
		}
	case perturb.RISEType:
		fields = map[string]any{
			"n":    c.RISEMasks,
			"s":    c.RISECells,
			"p1":   c.RISEKeepProb,
			"seed": c.RISESeed,
		}
	}

	params, err := marshalParams(fields)
	if err != nil {
		return perturb.Config{}, err
	}

	return perturb.Config{Type: c.PerturberType, Params: params}, nil
}

func marshalParams(fields map[string]any) (json.RawMessage, error) {
	if fields == nil {
		return nil, nil
	}
	return sonic.Marshal(fields)
}
