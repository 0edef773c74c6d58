package saliency

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// SimilarityScoringType is the registry name of SimilarityScoring.
const SimilarityScoringType = "similarity_scoring"

// ErrUnknownGenerator is returned by NewGenerator for unregistered types.
var ErrUnknownGenerator = errors.New("unknown saliency generator type")

// Config selects a registered generator implementation by name.
type Config struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// GeneratorFactory builds a generator from its JSON parameters.
type GeneratorFactory func(params json.RawMessage) (DescriptorSimilaritySaliency, error)

var (
	registryMu sync.RWMutex
	generators = map[string]GeneratorFactory{}
)

func init() {
	RegisterGenerator(SimilarityScoringType, newSimilarityScoringFromParams)
}

// RegisterGenerator adds a factory to the process-wide table. Registering
// the same name twice panics.
func RegisterGenerator(name string, factory GeneratorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := generators[name]; exists {
		panic("saliency: generator " + name + " already registered")
	}
	generators[name] = factory
}

// RegisteredGenerators lists the registered generator names.
func RegisteredGenerators() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// NewGenerator resolves cfg.Type in the registry and builds it.
func NewGenerator(cfg Config) (DescriptorSimilaritySaliency, error) {
	registryMu.RLock()
	factory, ok := generators[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownGenerator, "%q", cfg.Type)
	}

	return factory(cfg.Params)
}

type similarityScoringParams struct {
	ProximityMetric string `json:"proximity_metric"`
}

func (p similarityScoringParams) encode() json.RawMessage {
	raw, _ := sonic.Marshal(p)
	return raw
}

func newSimilarityScoringFromParams(params json.RawMessage) (DescriptorSimilaritySaliency, error) {
	var p similarityScoringParams
	if len(params) > 0 {
		if err := sonic.Unmarshal(params, &p); err != nil {
			return nil, errors.Wrap(err, "decode similarity_scoring params")
		}
	}

	scorer, err := NewSimilarityScoring(p.ProximityMetric)
	if err != nil {
		return nil, err
	}

	return scorer, nil
}
