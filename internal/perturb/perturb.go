// Package perturb generates perturbation masks over an image.
package perturb

import (
	"encoding/json"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

const (
	SlidingWindowType = "sliding_window"
	RISEType          = "rise"
)

// ErrUnknownPerturber is returned by New for unregistered types.
var ErrUnknownPerturber = errors.New("unknown perturber type")

// ErrInvalidParams is returned for unusable perturber parameters.
var ErrInvalidParams = errors.New("invalid perturber parameters")

// Perturber produces [nMasks x H x W] masks over an image, 1 meaning the
// pixel is left untouched.
type Perturber interface {
	Perturb(img *imaging.Image) (*saliency.MaskSet, error)
}

// Config selects a registered perturber by name.
type Config struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Factory builds a perturber from its JSON parameters.
type Factory func(params json.RawMessage) (Perturber, error)

var factories = map[string]Factory{
	SlidingWindowType: func(params json.RawMessage) (Perturber, error) {
		p := DefaultSlidingWindow()
		if err := decodeParams(params, p); err != nil {
			return nil, err
		}
		return p, p.validate()
	},
	RISEType: func(params json.RawMessage) (Perturber, error) {
		p := DefaultRISEGrid()
		if err := decodeParams(params, p); err != nil {
			return nil, err
		}
		return p, p.validate()
	},
}

// New resolves cfg.Type in the perturber table and builds it.
func New(cfg Config) (Perturber, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPerturber, "%q (available: %v)", cfg.Type, Types())
	}

	p, err := factory(cfg.Params)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Types lists the registered perturber names.
func Types() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeParams(params json.RawMessage, into any) error {
	if len(params) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(params, into); err != nil {
		return errors.Wrapf(ErrInvalidParams, "decode: %v", err)
	}
	return nil
}
