package imaging

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidFill is returned when a fill does not fit the image channels.
var ErrInvalidFill = errors.New("invalid occlusion fill")

// Fill is the value occluded pixels are blended towards. A nil Fill lets
// the compositor use the image's per-channel mean; one value applies to
// every channel; otherwise there must be one value per channel.
type Fill []float64

// ParseFill reads a comma separated list of numbers. An empty string
// yields a nil Fill.
func ParseFill(s string) (Fill, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	fill := make(Fill, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFill, "parse %q: %v", part, err)
		}
		fill = append(fill, v)
	}

	return fill, nil
}

// IsAuto reports whether the compositor derives the fill itself.
func (f Fill) IsAuto() bool {
	return f == nil
}

// resolve expands f to one value per channel of img.
func (f Fill) resolve(img *Image) ([]float64, error) {
	switch len(f) {
	case 0:
		if f != nil {
			return nil, errors.Wrap(ErrInvalidFill, "fill is empty")
		}
		return img.ChannelMeans(), nil
	case 1:
		values := make([]float64, img.Channels)
		for ch := range values {
			values[ch] = f[0]
		}
		return values, nil
	case img.Channels:
		values := make([]float64, img.Channels)
		copy(values, f)
		return values, nil
	default:
		return nil, errors.Wrapf(ErrInvalidFill, "%d fill values for %d channels", len(f), img.Channels)
	}
}
