package saliency

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// WeightRegionsByScalar spreads one scalar per mask over the pixels that
// mask covers. With invert set the per-pixel weight is 1-mask, so the
// occluded region carries the score. With normalize set each pixel is
// divided by its total weight; pixels no mask touched stay zero.
func WeightRegionsByScalar(scalars []float64, masks *MaskSet, invert, normalize bool) (*mat.Dense, error) {
	if masks == nil {
		return nil, errors.Wrap(ErrMaskCountMismatch, "no perturbation masks given")
	}
	if len(scalars) > masks.Count {
		return nil, errors.Wrapf(ErrMaskCountMismatch, "%d scalars for %d masks", len(scalars), masks.Count)
	}

	size := masks.Height * masks.Width

	sal := make([]float64, size)
	totals := make([]float64, size)
	weights := make([]float64, size)

	for i, scalar := range scalars {
		mask := masks.raw(i)
		if invert {
			for j, v := range mask {
				weights[j] = 1.0 - v
			}
		} else {
			copy(weights, mask)
		}

		floats.AddScaled(sal, scalar, weights)
		floats.Add(totals, weights)
	}

	if normalize {
		for j, total := range totals {
			if total == 0 {
				sal[j] = 0
				continue
			}
			sal[j] /= total
		}
	}

	return mat.NewDense(masks.Height, masks.Width, sal), nil
}
