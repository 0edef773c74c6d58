package perturb

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// RISEGrid draws N random coarse binary grids of S x S cells, keeps each
// cell with probability P1, and bilinearly upsamples every grid to the
// image size with a random sub-cell shift. Masks are reproducible for a
// given Seed.
type RISEGrid struct {
	N    int     `json:"n"`
	S    int     `json:"s"`
	P1   float64 `json:"p1"`
	Seed uint64  `json:"seed"`
}

func DefaultRISEGrid() *RISEGrid {
	return &RISEGrid{N: 500, S: 8, P1: 0.5}
}

func (g *RISEGrid) validate() error {
	if g.N <= 0 || g.S <= 0 {
		return errors.Wrapf(ErrInvalidParams, "n=%d and s=%d must be positive", g.N, g.S)
	}
	if g.P1 < 0 || g.P1 > 1 || math.IsNaN(g.P1) {
		return errors.Wrapf(ErrInvalidParams, "p1=%v must be in [0,1]", g.P1)
	}
	return nil
}

func (g *RISEGrid) Perturb(img *imaging.Image) (*saliency.MaskSet, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))

	cellH := int(math.Ceil(float64(img.Height) / float64(g.S)))
	cellW := int(math.Ceil(float64(img.Width) / float64(g.S)))
	points := g.S + 1

	masks := saliency.NewMaskSet(g.N, img.Height, img.Width)
	grid := make([]float64, points*points)

	for i := range g.N {
		for j := range grid {
			grid[j] = 0
			if rng.Float64() < g.P1 {
				grid[j] = 1
			}
		}
		dy := rng.IntN(cellH)
		dx := rng.IntN(cellW)

		for r := range img.Height {
			gy := float64(r+dy) / float64(cellH)
			y0, ty := int(gy), gy-math.Floor(gy)
			y1 := min(y0+1, points-1)
			for c := range img.Width {
				gx := float64(c+dx) / float64(cellW)
				x0, tx := int(gx), gx-math.Floor(gx)
				x1 := min(x0+1, points-1)

				top := (1-tx)*grid[y0*points+x0] + tx*grid[y0*points+x1]
				bottom := (1-tx)*grid[y1*points+x0] + tx*grid[y1*points+x1]
				v := (1-ty)*top + ty*bottom
				masks.Set(i, r, c, math.Min(1, math.Max(0, v)))
			}
		}
	}

	return masks, nil
}
