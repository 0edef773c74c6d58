package perturb

import (
	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// SlidingWindow occludes one rectangular window per mask, sliding it over
// the image by Stride. Windows at the right and bottom edges are clipped
// so every pixel is covered at least once.
type SlidingWindow struct {
	WindowSize [2]int `json:"window_size"` // rows, cols
	Stride     [2]int `json:"stride"`      // rows, cols
}

func DefaultSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		WindowSize: [2]int{50, 50},
		Stride:     [2]int{20, 20},
	}
}

func (s *SlidingWindow) validate() error {
	if s.WindowSize[0] <= 0 || s.WindowSize[1] <= 0 {
		return errors.Wrapf(ErrInvalidParams, "window size %v must be positive", s.WindowSize)
	}
	if s.Stride[0] <= 0 || s.Stride[1] <= 0 {
		return errors.Wrapf(ErrInvalidParams, "stride %v must be positive", s.Stride)
	}
	return nil
}

func (s *SlidingWindow) Perturb(img *imaging.Image) (*saliency.MaskSet, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	rowStarts := windowStarts(img.Height, s.Stride[0])
	colStarts := windowStarts(img.Width, s.Stride[1])

	masks := saliency.NewMaskSet(len(rowStarts)*len(colStarts), img.Height, img.Width)
	i := 0
	for _, r0 := range rowStarts {
		for _, c0 := range colStarts {
			for r := r0; r < min(r0+s.WindowSize[0], img.Height); r++ {
				for c := c0; c < min(c0+s.WindowSize[1], img.Width); c++ {
					masks.Set(i, r, c, 0)
				}
			}
			i++
		}
	}

	return masks, nil
}

func windowStarts(extent, stride int) []int {
	starts := make([]int, 0, (extent+stride-1)/stride)
	for start := 0; start < extent; start += stride {
		starts = append(starts, start)
	}
	return starts
}
