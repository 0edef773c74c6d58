// Package descriptor provides sources of black-box image feature vectors.
package descriptor

import (
	"context"
	"iter"

	"github.com/pkg/errors"

	"github.com/tensorplex-labs/simsal/internal/imaging"
)

// ErrCountMismatch is returned when a source yields a different number of
// descriptors than it was given images.
var ErrCountMismatch = errors.New("descriptor source yielded a mismatched number of feature vectors")

// Generator turns a stream of images into a stream of feature vectors.
//
// The returned sequence yields exactly one vector per input image, in input
// order, and may only be ranged over once. A non-nil error ends the stream.
type Generator interface {
	GenerateArrays(ctx context.Context, images iter.Seq[*imaging.Image]) iter.Seq2[[]float64, error]
}

// Func adapts a per-image describe function to a Generator.
type Func func(ctx context.Context, img *imaging.Image) ([]float64, error)

func (f Func) GenerateArrays(ctx context.Context, images iter.Seq[*imaging.Image]) iter.Seq2[[]float64, error] {
	return func(yield func([]float64, error) bool) {
		for img := range images {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			descr, err := f(ctx, img)
			if !yield(descr, err) || err != nil {
				return
			}
		}
	}
}

// DescribeOne streams a single image through gen and requires exactly one
// vector back.
func DescribeOne(ctx context.Context, gen Generator, img *imaging.Image) ([]float64, error) {
	var (
		descr []float64
		count int
	)

	for v, err := range gen.GenerateArrays(ctx, Images(img)) {
		if err != nil {
			return nil, err
		}
		count++
		if count > 1 {
			break
		}
		descr = v
	}

	if count != 1 {
		return nil, errors.Wrapf(ErrCountMismatch, "expected 1 descriptor, got %d", count)
	}
	return descr, nil
}

// Images streams a slice of images in order.
func Images(images ...*imaging.Image) iter.Seq[*imaging.Image] {
	return func(yield func(*imaging.Image) bool) {
		for _, img := range images {
			if !yield(img) {
				return
			}
		}
	}
}
