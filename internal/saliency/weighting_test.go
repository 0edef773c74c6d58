package saliency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWeightRegionsByScalar(t *testing.T) {
	masks, err := MaskSetFromFloat([][][]float64{
		{{0, 1, 1}},
		{{0.5, 0, 1}},
	})
	require.NoError(t, err)

	t.Run("inverted and normalized", func(t *testing.T) {
		sal, err := WeightRegionsByScalar([]float64{0.6, 0.3}, masks, true, true)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, sal.At(0, 0), 1e-12) // (0.6*1 + 0.3*0.5) / 1.5
		assert.InDelta(t, 0.3, sal.At(0, 1), 1e-12)
		assert.Equal(t, 0.0, sal.At(0, 2)) // never occluded
	})

	t.Run("inverted without normalization", func(t *testing.T) {
		sal, err := WeightRegionsByScalar([]float64{0.6, 0.3}, masks, true, false)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, sal.At(0, 0), 1e-12)
		assert.InDelta(t, 0.3, sal.At(0, 1), 1e-12)
		assert.Equal(t, 0.0, sal.At(0, 2))
	})

	t.Run("mask values used directly", func(t *testing.T) {
		sal, err := WeightRegionsByScalar([]float64{0.6, 0.3}, masks, false, true)
		require.NoError(t, err)
		assert.InDelta(t, 0.3, sal.At(0, 0), 1e-12)
		assert.InDelta(t, 0.6, sal.At(0, 1), 1e-12)
		assert.InDelta(t, 0.45, sal.At(0, 2), 1e-12)
	})

	t.Run("more scalars than masks", func(t *testing.T) {
		_, err := WeightRegionsByScalar([]float64{0.6, 0.3, 0.1}, masks, true, true)
		assert.ErrorIs(t, err, ErrMaskCountMismatch)

		_, err = WeightRegionsByScalar([]float64{0.6}, nil, true, true)
		assert.ErrorIs(t, err, ErrMaskCountMismatch)
	})

	t.Run("fewer scalars than masks", func(t *testing.T) {
		sal, err := WeightRegionsByScalar([]float64{0.6}, masks, true, true)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, sal.At(0, 0), 1e-12)
		assert.Equal(t, 0.0, sal.At(0, 1))
	})
}

func TestMaxAbsScale(t *testing.T) {
	t.Run("scales by largest magnitude", func(t *testing.T) {
		in := mat.NewDense(2, 2, []float64{0.5, -2, 1, 0})
		out := MaxAbsScale(in)

		assert.True(t, mat.EqualApprox(out, mat.NewDense(2, 2, []float64{0.25, -1, 0.5, 0}), 1e-12))
		assert.Equal(t, 0.5, in.At(0, 0), "input must not be modified")
	})

	t.Run("all zeros unchanged", func(t *testing.T) {
		out := MaxAbsScale(mat.NewDense(2, 3, nil))
		assert.True(t, mat.Equal(out, mat.NewDense(2, 3, nil)))
	})

	t.Run("non-finite values", func(t *testing.T) {
		out := MaxAbsScale(mat.NewDense(1, 4, []float64{math.NaN(), math.Inf(-1), 3, math.Inf(1)}))
		assert.Equal(t, []float64{0, -1, 0, 1}, mat.Row(nil, 0, out))
	})

	t.Run("strided views", func(t *testing.T) {
		full := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
		view := full.Slice(0, 2, 1, 3).(*mat.Dense)
		out := MaxAbsScale(view)
		assert.True(t, mat.EqualApprox(out, mat.NewDense(2, 2, []float64{2.0 / 6, 3.0 / 6, 5.0 / 6, 1}), 1e-12))
	})
}

func TestMaskSetConstructors(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		set, err := MaskSetFromBool([][][]bool{{{true, false}}, {{false, true}}})
		require.NoError(t, err)
		assert.Equal(t, 2, set.Count)
		assert.Equal(t, 1, set.Height)
		assert.Equal(t, 2, set.Width)
		assert.Equal(t, 0.0, set.At(0, 0, 1))
		assert.Equal(t, 1.0, set.At(1, 0, 1))
		assert.NoError(t, set.Validate())
	})

	t.Run("int", func(t *testing.T) {
		set, err := MaskSetFromInt([][][]int{{{1, 0}, {0, 1}}})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0}, mat.Row(nil, 0, set.Mask(0)))
		assert.Equal(t, []float64{0, 1}, mat.Row(nil, 1, set.Mask(0)))
	})

	t.Run("dense", func(t *testing.T) {
		set, err := MaskSetFromDense([]*mat.Dense{
			mat.NewDense(2, 1, []float64{0.2, 0.4}),
			mat.NewDense(2, 1, []float64{0.6, 0.8}),
		})
		require.NoError(t, err)
		assert.Equal(t, 0.8, set.At(1, 1, 0))
	})

	t.Run("ragged input rejected", func(t *testing.T) {
		_, err := MaskSetFromFloat([][][]float64{{{1, 1}}, {{1}}})
		assert.ErrorIs(t, err, ErrInvalidMask)

		_, err = MaskSetFromFloat([][][]float64{{{1, 1}}, {{1, 1}, {1, 1}}})
		assert.ErrorIs(t, err, ErrInvalidMask)

		_, err = MaskSetFromDense([]*mat.Dense{mat.NewDense(1, 2, nil), mat.NewDense(2, 1, nil)})
		assert.ErrorIs(t, err, ErrInvalidMask)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := MaskSetFromBool(nil)
		assert.ErrorIs(t, err, ErrInvalidMask)

		_, err = MaskSetFromDense(nil)
		assert.ErrorIs(t, err, ErrInvalidMask)
	})

	t.Run("nil dense mask rejected", func(t *testing.T) {
		_, err := MaskSetFromDense([]*mat.Dense{nil, mat.NewDense(1, 1, nil)})
		assert.ErrorIs(t, err, ErrInvalidMask)

		_, err = MaskSetFromDense([]*mat.Dense{mat.NewDense(1, 1, nil), nil})
		assert.ErrorIs(t, err, ErrInvalidMask)

		assert.ErrorIs(t, NewMaskSet(0, 4, 4).Validate(), ErrInvalidMask)
	})

	t.Run("mask views share storage", func(t *testing.T) {
		set := NewMaskSet(2, 2, 2)
		set.Mask(1).Set(1, 0, 0.25)
		assert.Equal(t, 0.25, set.At(1, 1, 0))
	})
}
