package saliency

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaskSet holds Count perturbation masks of Height x Width each, stored
// row-major one after another. A value of 1 marks an unperturbed pixel and
// 0 a fully occluded one.
type MaskSet struct {
	Count  int
	Height int
	Width  int
	data   []float64
}

// NewMaskSet allocates count masks that leave the whole image unperturbed.
func NewMaskSet(count, height, width int) *MaskSet {
	data := make([]float64, count*height*width)
	for i := range data {
		data[i] = 1.0
	}

	return &MaskSet{Count: count, Height: height, Width: width, data: data}
}

// MaskSetFromFloat copies [nMasks][H][W] floating point masks.
func MaskSetFromFloat(masks [][][]float64) (*MaskSet, error) {
	return maskSetFrom(masks, func(v float64) float64 { return v })
}

// MaskSetFromBool copies boolean masks, true meaning unperturbed.
func MaskSetFromBool(masks [][][]bool) (*MaskSet, error) {
	return maskSetFrom(masks, func(v bool) float64 {
		if v {
			return 1.0
		}
		return 0.0
	})
}

// MaskSetFromInt copies integer masks holding 0 or 1.
func MaskSetFromInt(masks [][][]int) (*MaskSet, error) {
	return maskSetFrom(masks, func(v int) float64 { return float64(v) })
}

// MaskSetFromDense copies one gonum matrix per mask.
func MaskSetFromDense(masks []*mat.Dense) (*MaskSet, error) {
	if len(masks) == 0 {
		return nil, errors.Wrap(ErrInvalidMask, "no masks given")
	}

	if masks[0] == nil {
		return nil, errors.Wrap(ErrInvalidMask, "mask 0 is nil")
	}

	h, w := masks[0].Dims()
	set := &MaskSet{Count: len(masks), Height: h, Width: w, data: make([]float64, len(masks)*h*w)}
	for i, m := range masks {
		if m == nil {
			return nil, errors.Wrapf(ErrInvalidMask, "mask %d is nil", i)
		}
		r, c := m.Dims()
		if r != h || c != w {
			return nil, errors.Wrapf(ErrInvalidMask, "mask %d is %dx%d, expected %dx%d", i, r, c, h, w)
		}
		set.Mask(i).Copy(m)
	}

	return set, nil
}

func maskSetFrom[T any](masks [][][]T, conv func(T) float64) (*MaskSet, error) {
	if len(masks) == 0 || len(masks[0]) == 0 || len(masks[0][0]) == 0 {
		return nil, errors.Wrap(ErrInvalidMask, "masks must be non-empty [nMasks x H x W]")
	}

	h, w := len(masks[0]), len(masks[0][0])
	set := &MaskSet{Count: len(masks), Height: h, Width: w, data: make([]float64, 0, len(masks)*h*w)}
	for i, m := range masks {
		if len(m) != h {
			return nil, errors.Wrapf(ErrInvalidMask, "mask %d has %d rows, expected %d", i, len(m), h)
		}
		for r, row := range m {
			if len(row) != w {
				return nil, errors.Wrapf(ErrInvalidMask, "mask %d row %d has %d columns, expected %d", i, r, len(row), w)
			}
			for _, v := range row {
				set.data = append(set.data, conv(v))
			}
		}
	}

	return set, nil
}

// At returns the value of mask i at (row, col).
func (m *MaskSet) At(i, row, col int) float64 {
	return m.data[(i*m.Height+row)*m.Width+col]
}

// Set stores v in mask i at (row, col).
func (m *MaskSet) Set(i, row, col int, v float64) {
	m.data[(i*m.Height+row)*m.Width+col] = v
}

// Mask returns mask i as a matrix sharing the set's storage.
func (m *MaskSet) Mask(i int) *mat.Dense {
	return mat.NewDense(m.Height, m.Width, m.raw(i))
}

func (m *MaskSet) raw(i int) []float64 {
	size := m.Height * m.Width
	return m.data[i*size : (i+1)*size]
}

// Validate checks the set is non-empty and every value lies in [0,1].
func (m *MaskSet) Validate() error {
	if m == nil || m.Count <= 0 || m.Height <= 0 || m.Width <= 0 {
		return errors.Wrap(ErrInvalidMask, "mask set is empty")
	}
	if len(m.data) != m.Count*m.Height*m.Width {
		return errors.Wrapf(ErrInvalidMask, "mask storage holds %d values, expected %d",
			len(m.data), m.Count*m.Height*m.Width)
	}

	for idx, v := range m.data {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return errors.Wrapf(ErrInvalidMask, "mask value %v at flat index %d outside [0,1]", v, idx)
		}
	}

	return nil
}
