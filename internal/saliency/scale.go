package saliency

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxAbsScale divides every element by the largest absolute value in the
// matrix, mapping the result into [-1,1] while keeping signs and zero.
// An all-zero matrix is returned unchanged. NaN entries become zero and
// infinite entries saturate to -1 or 1.
func MaxAbsScale(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	result := mat.NewDense(rows, cols, nil)
	result.Copy(m)

	raw := result.RawMatrix()
	maxAbs := 0.0
	for r := 0; r < rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+cols]
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = 0
				continue
			}
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	if maxAbs == 0 {
		return result
	}

	infinite := math.IsInf(maxAbs, 1)
	for r := 0; r < rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+cols]
		for j, v := range row {
			switch {
			case infinite && math.IsInf(v, 0):
				row[j] = math.Copysign(1, v)
			case infinite:
				row[j] = 0
			default:
				// division, not multiplication by the reciprocal, keeps |v| <= 1
				row[j] = v / maxAbs
			}
		}
	}

	return result
}
