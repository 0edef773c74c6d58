package main

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// heatmaps wider than this are downsampled before plotting
const maxPlotWidth = 80

func saliencyPlot(sal *mat.Dense, metric string) {
	rows, cols := sal.Dims()
	step := max(1, (cols+maxPlotWidth-1)/maxPlotWidth)

	view := sal
	if step > 1 {
		view = downsample(sal, step)
	}

	title := fmt.Sprintf("similarity saliency (%s, %dx%d)", metric, rows, cols)
	saliency.PlotHeatmapTerminal(os.Stdout, view, title)
}

// downsample averages step x step blocks. Terminal cells are roughly twice
// as tall as wide, so rows are sampled at twice the column step.
func downsample(m *mat.Dense, step int) *mat.Dense {
	rows, cols := m.Dims()
	rowStep := 2 * step
	outRows := (rows + rowStep - 1) / rowStep
	outCols := (cols + step - 1) / step

	out := mat.NewDense(outRows, outCols, nil)
	for r := range outRows {
		for c := range outCols {
			var sum float64
			n := 0
			for i := r * rowStep; i < min(rows, (r+1)*rowStep); i++ {
				for j := c * step; j < min(cols, (c+1)*step); j++ {
					sum += m.At(i, j)
					n++
				}
			}
			out.Set(r, c, sum/float64(n))
		}
	}
	return out
}
