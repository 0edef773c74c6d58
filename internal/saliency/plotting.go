package saliency

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	positiveRamp = []rune{' ', '░', '▒', '▓', '█'}
	negativeRamp = []rune{' ', '·', '∘', '○', '●'}
)

// PlotHeatmapTerminal renders a [-1,1] heatmap as characters, one per
// cell. Block shades mark regions that increase similarity, circles
// regions that decrease it; denser glyphs mean larger magnitude.
func PlotHeatmapTerminal(w io.Writer, sal *mat.Dense, title string) {
	rows, cols := sal.Dims()

	fmt.Fprintf(w, "\n%s (%dx%d):\n", title, rows, cols)
	fmt.Fprintln(w, "+"+strings.Repeat("-", cols)+"+")

	var line strings.Builder
	for r := range rows {
		line.Reset()
		line.WriteRune('|')
		for c := range cols {
			line.WriteRune(glyph(sal.At(r, c)))
		}
		line.WriteRune('|')
		fmt.Fprintln(w, line.String())
	}

	fmt.Fprintln(w, "+"+strings.Repeat("-", cols)+"+")
	fmt.Fprintf(w, "Scale: Min=%.6f, Max=%.6f\n", mat.Min(sal), mat.Max(sal))
	fmt.Fprintf(w, "Legend: %s increases similarity, %s decreases similarity\n",
		string(positiveRamp[1:]), string(negativeRamp[1:]))
}

func glyph(v float64) rune {
	ramp := positiveRamp
	if v < 0 {
		ramp = negativeRamp
	}

	level := int(math.Ceil(math.Min(math.Abs(v), 1) * float64(len(ramp)-1)))
	return ramp[level]
}
