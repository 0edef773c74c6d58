package saliency

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DistanceFunc measures the dissimilarity between two equal length
// descriptors. Larger values mean the descriptors are further apart.
type DistanceFunc func(a, b []float64) float64

func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func sqEuclideanDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func cityblockDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

func chebyshevDistance(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// cosineDistance treats a zero vector as orthogonal to everything.
func cosineDistance(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 1.0
	}

	return 1.0 - floats.Dot(a, b)/(normA*normB)
}

// correlationDistance falls back to an uncorrelated pair when either
// descriptor has zero variance.
func correlationDistance(a, b []float64) float64 {
	corr := stat.Correlation(a, b, nil)
	if math.IsNaN(corr) {
		corr = 0.0
	}

	return 1.0 - corr
}

func hammingDistance(a, b []float64) float64 {
	if len(a) == 0 {
		return 0.0
	}

	differ := 0
	for i := range a {
		if a[i] != b[i] {
			differ++
		}
	}

	return float64(differ) / float64(len(a))
}

func canberraDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		denom := math.Abs(a[i]) + math.Abs(b[i])
		if denom == 0 {
			continue
		}
		sum += math.Abs(a[i]-b[i]) / denom
	}

	return sum
}

func brayCurtisDistance(a, b []float64) float64 {
	var num, denom float64
	for i := range a {
		num += math.Abs(a[i] - b[i])
		denom += math.Abs(a[i] + b[i])
	}
	if denom == 0 {
		return 0.0
	}

	return num / denom
}

// jensenShannonDistance normalizes both descriptors into probability
// vectors first. Descriptors must be non-negative; any negative entry
// yields NaN.
func jensenShannonDistance(a, b []float64) float64 {
	if hasNegative(a) || hasNegative(b) {
		return math.NaN()
	}

	sumA := floats.Sum(a)
	sumB := floats.Sum(b)
	if sumA == 0 || sumB == 0 {
		return 0.0
	}

	p := make([]float64, len(a))
	q := make([]float64, len(b))
	floats.ScaleTo(p, 1.0/sumA, a)
	floats.ScaleTo(q, 1.0/sumB, b)

	js := stat.JensenShannon(p, q)
	if js < 0 {
		// rounding can leave a tiny negative divergence for identical inputs
		js = 0
	}

	return math.Sqrt(js)
}

func hasNegative(v []float64) bool {
	for _, x := range v {
		if x < 0 {
			return true
		}
	}
	return false
}
