package saliency

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProximityMetric(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ProximityMetric
	}{
		{"empty selects default", "", Euclidean},
		{"exact", "cosine", Cosine},
		{"mixed case", "CityBlock", Cityblock},
		{"surrounding whitespace", "  hamming ", Hamming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProximityMetric(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProximityMetricUnsupported(t *testing.T) {
	for _, name := range []string{"invalid metric", "mahalanobis", "euclid"} {
		_, err := ParseProximityMetric(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrUnsupportedMetric), name)
		assert.Contains(t, err.Error(), name)
	}
}

func TestSupportedProximityMetricsHaveDistances(t *testing.T) {
	names := SupportedProximityMetrics()
	assert.Len(t, names, 11)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		assert.NotNil(t, ProximityMetric(name).Distance(), name)
	}
	assert.Nil(t, ProximityMetric("nope").Distance())
}

func TestDistanceFunctions(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 0, 3}

	tests := []struct {
		metric ProximityMetric
		want   float64
	}{
		{Euclidean, math.Sqrt(13)},
		{Minkowski, math.Sqrt(13)},
		{SqEuclidean, 13},
		{Cityblock, 5},
		{Chebyshev, 3},
		{Hamming, 2.0 / 3.0},
		{Canberra, 3.0/5.0 + 1.0},
		{BrayCurtis, 5.0 / 13.0},
		{Cosine, 1 - 13.0/(math.Sqrt(14)*5)},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.metric.Distance()(a, b), 1e-12)
		})
	}
}

func TestDistanceDegenerateInputs(t *testing.T) {
	zero := []float64{0, 0}
	one := []float64{1, 1}

	assert.Equal(t, 1.0, Cosine.Distance()(zero, one))
	assert.Equal(t, 1.0, Correlation.Distance()(one, []float64{2, 2}))
	assert.Equal(t, 0.0, BrayCurtis.Distance()(zero, zero))
	assert.Equal(t, 0.0, Canberra.Distance()(zero, zero))
	assert.Equal(t, 0.0, JensenShannon.Distance()(zero, one))
	assert.InDelta(t, 0.0, JensenShannon.Distance()(one, []float64{3, 3}), 1e-12)
	assert.Equal(t, 0.0, Hamming.Distance()(nil, nil))
	assert.True(t, math.IsNaN(JensenShannon.Distance()([]float64{-0.5, 1}, one)))
	assert.True(t, math.IsNaN(JensenShannon.Distance()(one, []float64{0.3, -0.2})))
}

func TestCorrelationDistance(t *testing.T) {
	assert.InDelta(t, 0.0, Correlation.Distance()([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, 2.0, Correlation.Distance()([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
}
