package saliency

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ProximityMetric names a pairwise distance function from the catalogue.
type ProximityMetric string

const (
	BrayCurtis    ProximityMetric = "braycurtis"
	Canberra      ProximityMetric = "canberra"
	Chebyshev     ProximityMetric = "chebyshev"
	Cityblock     ProximityMetric = "cityblock"
	Correlation   ProximityMetric = "correlation"
	Cosine        ProximityMetric = "cosine"
	Euclidean     ProximityMetric = "euclidean"
	Hamming       ProximityMetric = "hamming"
	JensenShannon ProximityMetric = "jensenshannon"
	Minkowski     ProximityMetric = "minkowski" // p = 2
	SqEuclidean   ProximityMetric = "sqeuclidean"

	DefaultProximityMetric = Euclidean
)

var distanceFuncs = map[ProximityMetric]DistanceFunc{
	BrayCurtis:    brayCurtisDistance,
	Canberra:      canberraDistance,
	Chebyshev:     chebyshevDistance,
	Cityblock:     cityblockDistance,
	Correlation:   correlationDistance,
	Cosine:        cosineDistance,
	Euclidean:     euclideanDistance,
	Hamming:       hammingDistance,
	JensenShannon: jensenShannonDistance,
	Minkowski:     euclideanDistance,
	SqEuclidean:   sqEuclideanDistance,
}

// ParseProximityMetric validates name against the catalogue. Matching is
// case-insensitive and an empty name selects DefaultProximityMetric.
func ParseProximityMetric(name string) (ProximityMetric, error) {
	normalized := ProximityMetric(strings.ToLower(strings.TrimSpace(name)))
	if normalized == "" {
		return DefaultProximityMetric, nil
	}

	if _, ok := distanceFuncs[normalized]; !ok {
		return "", errors.Wrapf(ErrUnsupportedMetric, "metric %q (supported: %s)",
			name, strings.Join(SupportedProximityMetrics(), ", "))
	}

	return normalized, nil
}

// SupportedProximityMetrics lists the catalogue in sorted order.
func SupportedProximityMetrics() []string {
	names := make([]string, 0, len(distanceFuncs))
	for m := range distanceFuncs {
		names = append(names, string(m))
	}
	sort.Strings(names)

	return names
}

// Distance returns the distance function for m, or nil when m is not
// part of the catalogue.
func (m ProximityMetric) Distance() DistanceFunc {
	return distanceFuncs[m]
}

func (m ProximityMetric) String() string {
	return string(m)
}
