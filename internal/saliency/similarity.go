// Package saliency turns black-box descriptor similarity into visual
// saliency heatmaps.
package saliency

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// DescriptorSimilaritySaliency generates a heatmap from the descriptors of
// a reference image, a query image and perturbations of the query image.
//
// perturbed is [nMasks x nFeats] and parallel to masks, which is
// [nMasks x H x W]. The returned matrix is [H x W] with values in [-1,1];
// positive values mark regions that increase similarity between reference
// and query, negative values regions that decrease it.
type DescriptorSimilaritySaliency interface {
	Generate(ref, query []float64, perturbed mat.Matrix, masks *MaskSet) (*mat.Dense, error)
}

// SimilarityScoring scores each perturbation by how far it moves the query
// descriptor away from the reference, relative to the unperturbed query.
type SimilarityScoring struct {
	metric   ProximityMetric
	distance DistanceFunc
}

// NewSimilarityScoring validates metric up front so a misconfigured scorer
// never reaches Generate. An empty metric selects euclidean.
func NewSimilarityScoring(metric string) (*SimilarityScoring, error) {
	m, err := ParseProximityMetric(metric)
	if err != nil {
		return nil, err
	}

	return &SimilarityScoring{
		metric:   m,
		distance: m.Distance(),
	}, nil
}

// ProximityMetric reports the configured distance metric.
func (s *SimilarityScoring) ProximityMetric() ProximityMetric {
	return s.metric
}

// Config returns the registry configuration that rebuilds this scorer.
func (s *SimilarityScoring) Config() Config {
	return Config{
		Type:   SimilarityScoringType,
		Params: similarityScoringParams{ProximityMetric: string(s.metric)}.encode(),
	}
}

func (s *SimilarityScoring) Generate(ref, query []float64, perturbed mat.Matrix, masks *MaskSet) (*mat.Dense, error) {
	startTime := time.Now()

	if err := checkInputs(ref, query, perturbed, masks); err != nil {
		return nil, err
	}

	nMasks, _ := perturbed.Dims()

	// baseline proximity between the two unperturbed images
	original := s.distance(ref, query)
	if math.IsNaN(original) {
		return nil, errors.Wrapf(ErrNonFiniteDistance, "%s distance between reference and query", s.metric)
	}

	row := make([]float64, len(ref))
	diff := make([]float64, nMasks)
	for i := range nMasks {
		mat.Row(row, i, perturbed)
		diff[i] = s.distance(ref, row) - original
		if math.IsNaN(diff[i]) {
			return nil, errors.Wrapf(ErrNonFiniteDistance, "%s distance for perturbed descriptor %d", s.metric, i)
		}
	}

	sal, err := WeightRegionsByScalar(diff, masks, true, true)
	if err != nil {
		return nil, err
	}
	sal = MaxAbsScale(sal)

	log.Debug().
		Str("metric", string(s.metric)).
		Int("masks", nMasks).
		Int("features", len(ref)).
		Dur("elapsed", time.Since(startTime)).
		Msg("generated similarity saliency")

	return sal, nil
}

// checkInputs enforces the shape contract before any distance is computed.
// Feature lengths are checked first so a ref/query mismatch is reported
// whatever the perturbation shapes are.
func checkInputs(ref, query []float64, perturbed mat.Matrix, masks *MaskSet) error {
	if len(ref) != len(query) {
		return errors.Wrapf(ErrFeatureLengthMismatch, "reference has %d features, query has %d", len(ref), len(query))
	}
	if len(ref) == 0 {
		return errors.Wrap(ErrFeatureLengthMismatch, "descriptors are empty")
	}
	if d, ok := perturbed.(*mat.Dense); perturbed == nil || (ok && d == nil) {
		return errors.Wrap(ErrMaskCountMismatch, "no perturbed descriptors given")
	}

	nDescr, nFeats := perturbed.Dims()
	if nFeats != len(ref) {
		return errors.Wrapf(ErrFeatureLengthMismatch, "perturbed descriptors have %d features, reference has %d", nFeats, len(ref))
	}

	if masks == nil {
		return errors.Wrap(ErrMaskCountMismatch, "no perturbation masks given")
	}
	if nDescr != masks.Count {
		return errors.Wrapf(ErrMaskCountMismatch, "%d perturbed descriptors for %d masks", nDescr, masks.Count)
	}

	return masks.Validate()
}
