package saliency

import "github.com/pkg/errors"

var (
	// ErrUnsupportedMetric is returned when a scorer is configured with a
	// metric name outside the distance catalogue.
	ErrUnsupportedMetric = errors.New("chosen comparison metric not supported")

	// ErrFeatureLengthMismatch is returned when the reference, query and
	// perturbed descriptors do not share one dimensionality.
	ErrFeatureLengthMismatch = errors.New("length of feature vector between two images do not match")

	// ErrMaskCountMismatch is returned when the number of perturbed
	// descriptors differs from the number of perturbation masks.
	ErrMaskCountMismatch = errors.New("number of perturbation masks and respective feature vector do not match")

	// ErrInvalidMask is returned for ragged, empty or out-of-range masks.
	ErrInvalidMask = errors.New("invalid perturbation mask set")

	// ErrNonFiniteDistance is returned when a metric yields NaN for the
	// given descriptors.
	ErrNonFiniteDistance = errors.New("proximity metric produced a non-finite distance")
)
