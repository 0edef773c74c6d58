package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/perturb"
	"github.com/tensorplex-labs/simsal/internal/saliency"
)

// createResponse creates a StdResponse with the given body and error
func createResponse[T any](code int, body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{
			StatusCode: code,
			Success:    false,
			Data:       body,
			Error:      &errMsg,
		}
	}
	return StdResponse[T]{
		StatusCode: code,
		Success:    true,
		Data:       body,
	}
}

// statusFor maps an error from a saliency run to an HTTP status. Problems
// with the caller's input are 400, everything else is 500.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	for _, target := range []error{
		saliency.ErrUnsupportedMetric,
		saliency.ErrInvalidMask,
		imaging.ErrShapeMismatch,
		imaging.ErrInvalidFill,
		perturb.ErrInvalidParams,
	} {
		if errors.Is(err, target) {
			return fiber.StatusBadRequest
		}
	}
	return fiber.StatusInternalServerError
}

func denseRows(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for r := range rows {
		out[r] = make([]float64, cols)
		mat.Row(out[r], r, m)
	}
	return out
}
