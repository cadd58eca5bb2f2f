package ratio

import (
	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

// GCD returns the greatest common divisor using the Euclidean algorithm.
// GCD(a, 0) == a.
func GCD(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Reduce reduces width:height to lowest integer terms
func Reduce(width, height int) (types.RatioPair, error) {
	if width <= 0 || height <= 0 {
		return types.RatioPair{}, errors.New(errors.ErrCodeInvalidDimension,
			"ratio dimensions must be positive, got %dx%d", width, height)
	}
	g := GCD(width, height)
	return types.RatioPair{
		Width:  float64(width / g),
		Height: float64(height / g),
	}, nil
}
