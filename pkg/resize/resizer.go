// Package resize scales an already-cropped image to an exact pixel size.
//
// The resizer refuses to change the aspect ratio: the input must already
// match the target ratio within a tolerance, otherwise the face crop would
// be visibly stretched.
package resize

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/face-cropper/pkg/errors"
)

// DefaultToleranceBP is the default ratio tolerance in basis points (1%).
const DefaultToleranceBP = 100

// Config holds configuration for the resizer
type Config struct {
	// ToleranceBP is the largest accepted relative ratio difference in basis
	// points of the input ratio. The boundary itself is accepted.
	ToleranceBP int
	// Filter names the resampling filter, see ParseFilter.
	Filter string
}

// Resizer resizes images after checking their aspect ratio
type Resizer struct {
	toleranceBP int64
	filter      imaging.ResampleFilter
}

// New creates a Resizer with a 1% tolerance and bicubic resampling
func New() *Resizer {
	return &Resizer{
		toleranceBP: DefaultToleranceBP,
		filter:      imaging.CatmullRom,
	}
}

// NewWithConfig creates a Resizer with custom configuration
func NewWithConfig(cfg Config) (*Resizer, error) {
	if cfg.ToleranceBP < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %d", cfg.ToleranceBP)
	}
	filter, err := ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	return &Resizer{toleranceBP: int64(cfg.ToleranceBP), filter: filter}, nil
}

// ParseFilter maps a filter name to an imaging filter. The empty name and
// "bicubic" select Catmull-Rom.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(name) {
	case "", "bicubic", "catmullrom":
		return imaging.CatmullRom, nil
	case "lanczos":
		return imaging.Lanczos, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter: %s", name)
	}
}

// CheckRatio verifies that width x height can be scaled to
// targetWidth x targetHeight without exceeding the ratio tolerance.
//
// The relative difference |w/h - tw/th| / (w/h) equals
// |w*th - tw*h| / (w*th), which is compared exactly in integers.
func (r *Resizer) CheckRatio(width, height, targetWidth, targetHeight int) error {
	if width <= 0 || height <= 0 {
		return errors.New(errors.ErrCodeInvalidDimension,
			"cannot resize an empty %dx%d image", width, height)
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidDimension,
			"target size must be positive, got %dx%d", targetWidth, targetHeight)
	}

	w, h := int64(width), int64(height)
	tw, th := int64(targetWidth), int64(targetHeight)

	delta := w*th - tw*h
	if delta < 0 {
		delta = -delta
	}
	base := w * th

	if delta*10000 > r.toleranceBP*base {
		originalRatio := float64(width) / float64(height)
		targetRatio := float64(targetWidth) / float64(targetHeight)
		return &errors.AspectRatioMismatchError{
			Original:    originalRatio,
			Target:      targetRatio,
			DiffPercent: float64(delta) / float64(base) * 100,
		}
	}
	return nil
}

// Resize scales img to exactly targetWidth x targetHeight. It never crops or
// pads; an input whose ratio is off by more than the tolerance is rejected.
func (r *Resizer) Resize(img image.Image, targetWidth, targetHeight int) (image.Image, error) {
	bounds := img.Bounds()
	if err := r.CheckRatio(bounds.Dx(), bounds.Dy(), targetWidth, targetHeight); err != nil {
		return nil, err
	}

	// imaging resamples in premultiplied alpha, so transparent edges do not bleed
	return imaging.Resize(img, targetWidth, targetHeight, r.filter), nil
}
