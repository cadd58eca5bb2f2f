// Package pigo is a local face detector built on the pigo pixel-intensity
// cascade. It needs no model server, only a cascade file such as pigo's
// "facefinder".
package pigo

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/face-cropper/pkg/detection"
	"github.com/menta2k/face-cropper/pkg/types"
)

// Config tunes the cascade scan
type Config struct {
	CascadePath      string
	MinSize          int     // smallest face side in pixels
	MaxSize          int     // largest face side; 0 means the shorter image side
	ShiftFactor      float64 // window stride relative to its size
	ScaleFactor      float64 // window growth per scale step
	IoUThreshold     float64 // overlap above which detections are merged
	QualityThreshold float32 // detections scoring at or below are dropped
}

// DefaultConfig returns the scan parameters used by pigo's own examples
func DefaultConfig() Config {
	return Config{
		MinSize:          20,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.18,
		QualityThreshold: 5.0,
	}
}

// Detector finds faces with a pigo cascade
type Detector struct {
	classifier *pigo.Pigo
	config     Config
	logger     *log.Logger
}

var _ detection.FaceDetector = (*Detector)(nil)

// NewDetector loads the cascade at cfg.CascadePath
func NewDetector(cfg Config, logger *log.Logger) (*Detector, error) {
	if cfg.CascadePath == "" {
		return nil, fmt.Errorf("pigo: cascade path is required")
	}
	cascade, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("pigo: failed to read cascade file: %w", err)
	}
	return NewDetectorFromCascade(cascade, cfg, logger)
}

// NewDetectorFromCascade builds a detector from cascade bytes
func NewDetectorFromCascade(cascade []byte, cfg Config, logger *log.Logger) (*Detector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("pigo: empty cascade")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("pigo: error unpacking cascade file: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{classifier: classifier, config: cfg, logger: logger}, nil
}

// DetectFaces runs the cascade over img
func (d *Detector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// grayscale conversion reads from (0,0), so rebase the bounds first
	nrgba := imaging.Clone(img)
	cols, rows := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()

	maxSize := d.config.MaxSize
	if maxSize <= 0 {
		maxSize = min(cols, rows)
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(nrgba),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	faces := toFaceBoxes(dets, cols, rows, d.config.QualityThreshold)
	d.logger.Debug("pigo detection", "raw", len(dets), "faces", len(faces))

	return detection.RequireFaces(faces)
}

// toFaceBoxes keeps detections above qThresh and converts their centered
// squares to boxes clipped to the image
func toFaceBoxes(dets []pigo.Detection, width, height int, qThresh float32) []types.FaceBox {
	bounds := image.Rect(0, 0, width, height)
	out := make([]types.FaceBox, 0, len(dets))
	for _, det := range dets {
		if det.Q <= qThresh {
			continue
		}
		r := image.Rect(
			det.Col-det.Scale/2,
			det.Row-det.Scale/2,
			det.Col+det.Scale/2,
			det.Row+det.Scale/2,
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, types.FaceBox{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return out
}
