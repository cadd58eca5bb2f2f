package detection

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/menta2k/face-cropper/pkg/client"
	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/processing"
	"github.com/menta2k/face-cropper/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for face detection
const DefaultPrompt = `You are a face locator.

Return JSON only:
{
  "faces": [
    {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0, "confidence": 0.0}
  ]
}

HARD RULES
- One entry per visible human face, including partially turned faces.
- x, y is the top-left corner of the face box; w, h its width and height.
- All coordinates are normalized to [0,1] relative to the image (NOT pixels).
- The box covers forehead to chin and ear to ear, nothing more.
- confidence is your certainty in [0,1].
- If there are no faces, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// FaceDetector locates faces in an image. Implementations return at least
// one box or an error coded NO_FACES_DETECTED.
type FaceDetector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error)
}

// VisionConfig configures a VisionDetector
type VisionConfig struct {
	Model         string
	Prompt        string
	MaxDimension  int     // longest side sent to the model
	Quality       int     // jpeg quality of the model image
	MinConfidence float64 // boxes reporting a lower confidence are dropped
	Timeout       time.Duration
}

// DefaultVisionConfig returns the defaults for vision backends
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		Prompt:       DefaultPrompt,
		MaxDimension: 1024,
		Quality:      85,
	}
}

// VisionDetector detects faces with a vision model
type VisionDetector struct {
	client    client.VisionClient
	config    VisionConfig
	processor *processing.Processor
	logger    *log.Logger
}

var _ FaceDetector = (*VisionDetector)(nil)

// NewVisionDetector creates a detector on top of a vision client. A nil
// logger falls back to log.Default().
func NewVisionDetector(c client.VisionClient, cfg VisionConfig, logger *log.Logger) *VisionDetector {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if logger == nil {
		logger = log.Default()
	}
	return &VisionDetector{
		client:    c,
		config:    cfg,
		processor: processing.NewProcessor(),
		logger:    logger,
	}
}

// DetectFaces sends img to the model and converts its normalized boxes to
// pixel boxes on img
func (d *VisionDetector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "cannot detect faces in an empty image")
	}

	imageB64, err := d.processor.PrepareImageForModel(img, "jpg", d.config.MaxDimension, d.config.Quality)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDetection, err, "failed to prepare image for model")
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	result, err := d.client.DetectFaces(ctx, d.config.Model, d.config.Prompt, imageB64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDetection, err, "face detection with %s failed", d.config.Model)
	}

	faces := ToPixelBoxes(result.Faces, b.Dx(), b.Dy(), d.config.MinConfidence)
	d.logger.Debug("vision detection", "model", d.config.Model, "raw", len(result.Faces), "faces", len(faces))

	return RequireFaces(faces)
}

// TestVision checks whether the model can actually see the image
func (d *VisionDetector) TestVision(ctx context.Context, img image.Image) (string, error) {
	imageB64, err := d.processor.PrepareImageForModel(img, "jpg", d.config.MaxDimension, d.config.Quality)
	if err != nil {
		return "", err
	}
	return d.client.SimpleQuery(ctx, d.config.Model, SimpleTestPrompt, imageB64)
}

// RequireFaces returns faces, or a NO_FACES_DETECTED error when it is empty
func RequireFaces(faces []types.FaceBox) ([]types.FaceBox, error) {
	if len(faces) == 0 {
		return nil, errors.New(errors.ErrCodeNoFacesDetected, "no faces detected")
	}
	return faces, nil
}

// ToPixelBoxes converts normalized boxes to absolute pixel boxes within a
// width x height image. Coordinates are clamped to [0,1] and truncated,
// then the extent is cut so the box ends inside the image. Boxes that end
// up empty or below minConfidence are dropped.
func ToPixelBoxes(boxes []types.Box, width, height int, minConfidence float64) []types.FaceBox {
	out := make([]types.FaceBox, 0, len(boxes))
	for _, b := range boxes {
		if anyNaN(b.X, b.Y, b.W, b.H) {
			continue
		}
		if minConfidence > 0 && b.Confidence > 0 && b.Confidence < minConfidence {
			continue
		}

		face := types.FaceBox{
			Left:   int(clamp(b.X, 0, 1) * float64(width)),
			Top:    int(clamp(b.Y, 0, 1) * float64(height)),
			Width:  int(clamp(b.W, 0, 1) * float64(width)),
			Height: int(clamp(b.H, 0, 1) * float64(height)),
		}
		face.Width = min(face.Width, width-face.Left)
		face.Height = min(face.Height, height-face.Top)

		if face.Width <= 0 || face.Height <= 0 {
			continue
		}
		out = append(out, face)
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
