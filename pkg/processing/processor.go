package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

// Config holds configuration for the processor
type Config struct {
	HTTPTimeout      time.Duration
	UserAgent        string
	MaxDownloadBytes int64
}

// DefaultConfig returns the processor defaults
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      30 * time.Second,
		UserAgent:        "Face-Cropper/1.0 (+https://github.com/menta2k/face-cropper)",
		MaxDownloadBytes: 50 << 20,
	}
}

// Processor handles image acquisition and encoding
type Processor struct {
	config Config
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return NewProcessorWithConfig(DefaultConfig())
}

// NewProcessorWithConfig creates a processor with custom configuration
func NewProcessorWithConfig(cfg Config) *Processor {
	return &Processor{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Fetch loads an image from either a URL or a file path. Every failure is
// reported as IMAGE_FETCH.
func (p *Processor) Fetch(ctx context.Context, source string) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		img, err = p.LoadImageFromURL(ctx, source)
	} else {
		img, err = p.LoadImage(source)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, err, "failed to read the image from %s", source)
	}
	return img, nil
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.config.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	// object stores commonly serve images as octet-stream
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") &&
		!strings.HasPrefix(contentType, "application/octet-stream") &&
		!strings.HasPrefix(contentType, "binary/octet-stream") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(imageData)) > p.config.MaxDownloadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", p.config.MaxDownloadBytes)
	}

	return DecodeImage(imageData)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage decodes jpeg, png or webp data. EXIF orientation is applied
// to JPEGs so face boxes and pixels share one coordinate system.
func DecodeImage(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// PrepareImageForModel converts an image to base64 for sending to vision
// models, downscaling so the longest side is at most maxDim
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeOptions controls output encoding
type EncodeOptions struct {
	Quality  int  // jpeg/webp quality, 1-100
	Lossless bool // webp lossless mode
	MaxBytes int  // 0 means no ceiling
}

const (
	qualityStep  = 5
	qualityFloor = 10
)

// Encode encodes img in format. When opts.MaxBytes is set, lossy formats
// are re-encoded at decreasing quality until the payload fits.
func Encode(img image.Image, format types.Format, opts EncodeOptions) ([]byte, error) {
	format = types.ParseFormat(string(format))
	if !format.Known() {
		return nil, errors.New(errors.ErrCodeEncode, "unsupported output format: %s", format)
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	lossy := format == types.FormatJPEG || (format == types.FormatWebP && !opts.Lossless)

	for {
		data, err := encodeOnce(img, format, quality, opts.Lossless)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEncode, err, "failed to encode %s", format)
		}
		if opts.MaxBytes <= 0 || len(data) <= opts.MaxBytes {
			return data, nil
		}
		if !lossy || quality <= qualityFloor {
			return nil, errors.New(errors.ErrCodeEncodedTooLarge,
				"encoded %s is %d bytes, limit is %d", format, len(data), opts.MaxBytes)
		}
		quality = max(quality-qualityStep, qualityFloor)
	}
}

func encodeOnce(img image.Image, format types.Format, quality int, lossless bool) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case types.FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case types.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	data, err := Encode(img, types.ParseFormat(format), EncodeOptions{Quality: quality, Lossless: lossless})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CreateDebugOverlay draws the face boxes, their union, the symmetric crop
// region and the face center on a copy of img
func (p *Processor) CreateDebugOverlay(img image.Image, faces []types.FaceBox, union types.FaceBox, square image.Rectangle, center types.Point) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}  // face boxes
	blue := color.NRGBA{0, 170, 255, 255} // union box
	gold := color.NRGBA{255, 204, 0, 255} // crop region
	red := color.NRGBA{255, 0, 0, 255}    // face center
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))
	cross := int(math.Max(4, 0.01*float64(min(w, h))))

	for _, face := range faces {
		drawRect(nrgba, face.Rect(), green, stroke)
	}
	if len(faces) > 1 {
		drawRect(nrgba, union.Rect(), blue, stroke)
	}
	if !square.Empty() {
		drawRect(nrgba, square, gold, stroke)
	}

	drawHLine(nrgba, center.Y, center.X-cross, center.X+cross, red)
	drawVLine(nrgba, center.X, center.Y-cross, center.Y+cross, red)

	return nrgba
}

func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
