package types

import (
	"fmt"
	"image"
	"strings"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence,omitempty"`
}

// FaceResult is the JSON document the vision backends are asked to produce
type FaceResult struct {
	Faces []Box `json:"faces"`
}

// Point is a pixel coordinate. Both components are non-negative.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NewPoint builds a Point, rejecting negative coordinates
func NewPoint(x, y int) (Point, error) {
	if x < 0 || y < 0 {
		return Point{}, fmt.Errorf("coordinates cannot be negative: (%d,%d)", x, y)
	}
	return Point{X: x, Y: y}, nil
}

// FaceBox is an axis-aligned face bounding box in absolute pixels
type FaceBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge
func (f FaceBox) Right() int { return f.Left + f.Width }

// Bottom returns the exclusive bottom edge
func (f FaceBox) Bottom() int { return f.Top + f.Height }

// Rect converts the box to an image.Rectangle
func (f FaceBox) Rect() image.Rectangle {
	return image.Rect(f.Left, f.Top, f.Right(), f.Bottom())
}

func (f FaceBox) String() string {
	return fmt.Sprintf("%dx%d@%d,%d", f.Width, f.Height, f.Left, f.Top)
}

// RatioPair is an aspect ratio reduced to lowest integer terms
type RatioPair struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Value returns Width/Height
func (r RatioPair) Value() float64 {
	return r.Width / r.Height
}

func (r RatioPair) String() string {
	return fmt.Sprintf("%g:%g", r.Width, r.Height)
}

// Format is an output encoding
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat normalizes a format name. "jpg" is an alias of jpeg.
// Unknown names are kept as-is so they can still be stored as binary.
func ParseFormat(s string) Format {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	default:
		return Format(f)
	}
}

// Known reports whether the format has an encoder
func (f Format) Known() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	}
	return false
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch ParseFormat(string(f)) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension without the dot
func (f Format) Ext() string {
	if ParseFormat(string(f)) == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// SizeSpec describes one target output slot on a platform
type SizeSpec struct {
	Label    string `json:"label" toml:"label"`
	Platform string `json:"platform" toml:"platform"`
	Width    int    `json:"width" toml:"width"`
	Height   int    `json:"height" toml:"height"`
	MaxBytes int    `json:"maxBytes,omitempty" toml:"max_bytes"`
	Format   Format `json:"format" toml:"format"`
}

// NewSizeSpec builds a validated SizeSpec. maxBytes of 0 means no ceiling.
func NewSizeSpec(label, platform string, width, height, maxBytes int, format string) (SizeSpec, error) {
	s := SizeSpec{
		Label:    label,
		Platform: platform,
		Width:    width,
		Height:   height,
		MaxBytes: maxBytes,
		Format:   ParseFormat(format),
	}
	if err := s.Validate(); err != nil {
		return SizeSpec{}, err
	}
	return s, nil
}

// Validate checks the required fields
func (s SizeSpec) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return fmt.Errorf("label must not be empty")
	}
	if strings.TrimSpace(s.Platform) == "" {
		return fmt.Errorf("platform must not be empty")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("size must be positive, got %dx%d", s.Width, s.Height)
	}
	if s.MaxBytes < 0 {
		return fmt.Errorf("max bytes must not be negative, got %d", s.MaxBytes)
	}
	if s.Format == "" {
		return fmt.Errorf("format must not be empty")
	}
	return nil
}

// FileName returns "<label>_<platform>_<w>x<h>" with spaces replaced
func (s SizeSpec) FileName() string {
	name := fmt.Sprintf("%s_%s_%dx%d", s.Label, s.Platform, s.Width, s.Height)
	return strings.ReplaceAll(name, " ", "-")
}

// HasAlpha reports whether img may contain transparent pixels
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
