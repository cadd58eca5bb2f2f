package types

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in          string
		format      Format
		contentType string
		ext         string
	}{
		{"jpg", FormatJPEG, "image/jpeg", "jpg"},
		{"JPEG", FormatJPEG, "image/jpeg", "jpg"},
		{"png", FormatPNG, "image/png", "png"},
		{" WebP ", FormatWebP, "image/webp", "webp"},
		{"tiff", Format("tiff"), "application/octet-stream", "tiff"},
	}

	for _, tt := range tests {
		f := ParseFormat(tt.in)
		assert.Equal(t, tt.format, f, tt.in)
		assert.Equal(t, tt.contentType, f.ContentType(), tt.in)
		assert.Equal(t, tt.ext, f.Ext(), tt.in)
	}

	assert.True(t, FormatWebP.Known())
	assert.False(t, Format("gif").Known())
}

func TestNewSizeSpec(t *testing.T) {
	spec, err := NewSizeSpec("Ava Web", "VKMusic", 1820, 458, 0, "jpg")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, spec.Format)
	assert.Equal(t, "Ava-Web_VKMusic_1820x458", spec.FileName())

	invalid := []struct {
		label, platform string
		w, h, maxBytes  int
		format          string
	}{
		{"", "VK", 10, 10, 0, "jpg"},
		{"Ava", " ", 10, 10, 0, "jpg"},
		{"Ava", "VK", 0, 10, 0, "jpg"},
		{"Ava", "VK", 10, -1, 0, "jpg"},
		{"Ava", "VK", 10, 10, -5, "jpg"},
		{"Ava", "VK", 10, 10, 0, ""},
	}
	for _, tt := range invalid {
		_, err := NewSizeSpec(tt.label, tt.platform, tt.w, tt.h, tt.maxBytes, tt.format)
		assert.Error(t, err, "%+v", tt)
	}
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(3, 4)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 3, Y: 4}, p)

	_, err = NewPoint(-1, 0)
	assert.Error(t, err)
}

func TestFaceBoxEdges(t *testing.T) {
	f := FaceBox{Left: 10, Top: 20, Width: 30, Height: 40}
	assert.Equal(t, 40, f.Right())
	assert.Equal(t, 60, f.Bottom())
	assert.Equal(t, image.Rect(10, 20, 40, 60), f.Rect())
	assert.Equal(t, "30x40@10,20", f.String())
}

func TestHasAlpha(t *testing.T) {
	opaque := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range opaque.Pix {
		opaque.Pix[i] = 255
	}
	assert.False(t, HasAlpha(opaque))

	opaque.SetNRGBA(1, 1, color.NRGBA{0, 0, 0, 10})
	assert.True(t, HasAlpha(opaque))

	assert.False(t, HasAlpha(image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420)))
}
