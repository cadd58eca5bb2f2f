package processing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

// createNoisyImage compresses poorly at any quality
func createNoisyImage(width, height int) *image.NRGBA {
	r := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchFromURL(t *testing.T) {
	data := encodePNG(t, createTestImage(64, 48))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		case "/binary":
			w.Header().Set("Content-Type", "binary/octet-stream")
			w.Write(data)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	ctx := context.Background()

	img, err := p.Fetch(ctx, srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 48), img.Bounds().Size())

	_, err = p.Fetch(ctx, srv.URL+"/binary")
	require.NoError(t, err)

	for _, path := range []string{"/page", "/missing"} {
		_, err := p.Fetch(ctx, srv.URL+path)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, errors.ErrCodeImageFetch), path)
	}
}

func TestFetchRespectsSizeLimit(t *testing.T) {
	data := encodePNG(t, createTestImage(64, 48))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxDownloadBytes = int64(len(data) - 1)
	_, err := NewProcessorWithConfig(cfg).Fetch(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, errors.ErrCodeImageFetch))
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessor().Fetch(ctx, srv.URL)
	assert.True(t, errors.Is(err, errors.ErrCodeImageFetch))
}

func TestFetchFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, createTestImage(10, 20)), 0o644))

	p := NewProcessor()
	img, err := p.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 20), img.Bounds().Size())

	_, err = p.Fetch(context.Background(), filepath.Join(dir, "missing.png"))
	assert.True(t, errors.Is(err, errors.ErrCodeImageFetch))

	garbage := filepath.Join(dir, "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = p.Fetch(context.Background(), garbage)
	assert.True(t, errors.Is(err, errors.ErrCodeImageFetch))
}

func TestEncodeFormats(t *testing.T) {
	img := createTestImage(40, 30)

	for _, format := range []types.Format{types.FormatJPEG, types.FormatPNG, types.FormatWebP} {
		data, err := Encode(img, format, EncodeOptions{Quality: 85})
		require.NoError(t, err, format)

		decoded, err := DecodeImage(data)
		require.NoError(t, err, format)
		assert.Equal(t, image.Pt(40, 30), decoded.Bounds().Size(), format)
	}

	_, err := Encode(img, types.Format("gif"), EncodeOptions{})
	assert.True(t, errors.Is(err, errors.ErrCodeEncode))
}

func TestEncodeJPEGIsJPEG(t *testing.T) {
	data, err := Encode(createTestImage(8, 8), types.ParseFormat("jpg"), EncodeOptions{Quality: 90})
	require.NoError(t, err)
	_, err = jpeg.DecodeConfig(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestEncodeMaxBytesStepsQuality(t *testing.T) {
	img := createNoisyImage(200, 200)

	full, err := Encode(img, types.FormatJPEG, EncodeOptions{Quality: 95})
	require.NoError(t, err)

	limited, err := Encode(img, types.FormatJPEG, EncodeOptions{Quality: 95, MaxBytes: len(full) / 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(limited), len(full)/2)
}

func TestEncodeTooLarge(t *testing.T) {
	img := createNoisyImage(100, 100)

	_, err := Encode(img, types.FormatJPEG, EncodeOptions{Quality: 90, MaxBytes: 100})
	assert.True(t, errors.Is(err, errors.ErrCodeEncodedTooLarge))

	// png has no quality knob to step down
	_, err = Encode(img, types.FormatPNG, EncodeOptions{MaxBytes: 100})
	assert.True(t, errors.Is(err, errors.ErrCodeEncodedTooLarge))
}

func TestSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.webp")
	p := NewProcessor()
	require.NoError(t, p.SaveImage(createTestImage(16, 16), path, "webp", 80, true))

	img, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 16), img.Bounds().Size())
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(createTestImage(300, 100), "jpg", 150, 80)
	require.NoError(t, err)
	require.NotEmpty(t, b64)
}

func TestCreateDebugOverlay(t *testing.T) {
	img := createTestImage(200, 200)
	faces := []types.FaceBox{
		{Left: 20, Top: 20, Width: 40, Height: 40},
		{Left: 120, Top: 40, Width: 40, Height: 40},
	}
	union := types.FaceBox{Left: 20, Top: 20, Width: 140, Height: 60}
	center := types.Point{X: 90, Y: 50}

	out := NewProcessor().CreateDebugOverlay(img, faces, union, image.Rect(0, 0, 180, 100), center).(*image.NRGBA)

	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(120, 60), "face box edge")
	assert.Equal(t, color.NRGBA{0, 170, 255, 255}, out.NRGBAAt(20, 30), "union box edge")
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(90, 50), "center")
	assert.Equal(t, img.NRGBAAt(100, 150), out.NRGBAAt(100, 150), "untouched pixel")
	// source is not modified
	assert.Equal(t, color.NRGBA{20, 30, 128, 255}, img.NRGBAAt(20, 30))
}
