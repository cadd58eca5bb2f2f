package cropper

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

// createTestImage creates a gradient image so crops can be located by color
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	return img
}

func TestValidateFaces(t *testing.T) {
	faces := []types.FaceBox{
		{Left: 0, Top: 0, Width: 10, Height: 10},
		{Left: 90, Top: 40, Width: 10, Height: 10},
	}
	assert.NoError(t, ValidateFaces(100, 50, faces))
	assert.NoError(t, ValidateFaces(100, 50, nil))

	bad := []types.FaceBox{
		{Left: 95, Top: 0, Width: 10, Height: 10}, // left + width > imageWidth
		{Left: 0, Top: 45, Width: 10, Height: 10}, // top + height > imageHeight
		{Left: -1, Top: 0, Width: 10, Height: 10},
		{Left: 0, Top: -1, Width: 10, Height: 10},
		{Left: 0, Top: 0, Width: 0, Height: 10},
		{Left: 0, Top: 0, Width: 10, Height: -5},
	}
	for _, face := range bad {
		err := ValidateFaces(100, 50, append([]types.FaceBox{faces[0]}, face))
		require.Error(t, err, "%s", face)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidFaceBox))
	}
}

func TestFaceCenterSingleFace(t *testing.T) {
	center, err := FaceCenter([]types.FaceBox{{Left: 100, Top: 100, Width: 50, Height: 50}})
	require.NoError(t, err)
	assert.Equal(t, types.Point{X: 125, Y: 125}, center)
}

func TestFaceCenterUsesUnionBox(t *testing.T) {
	faces := []types.FaceBox{
		{Left: 100, Top: 200, Width: 50, Height: 50},
		{Left: 400, Top: 100, Width: 101, Height: 60},
		{Left: 250, Top: 300, Width: 20, Height: 21},
	}

	assert.Equal(t, types.FaceBox{Left: 100, Top: 100, Width: 401, Height: 221}, UnionBox(faces))

	center, err := FaceCenter(faces)
	require.NoError(t, err)
	// (100+501)/2 and (100+321)/2, rounded down
	assert.Equal(t, types.Point{X: 300, Y: 210}, center)
}

func TestFaceCenterOrderInvariant(t *testing.T) {
	faces := []types.FaceBox{
		{Left: 10, Top: 20, Width: 30, Height: 40},
		{Left: 300, Top: 10, Width: 25, Height: 25},
		{Left: 150, Top: 400, Width: 60, Height: 61},
		{Left: 77, Top: 77, Width: 7, Height: 7},
	}
	want, err := FaceCenter(faces)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]types.FaceBox(nil), faces...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := FaceCenter(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFaceCenterEmpty(t *testing.T) {
	_, err := FaceCenter(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEmptyFaceSet))
}

func TestSquareRegionLimitedByNearestEdge(t *testing.T) {
	region := SquareRegion(1000, 1000, types.Point{X: 100, Y: 500})
	assert.Equal(t, image.Rect(0, 0, 200, 1000), region)
}

func TestCropAroundCenter(t *testing.T) {
	img := createTestImage(1000, 1000)

	out, err := CropAroundCenter(img, types.Point{X: 100, Y: 500})
	require.NoError(t, err)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 1000, out.Bounds().Dy())

	// the top-left pixel of the result is the original (0,0)
	assert.Equal(t, img.At(0, 0), out.At(0, 0))
}

func TestCropAroundCenterKeepsCenter(t *testing.T) {
	img := createTestImage(640, 480)
	centers := []types.Point{{X: 320, Y: 240}, {X: 1, Y: 1}, {X: 600, Y: 50}, {X: 123, Y: 457}, {X: 639, Y: 479}}

	for _, c := range centers {
		region := SquareRegion(640, 480, c)
		assert.Equal(t, 0, region.Dx()%2, "width must be even for %v", c)
		assert.Equal(t, 0, region.Dy()%2, "height must be even for %v", c)
		assert.Equal(t, c.X, region.Min.X+region.Dx()/2)
		assert.Equal(t, c.Y, region.Min.Y+region.Dy()/2)
		assert.True(t, region.In(img.Bounds()))

		out, err := CropAroundCenter(img, c)
		require.NoError(t, err)
		assert.Equal(t, region.Size(), out.Bounds().Size())
	}
}

func TestCropAroundCenterOnEdgeIsEmpty(t *testing.T) {
	img := createTestImage(100, 80)

	out, err := CropAroundCenter(img, types.Point{X: 0, Y: 40})
	require.NoError(t, err)
	assert.True(t, out.Bounds().Empty())
}

func TestCropAroundCenterOutside(t *testing.T) {
	_, err := CropAroundCenter(createTestImage(100, 80), types.Point{X: 101, Y: 40})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimension))
}

func TestCropAroundCenterWithOffsetBounds(t *testing.T) {
	img := createTestImage(200, 200).SubImage(image.Rect(50, 50, 150, 150))

	out, err := CropAroundCenter(img, types.Point{X: 20, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 100), out.Bounds().Size())
	// result origin maps to the sub-image origin (50,50)
	assert.Equal(t, img.At(50, 50), out.At(0, 0))
}

func TestCropToRatio(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		ratio         types.RatioPair
		want          image.Rectangle
	}{
		{"wide to square", 400, 300, types.RatioPair{Width: 1, Height: 1}, image.Rect(50, 0, 350, 300)},
		{"tall to square", 300, 400, types.RatioPair{Width: 1, Height: 1}, image.Rect(0, 50, 300, 350)},
		{"square to widescreen", 1600, 1600, types.RatioPair{Width: 16, Height: 9}, image.Rect(0, 350, 1600, 1250)},
		{"already matching", 1920, 1080, types.RatioPair{Width: 16, Height: 9}, image.Rect(0, 0, 1920, 1080)},
		{"facebook header", 2800, 2800, types.RatioPair{Width: 851, Height: 315}, image.Rect(0, 882, 2800, 1918)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RatioRegion(tt.width, tt.height, tt.ratio))

			out, err := CropToRatio(createTestImage(tt.width, tt.height), tt.ratio)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Size(), out.Bounds().Size())
		})
	}
}

func TestRatioRegionContainedAndExact(t *testing.T) {
	ratios := []types.RatioPair{
		{Width: 1, Height: 1}, {Width: 16, Height: 9}, {Width: 9, Height: 16},
		{Width: 133, Height: 72}, {Width: 910, Height: 229}, {Width: 75, Height: 56},
	}
	sizes := [][2]int{{4000, 2800}, {2800, 2800}, {999, 1001}, {37, 1200}, {1, 1}}

	for _, size := range sizes {
		bounds := image.Rect(0, 0, size[0], size[1])
		for _, r := range ratios {
			region := RatioRegion(size[0], size[1], r)
			assert.True(t, region.In(bounds), "%v in %v for %s", region, bounds, r)

			// one side is kept, the other is within a pixel of exact
			w, h := float64(region.Dx()), float64(region.Dy())
			if region.Dx() == size[0] {
				assert.InDelta(t, w/r.Value(), h, 1.0)
			} else {
				assert.Equal(t, size[1], region.Dy())
				assert.InDelta(t, h*r.Value(), w, 1.0)
			}
		}
	}
}

func TestCropToRatioEmptyImage(t *testing.T) {
	_, err := CropToRatio(&image.NRGBA{}, types.RatioPair{Width: 1, Height: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimension))
}

func TestCropDoesNotAlias(t *testing.T) {
	img := createTestImage(100, 100)

	out, err := CropToRatio(img, types.RatioPair{Width: 1, Height: 2})
	require.NoError(t, err)

	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok)
	nrgba.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
	assert.Equal(t, color.NRGBA{25, 0, 128, 255}, img.NRGBAAt(25, 0))
}

func BenchmarkCropAroundCenter(b *testing.B) {
	img := createTestImage(1920, 1080)
	center := types.Point{X: 800, Y: 500}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CropAroundCenter(img, center)
	}
}

func BenchmarkCropToRatio(b *testing.B) {
	img := createTestImage(1920, 1080)
	square := types.RatioPair{Width: 1, Height: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CropToRatio(img, square)
	}
}
