package pipeline

import (
	stderrors "errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/resize"
	"github.com/menta2k/face-cropper/pkg/types"
)

// createTestImage creates a uniform test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 120, 150, 255
	}
	return img
}

func newTestPipeline() *Pipeline {
	return New(WithLogger(log.New(io.Discard)))
}

func mustSpec(t *testing.T, width, height int) types.SizeSpec {
	t.Helper()
	spec, err := types.NewSizeSpec("Ava", "Test", width, height, 0, "jpg")
	require.NoError(t, err)
	return spec
}

func TestRunEndToEnd(t *testing.T) {
	img := createTestImage(4000, 3000)
	faces := []types.FaceBox{{Left: 1800, Top: 1400, Width: 400, Height: 400}}

	result, err := newTestPipeline().Run(img, mustSpec(t, 1000, 1000), faces)
	require.NoError(t, err)

	assert.Equal(t, image.Pt(1000, 1000), result.Image.Bounds().Size())
	assert.Equal(t, types.Point{X: 2000, Y: 1600}, result.Center)
	assert.Equal(t, image.Pt(4000, 2800), result.Square.Bounds().Size())
	assert.Equal(t, types.RatioPair{Width: 1, Height: 1}, result.Ratio)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, []State{StateValidated, StateFaceCentered, StateRatioCropped, StateResized, StateDone}, result.Visited)
}

func TestRunPresets(t *testing.T) {
	img := createTestImage(4000, 3000)
	faces := []types.FaceBox{
		{Left: 1500, Top: 1000, Width: 300, Height: 320},
		{Left: 2100, Top: 1100, Width: 280, Height: 300},
	}
	sizes := [][2]int{{2400, 2400}, {2660, 1440}, {1820, 458}, {1500, 1120}, {5120, 2880}, {196, 196}, {851, 315}, {900, 600}}

	p := newTestPipeline()
	for _, size := range sizes {
		result, err := p.Run(img, mustSpec(t, size[0], size[1]), faces)
		require.NoError(t, err, "%v", size)
		assert.Equal(t, image.Pt(size[0], size[1]), result.Image.Bounds().Size())
	}
}

func TestRunWithoutFaces(t *testing.T) {
	result, err := newTestPipeline().Run(createTestImage(400, 300), mustSpec(t, 100, 100), nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrCodeEmptyFaceSet))
	assert.Equal(t, StateFailed, result.State)
	assert.NotContains(t, result.Visited, StateResized)
	assert.Nil(t, result.Image)

	var stageErr *StageError
	require.True(t, stderrors.As(err, &stageErr))
	assert.Equal(t, StateFaceCentered, stageErr.Stage)
}

func TestRunInvalidFaceBox(t *testing.T) {
	faces := []types.FaceBox{{Left: 350, Top: 10, Width: 100, Height: 100}}

	result, err := newTestPipeline().Run(createTestImage(400, 300), mustSpec(t, 100, 100), faces)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFaceBox))
	assert.Equal(t, []State{StateValidated, StateFailed}, result.Visited)
}

func TestRunFaceOnEdgeFailsAtRatioCrop(t *testing.T) {
	// a 1px wide face at the left edge centers on x=0, collapsing the square crop
	faces := []types.FaceBox{{Left: 0, Top: 100, Width: 1, Height: 100}}

	result, err := newTestPipeline().Run(createTestImage(400, 300), mustSpec(t, 100, 100), faces)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrCodeInvalidDimension))
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, result.Visited, StateRatioCropped)
	assert.NotContains(t, result.Visited, StateResized)
}

func TestRunAspectRatioMismatchFromStrictResizer(t *testing.T) {
	strict, err := resize.NewWithConfig(resize.Config{ToleranceBP: 0})
	require.NoError(t, err)
	p := New(WithResizer(strict), WithLogger(log.New(io.Discard)))

	// 851:315 cannot be hit exactly from a 4000x2800 square crop
	faces := []types.FaceBox{{Left: 1800, Top: 1400, Width: 400, Height: 400}}
	result, err := p.Run(createTestImage(4000, 3000), mustSpec(t, 851, 315), faces)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrCodeAspectRatioMismatch))
	var stageErr *StageError
	require.True(t, stderrors.As(err, &stageErr))
	assert.Equal(t, StateResized, stageErr.Stage)
	assert.Equal(t, StateFailed, result.State)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	img := createTestImage(200, 200).(*image.NRGBA)
	before := append([]uint8(nil), img.Pix...)

	result, err := newTestPipeline().Run(img, mustSpec(t, 50, 50), []types.FaceBox{{Left: 80, Top: 80, Width: 40, Height: 40}})
	require.NoError(t, err)

	out := result.Image.(*image.NRGBA)
	out.SetNRGBA(0, 0, color.NRGBA{})
	assert.Equal(t, before, img.Pix)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "face-centered", StateFaceCentered.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func BenchmarkRun(b *testing.B) {
	p := New(WithLogger(log.New(io.Discard)))
	img := createTestImage(1920, 1080)
	spec, _ := types.NewSizeSpec("Ava", "Bench", 1080, 1080, 0, "jpg")
	faces := []types.FaceBox{{Left: 900, Top: 400, Width: 200, Height: 200}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Run(img, spec, faces)
	}
}
