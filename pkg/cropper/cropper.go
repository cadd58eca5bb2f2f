// Package cropper implements the geometric crops of the pipeline: the
// symmetric crop that puts the face center in the middle of the frame, and
// the centered crop down to a target aspect ratio.
//
// Both crops copy pixels into a new image; the input is never modified.
package cropper

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

// SquareRegion returns the largest region of a width x height image that is
// symmetric about center. Coordinates are relative to the image origin.
func SquareRegion(width, height int, center types.Point) image.Rectangle {
	halfWidth := min(center.X, width-center.X)
	halfHeight := min(center.Y, height-center.Y)

	return image.Rect(
		center.X-halfWidth,
		center.Y-halfHeight,
		center.X+halfWidth,
		center.Y+halfHeight,
	)
}

// CropAroundCenter crops img to the largest region symmetric about center,
// so that center becomes the exact middle of the result. A center lying on an
// image edge produces an empty image.
func CropAroundCenter(img image.Image, center types.Point) (image.Image, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if center.X < 0 || center.Y < 0 || center.X > width || center.Y > height {
		return nil, errors.New(errors.ErrCodeInvalidDimension,
			"center (%d,%d) is outside the %dx%d image", center.X, center.Y, width, height)
	}

	region := SquareRegion(width, height, center)
	return crop(img, region), nil
}

// RatioRegion returns the largest region of a width x height image matching
// ratio, centered. The derived dimension is rounded down.
func RatioRegion(width, height int, ratio types.RatioPair) image.Rectangle {
	aspectRatio := ratio.Value()

	var croppedWidth, croppedHeight int
	if float64(width)/aspectRatio <= float64(height) {
		croppedWidth = width
		croppedHeight = int(float64(croppedWidth) / aspectRatio)
	} else {
		croppedHeight = height
		croppedWidth = int(float64(croppedHeight) * aspectRatio)
	}

	x := (width - croppedWidth) / 2
	y := (height - croppedHeight) / 2

	return image.Rect(x, y, x+croppedWidth, y+croppedHeight)
}

// CropToRatio crops img to the largest centered region matching ratio
func CropToRatio(img image.Image, ratio types.RatioPair) (image.Image, error) {
	bounds := img.Bounds()
	originalWidth, originalHeight := bounds.Dx(), bounds.Dy()

	if originalWidth <= 0 || originalHeight <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension,
			"cannot crop an empty %dx%d image to %s", originalWidth, originalHeight, ratio)
	}
	if ratio.Width <= 0 || ratio.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimension, "invalid ratio %s", ratio)
	}

	region := RatioRegion(originalWidth, originalHeight, ratio)
	return crop(img, region), nil
}

// crop copies region (relative to the image origin) into a new image
func crop(img image.Image, region image.Rectangle) image.Image {
	return imaging.Crop(img, region.Add(img.Bounds().Min))
}
