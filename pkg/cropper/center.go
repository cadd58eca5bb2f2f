package cropper

import (
	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/types"
)

// ValidateFaces checks that every face box has a positive size and lies
// inside a width x height image. The first offending box fails the call.
func ValidateFaces(imageWidth, imageHeight int, faces []types.FaceBox) error {
	for i, face := range faces {
		if face.Width <= 0 || face.Height <= 0 {
			return errors.New(errors.ErrCodeInvalidFaceBox,
				"face %d (%s) must have a positive size", i, face)
		}
		if face.Left < 0 || face.Top < 0 ||
			face.Right() > imageWidth || face.Bottom() > imageHeight {
			return errors.New(errors.ErrCodeInvalidFaceBox,
				"face %d (%s) must be non-negative and within image dimensions %dx%d",
				i, face, imageWidth, imageHeight)
		}
	}
	return nil
}

// UnionBox returns the smallest box containing every face.
// faces must not be empty.
func UnionBox(faces []types.FaceBox) types.FaceBox {
	left, top := faces[0].Left, faces[0].Top
	right, bottom := faces[0].Right(), faces[0].Bottom()

	for _, face := range faces[1:] {
		left = min(left, face.Left)
		top = min(top, face.Top)
		right = max(right, face.Right())
		bottom = max(bottom, face.Bottom())
	}

	return types.FaceBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// FaceCenter returns the midpoint of the union of all face boxes, rounded down.
// Every face counts equally regardless of its size.
func FaceCenter(faces []types.FaceBox) (types.Point, error) {
	if len(faces) == 0 {
		return types.Point{}, errors.New(errors.ErrCodeEmptyFaceSet, "face coordinates list is empty")
	}

	u := UnionBox(faces)
	p, err := types.NewPoint((u.Left+u.Right())/2, (u.Top+u.Bottom())/2)
	if err != nil {
		return types.Point{}, errors.Wrap(errors.ErrCodeInvalidFaceBox, err, "invalid face center")
	}
	return p, nil
}
