package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	facecropper "github.com/menta2k/face-cropper"
	"github.com/menta2k/face-cropper/internal/utils"
	"github.com/menta2k/face-cropper/pkg/types"
)

func (c *CLI) cropCommand() *cobra.Command {
	var (
		id     int
		faces  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "crop <image>",
		Short: "Crop an image for one size preset",
		Long: `Crop an image for one size preset and store the result.

The image may be a local file or an http(s) URL. Faces are detected with the
configured backend unless boxes are given with --face.`,
		Example: `  face-cropper crop photo.jpg --preset 14
  face-cropper crop https://example.com/band.png -p 6 --face 900,700,200,200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			boxes, err := parseFaces(faces)
			if err != nil {
				return err
			}

			fc, _, err := c.newCropper(ctx)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			var out *facecropper.Output
			if len(boxes) > 0 {
				img, err := fc.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				out, err = fc.CropFaces(ctx, img, boxes, id)
				if err != nil {
					return err
				}
			} else if out, err = fc.Crop(ctx, args[0], id); err != nil {
				return err
			}
			prog.done("Cropped " + out.Spec.FileName())

			if asJSON {
				return writeJSON(c.out, out)
			}
			printSuccess(c.out, "%s", out.Spec.FileName())
			printFile(c.out, out.URL)
			printDetail(c.out, "%s · ratio %s · center %d,%d",
				utils.FormatFileSize(int64(out.Bytes)), out.Ratio, out.Center.X, out.Center.Y)
			return nil
		},
	}

	cmd.Flags().IntVarP(&id, "preset", "p", 0, "preset id, see the presets command")
	cmd.Flags().StringArrayVar(&faces, "face", nil, "face box as left,top,width,height; repeatable, skips detection")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("preset")

	return cmd
}

func parseFaces(values []string) ([]types.FaceBox, error) {
	boxes := make([]types.FaceBox, 0, len(values))
	for _, v := range values {
		box, err := parseFace(v)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// parseFace parses "left,top,width,height" in pixels
func parseFace(s string) (types.FaceBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.FaceBox{}, fmt.Errorf("invalid face %q: want left,top,width,height", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.FaceBox{}, fmt.Errorf("invalid face %q: %w", s, err)
		}
		v[i] = n
	}
	return types.FaceBox{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}, nil
}
