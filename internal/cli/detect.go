package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	facecropper "github.com/menta2k/face-cropper"
	"github.com/menta2k/face-cropper/pkg/cropper"
	"github.com/menta2k/face-cropper/pkg/detection"
	"github.com/menta2k/face-cropper/pkg/types"
)

type detectResult struct {
	Faces  []types.FaceBox `json:"faces"`
	Center types.Point     `json:"center"`
}

func (c *CLI) detectCommand() *cobra.Command {
	var probe, asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Print the faces found in an image",
		Long: `Run the configured face detector on an image and print the face boxes and
the point crops would be centered on.

--probe instead asks the vision model to describe the image, which checks
that the model server is reachable and the model can see images.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			fc, cfg, err := c.newCropper(ctx)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			if probe {
				det, err := facecropper.NewDetector(cfg.Detector, logger)
				if err != nil {
					return err
				}
				vd, ok := det.(*detection.VisionDetector)
				if !ok {
					return fmt.Errorf("--probe needs a vision backend, %s is not one", cfg.Detector.Backend)
				}
				img, err := fc.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				reply, err := vd.TestVision(ctx, img)
				if err != nil {
					return err
				}
				prog.done("Model replied")
				printInfo(c.out, "%s says:", cfg.Detector.Model)
				fmt.Fprintln(c.out, strings.TrimSpace(reply))
				return nil
			}

			faces, err := fc.DetectFaces(ctx, args[0])
			if err != nil {
				return err
			}
			center, err := cropper.FaceCenter(faces)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Found %d face(s)", len(faces)))

			if asJSON {
				return writeJSON(c.out, detectResult{Faces: faces, Center: center})
			}
			printSuccess(c.out, "%d face(s) in %s", len(faces), args[0])
			for i, f := range faces {
				printKeyValue(c.out, fmt.Sprintf("face %d", i+1), f.String())
			}
			printKeyValue(c.out, "center", fmt.Sprintf("%d,%d", center.X, center.Y))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "ask the vision model to describe the image instead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
