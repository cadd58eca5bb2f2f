package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	facecropper "github.com/menta2k/face-cropper"
	"github.com/menta2k/face-cropper/internal/utils"
	"github.com/menta2k/face-cropper/pkg/errors"
)

func (c *CLI) batchCommand() *cobra.Command {
	var opts facecropper.BatchOptions

	cmd := &cobra.Command{
		Use:   "batch <image|dir>...",
		Short: "Crop images for many size presets at once",
		Long: `Crop every image for the selected presets, all presets by default.

Directories are searched recursively for jpg, png and webp files. Faces are
detected once per image and the presets are produced in parallel. A failing
preset is reported and the others still run.`,
		Example: `  face-cropper batch photo.jpg
  face-cropper batch ./shoots --presets 1,6,14 --overlay -j 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			sources, err := expandSources(args)
			if err != nil {
				return err
			}

			fc, _, err := c.newCropper(ctx)
			if err != nil {
				return err
			}

			total := newProgress(logger)
			failedImages, failedPresets := 0, 0
			for _, src := range sources {
				run := opts
				run.Name = utils.SanitizeFilename(utils.BaseName(src))

				prog := newProgress(logger)
				res, err := fc.CropAll(ctx, src, run)
				if err != nil {
					if ctx.Err() != nil {
						return err
					}
					printError(c.out, "%s: %s", src, errors.UserMessage(err))
					failedImages++
					continue
				}
				prog.done(fmt.Sprintf("Processed %s", src))

				printBatch(c.out, src, res)
				failedPresets += res.Failed()
			}
			total.done(fmt.Sprintf("Processed %d image(s)", len(sources)))

			if failedImages > 0 || failedPresets > 0 {
				return fmt.Errorf("%d image(s) and %d preset(s) failed", failedImages, failedPresets)
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&opts.IDs, "presets", nil, "preset ids to produce (default all)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "presets processed in parallel (default number of CPUs)")
	cmd.Flags().BoolVar(&opts.KeepIntermediate, "keep-intermediate", false, "also store the face-centered crop")
	cmd.Flags().BoolVar(&opts.Overlay, "overlay", false, "also store a debug overlay of the detected faces")

	return cmd
}

// expandSources replaces directories with the images they contain
func expandSources(args []string) ([]string, error) {
	var sources []string
	for _, arg := range args {
		if !utils.DirExists(arg) {
			sources = append(sources, arg)
			continue
		}
		files, err := utils.ListImageFiles(arg)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no images found in %s", arg)
		}
		sources = append(sources, files...)
	}
	return sources, nil
}

func printBatch(w io.Writer, src string, res *facecropper.BatchResult) {
	printSuccess(w, "%s", src)
	printDetail(w, "%d face(s) · center %d,%d", len(res.Faces), res.Center.X, res.Center.Y)

	for _, o := range res.Outcomes {
		if o.Err != nil {
			printError(w, "%s: %s", o.Spec.FileName(), errors.UserMessage(o.Err))
			continue
		}
		printFile(w, o.Output.URL)
	}

	if res.Intermediate != nil {
		printKeyValue(w, "intermediate", res.Intermediate.URL)
	}
	if res.Overlay != nil {
		printKeyValue(w, "overlay", res.Overlay.URL)
	}
}
