package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/menta2k/face-cropper/internal/utils"
	"github.com/menta2k/face-cropper/pkg/catalog"
)

func (c *CLI) presetsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the size presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			presets := catalog.Default()
			if cfg.Catalog.Path != "" {
				if presets, err = catalog.LoadFile(cfg.Catalog.Path); err != nil {
					return err
				}
			}

			entries := presets.All()
			if asJSON {
				return writeJSON(c.out, entries)
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				limit := "-"
				if e.Spec.MaxBytes > 0 {
					limit = utils.FormatFileSize(int64(e.Spec.MaxBytes))
				}
				rows[i] = []string{
					strconv.Itoa(e.ID),
					e.Spec.Platform,
					e.Spec.Label,
					fmt.Sprintf("%dx%d", e.Spec.Width, e.Spec.Height),
					string(e.Spec.Format),
					limit,
				}
			}
			printTable(c.out, []string{"ID", "Platform", "Label", "Size", "Format", "Max size"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the presets as JSON")

	return cmd
}
