package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/face-cropper/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP crop service",
		Long: `Serve POST /crop, GET /presets and GET /healthz until interrupted.

A crop request is {"imageUrl": "...", "id": 14} and is answered with
{"imageUrl": "..."} pointing at the stored result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fc, cfg, err := c.newCropper(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			srv := server.New(fc, server.Config{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			}, loggerFromContext(ctx))

			printInfo(c.out, "Serving %d presets on %s with the %s detector",
				fc.Catalog().Len(), cfg.Server.Addr, cfg.Detector.Backend)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}
