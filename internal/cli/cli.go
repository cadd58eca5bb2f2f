// Package cli implements the face-cropper command-line interface.
//
// Every command reads the same TOML configuration as the HTTP server. The
// file is taken from --config, else from the default location when it
// exists, else the built-in defaults apply. A few common settings can be
// overridden with flags on the root command.
//
// # Commands
//
//   - crop: produce one preset from an image, detecting faces or using --face
//   - batch: produce many presets from images or directories of images
//   - detect: print the faces found in an image
//   - presets: list the size presets
//   - serve: run the HTTP crop service
//   - config: write, locate and show the configuration file
//
// # Logging
//
// Commands log through a charm logger stored in the command context.
// --verbose (-v) switches it to debug level.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	facecropper "github.com/menta2k/face-cropper"
	"github.com/menta2k/face-cropper/internal/config"
)

// CLI holds state shared by all commands
type CLI struct {
	Logger *log.Logger

	out       io.Writer
	errOut    io.Writer
	logFile   *lumberjack.Logger
	cfgPath   string
	verbose   bool
	overrides overrides
}

// overrides are root flags that take precedence over the config file
type overrides struct {
	backend   string
	model     string
	url       string
	outputDir string
}

// New creates a CLI printing results to out and logging to errOut
func New(out, errOut io.Writer) *CLI {
	return &CLI{
		Logger: newLogger(errOut, log.InfoLevel),
		out:    out,
		errOut: errOut,
	}
}

// Close releases the log file, if one was opened
func (c *CLI) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}

// Execute runs the face-cropper CLI until the command finishes or ctx is
// cancelled. Errors are returned, not printed.
func Execute(ctx context.Context) error {
	c := New(os.Stdout, os.Stderr)
	defer c.Close()

	return c.RootCommand().ExecuteContext(ctx)
}

// RootCommand builds the command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "face-cropper",
		Short: "Crop photos around faces for platform image sizes",
		Long: `face-cropper detects the faces in a photo, centers a crop on them and
resizes it to the exact pixel dimensions a platform expects for avatars,
headers and covers.`,
		Version:       facecropper.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetOut(c.out)
	root.SetVersionTemplate(fmt.Sprintf("face-cropper %s\n", facecropper.Version))

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgPath, "config", "c", "", "config file (default "+config.GetConfigPath()+")")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.overrides.backend, "backend", "", "detector backend: ollama, llamacpp or pigo")
	pf.StringVar(&c.overrides.model, "model", "", "vision model name")
	pf.StringVar(&c.overrides.url, "url", "", "vision server URL")
	pf.StringVarP(&c.overrides.outputDir, "output-dir", "o", "", "directory for local storage")

	root.AddCommand(c.cropCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.detectCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())

	return root
}

// configPath returns the file named by --config or the default location
func (c *CLI) configPath() string {
	if c.cfgPath != "" {
		return c.cfgPath
	}
	return config.GetConfigPath()
}

// loadConfig reads the configuration and applies flag overrides. A missing
// default file is not an error; a missing --config file is.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg := config.Default()

	path := c.configPath()
	if _, err := os.Stat(path); err == nil || c.cfgPath != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		c.openLogFile(cfg.Log)
		c.Logger.Debug("loaded config", "path", path)
	}

	if c.overrides.backend != "" {
		cfg.Detector.Backend = c.overrides.backend
	}
	if c.overrides.model != "" {
		cfg.Detector.Model = c.overrides.model
	}
	if c.overrides.url != "" {
		cfg.Detector.URL = c.overrides.url
	}
	if c.overrides.outputDir != "" {
		cfg.Output.Dir = c.overrides.outputDir
	}
	return cfg, nil
}

// openLogFile tees the logger into a rotated file when cfg.File is set
func (c *CLI) openLogFile(cfg config.LogConfig) {
	if cfg.File == "" || c.logFile != nil {
		return
	}
	c.logFile = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	c.Logger.SetOutput(io.MultiWriter(c.errOut, c.logFile))
}

// newCropper loads the configuration and builds a FaceCropper from it
func (c *CLI) newCropper(ctx context.Context) (*facecropper.FaceCropper, *config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	fc, err := facecropper.NewFromConfig(ctx, cfg, loggerFromContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	return fc, cfg, nil
}
