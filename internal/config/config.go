package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `toml:"detector"`
	Fetch    FetchConfig    `toml:"fetch"`
	Resize   ResizeConfig   `toml:"resize"`
	Output   OutputConfig   `toml:"output"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Log      LogConfig      `toml:"log"`
}

// DetectorConfig selects and tunes the face detection backend
type DetectorConfig struct {
	Backend        string  `toml:"backend"` // ollama, llamacpp or pigo
	URL            string  `toml:"url"`
	Model          string  `toml:"model"`
	Prompt         string  `toml:"prompt,omitempty"`
	MaxDimension   int     `toml:"max_dimension"`
	MinConfidence  float64 `toml:"min_confidence"`
	TimeoutSeconds int     `toml:"timeout_seconds"`

	CascadePath      string  `toml:"cascade_path"`
	MinFaceSize      int     `toml:"min_face_size"`
	QualityThreshold float64 `toml:"quality_threshold"`
}

// FetchConfig holds configuration for image downloads
type FetchConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBytes       int64  `toml:"max_bytes"`
	UserAgent      string `toml:"user_agent"`
}

// ResizeConfig holds configuration for the final resize step
type ResizeConfig struct {
	ToleranceBP int    `toml:"tolerance_bp"` // allowed ratio difference in basis points
	Filter      string `toml:"filter"`
}

// OutputConfig holds configuration for output encoding
type OutputConfig struct {
	Quality   int    `toml:"quality"`
	Lossless  bool   `toml:"lossless"`
	Dir       string `toml:"dir"`
	KeyPrefix string `toml:"key_prefix"`
}

// StorageConfig selects where crops are uploaded
type StorageConfig struct {
	Backend        string `toml:"backend"` // local or s3
	Bucket         string `toml:"bucket"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	UsePathStyle   bool   `toml:"use_path_style"`
	PresignMinutes int    `toml:"presign_minutes"`
}

// ServerConfig holds configuration for the HTTP entry point
type ServerConfig struct {
	Addr                string `toml:"addr"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	MaxBodyBytes        int64  `toml:"max_body_bytes"`
}

// CatalogConfig points at an optional preset file replacing the built-in list
type CatalogConfig struct {
	Path string `toml:"path"`
}

// LogConfig enables a rotated log file next to stderr logging
type LogConfig struct {
	File       string `toml:"file"` // empty disables file logging
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

var (
	detectorBackends = []string{"ollama", "llamacpp", "pigo"}
	storageBackends  = []string{"local", "s3"}
	resizeFilters    = []string{"", "bicubic", "catmullrom", "lanczos", "linear", "bilinear", "box", "nearest"}
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:          "ollama",
			URL:              "http://localhost:11434",
			Model:            "qwen2.5vl:7b",
			MaxDimension:     1024,
			TimeoutSeconds:   300,
			MinFaceSize:      20,
			QualityThreshold: 5.0,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			MaxBytes:       50 << 20,
			UserAgent:      "Face-Cropper/1.0 (+https://github.com/menta2k/face-cropper)",
		},
		Resize: ResizeConfig{
			ToleranceBP: 100,
			Filter:      "catmullrom",
		},
		Output: OutputConfig{
			Quality:   90,
			Dir:       "./output",
			KeyPrefix: "cropped",
		},
		Storage: StorageConfig{
			Backend:        "local",
			PresignMinutes: 60,
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 600,
			MaxBodyBytes:        1 << 20,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values; unknown keys are an error.
func LoadFromFile(filename string) (*Config, error) {
	config := Default()
	md, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", filename, strings.Join(keys, ", "))
	}

	return config, nil
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return f.Close()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !slices.Contains(detectorBackends, c.Detector.Backend) {
		return fmt.Errorf("detector.backend must be one of %s", strings.Join(detectorBackends, ", "))
	}

	if c.Detector.Backend == "pigo" {
		if c.Detector.CascadePath == "" {
			return fmt.Errorf("detector.cascade_path is required for the pigo backend")
		}
	} else {
		if c.Detector.URL == "" {
			return fmt.Errorf("detector.url is required for the %s backend", c.Detector.Backend)
		}
		if c.Detector.Model == "" && c.Detector.Backend == "ollama" {
			return fmt.Errorf("detector.model is required for the ollama backend")
		}
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1")
	}

	if c.Detector.MaxDimension < 0 {
		return fmt.Errorf("detector.max_dimension cannot be negative")
	}

	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive")
	}

	if c.Resize.ToleranceBP < 0 || c.Resize.ToleranceBP > 10000 {
		return fmt.Errorf("resize.tolerance_bp must be between 0 and 10000")
	}

	if !slices.Contains(resizeFilters, strings.ToLower(c.Resize.Filter)) {
		return fmt.Errorf("resize.filter %q is not supported", c.Resize.Filter)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if !slices.Contains(storageBackends, c.Storage.Backend) {
		return fmt.Errorf("storage.backend must be one of %s", strings.Join(storageBackends, ", "))
	}

	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the s3 backend")
	}

	if c.Storage.Backend == "local" && c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required for the local backend")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log.max_size_mb, log.max_backups and log.max_age_days cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "face-cropper", "config.toml")
}
