package facecropper

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/menta2k/face-cropper/internal/config"
	"github.com/menta2k/face-cropper/pkg/catalog"
	"github.com/menta2k/face-cropper/pkg/client"
	"github.com/menta2k/face-cropper/pkg/detection"
	"github.com/menta2k/face-cropper/pkg/llamacpp"
	"github.com/menta2k/face-cropper/pkg/ollama"
	"github.com/menta2k/face-cropper/pkg/pigo"
	"github.com/menta2k/face-cropper/pkg/pipeline"
	"github.com/menta2k/face-cropper/pkg/processing"
	"github.com/menta2k/face-cropper/pkg/resize"
	"github.com/menta2k/face-cropper/pkg/storage"
)

// NewFromConfig builds a FaceCropper with every collaborator taken from cfg
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*FaceCropper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	resizer, err := resize.NewWithConfig(resize.Config{
		ToleranceBP: cfg.Resize.ToleranceBP,
		Filter:      cfg.Resize.Filter,
	})
	if err != nil {
		return nil, err
	}

	presets := catalog.Default()
	if cfg.Catalog.Path != "" {
		if presets, err = catalog.LoadFile(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}

	detector, err := NewDetector(cfg.Detector, logger)
	if err != nil {
		return nil, err
	}

	uploader, err := NewUploader(ctx, cfg)
	if err != nil {
		return nil, err
	}

	processor := processing.NewProcessorWithConfig(processing.Config{
		HTTPTimeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		UserAgent:        cfg.Fetch.UserAgent,
		MaxDownloadBytes: cfg.Fetch.MaxBytes,
	})

	return New(
		WithProcessor(processor),
		WithDetector(detector),
		WithCatalog(presets),
		WithPipeline(pipeline.New(pipeline.WithResizer(resizer), pipeline.WithLogger(logger))),
		WithUploader(uploader),
		WithEncoding(processing.EncodeOptions{Quality: cfg.Output.Quality, Lossless: cfg.Output.Lossless}),
		WithKeyPrefix(cfg.Output.KeyPrefix),
		WithLogger(logger),
	), nil
}

// NewDetector creates the face detector selected by cfg.Backend
func NewDetector(cfg config.DetectorConfig, logger *log.Logger) (detection.FaceDetector, error) {
	if cfg.Backend == "pigo" {
		pc := pigo.DefaultConfig()
		pc.CascadePath = cfg.CascadePath
		if cfg.MinFaceSize > 0 {
			pc.MinSize = cfg.MinFaceSize
		}
		if cfg.QualityThreshold > 0 {
			pc.QualityThreshold = float32(cfg.QualityThreshold)
		}
		return pigo.NewDetector(pc, logger)
	}

	var (
		vc  client.VisionClient
		err error
	)
	switch cfg.Backend {
	case "ollama":
		vc, err = ollama.NewClient(cfg.URL)
	case "llamacpp":
		vc, err = llamacpp.NewClient(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown detector backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}

	visionCfg := detection.DefaultVisionConfig()
	visionCfg.Model = cfg.Model
	visionCfg.MinConfidence = cfg.MinConfidence
	visionCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.Prompt != "" {
		visionCfg.Prompt = cfg.Prompt
	}
	if cfg.MaxDimension > 0 {
		visionCfg.MaxDimension = cfg.MaxDimension
	}
	return detection.NewVisionDetector(vc, visionCfg, logger), nil
}

// NewUploader creates the storage backend selected by cfg.Storage.Backend
func NewUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
			PresignTTL:   time.Duration(cfg.Storage.PresignMinutes) * time.Minute,
		})
	case "local", "":
		return storage.NewLocal(cfg.Output.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
