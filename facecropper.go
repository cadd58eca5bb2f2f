// Package facecropper crops photographs around the faces they contain and
// reshapes the result for platform image-size presets.
//
// A crop runs in four steps:
//
//  1. faces are detected and the center of their union box is computed,
//  2. the largest crop symmetric around that center is taken,
//  3. the crop is cut down to the preset's reduced aspect ratio,
//  4. the result is resized to the exact preset size, refusing to distort
//     the image by more than the configured tolerance.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		facecropper "github.com/menta2k/face-cropper"
//		"github.com/menta2k/face-cropper/pkg/pigo"
//		"github.com/menta2k/face-cropper/pkg/storage"
//	)
//
//	func main() {
//		cfg := pigo.DefaultConfig()
//		cfg.CascadePath = "cascade/facefinder"
//		detector, err := pigo.NewDetector(cfg, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		uploader, err := storage.NewLocal("./output")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fc := facecropper.New(
//			facecropper.WithDetector(detector),
//			facecropper.WithUploader(uploader),
//		)
//
//		// preset 14 is the Facebook header, 851x315
//		out, err := fc.Crop(context.Background(), "portrait.jpg", 14)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(out.URL)
//	}
//
// The package wires together:
//
//   - pkg/processing: image download, decoding and encoding
//   - pkg/detection, pkg/ollama, pkg/llamacpp, pkg/pigo: face detection
//   - pkg/pipeline: the cropping state machine
//   - pkg/catalog: the size presets
//   - pkg/storage: local or S3 uploads
package facecropper

import (
	"context"
	"image"

	"github.com/charmbracelet/log"

	"github.com/menta2k/face-cropper/pkg/catalog"
	"github.com/menta2k/face-cropper/pkg/detection"
	"github.com/menta2k/face-cropper/pkg/errors"
	"github.com/menta2k/face-cropper/pkg/pipeline"
	"github.com/menta2k/face-cropper/pkg/processing"
	"github.com/menta2k/face-cropper/pkg/storage"
	"github.com/menta2k/face-cropper/pkg/types"
)

// Version of the face cropper library
const Version = "1.0.0"

// Fetcher loads an image from a URL or a local path
type Fetcher interface {
	Fetch(ctx context.Context, source string) (image.Image, error)
}

// FaceCropper runs the whole fetch, detect, crop, encode and upload flow
type FaceCropper struct {
	fetcher   Fetcher
	processor *processing.Processor
	detector  detection.FaceDetector
	catalog   *catalog.Catalog
	pipeline  *pipeline.Pipeline
	uploader  storage.Uploader
	encoding  processing.EncodeOptions
	keyPrefix string
	logger    *log.Logger
}

// Option configures a FaceCropper
type Option func(*FaceCropper)

// WithFetcher replaces the default HTTP/file fetcher
func WithFetcher(f Fetcher) Option {
	return func(fc *FaceCropper) { fc.fetcher = f }
}

// WithProcessor sets the processor used for fetching and debug overlays
func WithProcessor(p *processing.Processor) Option {
	return func(fc *FaceCropper) {
		fc.processor = p
		fc.fetcher = p
	}
}

// WithDetector sets the face detector
func WithDetector(d detection.FaceDetector) Option {
	return func(fc *FaceCropper) { fc.detector = d }
}

// WithCatalog replaces the built-in preset catalog
func WithCatalog(c *catalog.Catalog) Option {
	return func(fc *FaceCropper) { fc.catalog = c }
}

// WithPipeline replaces the default crop pipeline
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(fc *FaceCropper) { fc.pipeline = p }
}

// WithUploader sets where encoded crops are stored
func WithUploader(u storage.Uploader) Option {
	return func(fc *FaceCropper) { fc.uploader = u }
}

// WithEncoding sets output quality and webp lossless mode. MaxBytes is
// taken from each preset and ignored here.
func WithEncoding(opts processing.EncodeOptions) Option {
	return func(fc *FaceCropper) { fc.encoding = opts }
}

// WithKeyPrefix sets the object key prefix, "cropped" by default
func WithKeyPrefix(prefix string) Option {
	return func(fc *FaceCropper) { fc.keyPrefix = prefix }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(fc *FaceCropper) { fc.logger = l }
}

// New creates a FaceCropper. Without WithDetector or WithUploader the
// corresponding operations fail with an INTERNAL_ERROR.
func New(opts ...Option) *FaceCropper {
	fc := &FaceCropper{
		catalog:   catalog.Default(),
		encoding:  processing.EncodeOptions{Quality: 90},
		keyPrefix: storage.DefaultPrefix,
	}
	for _, opt := range opts {
		opt(fc)
	}
	if fc.logger == nil {
		fc.logger = log.Default()
	}
	if fc.processor == nil {
		fc.processor = processing.NewProcessor()
	}
	if fc.fetcher == nil {
		fc.fetcher = fc.processor
	}
	if fc.pipeline == nil {
		fc.pipeline = pipeline.New(pipeline.WithLogger(fc.logger))
	}
	return fc
}

// Catalog returns the presets this cropper serves
func (fc *FaceCropper) Catalog() *catalog.Catalog {
	return fc.catalog
}

// Output describes one uploaded crop
type Output struct {
	ID     int              `json:"id"`
	Spec   types.SizeSpec   `json:"spec"`
	Key    string           `json:"key"`
	URL    string           `json:"imageUrl"`
	Bytes  int              `json:"bytes"`
	Center types.Point      `json:"center"`
	Ratio  types.RatioPair  `json:"ratio"`
	Result *pipeline.Result `json:"-"`
}

// Fetch loads the image at source
func (fc *FaceCropper) Fetch(ctx context.Context, source string) (image.Image, error) {
	return fc.fetcher.Fetch(ctx, source)
}

// DetectFaces fetches the image at source and returns its face boxes
func (fc *FaceCropper) DetectFaces(ctx context.Context, source string) ([]types.FaceBox, error) {
	img, err := fc.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return fc.detect(ctx, img)
}

func (fc *FaceCropper) detect(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	if fc.detector == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no face detector configured")
	}
	faces, err := fc.detector.DetectFaces(ctx, img)
	if err != nil {
		return nil, err
	}
	fc.logger.Debug("faces detected", "faces", len(faces))
	return faces, nil
}

// Lookup resolves a preset id, failing with NOT_FOUND on a miss
func (fc *FaceCropper) Lookup(id int) (types.SizeSpec, error) {
	spec, ok := fc.catalog.Lookup(id)
	if !ok {
		return types.SizeSpec{}, errors.New(errors.ErrCodeNotFound, "Photo size not found")
	}
	return spec, nil
}

// Crop produces the crop for preset id from the image at source and
// uploads it. The preset is resolved before anything is fetched.
func (fc *FaceCropper) Crop(ctx context.Context, source string, id int) (*Output, error) {
	spec, err := fc.Lookup(id)
	if err != nil {
		return nil, err
	}

	img, err := fc.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	faces, err := fc.detect(ctx, img)
	if err != nil {
		return nil, err
	}

	return fc.cropAndUpload(ctx, img, faces, id, spec)
}

// CropFaces crops an already loaded image for preset id around the given
// face boxes, skipping detection, and uploads the result
func (fc *FaceCropper) CropFaces(ctx context.Context, img image.Image, faces []types.FaceBox, id int) (*Output, error) {
	spec, err := fc.Lookup(id)
	if err != nil {
		return nil, err
	}
	return fc.cropAndUpload(ctx, img, faces, id, spec)
}

// CropImage runs the pipeline for spec on an already loaded image without
// encoding or uploading the result
func (fc *FaceCropper) CropImage(img image.Image, faces []types.FaceBox, spec types.SizeSpec) (*pipeline.Result, error) {
	return fc.pipeline.Run(img, spec, faces)
}

func (fc *FaceCropper) cropAndUpload(ctx context.Context, img image.Image, faces []types.FaceBox, id int, spec types.SizeSpec) (*Output, error) {
	result, err := fc.pipeline.Run(img, spec, faces)
	if err != nil {
		return nil, err
	}

	opts := fc.encoding
	opts.MaxBytes = spec.MaxBytes
	data, err := processing.Encode(result.Image, spec.Format, opts)
	if err != nil {
		return nil, err
	}

	key := storage.Key(fc.keyPrefix, spec)
	url, err := fc.upload(ctx, key, spec.Format, data)
	if err != nil {
		return nil, err
	}

	fc.logger.Info("crop uploaded", "preset", spec.FileName(), "bytes", len(data), "key", key)

	return &Output{
		ID:     id,
		Spec:   spec,
		Key:    key,
		URL:    url,
		Bytes:  len(data),
		Center: result.Center,
		Ratio:  result.Ratio,
		Result: result,
	}, nil
}

func (fc *FaceCropper) upload(ctx context.Context, key string, format types.Format, data []byte) (string, error) {
	if fc.uploader == nil {
		return "", errors.New(errors.ErrCodeInternal, "no uploader configured")
	}
	return fc.uploader.Upload(ctx, key, format.ContentType(), data)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
