package facecropper

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/menta2k/face-cropper/pkg/catalog"
	"github.com/menta2k/face-cropper/pkg/cropper"
	"github.com/menta2k/face-cropper/pkg/processing"
	"github.com/menta2k/face-cropper/pkg/storage"
	"github.com/menta2k/face-cropper/pkg/types"
)

// BatchOptions controls CropAll
type BatchOptions struct {
	IDs              []int  // presets to produce; empty means all
	Jobs             int    // presets processed in parallel; 0 means NumCPU
	Name             string // base name for intermediate artifacts
	KeepIntermediate bool   // also upload the face-centered crop
	Overlay          bool   // also upload a debug overlay of the detection
}

// PresetOutcome is the result for one preset of a batch. Exactly one of
// Output and Err is set.
type PresetOutcome struct {
	ID     int
	Spec   types.SizeSpec
	Output *Output
	Err    error
}

// Artifact is an auxiliary upload made by a batch
type Artifact struct {
	Key string `json:"key"`
	URL string `json:"imageUrl"`
}

// BatchResult collects everything CropAll produced
type BatchResult struct {
	Faces        []types.FaceBox
	Center       types.Point
	Outcomes     []PresetOutcome // in the order the presets were requested
	Intermediate *Artifact
	Overlay      *Artifact
}

// Failed returns the number of presets that could not be produced
func (r *BatchResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// CropAll fetches and analyzes the image at source once and produces a crop
// for every requested preset. A failing preset does not stop the others;
// its error is recorded in the outcome. Fetch, detection and unknown preset
// ids fail the whole batch.
func (fc *FaceCropper) CropAll(ctx context.Context, source string, opts BatchOptions) (*BatchResult, error) {
	entries, err := fc.selectPresets(opts.IDs)
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

	b := img.Bounds()
	if err := cropper.ValidateFaces(b.Dx(), b.Dy(), faces); err != nil {
		return nil, err
	}
	center, err := cropper.FaceCenter(faces)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Faces:    faces,
		Center:   center,
		Outcomes: make([]PresetOutcome, len(entries)),
	}

	name := opts.Name
	if name == "" {
		name = "image"
	}

	if opts.KeepIntermediate {
		square, err := cropper.CropAroundCenter(img, center)
		if err != nil {
			return nil, err
		}
		if result.Intermediate, err = fc.uploadArtifact(ctx, square, name+"_face-centered", types.FormatJPEG); err != nil {
			return nil, err
		}
	}

	if opts.Overlay {
		overlay := fc.processor.CreateDebugOverlay(img, faces, cropper.UnionBox(faces), cropper.SquareRegion(b.Dx(), b.Dy(), center), center)
		if result.Overlay, err = fc.uploadArtifact(ctx, overlay, name+"_overlay", types.FormatPNG); err != nil {
			return nil, err
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, e := range entries {
		g.Go(func() error {
			outcome := PresetOutcome{ID: e.ID, Spec: e.Spec}
			if err := gctx.Err(); err != nil {
				outcome.Err = err
			} else {
				outcome.Output, outcome.Err = fc.cropAndUpload(gctx, img, faces, e.ID, e.Spec)
			}
			if outcome.Err != nil {
				fc.logger.Warn("preset failed", "preset", e.Spec.FileName(), "err", outcome.Err)
			}
			result.Outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (fc *FaceCropper) selectPresets(ids []int) ([]catalog.Entry, error) {
	if len(ids) == 0 {
		return fc.catalog.All(), nil
	}
	entries := make([]catalog.Entry, 0, len(ids))
	for _, id := range ids {
		spec, err := fc.Lookup(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, catalog.Entry{ID: id, Spec: spec})
	}
	return entries, nil
}

func (fc *FaceCropper) uploadArtifact(ctx context.Context, img image.Image, name string, format types.Format) (*Artifact, error) {
	data, err := processing.Encode(img, format, fc.encoding)
	if err != nil {
		return nil, err
	}
	key := storage.ArtifactKey(fc.keyPrefix, name, format)
	url, err := fc.upload(ctx, key, format, data)
	if err != nil {
		return nil, err
	}
	fc.logger.Debug("artifact uploaded", "key", key, "bytes", len(data))
	return &Artifact{Key: key, URL: url}, nil
}
