// Package pipeline runs the face-centered crop as a strict sequence of
// stages:
//
//	Validated -> FaceCentered -> RatioCropped -> Resized -> Done
//
// The first failing stage stops the run; the returned *StageError names the
// stage and wraps the coded error that caused it. There are no retries and
// no fallback image.
package pipeline

import (
	"fmt"
	"image"

	"github.com/charmbracelet/log"

	"github.com/menta2k/face-cropper/pkg/cropper"
	"github.com/menta2k/face-cropper/pkg/ratio"
	"github.com/menta2k/face-cropper/pkg/resize"
	"github.com/menta2k/face-cropper/pkg/types"
)

// State is a pipeline stage
type State int

const (
	StatePending State = iota
	StateValidated
	StateFaceCentered
	StateRatioCropped
	StateResized
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StatePending:      "pending",
	StateValidated:    "validated",
	StateFaceCentered: "face-centered",
	StateRatioCropped: "ratio-cropped",
	StateResized:      "resized",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StageError reports the stage that failed
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result holds the output of a run and the intermediate geometry
type Result struct {
	Image   image.Image
	Center  types.Point
	Square  image.Image // face-centered crop, before the ratio crop
	Ratio   types.RatioPair
	State   State
	Visited []State
}

// Pipeline is immutable and safe for concurrent use
type Pipeline struct {
	resizer *resize.Resizer
	logger  *log.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithResizer sets the resizer used by the last stage
func WithResizer(r *resize.Resizer) Option {
	return func(p *Pipeline) { p.resizer = r }
}

// WithLogger sets the logger used for per-stage debug output
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. Without options it uses resize.New and log.Default.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.resizer == nil {
		p.resizer = resize.New()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

// run tracks the state of a single invocation
type run struct {
	logger *log.Logger
	result *Result
}

func (r *run) enter(s State, keyvals ...any) {
	r.result.State = s
	r.result.Visited = append(r.result.Visited, s)
	r.logger.Debug("pipeline stage", append([]any{"stage", s}, keyvals...)...)
}

func (r *run) fail(err error) (*Result, error) {
	stage := r.result.State
	r.result.State = StateFailed
	r.result.Visited = append(r.result.Visited, StateFailed)
	r.logger.Debug("pipeline failed", "stage", stage, "err", err)
	return r.result, &StageError{Stage: stage, Err: err}
}

// Run crops img around faces and produces an image of exactly
// spec.Width x spec.Height. On failure the returned Result is in StateFailed
// and records the stages reached.
func (p *Pipeline) Run(img image.Image, spec types.SizeSpec, faces []types.FaceBox) (*Result, error) {
	r := &run{
		logger: p.logger.With("preset", spec.FileName()),
		result: &Result{State: StatePending},
	}
	bounds := img.Bounds()

	r.enter(StateValidated, "faces", len(faces), "width", bounds.Dx(), "height", bounds.Dy())
	if err := cropper.ValidateFaces(bounds.Dx(), bounds.Dy(), faces); err != nil {
		return r.fail(err)
	}

	r.enter(StateFaceCentered)
	center, err := cropper.FaceCenter(faces)
	if err != nil {
		return r.fail(err)
	}
	r.result.Center = center
	square, err := cropper.CropAroundCenter(img, center)
	if err != nil {
		return r.fail(err)
	}
	r.result.Square = square

	r.enter(StateRatioCropped, "center", center, "square", square.Bounds().Size())
	target, err := ratio.Reduce(spec.Width, spec.Height)
	if err != nil {
		return r.fail(err)
	}
	r.result.Ratio = target
	cropped, err := cropper.CropToRatio(square, target)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateResized, "ratio", target, "cropped", cropped.Bounds().Size())
	resized, err := p.resizer.Resize(cropped, spec.Width, spec.Height)
	if err != nil {
		return r.fail(err)
	}

	r.result.Image = resized
	r.enter(StateDone, "size", resized.Bounds().Size())
	return r.result, nil
}
