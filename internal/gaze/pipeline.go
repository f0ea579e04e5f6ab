package gaze

import (
	"errors"
	"fmt"
	"time"
)

// Observation confidence blend: the boundary vote confidence carries
// more weight than the quality composite.
const (
	observationWeightBoundary = 0.6
	observationWeightQuality  = 0.4
)

// Config aggregates the tunable parameters of the full geometry
// pipeline.
type Config struct {
	Preprocess            PreprocessConfig
	Boundary              BoundaryConfig
	Reflection            ReflectionConfig
	Screen                ScreenGeometry
	DeviationThresholdDeg float64
}

// DefaultConfig returns production pipeline parameters for the given
// screen geometry.
func DefaultConfig(screen ScreenGeometry) Config {
	return Config{
		Preprocess: DefaultPreprocessConfig(),
		Boundary:   DefaultBoundaryConfig(),
		Reflection: DefaultReflectionConfig(),
		Screen:     screen,
	}
}

// EyeInput is the raw per-eye frame input: the crop's position in the
// source frame and its RGBA pixel buffer.
type EyeInput struct {
	Region EyeRegion
	Pixels []uint8
}

// FrameInput is everything the geometry pipeline consumes for one
// frame. Either eye may be nil when the upstream landmark stage could
// not locate it.
type FrameInput struct {
	Timestamp time.Time
	Left      *EyeInput
	Right     *EyeInput
	HeadPose  HeadPose
}

// FrameResult is the per-frame geometry output. Left/Right are nil for
// untracked eyes; Gaze degrades to the zero-confidence default when
// both eyes are untracked.
type FrameResult struct {
	Timestamp    time.Time          `json:"timestamp"`
	Left         *IrisObservation   `json:"left,omitempty"`
	Right        *IrisObservation   `json:"right,omitempty"`
	Gaze         GazeVector         `json:"gaze"`
	Intersection ScreenIntersection `json:"intersection"`
	Deviation    DeviationAnalysis  `json:"deviation"`
}

// Engine runs the full synchronous per-frame geometry pipeline:
// preprocess, boundary, sub-pixel, reflections, quality, fusion,
// projection. It is single-writer: one frame must complete before the
// next is accepted, and all history buffers are owned exclusively by
// the engine.
type Engine struct {
	cfg        Config
	pre        *Preprocessor
	boundary   *BoundaryDetector
	reflection *ReflectionDetector
	estimator  *VectorEstimator
	projector  *ScreenProjector
	deviation  *DeviationTracker
	prevIris   map[EyeSide]*PreviousIrisState
	history    *GazeHistory
}

// NewEngine creates an engine, validating the screen geometry up front.
// Invalid geometry indicates caller misuse and fails fast.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Screen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid screen geometry: %w", err)
	}
	return &Engine{
		cfg:        cfg,
		pre:        NewPreprocessor(cfg.Preprocess),
		boundary:   NewBoundaryDetector(cfg.Boundary),
		reflection: NewReflectionDetector(cfg.Reflection),
		estimator:  NewVectorEstimator(),
		projector:  NewScreenProjector(cfg.Screen),
		deviation:  NewDeviationTracker(cfg.DeviationThresholdDeg),
		prevIris: map[EyeSide]*PreviousIrisState{
			EyeLeft:  {},
			EyeRight: {},
		},
		history: NewGazeHistory(GazeHistoryCap),
	}, nil
}

// ProcessFrame runs the full pipeline for one frame. It returns an
// error only for caller misuse (malformed buffers, zero-sized regions);
// transient detection failures surface as nil observations and
// low-confidence output instead.
func (e *Engine) ProcessFrame(in FrameInput) (FrameResult, error) {
	left, err := e.processEye(EyeLeft, in.Left)
	if err != nil {
		return FrameResult{}, err
	}
	right, err := e.processEye(EyeRight, in.Right)
	if err != nil {
		return FrameResult{}, err
	}

	gaze := e.estimator.Estimate(left, right, in.HeadPose)
	e.history.Add(gaze, in.Timestamp)

	intersection := e.projector.Project(gaze)
	deviation := e.deviation.Update(gaze.DeviationDeg)

	return FrameResult{
		Timestamp:    in.Timestamp,
		Left:         left,
		Right:        right,
		Gaze:         gaze,
		Intersection: intersection,
		Deviation:    deviation,
	}, nil
}

// processEye runs the per-eye stages. A nil input or a frame without a
// detectable iris boundary yields a nil observation (untracked eye),
// never an error.
func (e *Engine) processEye(side EyeSide, in *EyeInput) (*IrisObservation, error) {
	if in == nil {
		return nil, nil
	}
	if err := in.Region.Validate(); err != nil {
		return nil, fmt.Errorf("%s eye: %w", side, err)
	}
	if len(in.Pixels) != in.Region.Width*in.Region.Height*4 {
		return nil, fmt.Errorf("%s eye: pixel buffer is %d bytes, want %d",
			side, len(in.Pixels), in.Region.Width*in.Region.Height*4)
	}

	w, h := in.Region.Width, in.Region.Height
	enhanced := e.pre.Process(in.Pixels, w, h)

	circle, err := e.boundary.Detect(enhanced, w, h)
	if err != nil {
		if errors.Is(err, ErrNoIrisBoundary) {
			return nil, nil
		}
		return nil, err
	}

	subPixel := RefineCenter(enhanced, w, h, circle)
	reflections := e.reflection.Detect(enhanced, w, h, circle)
	quality := AssessQuality(enhanced, w, h, circle, subPixel, e.prevIris[side])

	return &IrisObservation{
		Side:        side,
		Region:      in.Region,
		Circle:      circle,
		SubPixel:    subPixel,
		Confidence:  clamp01(observationWeightBoundary*circle.Confidence + observationWeightQuality*quality.Overall),
		Quality:     quality,
		Reflections: reflections,
	}, nil
}

// UpdateScreenGeometry replaces the calibrated screen geometry at
// runtime after validating it.
func (e *Engine) UpdateScreenGeometry(geom ScreenGeometry) error {
	if err := geom.Validate(); err != nil {
		return fmt.Errorf("invalid screen geometry: %w", err)
	}
	e.cfg.Screen = geom
	e.projector.SetGeometry(geom)
	return nil
}

// ScreenGeometry returns the currently configured screen geometry.
func (e *Engine) ScreenGeometry() ScreenGeometry {
	return e.projector.Geometry()
}

// History exposes the bounded gaze-vector ring for monitoring surfaces.
func (e *Engine) History() *GazeHistory {
	return e.history
}

// Reset clears all per-session state: gaze history, deviation ring, and
// the per-eye stability caches.
func (e *Engine) Reset() {
	e.history.Clear()
	e.deviation.Reset()
	for _, prev := range e.prevIris {
		*prev = PreviousIrisState{}
	}
}
