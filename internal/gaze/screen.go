package gaze

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Screen projection and deviation tracking constants.
const (
	// parallelGazeEpsilon is the minimum screen-normal component for a
	// defined ray/plane intersection. Below it the projector returns the
	// low-confidence center-screen fallback.
	parallelGazeEpsilon = 1e-6

	// parallelFallbackConfidence is the confidence assigned to the
	// near-parallel fallback intersection.
	parallelFallbackConfidence = 0.1

	// deviationDiscountDeg is the deviation beyond which intersection
	// confidence is discounted proportionally.
	deviationDiscountDeg = 30.0

	// DeviationHistoryCap bounds the deviation sample ring.
	DeviationHistoryCap = 100

	// Alert level thresholds in degrees of angular deviation.
	alertLowDeg    = 1.0
	alertMediumDeg = 3.0
	alertHighDeg   = 5.0
)

// ScreenProjector intersects gaze rays with the calibrated screen
// plane.
type ScreenProjector struct {
	geom ScreenGeometry
}

// NewScreenProjector creates a projector for the given geometry. The
// geometry must already be validated by the caller; invalid geometry is
// caller misuse and rejected at session setup.
func NewScreenProjector(geom ScreenGeometry) *ScreenProjector {
	return &ScreenProjector{geom: geom}
}

// Geometry returns the current screen geometry.
func (p *ScreenProjector) Geometry() ScreenGeometry {
	return p.geom
}

// SetGeometry replaces the screen geometry at runtime.
func (p *ScreenProjector) SetGeometry(geom ScreenGeometry) {
	p.geom = geom
}

// Project intersects the gaze ray with the screen plane and maps the
// hit point to screen pixel coordinates. A gaze near-parallel to the
// screen yields a defined center-screen fallback with low confidence
// rather than a division fault.
func (p *ScreenProjector) Project(v GazeVector) ScreenIntersection {
	if math.Abs(v.Z) < parallelGazeEpsilon {
		return ScreenIntersection{
			ScreenX:      float64(p.geom.WidthPx) / 2,
			ScreenY:      float64(p.geom.HeightPx) / 2,
			OnScreen:     false,
			DeviationDeg: v.DeviationDeg,
			DistanceMM:   p.geom.DistanceMM,
			Confidence:   parallelFallbackConfidence,
		}
	}

	// Parametric line/plane intersection: the screen plane sits at
	// z = DistanceMM in the viewer frame, offset by the calibrated
	// screen position.
	t := p.geom.DistanceMM / v.Z
	hitXMM := t*v.X - p.geom.OffsetXMM
	hitYMM := t*v.Y - p.geom.OffsetYMM

	screenX := (hitXMM/p.geom.WidthMM + 0.5) * float64(p.geom.WidthPx)
	screenY := (hitYMM/p.geom.HeightMM + 0.5) * float64(p.geom.HeightPx)
	onScreen := screenX >= 0 && screenX < float64(p.geom.WidthPx) &&
		screenY >= 0 && screenY < float64(p.geom.HeightPx) && t > 0

	confidence := v.Confidence
	if v.DeviationDeg > deviationDiscountDeg {
		confidence *= deviationDiscountDeg / v.DeviationDeg
	}

	rayLength := math.Abs(t) * math.Sqrt(v.X*v.X+v.Y*v.Y+v.Z*v.Z)

	return ScreenIntersection{
		ScreenX:      finiteOrZero(screenX),
		ScreenY:      finiteOrZero(screenY),
		OnScreen:     onScreen,
		DeviationDeg: v.DeviationDeg,
		DistanceMM:   finiteOrZero(rayLength),
		Confidence:   clamp01(confidence),
	}
}

// DeviationTracker accumulates angular deviation over time in a capped
// ring and classifies the current sample into an alert level.
type DeviationTracker struct {
	samples      []float64
	head         int
	size         int
	thresholdDeg float64
}

// NewDeviationTracker creates a tracker with the standard 100-sample
// ring. thresholdDeg controls the ExceedsThreshold flag; non-positive
// values default to the high-alert threshold.
func NewDeviationTracker(thresholdDeg float64) *DeviationTracker {
	if thresholdDeg <= 0 {
		thresholdDeg = alertHighDeg
	}
	return &DeviationTracker{
		samples:      make([]float64, DeviationHistoryCap),
		thresholdDeg: thresholdDeg,
	}
}

// Update pushes a new deviation sample and returns the rolling
// analysis. Average and max both cover the current ring contents, so an
// early spike ages out once it leaves the window. Deviation samples are
// clamped non-negative.
func (t *DeviationTracker) Update(deviationDeg float64) DeviationAnalysis {
	if deviationDeg < 0 || math.IsNaN(deviationDeg) {
		deviationDeg = 0
	}
	t.samples[t.head] = deviationDeg
	t.head = (t.head + 1) % len(t.samples)
	if t.size < len(t.samples) {
		t.size++
	}

	return DeviationAnalysis{
		CurrentDeg:       deviationDeg,
		AverageDeg:       stat.Mean(t.samples[:t.size], nil),
		MaxDeg:           floats.Max(t.samples[:t.size]),
		ExceedsThreshold: deviationDeg > t.thresholdDeg,
		Alert:            classifyDeviation(deviationDeg),
	}
}

// Size returns the number of samples currently held.
func (t *DeviationTracker) Size() int {
	return t.size
}

// Reset clears the ring.
func (t *DeviationTracker) Reset() {
	t.head = 0
	t.size = 0
}

// classifyDeviation maps a deviation sample onto the fixed alert
// ladder: none < 1° ≤ low < 3° ≤ medium < 5° ≤ high.
func classifyDeviation(deviationDeg float64) AlertLevel {
	switch {
	case deviationDeg >= alertHighDeg:
		return AlertHigh
	case deviationDeg >= alertMediumDeg:
		return AlertMedium
	case deviationDeg >= alertLowDeg:
		return AlertLow
	default:
		return AlertNone
	}
}
