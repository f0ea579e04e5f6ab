// Package gaze implements the per-frame gaze-estimation pipeline:
// eye-crop preprocessing, iris boundary detection, sub-pixel refinement,
// corneal reflection detection, quality assessment, binocular gaze
// fusion, and screen projection.
//
// All stages are synchronous and deterministic: identical input buffers,
// landmarks, and head pose produce bit-identical output.
package gaze

import (
	"fmt"
	"math"
)

// EyeSide identifies which eye an observation belongs to.
type EyeSide string

const (
	// EyeLeft is the subject's left eye.
	EyeLeft EyeSide = "left"
	// EyeRight is the subject's right eye.
	EyeRight EyeSide = "right"
)

// EyeRegion is the rectangular crop locating one eye in the source frame.
// It is supplied per frame by the upstream face-landmark stage and is
// never mutated by the pipeline.
type EyeRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate reports whether the region can hold a usable eye crop.
// A zero-sized region indicates caller misuse, not sensor noise, so it
// fails fast rather than producing a low-confidence frame.
func (r EyeRegion) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("eye region must have positive dimensions, got %dx%d", r.Width, r.Height)
	}
	return nil
}

// Point is a 2D position in eye-crop pixel coordinates. Fractional
// values carry sub-pixel precision.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// IrisCircle is the integer-precision iris boundary produced by the
// Hough voting stage.
type IrisCircle struct {
	CenterX    int     `json:"center_x"`
	CenterY    int     `json:"center_y"`
	Radius     int     `json:"radius"`
	Confidence float64 `json:"confidence"`
}

// ReflectionKind distinguishes the glint closest to the iris center from
// farther ones.
type ReflectionKind string

const (
	ReflectionPrimary   ReflectionKind = "primary"
	ReflectionSecondary ReflectionKind = "secondary"
)

// CornealReflection is a bright specular glint on the cornea, used as a
// stable reference point for the pupil-center/corneal-reflection gaze
// technique.
type CornealReflection struct {
	Position   Point          `json:"position"`
	Intensity  float64        `json:"intensity"`
	SizePx     float64        `json:"size_px"`
	Confidence float64        `json:"confidence"`
	Kind       ReflectionKind `json:"kind"`
}

// IrisQuality is the composite per-frame confidence signal for one eye.
// Every component and the overall score are clamped to [0, 1].
type IrisQuality struct {
	Sharpness  float64 `json:"sharpness"`
	Contrast   float64 `json:"contrast"`
	Visibility float64 `json:"visibility"`
	Stability  float64 `json:"stability"`
	Overall    float64 `json:"overall"`
}

// IrisObservation is the full detection result for one eye in one frame.
// Construction requires a detected boundary: when the detector finds no
// candidate it returns ErrNoIrisBoundary instead of a zero observation.
type IrisObservation struct {
	Side        EyeSide             `json:"side"`
	Region      EyeRegion           `json:"region"`
	Circle      IrisCircle          `json:"circle"`
	SubPixel    Point               `json:"sub_pixel"`
	Confidence  float64             `json:"confidence"`
	Quality     IrisQuality         `json:"quality"`
	Reflections []CornealReflection `json:"reflections,omitempty"`
}

// PrimaryReflection returns the primary glint, or nil when none was
// detected this frame.
func (o *IrisObservation) PrimaryReflection() *CornealReflection {
	for i := range o.Reflections {
		if o.Reflections[i].Kind == ReflectionPrimary {
			return &o.Reflections[i]
		}
	}
	return nil
}

// PreviousIrisState is the one-slot per-eye cache used for the
// frame-to-frame stability score. It is owned by the session that feeds
// the pipeline, never by the assessor itself, so concurrent sessions
// cannot observe each other's history.
type PreviousIrisState struct {
	CenterX float64
	CenterY float64
	Radius  float64
	Seen    bool
}

// HeadPose holds the externally estimated head orientation in degrees.
type HeadPose struct {
	YawDeg   float64 `json:"yaw_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

// GazeVector is the fused, head-pose-compensated 3D gaze direction.
// (X, Y, Z) is a unit vector in the head-pose-invariant frame with +Z
// toward the screen.
type GazeVector struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	Confidence   float64 `json:"confidence"`
	Precision    float64 `json:"precision"`
	DeviationDeg float64 `json:"deviation_deg"`
}

// ScreenGeometry is the calibrated physical screen description. Length
// units only need to be mutually consistent; millimetres are assumed in
// documentation.
type ScreenGeometry struct {
	WidthMM    float64 `json:"width_mm"`
	HeightMM   float64 `json:"height_mm"`
	DistanceMM float64 `json:"distance_mm"`
	OffsetXMM  float64 `json:"offset_x_mm"`
	OffsetYMM  float64 `json:"offset_y_mm"`
	WidthPx    int     `json:"width_px"`
	HeightPx   int     `json:"height_px"`
}

// Validate rejects geometry that cannot support a ray intersection.
func (g ScreenGeometry) Validate() error {
	if g.WidthMM <= 0 || g.HeightMM <= 0 {
		return fmt.Errorf("screen physical size must be positive, got %.1fx%.1f", g.WidthMM, g.HeightMM)
	}
	if g.DistanceMM <= 0 {
		return fmt.Errorf("viewing distance must be positive, got %.1f", g.DistanceMM)
	}
	if g.WidthPx <= 0 || g.HeightPx <= 0 {
		return fmt.Errorf("screen pixel size must be positive, got %dx%d", g.WidthPx, g.HeightPx)
	}
	return nil
}

// ScreenIntersection is the projection of a GazeVector onto the screen
// plane, in screen pixel coordinates.
type ScreenIntersection struct {
	ScreenX      float64 `json:"screen_x"`
	ScreenY      float64 `json:"screen_y"`
	OnScreen     bool    `json:"on_screen"`
	DeviationDeg float64 `json:"deviation_deg"`
	DistanceMM   float64 `json:"distance_mm"`
	Confidence   float64 `json:"confidence"`
}

// AlertLevel classifies the current angular deviation sample.
type AlertLevel string

const (
	AlertNone   AlertLevel = "none"
	AlertLow    AlertLevel = "low"
	AlertMedium AlertLevel = "medium"
	AlertHigh   AlertLevel = "high"
)

// DeviationAnalysis holds rolling statistics over recent angular
// deviation samples.
type DeviationAnalysis struct {
	CurrentDeg       float64    `json:"current_deg"`
	AverageDeg       float64    `json:"average_deg"`
	MaxDeg           float64    `json:"max_deg"`
	ExceedsThreshold bool       `json:"exceeds_threshold"`
	Alert            AlertLevel `json:"alert"`
}

// clamp01 clamps a score to the [0, 1] range required of every
// confidence field in the pipeline.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// finiteOrZero guards numeric degeneracies: any NaN or Inf produced by
// upstream arithmetic collapses to zero instead of propagating.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
