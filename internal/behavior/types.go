// Package behavior classifies temporal eye behavior from the gaze and
// landmark streams: blinks and blink patterns, movement types,
// attention focus, off-screen excursions, and temporal consistency.
//
// The analyzer is independent of the geometry pipeline: it consumes
// timestamped gaze positions and facial landmarks, so frame-rate jitter
// is absorbed by the timestamped history buffers rather than assumed
// away.
package behavior

import (
	"math"
	"time"
)

// Point3 is a normalized 3D facial landmark coordinate as produced by
// the upstream face-landmark model.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GazeSample is one timestamped gaze position in screen pixel
// coordinates, as produced by the screen projector.
type GazeSample struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	OnScreen   bool      `json:"on_screen"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Dist returns the screen-pixel distance to q.
func (s GazeSample) Dist(q GazeSample) float64 {
	dx := s.X - q.X
	dy := s.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// BlinkType classifies one eye-closure episode.
type BlinkType string

const (
	// BlinkVoluntary marks a blink during a burst of deliberate blinking.
	BlinkVoluntary BlinkType = "voluntary"
	// BlinkInvoluntary marks an ordinary spontaneous blink.
	BlinkInvoluntary BlinkType = "involuntary"
	// BlinkPartial marks an incomplete closure (EAR only mildly below
	// threshold).
	BlinkPartial BlinkType = "partial"
)

// BlinkEvent is one eye-closure episode. It is opened when EAR crosses
// below threshold, updated while the eye stays closed, and never
// mutated after reopening.
type BlinkEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Intensity float64       `json:"intensity"` // depth of closure below threshold, [0, 1]
	Type      BlinkType     `json:"type"`
	MinEAR    float64       `json:"min_ear"`
}

// FatigueSeverity grades the fatigue heuristic.
type FatigueSeverity string

const (
	FatigueNone     FatigueSeverity = "none"
	FatigueMild     FatigueSeverity = "mild"
	FatigueModerate FatigueSeverity = "moderate"
	FatigueSevere   FatigueSeverity = "severe"
)

// BlinkPattern aggregates the trailing blink window into frequency,
// duration, regularity, and the reading/fatigue heuristic classifiers.
type BlinkPattern struct {
	BlinkCount         int             `json:"blink_count"`
	FrequencyPerMinute float64         `json:"frequency_per_minute"`
	AvgDuration        time.Duration   `json:"avg_duration"`
	Regularity         float64         `json:"regularity"` // 1 - CV of inter-blink intervals
	ReadingConfidence  float64         `json:"reading_confidence"`
	Reading            bool            `json:"reading"`
	FatigueScore       float64         `json:"fatigue_score"`
	Fatigue            FatigueSeverity `json:"fatigue"`
}

// MovementType is the tagged classification of motion between two
// consecutive gaze samples. Consumers switch exhaustively over it; it
// is never compared as a free-form string.
type MovementType string

const (
	MovementSaccade       MovementType = "saccade"
	MovementFixation      MovementType = "fixation"
	MovementSmoothPursuit MovementType = "smooth_pursuit"
	MovementDrift         MovementType = "drift"
)

// EyeMovementSegment is the classified motion between two consecutive
// gaze samples.
type EyeMovementSegment struct {
	Type         MovementType  `json:"type"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	StartX       float64       `json:"start_x"`
	StartY       float64       `json:"start_y"`
	EndX         float64       `json:"end_x"`
	EndY         float64       `json:"end_y"`
	VelocityDeg  float64       `json:"velocity_deg_per_sec"`
	AmplitudePx  float64       `json:"amplitude_px"`
	DirectionDeg float64       `json:"direction_deg"`
	Confidence   float64       `json:"confidence"`
	Elapsed      time.Duration `json:"elapsed"`
}

// ScanPattern classifies the recent spatial distribution of movement.
type ScanPattern string

const (
	ScanFocused    ScanPattern = "focused"
	ScanScanning   ScanPattern = "scanning"
	ScanDistracted ScanPattern = "distracted"
	ScanOffScreen  ScanPattern = "off_screen"
)

// FocusRegion is the fixed-radius window around the current on-screen
// gaze point.
type FocusRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// AttentionFocus is the per-frame attentiveness snapshot. Region is nil
// while gaze is off-screen.
type AttentionFocus struct {
	Region     *FocusRegion  `json:"region,omitempty"`
	DwellTime  time.Duration `json:"dwell_time"`
	Pattern    ScanPattern   `json:"pattern"`
	FocusLevel float64       `json:"focus_level"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
}

// OffScreenDirection is the screen edge the gaze exited through.
type OffScreenDirection string

const (
	OffScreenLeft  OffScreenDirection = "left"
	OffScreenRight OffScreenDirection = "right"
	OffScreenUp    OffScreenDirection = "up"
	OffScreenDown  OffScreenDirection = "down"
)

// AlertSeverity grades a sustained off-screen excursion.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// OffScreenAlert is one sustained off-screen gaze episode. An alert
// re-triggered within the coalescing window extends the existing alert
// instead of duplicating it.
type OffScreenAlert struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Duration   time.Duration      `json:"duration"`
	Direction  OffScreenDirection `json:"direction"`
	Severity   AlertSeverity      `json:"severity"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
}

// AnomalyType tags one consistency-check finding.
type AnomalyType string

const (
	AnomalyImpossibleVelocity AnomalyType = "impossible_velocity"
	AnomalySuddenJump         AnomalyType = "sudden_jump"
	AnomalyTrackingLoss       AnomalyType = "tracking_loss"
	AnomalyCalibrationDrift   AnomalyType = "calibration_drift"
)

// Anomaly is one finding in a per-sample consistency audit.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    float64     `json:"severity"`
	Description string      `json:"description"`
}

// ValidationStatus grades a consistency report.
type ValidationStatus string

const (
	StatusValid      ValidationStatus = "valid"
	StatusSuspicious ValidationStatus = "suspicious"
	StatusInvalid    ValidationStatus = "invalid"
)

// ConsistencyReport is the per-sample anomaly audit of the gaze stream.
// It is computed from the current and prior samples and not persisted
// beyond emission.
type ConsistencyReport struct {
	Score     float64          `json:"score"`
	Anomalies []Anomaly        `json:"anomalies,omitempty"`
	Status    ValidationStatus `json:"status"`
}

// FrameBehavior bundles everything the analyzer emits for one frame.
type FrameBehavior struct {
	Blink       *BlinkEvent         `json:"blink,omitempty"` // set while a closure is open or just completed
	Pattern     BlinkPattern        `json:"pattern"`
	Movement    *EyeMovementSegment `json:"movement,omitempty"`
	Attention   AttentionFocus      `json:"attention"`
	Alert       *OffScreenAlert     `json:"alert,omitempty"`
	Consistency ConsistencyReport   `json:"consistency"`
}

// Summary is the on-demand aggregate behavior report for a session.
type Summary struct {
	Pattern          BlinkPattern         `json:"pattern"`
	AvgAttention     float64              `json:"avg_attention"`
	MovementCounts   map[MovementType]int `json:"movement_counts"`
	OffScreenTotal   time.Duration        `json:"off_screen_total"`
	OffScreenAlerts  int                  `json:"off_screen_alerts"`
	ConsistencyScore float64              `json:"consistency_score"`
	Engagement       float64              `json:"engagement"`
	Samples          int                  `json:"samples"`
}

// clamp01 clamps a score to [0, 1], the invariant range of every
// confidence field the analyzer emits.
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
