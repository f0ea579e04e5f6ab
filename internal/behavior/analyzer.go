package behavior

import (
	"gonum.org/v1/gonum/stat"
)

// Engagement blend weights for the session summary: attention carries
// the largest share, with blink normality, fixation share, and
// consistency contributing equally.
const (
	engagementWeightAttention   = 0.4
	engagementWeightBlink       = 0.2
	engagementWeightMovement    = 0.2
	engagementWeightConsistency = 0.2
)

// AnalyzerConfig holds the tunable policy constants of the behavior
// analyzer. Zero values select defaults.
type AnalyzerConfig struct {
	EARThreshold        float64
	PixelsPerDegree     float64
	SaccadeThresholdDeg float64
	ScreenWidthPx       int
	ScreenHeightPx      int
}

// Analyzer runs all behavior sub-concerns off the same timestamped
// gaze/landmark streams. It owns all its history buffers exclusively;
// only its per-frame Update mutates them, so no locking is needed in
// the single-writer frame loop.
type Analyzer struct {
	blink       *BlinkDetector
	movement    *MovementClassifier
	attention   *AttentionTracker
	offScreen   *OffScreenMonitor
	consistency *ConsistencyValidator

	samples          int
	attentionSum     float64
	consistencySum   float64
	lastPattern      BlinkPattern
	lastConsistency  float64
	lastFocusPattern ScanPattern
}

// NewAnalyzer creates an analyzer for the given screen pixel bounds.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{
		blink:       NewBlinkDetector(cfg.EARThreshold),
		movement:    NewMovementClassifier(cfg.PixelsPerDegree, cfg.SaccadeThresholdDeg),
		attention:   NewAttentionTracker(),
		offScreen:   NewOffScreenMonitor(cfg.ScreenWidthPx, cfg.ScreenHeightPx),
		consistency: NewConsistencyValidator(),
	}
}

// Update processes one frame's gaze sample and landmarks through every
// sub-concern and returns the combined per-frame behavior output.
// landmarks may be empty when the upstream model produced none; blink
// state then simply does not advance for the frame.
func (a *Analyzer) Update(s GazeSample, landmarks []Point3) FrameBehavior {
	out := FrameBehavior{}

	if len(landmarks) > 0 {
		ear := EyeAspectRatio(landmarks)
		out.Blink = a.blink.Update(ear, s.Timestamp)
	}
	out.Pattern = a.blink.Pattern(s.Timestamp)
	out.Movement = a.movement.Update(s)
	out.Attention = a.attention.Update(s, a.movement.Recent())
	out.Alert = a.offScreen.Update(s)
	out.Consistency = a.consistency.Validate(s)

	a.samples++
	a.attentionSum += out.Attention.FocusLevel
	a.consistencySum += out.Consistency.Score
	a.lastPattern = out.Pattern
	a.lastConsistency = out.Consistency.Score
	a.lastFocusPattern = out.Attention.Pattern
	return out
}

// UpdateScreenBounds propagates a runtime screen-geometry change to the
// off-screen monitor.
func (a *Analyzer) UpdateScreenBounds(widthPx, heightPx int) {
	a.offScreen.SetBounds(widthPx, heightPx)
}

// Summarize produces the on-demand aggregate behavior report: blink
// pattern, average attention, movement-type counts, cumulative
// off-screen time, consistency, and the blended engagement figure.
func (a *Analyzer) Summarize() Summary {
	s := Summary{
		Pattern:         a.lastPattern,
		MovementCounts:  a.movement.Counts(),
		OffScreenTotal:  a.offScreen.Total(),
		OffScreenAlerts: len(a.offScreen.Alerts()),
		Samples:         a.samples,
	}
	if a.samples > 0 {
		s.AvgAttention = a.attentionSum / float64(a.samples)
		s.ConsistencyScore = a.consistencySum / float64(a.samples)
	}
	s.Engagement = a.engagement(s)
	return s
}

// Alerts exposes the retained off-screen alerts, oldest first.
func (a *Analyzer) Alerts() []OffScreenAlert {
	return a.offScreen.Alerts()
}

// engagement blends attention, blink normality, fixation share, and
// consistency into a single [0, 1] figure.
func (a *Analyzer) engagement(s Summary) float64 {
	// Blink normality: regular, non-fatigued blinking scores high.
	blinkScore := clamp01(stat.Mean([]float64{s.Pattern.Regularity, 1 - s.Pattern.FatigueScore}, nil))

	var movementScore float64
	total := 0
	for _, n := range s.MovementCounts {
		total += n
	}
	if total > 0 {
		movementScore = float64(s.MovementCounts[MovementFixation]+s.MovementCounts[MovementSmoothPursuit]) / float64(total)
	}

	return clamp01(engagementWeightAttention*s.AvgAttention +
		engagementWeightBlink*blinkScore +
		engagementWeightMovement*movementScore +
		engagementWeightConsistency*s.ConsistencyScore)
}

// Reset clears every sub-concern's history and the running aggregates.
func (a *Analyzer) Reset() {
	a.blink.Reset()
	a.movement.Reset()
	a.attention.Reset()
	a.offScreen.Reset()
	a.consistency.Reset()
	a.samples = 0
	a.attentionSum = 0
	a.consistencySum = 0
	a.lastPattern = BlinkPattern{}
	a.lastConsistency = 0
	a.lastFocusPattern = ""
}
