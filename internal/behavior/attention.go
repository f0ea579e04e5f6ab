package behavior

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Attention scoring constants.
const (
	// focusRegionRadiusPx is the fixed radius of the focus window around
	// the current on-screen gaze point.
	focusRegionRadiusPx = 50.0

	// attentionRetention bounds the sample window used for dwell and
	// scan-pattern analysis.
	attentionRetention = 30 * time.Second

	// Scan-pattern dispersion bounds: positional standard deviation of
	// recent movement endpoints, screen pixels.
	dispersionFocusedPx    = 60.0
	dispersionDistractedPx = 250.0

	// Base focus levels per scan pattern, adjusted by dwell time.
	focusBaseFocused    = 0.8
	focusBaseScanning   = 0.5
	focusBaseDistracted = 0.25

	// dwellBonusPerSecond raises the focus level while gaze dwells in
	// one region, capped at dwellBonusCap.
	dwellBonusPerSecond = 0.05
	dwellBonusCap       = 0.2
)

// AttentionTracker recomputes the attentiveness snapshot each frame
// from the recent gaze-sample window and movement segments.
type AttentionTracker struct {
	samples []GazeSample // trailing window, oldest first
}

// NewAttentionTracker creates an empty tracker.
func NewAttentionTracker() *AttentionTracker {
	return &AttentionTracker{}
}

// Update recomputes the attention snapshot for the newest sample, using
// the classifier's retained segments for scan-pattern analysis.
func (t *AttentionTracker) Update(s GazeSample, segments []EyeMovementSegment) AttentionFocus {
	t.samples = append(t.samples, s)
	t.evict(s.Timestamp)

	focus := AttentionFocus{
		Timestamp:  s.Timestamp,
		Confidence: clamp01(s.Confidence),
	}

	if !s.OnScreen {
		focus.Pattern = ScanOffScreen
		focus.FocusLevel = 0
		return focus
	}

	focus.Region = &FocusRegion{X: s.X, Y: s.Y, Radius: focusRegionRadiusPx}
	focus.DwellTime = t.dwellTime(s)
	focus.Pattern = classifyScanPattern(segments)

	var base float64
	switch focus.Pattern {
	case ScanFocused:
		base = focusBaseFocused
	case ScanScanning:
		base = focusBaseScanning
	case ScanDistracted:
		base = focusBaseDistracted
	case ScanOffScreen:
		base = 0
	}
	bonus := math.Min(focus.DwellTime.Seconds()*dwellBonusPerSecond, dwellBonusCap)
	focus.FocusLevel = clamp01(base + bonus)
	return focus
}

// dwellTime walks the recent history backward while samples stay within
// the focus region around the current gaze point.
func (t *AttentionTracker) dwellTime(current GazeSample) time.Duration {
	start := current.Timestamp
	for i := len(t.samples) - 1; i >= 0; i-- {
		s := t.samples[i]
		if !s.OnScreen || s.Dist(current) > focusRegionRadiusPx {
			break
		}
		start = s.Timestamp
	}
	return current.Timestamp.Sub(start)
}

// classifyScanPattern compares fixation counts against
// saccade/pursuit counts and the positional dispersion of recent
// movement endpoints.
func classifyScanPattern(segments []EyeMovementSegment) ScanPattern {
	if len(segments) == 0 {
		return ScanFocused
	}

	fixations := 0
	transitions := 0
	xs := make([]float64, 0, len(segments))
	ys := make([]float64, 0, len(segments))
	for _, seg := range segments {
		switch seg.Type {
		case MovementFixation:
			fixations++
		case MovementSaccade, MovementSmoothPursuit:
			transitions++
		case MovementDrift:
			// Drift is ambiguous and contributes only to dispersion.
		}
		xs = append(xs, seg.EndX)
		ys = append(ys, seg.EndY)
	}

	dispersion := 0.0
	if len(xs) > 1 {
		dispersion = math.Hypot(stat.StdDev(xs, nil), stat.StdDev(ys, nil))
	}

	switch {
	case dispersion > dispersionDistractedPx && transitions > fixations:
		return ScanDistracted
	case dispersion <= dispersionFocusedPx && fixations >= transitions:
		return ScanFocused
	default:
		return ScanScanning
	}
}

// evict drops samples older than the retention window.
func (t *AttentionTracker) evict(now time.Time) {
	cutoff := now.Add(-attentionRetention)
	i := 0
	for i < len(t.samples) && t.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
}

// Reset clears the sample window.
func (t *AttentionTracker) Reset() {
	t.samples = nil
}
