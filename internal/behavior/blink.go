package behavior

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Blink detection constants. The voluntary-blink heuristic (a burst of
// blinks in a short window suggests deliberate blinking) is a tunable
// policy constant, not a physiological law.
const (
	// DefaultEARThreshold is the eye-aspect-ratio below which the eye
	// counts as closing.
	DefaultEARThreshold = 0.25

	// partialBlinkMargin: closures that stay within this margin below
	// threshold classify as partial.
	partialBlinkMargin = 0.05

	// blinkGapLimit: a gap longer than this since the last sample starts
	// a new event instead of extending the open one.
	blinkGapLimit = 500 * time.Millisecond

	// Voluntary-blink burst heuristic.
	voluntaryBurstWindow = 5 * time.Second
	voluntaryBurstCount  = 4

	// blinkPatternWindow is the trailing retention window for pattern
	// aggregation.
	blinkPatternWindow = 60 * time.Second

	// Reading heuristic: low frequency, high regularity, longer
	// duration, high involuntary ratio.
	readingConfidenceThreshold = 0.5
	readingLowFrequency        = 14.0 // blinks per minute
	readingLongDurationMs      = 150.0

	// Fatigue heuristic: high frequency, long duration, high
	// partial-blink ratio, low regularity.
	fatigueHighFrequency  = 25.0
	fatigueLongDurationMs = 300.0
)

// MediaPipe FaceMesh landmark indices for the EAR computation. p1/p4
// are the horizontal eye corners; p2/p6 and p3/p5 are the paired
// vertical lid points.
var (
	leftEyeEARIndices  = [6]int{33, 160, 158, 133, 153, 144}
	rightEyeEARIndices = [6]int{362, 385, 387, 263, 373, 380}
)

// landmarkDist is the Euclidean distance between two landmark points.
func landmarkDist(a, b Point3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// earFromIndices computes the eye aspect ratio for one eye:
// (|p2-p6| + |p3-p5|) / (2 |p1-p4|). A degenerate horizontal span
// returns 0 rather than dividing by zero.
func earFromIndices(landmarks []Point3, idx [6]int) float64 {
	for _, i := range idx {
		if i >= len(landmarks) {
			return 0
		}
	}
	horizontal := landmarkDist(landmarks[idx[0]], landmarks[idx[3]])
	if horizontal == 0 {
		return 0
	}
	v1 := landmarkDist(landmarks[idx[1]], landmarks[idx[5]])
	v2 := landmarkDist(landmarks[idx[2]], landmarks[idx[4]])
	return (v1 + v2) / (2 * horizontal)
}

// EyeAspectRatio computes the blink-proxy EAR averaged over both eyes
// from the dense 468-point landmark sequence.
func EyeAspectRatio(landmarks []Point3) float64 {
	left := earFromIndices(landmarks, leftEyeEARIndices)
	right := earFromIndices(landmarks, rightEyeEARIndices)
	return (left + right) / 2
}

// BlinkDetector is the eye-closure state machine plus the trailing
// pattern window. It is single-writer: only the owning analyzer's
// per-frame update mutates it.
type BlinkDetector struct {
	earThreshold float64

	open       *BlinkEvent // closure in progress, nil while eye is open
	lastSample time.Time
	completed  []BlinkEvent // trailing window, oldest first
}

// NewBlinkDetector creates a detector. A non-positive threshold selects
// the default.
func NewBlinkDetector(earThreshold float64) *BlinkDetector {
	if earThreshold <= 0 {
		earThreshold = DefaultEARThreshold
	}
	return &BlinkDetector{earThreshold: earThreshold}
}

// Update advances the state machine with one EAR sample. It returns the
// open or just-completed event for the frame, or nil when the eye is
// simply open.
func (d *BlinkDetector) Update(ear float64, ts time.Time) *BlinkEvent {
	defer func() { d.lastSample = ts }()
	d.evict(ts)

	// A long sample gap means the stream paused; any open closure is
	// abandoned rather than stretched across the gap.
	if d.open != nil && !d.lastSample.IsZero() && ts.Sub(d.lastSample) > blinkGapLimit {
		d.open = nil
	}

	if ear < d.earThreshold {
		if d.open == nil {
			d.open = &BlinkEvent{Timestamp: ts, MinEAR: ear}
		}
		ev := d.open
		ev.Duration = ts.Sub(ev.Timestamp)
		if ear < ev.MinEAR {
			ev.MinEAR = ear
		}
		ev.Intensity = clamp01((d.earThreshold - ev.MinEAR) / d.earThreshold)
		ev.Type = d.classify(ev)
		return ev
	}

	// Eye reopened: freeze and retain the completed event.
	if d.open != nil {
		ev := *d.open
		d.open = nil
		ev.Type = d.classify(&ev)
		d.completed = append(d.completed, ev)
		return &ev
	}
	return nil
}

// classify types a closure: mild depth means partial; otherwise a burst
// of recent blinks marks it voluntary, else involuntary.
func (d *BlinkDetector) classify(ev *BlinkEvent) BlinkType {
	if ev.MinEAR > d.earThreshold-partialBlinkMargin {
		return BlinkPartial
	}
	recent := 0
	for i := len(d.completed) - 1; i >= 0; i-- {
		if ev.Timestamp.Sub(d.completed[i].Timestamp) > voluntaryBurstWindow {
			break
		}
		recent++
	}
	if recent+1 >= voluntaryBurstCount {
		return BlinkVoluntary
	}
	return BlinkInvoluntary
}

// evict drops completed events older than the pattern window.
func (d *BlinkDetector) evict(now time.Time) {
	cutoff := now.Add(-blinkPatternWindow)
	i := 0
	for i < len(d.completed) && d.completed[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		d.completed = d.completed[i:]
	}
}

// Pattern aggregates the trailing window into the per-frame pattern
// summary with the reading and fatigue heuristics.
func (d *BlinkDetector) Pattern(now time.Time) BlinkPattern {
	d.evict(now)
	events := d.completed
	p := BlinkPattern{Fatigue: FatigueNone}
	p.BlinkCount = len(events)
	if len(events) == 0 {
		return p
	}

	var totalDur time.Duration
	partials := 0
	involuntary := 0
	for _, ev := range events {
		totalDur += ev.Duration
		switch ev.Type {
		case BlinkPartial:
			partials++
		case BlinkInvoluntary:
			involuntary++
		}
	}
	p.AvgDuration = totalDur / time.Duration(len(events))

	windowMin := blinkPatternWindow.Minutes()
	span := now.Sub(events[0].Timestamp)
	if span > 0 && span < blinkPatternWindow {
		windowMin = span.Minutes()
	}
	if windowMin > 0 {
		p.FrequencyPerMinute = float64(len(events)) / windowMin
	}

	p.Regularity = interBlinkRegularity(events)

	partialRatio := float64(partials) / float64(len(events))
	involuntaryRatio := float64(involuntary) / float64(len(events))
	avgDurMs := float64(p.AvgDuration.Milliseconds())

	// Reading: sparse, regular, slightly long, mostly involuntary blinks.
	p.ReadingConfidence = clamp01(
		0.3*boolScore(p.FrequencyPerMinute < readingLowFrequency) +
			0.3*p.Regularity +
			0.2*boolScore(avgDurMs > readingLongDurationMs) +
			0.2*involuntaryRatio)
	p.Reading = p.ReadingConfidence >= readingConfidenceThreshold

	// Fatigue: frequent, long, incomplete, irregular blinks.
	p.FatigueScore = clamp01(
		0.3*clamp01(p.FrequencyPerMinute/fatigueHighFrequency) +
			0.3*clamp01(avgDurMs/fatigueLongDurationMs) +
			0.2*partialRatio +
			0.2*(1-p.Regularity))
	switch {
	case p.FatigueScore >= 0.75:
		p.Fatigue = FatigueSevere
	case p.FatigueScore >= 0.5:
		p.Fatigue = FatigueModerate
	case p.FatigueScore >= 0.25:
		p.Fatigue = FatigueMild
	}
	return p
}

// interBlinkRegularity is 1 minus the coefficient of variation of the
// inter-blink intervals, clamped to [0, 1]. Fewer than two completed
// blinks give no interval distribution and score a neutral 0.
func interBlinkRegularity(events []BlinkEvent) float64 {
	if len(events) < 3 {
		return 0
	}
	intervals := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		intervals = append(intervals, events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds())
	}
	mean := stat.Mean(intervals, nil)
	if mean == 0 {
		return 0
	}
	cv := stat.StdDev(intervals, nil) / mean
	return clamp01(1 - cv)
}

// Reset clears all blink state.
func (d *BlinkDetector) Reset() {
	d.open = nil
	d.lastSample = time.Time{}
	d.completed = nil
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
