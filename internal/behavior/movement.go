package behavior

import (
	"math"
	"time"

	"github.com/sightline-data/gaze.report/internal/units"
)

// Movement classification constants.
const (
	// DefaultPixelsPerDegree approximates the screen-pixel extent of one
	// degree of visual angle at a nominal viewing distance.
	DefaultPixelsPerDegree = 35.0

	// DefaultSaccadeThresholdDeg is the angular velocity above which
	// motion classifies as a saccade, degrees per second.
	DefaultSaccadeThresholdDeg = 30.0

	// pursuitMinDeg is the lower angular-velocity bound for smooth
	// pursuit, degrees per second.
	pursuitMinDeg = 5.0

	// fixationMaxDisplacementPx is the largest displacement still
	// counted as stationary.
	fixationMaxDisplacementPx = 10.0

	// fixationMinDuration is the minimum sustained stationary time
	// before motion classifies as a fixation.
	fixationMinDuration = 100 * time.Millisecond

	// movementRetention bounds the segment history window.
	movementRetention = 30 * time.Second

	// driftConfidenceDiscount reduces confidence for the residual drift
	// class, which fits no clean category.
	driftConfidenceDiscount = 0.5
)

// MovementClassifier classifies motion between consecutive gaze samples
// and retains a trailing window of segments.
type MovementClassifier struct {
	pixelsPerDegree   float64
	saccadeThreshold  float64
	prev              *GazeSample
	stationarySince   time.Time // start of the current near-stationary run
	stationaryAnchorX float64
	stationaryAnchorY float64
	segments          []EyeMovementSegment // trailing window, oldest first
}

// NewMovementClassifier creates a classifier. Non-positive parameters
// select defaults.
func NewMovementClassifier(pixelsPerDegree, saccadeThresholdDeg float64) *MovementClassifier {
	if pixelsPerDegree <= 0 {
		pixelsPerDegree = DefaultPixelsPerDegree
	}
	if saccadeThresholdDeg <= 0 {
		saccadeThresholdDeg = DefaultSaccadeThresholdDeg
	}
	return &MovementClassifier{
		pixelsPerDegree:  pixelsPerDegree,
		saccadeThreshold: saccadeThresholdDeg,
	}
}

// Update classifies the motion from the previous sample to this one and
// returns the resulting segment, or nil for the very first sample.
func (c *MovementClassifier) Update(s GazeSample) *EyeMovementSegment {
	c.evict(s.Timestamp)

	prev := c.prev
	c.prev = &s
	if prev == nil {
		c.stationarySince = s.Timestamp
		c.stationaryAnchorX = s.X
		c.stationaryAnchorY = s.Y
		return nil
	}

	elapsed := s.Timestamp.Sub(prev.Timestamp)
	if elapsed <= 0 {
		return nil
	}

	distPx := s.Dist(*prev)
	velocityPxPerSec := distPx / elapsed.Seconds()
	velocityDegPerSec := units.PxToDeg(velocityPxPerSec, c.pixelsPerDegree)
	direction := units.RadToDeg(math.Atan2(s.Y-prev.Y, s.X-prev.X))

	// Track the current near-stationary run for the fixation minimum
	// duration requirement.
	anchorDist := math.Hypot(s.X-c.stationaryAnchorX, s.Y-c.stationaryAnchorY)
	if anchorDist > fixationMaxDisplacementPx {
		c.stationarySince = s.Timestamp
		c.stationaryAnchorX = s.X
		c.stationaryAnchorY = s.Y
	}
	stationaryFor := s.Timestamp.Sub(c.stationarySince)

	seg := EyeMovementSegment{
		Start:        prev.Timestamp,
		End:          s.Timestamp,
		StartX:       prev.X,
		StartY:       prev.Y,
		EndX:         s.X,
		EndY:         s.Y,
		VelocityDeg:  velocityDegPerSec,
		AmplitudePx:  distPx,
		DirectionDeg: direction,
		Elapsed:      elapsed,
	}

	base := math.Min(prev.Confidence, s.Confidence)
	switch {
	case velocityDegPerSec > c.saccadeThreshold:
		seg.Type = MovementSaccade
		seg.Confidence = clamp01(base)
	case distPx < fixationMaxDisplacementPx && stationaryFor >= fixationMinDuration:
		seg.Type = MovementFixation
		seg.Confidence = clamp01(base)
	case velocityDegPerSec >= pursuitMinDeg:
		seg.Type = MovementSmoothPursuit
		seg.Confidence = clamp01(base)
	default:
		seg.Type = MovementDrift
		seg.Confidence = clamp01(base * driftConfidenceDiscount)
	}

	c.segments = append(c.segments, seg)
	return &seg
}

// Recent returns the retained segments, oldest first.
func (c *MovementClassifier) Recent() []EyeMovementSegment {
	return c.segments
}

// Counts tallies the retained segments by movement type.
func (c *MovementClassifier) Counts() map[MovementType]int {
	counts := make(map[MovementType]int)
	for _, seg := range c.segments {
		counts[seg.Type]++
	}
	return counts
}

// evict drops segments older than the retention window.
func (c *MovementClassifier) evict(now time.Time) {
	cutoff := now.Add(-movementRetention)
	i := 0
	for i < len(c.segments) && c.segments[i].End.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.segments = c.segments[i:]
	}
}

// Reset clears all movement state.
func (c *MovementClassifier) Reset() {
	c.prev = nil
	c.stationarySince = time.Time{}
	c.segments = nil
}
