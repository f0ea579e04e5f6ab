package behavior

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Temporal consistency constants. Anomaly severities feed the
// consistency score: score = 1 - sum(severities)/3, clamped at zero.
const (
	// impossibleVelocityPxPerMs: the fastest human saccades peak around
	// 35 px/ms on a typical screen; displacement rates beyond this bound
	// indicate spoofed or pre-recorded input.
	impossibleVelocityPxPerMs = 50.0

	// Sudden-jump detection: a very large displacement in a very short
	// interval.
	suddenJumpDistancePx = 200.0
	suddenJumpInterval   = 50 * time.Millisecond

	// trackingLossConfidence is the confidence floor below which the
	// sample counts as tracking loss.
	trackingLossConfidence = 0.3

	// Calibration drift: recent vs earlier position averages, normalized
	// by driftNormPx, flagged above driftScoreThreshold.
	driftWindow         = 30 // samples retained for drift analysis
	driftSpan           = 10 // samples per average
	driftNormPx         = 300.0
	driftScoreThreshold = 0.7

	// Anomaly severities.
	severityImpossibleVelocity = 1.0
	severitySuddenJump         = 0.7
	severityCalibrationDrift   = 0.6
	severityTrackingLoss       = 0.5

	// Validation status thresholds on the consistency score.
	statusValidMin      = 0.7
	statusSuspiciousMin = 0.3
)

// ConsistencyValidator audits each new gaze sample against the
// immediately preceding one and a short positional history for
// physically implausible motion.
type ConsistencyValidator struct {
	prev    *GazeSample
	history []GazeSample // bounded at driftWindow, oldest first
}

// NewConsistencyValidator creates an empty validator.
func NewConsistencyValidator() *ConsistencyValidator {
	return &ConsistencyValidator{}
}

// Validate audits one sample and returns its consistency report. The
// report is recomputed per frame and not retained.
func (v *ConsistencyValidator) Validate(s GazeSample) ConsistencyReport {
	var anomalies []Anomaly

	if v.prev != nil {
		elapsed := s.Timestamp.Sub(v.prev.Timestamp)
		dist := s.Dist(*v.prev)

		if elapsed > 0 {
			pxPerMs := dist / (float64(elapsed.Nanoseconds()) / 1e6)
			if pxPerMs > impossibleVelocityPxPerMs {
				anomalies = append(anomalies, Anomaly{
					Type:        AnomalyImpossibleVelocity,
					Severity:    severityImpossibleVelocity,
					Description: fmt.Sprintf("displacement rate %.0f px/ms exceeds plausible eye motion", pxPerMs),
				})
			}
		}

		if dist > suddenJumpDistancePx && elapsed < suddenJumpInterval && elapsed >= 0 {
			anomalies = append(anomalies, Anomaly{
				Type:        AnomalySuddenJump,
				Severity:    severitySuddenJump,
				Description: fmt.Sprintf("%.0f px jump in %s", dist, elapsed.Round(time.Millisecond)),
			})
		}
	}

	if s.Confidence < trackingLossConfidence {
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalyTrackingLoss,
			Severity:    severityTrackingLoss,
			Description: fmt.Sprintf("tracking confidence %.2f below %.2f", s.Confidence, trackingLossConfidence),
		})
	}

	v.prev = &s
	v.history = append(v.history, s)
	if len(v.history) > driftWindow {
		v.history = v.history[len(v.history)-driftWindow:]
	}

	if drift := v.driftScore(); drift > driftScoreThreshold {
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalyCalibrationDrift,
			Severity:    severityCalibrationDrift,
			Description: fmt.Sprintf("position drift score %.2f", drift),
		})
	}

	var severitySum float64
	for _, a := range anomalies {
		severitySum += a.Severity
	}
	score := 1 - severitySum/3
	if score < 0 {
		score = 0
	}

	return ConsistencyReport{
		Score:     score,
		Anomalies: anomalies,
		Status:    classifyStatus(score),
	}
}

// driftScore compares the mean position of the most recent samples
// against the mean of the span preceding them, normalized to [0, 1].
// Insufficient history scores zero.
func (v *ConsistencyValidator) driftScore() float64 {
	if len(v.history) < 2*driftSpan {
		return 0
	}
	recent := v.history[len(v.history)-driftSpan:]
	earlier := v.history[len(v.history)-2*driftSpan : len(v.history)-driftSpan]

	rx, ry := meanPosition(recent)
	ex, ey := meanPosition(earlier)
	return clamp01(math.Hypot(rx-ex, ry-ey) / driftNormPx)
}

func meanPosition(samples []GazeSample) (float64, float64) {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.X
		ys[i] = s.Y
	}
	return stat.Mean(xs, nil), stat.Mean(ys, nil)
}

func classifyStatus(score float64) ValidationStatus {
	switch {
	case score >= statusValidMin:
		return StatusValid
	case score >= statusSuspiciousMin:
		return StatusSuspicious
	default:
		return StatusInvalid
	}
}

// Reset clears the validator's history.
func (v *ConsistencyValidator) Reset() {
	v.prev = nil
	v.history = nil
}
