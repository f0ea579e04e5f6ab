package gaze

import (
	"math"

	"github.com/sightline-data/gaze.report/internal/units"
)

// Gaze estimation constants.
const (
	// pccrBaselineFactor scales the iris radius into the baseline length
	// used to convert pixel offsets to small angles.
	pccrBaselineFactor = 2.0

	// Precision blend weights: average iris quality, average reflection
	// confidence, and the constant sub-pixel-accuracy term.
	precisionWeightQuality    = 0.40
	precisionWeightReflection = 0.30
	precisionWeightSubPixel   = 0.30

	// subPixelAccuracyTerm is the constant contribution of moment-based
	// sub-pixel refinement to the precision figure.
	subPixelAccuracyTerm = 0.85
)

// vec3 is a 3-component direction used internally by the estimator.
type vec3 struct {
	x, y, z float64
}

func (v vec3) norm() float64 {
	return math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
}

// normalize returns the unit vector, or the +Z axis when the input has
// zero norm. The zero-norm guard keeps degenerate frames from producing
// NaN components.
func (v vec3) normalize() vec3 {
	n := v.norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return vec3{0, 0, 1}
	}
	return vec3{v.x / n, v.y / n, v.z / n}
}

// VectorEstimator fuses per-eye iris observations into a single
// head-pose-compensated 3D gaze direction.
type VectorEstimator struct {
	baselineFactor float64
}

// NewVectorEstimator creates an estimator with the default PCCR
// baseline scaling.
func NewVectorEstimator() *VectorEstimator {
	return &VectorEstimator{baselineFactor: pccrBaselineFactor}
}

// Estimate combines the left and right eye observations (either may be
// nil when that eye is untracked this frame) under the given head pose.
// When both eyes carry zero confidence the estimator returns a
// maximally-deviated, zero-confidence default rather than dividing by
// zero.
func (e *VectorEstimator) Estimate(left, right *IrisObservation, pose HeadPose) GazeVector {
	var weightedSum vec3
	var weightSum float64
	var qualitySum, reflectionSum float64
	var eyes int

	for _, obs := range []*IrisObservation{left, right} {
		if obs == nil {
			continue
		}
		dir := e.eyeDirection(obs)
		w := obs.Confidence
		weightedSum.x += dir.x * w
		weightedSum.y += dir.y * w
		weightedSum.z += dir.z * w
		weightSum += w
		qualitySum += obs.Quality.Overall
		if r := obs.PrimaryReflection(); r != nil {
			reflectionSum += r.Confidence
		}
		eyes++
	}

	if eyes == 0 || weightSum == 0 {
		return GazeVector{X: 0, Y: 0, Z: -1, Confidence: 0, Precision: 0, DeviationDeg: 180}
	}

	combined := vec3{
		x: weightedSum.x / weightSum,
		y: weightedSum.y / weightSum,
		z: weightedSum.z / weightSum,
	}.normalize()

	compensated := rotateByHeadPose(combined, pose).normalize()

	avgQuality := qualitySum / float64(eyes)
	avgReflection := reflectionSum / float64(eyes)
	precision := clamp01(precisionWeightQuality*avgQuality +
		precisionWeightReflection*avgReflection +
		precisionWeightSubPixel*subPixelAccuracyTerm)

	confidence := clamp01(weightSum / float64(eyes))
	deviation := units.RadToDeg(math.Acos(clampRange(compensated.z, -1, 1)))

	return GazeVector{
		X:            compensated.x,
		Y:            compensated.y,
		Z:            compensated.z,
		Confidence:   confidence,
		Precision:    precision,
		DeviationDeg: finiteOrZero(deviation),
	}
}

// eyeDirection computes the raw gaze direction for one eye. With a
// primary corneal reflection present it applies the standard
// pupil-center/corneal-reflection technique; otherwise it falls back to
// the displacement of the sub-pixel center from the eye region's
// geometric reference point.
func (e *VectorEstimator) eyeDirection(obs *IrisObservation) vec3 {
	baseline := e.baselineFactor * float64(obs.Circle.Radius)
	if baseline <= 0 {
		baseline = 1
	}

	var offX, offY float64
	if refl := obs.PrimaryReflection(); refl != nil {
		offX = obs.SubPixel.X - refl.Position.X
		offY = obs.SubPixel.Y - refl.Position.Y
	} else {
		offX = obs.SubPixel.X - float64(obs.Region.Width)/2
		offY = obs.SubPixel.Y - float64(obs.Region.Height)/2
	}

	thetaX := math.Atan2(offX, baseline)
	thetaY := math.Atan2(offY, baseline)
	return vec3{x: math.Tan(thetaX), y: math.Tan(thetaY), z: 1}.normalize()
}

// rotateByHeadPose applies the yaw, pitch, roll composition that
// expresses the gaze direction in a head-pose-invariant frame.
func rotateByHeadPose(v vec3, pose HeadPose) vec3 {
	yaw := units.DegToRad(pose.YawDeg)
	pitch := units.DegToRad(pose.PitchDeg)
	roll := units.DegToRad(pose.RollDeg)

	// Yaw about Y.
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	v = vec3{
		x: cy*v.x + sy*v.z,
		y: v.y,
		z: -sy*v.x + cy*v.z,
	}

	// Pitch about X.
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	v = vec3{
		x: v.x,
		y: cp*v.y - sp*v.z,
		z: sp*v.y + cp*v.z,
	}

	// Roll about Z.
	cr, sr := math.Cos(roll), math.Sin(roll)
	return vec3{
		x: cr*v.x - sr*v.y,
		y: sr*v.x + cr*v.y,
		z: v.z,
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
