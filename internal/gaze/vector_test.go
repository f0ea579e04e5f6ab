package gaze

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// centeredObservation builds an eye looking straight ahead: the
// sub-pixel center coincides with the primary glint.
func centeredObservation(side EyeSide, confidence float64) *IrisObservation {
	return &IrisObservation{
		Side:       side,
		Region:     EyeRegion{Width: 64, Height: 64},
		Circle:     IrisCircle{CenterX: 32, CenterY: 32, Radius: 10, Confidence: confidence},
		SubPixel:   Point{X: 32, Y: 32},
		Confidence: confidence,
		Quality:    IrisQuality{Overall: 0.9},
		Reflections: []CornealReflection{{
			Position:   Point{X: 32, Y: 32},
			Intensity:  255,
			Confidence: 0.8,
			Kind:       ReflectionPrimary,
		}},
	}
}

func TestEstimateZeroConfidenceDefault(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()

	t.Run("no eyes", func(t *testing.T) {
		t.Parallel()
		v := e.Estimate(nil, nil, HeadPose{})
		assert.Equal(t, GazeVector{X: 0, Y: 0, Z: -1, DeviationDeg: 180}, v)
	})

	t.Run("zero-confidence eyes", func(t *testing.T) {
		t.Parallel()
		left := centeredObservation(EyeLeft, 0)
		v := e.Estimate(left, nil, HeadPose{})
		assert.Equal(t, GazeVector{X: 0, Y: 0, Z: -1, DeviationDeg: 180}, v)
	})
}

func TestEstimateStraightAhead(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.9)
	right := centeredObservation(EyeRight, 0.9)

	v := e.Estimate(left, right, HeadPose{})

	assert.InDelta(t, 0, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)
	assert.InDelta(t, 1, v.Z, 1e-9)
	assert.InDelta(t, 0, v.DeviationDeg, 1e-6)
	assert.InDelta(t, 0.9, v.Confidence, 1e-9)
	assert.Greater(t, v.Precision, 0.0)
}

func TestEstimateMonocular(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.8)
	// Offset sub-pixel center to the right of the glint.
	left.SubPixel.X = 37

	v := e.Estimate(left, nil, HeadPose{})

	assert.Greater(t, v.X, 0.0)
	assert.Greater(t, v.Z, 0.0)
	assert.Greater(t, v.DeviationDeg, 0.0)
	assert.InDelta(t, 0.8, v.Confidence, 1e-9)
}

func TestEstimateRegionCenterFallback(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.8)
	left.Reflections = nil

	// Without a glint the direction comes from the displacement of the
	// sub-pixel center from the region center, which is zero here.
	v := e.Estimate(left, nil, HeadPose{})
	assert.InDelta(t, 0, v.DeviationDeg, 1e-6)
}

func TestEstimateHeadPoseCompensation(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.9)
	right := centeredObservation(EyeRight, 0.9)

	v := e.Estimate(left, right, HeadPose{YawDeg: 90})

	// A straight-ahead eye under a 90-degree yaw points along +X.
	assert.InDelta(t, 1, v.X, 1e-9)
	assert.InDelta(t, 0, v.Z, 1e-9)
	assert.InDelta(t, 90, v.DeviationDeg, 1e-6)
}

func TestEstimateConfidenceWeighting(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	strong := centeredObservation(EyeLeft, 0.9)
	strong.SubPixel.X = 37 // looking right

	weak := centeredObservation(EyeRight, 0.1)
	weak.SubPixel.X = 27 // looking left

	v := e.Estimate(strong, weak, HeadPose{})
	// The binocular average leans toward the higher-confidence eye.
	assert.Greater(t, v.X, 0.0)
}

func TestEstimateUnitLength(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.7)
	left.SubPixel = Point{X: 38, Y: 27}

	v := e.Estimate(left, nil, HeadPose{YawDeg: 12, PitchDeg: -4, RollDeg: 2})
	norm := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestEstimateDeterministic(t *testing.T) {
	t.Parallel()

	e := NewVectorEstimator()
	left := centeredObservation(EyeLeft, 0.7)
	left.SubPixel = Point{X: 35, Y: 30}
	right := centeredObservation(EyeRight, 0.6)
	pose := HeadPose{YawDeg: 5, PitchDeg: 3}

	first := e.Estimate(left, right, pose)
	second := e.Estimate(left, right, pose)
	require.Empty(t, cmp.Diff(first, second))
}
