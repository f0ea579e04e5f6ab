package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectorScreen() ScreenGeometry {
	return ScreenGeometry{
		WidthMM: 600, HeightMM: 340, DistanceMM: 600,
		WidthPx: 1920, HeightPx: 1080,
	}
}

func TestProjectCenterHit(t *testing.T) {
	t.Parallel()

	p := NewScreenProjector(projectorScreen())
	hit := p.Project(GazeVector{X: 0, Y: 0, Z: 1, Confidence: 1})

	assert.InDelta(t, 960, hit.ScreenX, 1e-9)
	assert.InDelta(t, 540, hit.ScreenY, 1e-9)
	assert.True(t, hit.OnScreen)
	assert.InDelta(t, 600, hit.DistanceMM, 1e-9)
	assert.InDelta(t, 1, hit.Confidence, 1e-9)
}

func TestProjectOffScreen(t *testing.T) {
	t.Parallel()

	p := NewScreenProjector(projectorScreen())
	// Looking 45 degrees right: the hit is 600mm right of center, past
	// the 300mm half-width.
	hit := p.Project(GazeVector{X: 0.7071, Y: 0, Z: 0.7071, Confidence: 1})
	assert.False(t, hit.OnScreen)
	assert.Greater(t, hit.ScreenX, float64(1920))
}

func TestProjectBehindViewer(t *testing.T) {
	t.Parallel()

	p := NewScreenProjector(projectorScreen())
	// Gaze pointing away from the screen maps to a negative ray
	// parameter, never an on-screen hit.
	hit := p.Project(GazeVector{X: 0, Y: 0, Z: -1, Confidence: 1})
	assert.False(t, hit.OnScreen)
}

func TestProjectParallelFallback(t *testing.T) {
	t.Parallel()

	p := NewScreenProjector(projectorScreen())
	hit := p.Project(GazeVector{X: 1, Y: 0, Z: 0, Confidence: 0.9, DeviationDeg: 90})

	assert.False(t, hit.OnScreen)
	assert.InDelta(t, 960, hit.ScreenX, 1e-9)
	assert.InDelta(t, 540, hit.ScreenY, 1e-9)
	assert.InDelta(t, 0.1, hit.Confidence, 1e-9)
}

func TestProjectDeviationDiscount(t *testing.T) {
	t.Parallel()

	p := NewScreenProjector(projectorScreen())
	hit := p.Project(GazeVector{X: 0, Y: 0, Z: 1, Confidence: 1, DeviationDeg: 60})
	// Beyond 30 degrees the confidence is discounted proportionally.
	assert.InDelta(t, 0.5, hit.Confidence, 1e-9)
}

func TestProjectOffsetScreen(t *testing.T) {
	t.Parallel()

	geom := projectorScreen()
	geom.OffsetXMM = 150 // screen shifted right of the viewer axis
	p := NewScreenProjector(geom)

	hit := p.Project(GazeVector{X: 0, Y: 0, Z: 1, Confidence: 1})
	// Straight ahead now lands left of the screen center.
	assert.InDelta(t, 480, hit.ScreenX, 1e-9)
	assert.True(t, hit.OnScreen)
}

func TestDeviationTrackerRollingAnalysis(t *testing.T) {
	t.Parallel()

	tr := NewDeviationTracker(0)

	first := tr.Update(2)
	assert.InDelta(t, 2, first.CurrentDeg, 1e-9)
	assert.InDelta(t, 2, first.AverageDeg, 1e-9)
	assert.InDelta(t, 2, first.MaxDeg, 1e-9)

	second := tr.Update(4)
	assert.InDelta(t, 3, second.AverageDeg, 1e-9)
	assert.InDelta(t, 4, second.MaxDeg, 1e-9)
	assert.False(t, second.ExceedsThreshold)

	third := tr.Update(6)
	assert.True(t, third.ExceedsThreshold)
	assert.Equal(t, AlertHigh, third.Alert)
}

func TestDeviationTrackerRingCap(t *testing.T) {
	t.Parallel()

	tr := NewDeviationTracker(0)
	for i := 0; i < DeviationHistoryCap+50; i++ {
		tr.Update(1)
	}
	assert.Equal(t, DeviationHistoryCap, tr.Size())

	tr.Reset()
	assert.Zero(t, tr.Size())
	after := tr.Update(2)
	assert.InDelta(t, 2, after.AverageDeg, 1e-9)
	assert.InDelta(t, 2, after.MaxDeg, 1e-9)
}

func TestDeviationTrackerMaxAgesOut(t *testing.T) {
	t.Parallel()

	tr := NewDeviationTracker(0)
	tr.Update(8)

	var last DeviationAnalysis
	for i := 0; i < DeviationHistoryCap; i++ {
		last = tr.Update(1)
	}

	// The spike has been overwritten in the ring, so the rolling max
	// drops back to the window contents.
	assert.InDelta(t, 1, last.MaxDeg, 1e-9)
	assert.InDelta(t, 1, last.AverageDeg, 1e-9)
}

func TestClassifyDeviationLadder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		deg  float64
		want AlertLevel
	}{
		{0, AlertNone},
		{0.99, AlertNone},
		{1.0, AlertLow},
		{2.9, AlertLow},
		{3.0, AlertMedium},
		{4.9, AlertMedium},
		{5.0, AlertHigh},
		{45, AlertHigh},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, classifyDeviation(tc.deg), "%.2f deg", tc.deg)
	}
}

func TestUpdateNegativeSampleClamped(t *testing.T) {
	t.Parallel()

	tr := NewDeviationTracker(0)
	out := tr.Update(-3)
	assert.Zero(t, out.CurrentDeg)
	assert.Equal(t, AlertNone, out.Alert)
}
