package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttentionOffScreenSample(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	focus := tr.Update(GazeSample{X: -100, Y: 500, Confidence: 0.6, Timestamp: base}, nil)

	assert.Equal(t, ScanOffScreen, focus.Pattern)
	assert.Zero(t, focus.FocusLevel)
	assert.Nil(t, focus.Region)
	assert.Equal(t, 0.6, focus.Confidence)
}

func TestAttentionFocusedWithoutSegments(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	focus := tr.Update(movementSample(960, 540, base, 0.9), nil)

	assert.Equal(t, ScanFocused, focus.Pattern)
	assert.InDelta(t, focusBaseFocused, focus.FocusLevel, 1e-9)
	require.NotNil(t, focus.Region)
	assert.Equal(t, 960.0, focus.Region.X)
	assert.Equal(t, focusRegionRadiusPx, focus.Region.Radius)
	assert.Zero(t, focus.DwellTime)
}

func TestAttentionDwellBonusGrows(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	var focus AttentionFocus
	for i := 0; i <= 3; i++ {
		s := movementSample(500, 500, base.Add(time.Duration(i)*time.Second), 0.9)
		focus = tr.Update(s, nil)
	}

	assert.Equal(t, 3*time.Second, focus.DwellTime)
	assert.InDelta(t, focusBaseFocused+0.15, focus.FocusLevel, 1e-9)
}

func TestAttentionDwellBreaksOnRegionExit(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	tr.Update(movementSample(500, 500, base, 0.9), nil)
	// A 200 px hop restarts the dwell clock.
	tr.Update(movementSample(700, 500, base.Add(time.Second), 0.9), nil)
	focus := tr.Update(movementSample(705, 500, base.Add(2*time.Second), 0.9), nil)

	assert.Equal(t, time.Second, focus.DwellTime)
}

func TestAttentionDistractedPattern(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	// Widely dispersed saccade endpoints with no fixations.
	segments := []EyeMovementSegment{
		{Type: MovementSaccade, EndX: 0, EndY: 100},
		{Type: MovementSaccade, EndX: 500, EndY: 600},
		{Type: MovementSaccade, EndX: 1000, EndY: 100},
		{Type: MovementSaccade, EndX: 1500, EndY: 700},
	}
	focus := tr.Update(movementSample(800, 400, base, 0.9), segments)

	assert.Equal(t, ScanDistracted, focus.Pattern)
	assert.InDelta(t, focusBaseDistracted, focus.FocusLevel, 1e-9)
}

func TestAttentionScanningPattern(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	// Fixations dominate but their endpoints spread past the focused
	// dispersion bound.
	segments := []EyeMovementSegment{
		{Type: MovementFixation, EndX: 100, EndY: 300},
		{Type: MovementFixation, EndX: 300, EndY: 300},
	}
	focus := tr.Update(movementSample(300, 300, base, 0.9), segments)

	assert.Equal(t, ScanScanning, focus.Pattern)
	assert.InDelta(t, focusBaseScanning, focus.FocusLevel, 1e-9)
}

func TestAttentionReset(t *testing.T) {
	t.Parallel()

	tr := NewAttentionTracker()
	base := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)

	tr.Update(movementSample(500, 500, base, 0.9), nil)
	tr.Update(movementSample(500, 500, base.Add(time.Second), 0.9), nil)
	tr.Reset()

	// History is gone, so dwell starts over.
	focus := tr.Update(movementSample(500, 500, base.Add(2*time.Second), 0.9), nil)
	assert.Zero(t, focus.DwellTime)
}
