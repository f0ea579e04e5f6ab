package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
)

func testScreen() gaze.ScreenGeometry {
	return gaze.ScreenGeometry{
		WidthMM:    600,
		HeightMM:   340,
		DistanceMM: 600,
		WidthPx:    1920,
		HeightPx:   1080,
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(gaze.DefaultConfig(testScreen()), behavior.AnalyzerConfig{})
	require.NoError(t, err)
	return s
}

func syntheticFrame(at time.Time) FrameRequest {
	left, right := gaze.SyntheticFrameInput(gaze.DefaultSyntheticEye())
	return FrameRequest{
		Timestamp: at,
		Left:      left,
		Right:     right,
	}
}

func TestNewRejectsInvalidScreen(t *testing.T) {
	t.Parallel()

	_, err := New(gaze.DefaultConfig(gaze.ScreenGeometry{}), behavior.AnalyzerConfig{})
	assert.Error(t, err)
}

func TestNewAssignsIdentity(t *testing.T) {
	t.Parallel()

	a := newTestSession(t)
	b := newTestSession(t)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.StartedAt.IsZero())
}

func TestProcessFrameAccumulates(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	base := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		report, err := s.ProcessFrame(syntheticFrame(base.Add(time.Duration(i) * 33 * time.Millisecond)))
		require.NoError(t, err)
		require.NotNil(t, report.Geometry.Left)
		require.NotNil(t, report.Geometry.Right)
		assert.Greater(t, report.Geometry.Gaze.Confidence, 0.0)
	}

	sum := s.Summary()
	assert.Equal(t, s.ID, sum.SessionID)
	assert.Equal(t, 5, sum.Frames)
	assert.Equal(t, 5, sum.Behavior.Samples)
	assert.Len(t, s.GazeHistory(), 5)
}

func TestSteadyGazeThirtyFrames(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	base := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	// A subject holding a steady, centered gaze for a second of frames
	// must settle into a confident, stable, focused reading.
	var last FrameReport
	for i := 0; i < 30; i++ {
		report, err := s.ProcessFrame(syntheticFrame(base.Add(time.Duration(i) * 33 * time.Millisecond)))
		require.NoError(t, err)
		last = report
	}

	require.NotNil(t, last.Geometry.Left)
	require.NotNil(t, last.Geometry.Right)
	for _, obs := range []*gaze.IrisObservation{last.Geometry.Left, last.Geometry.Right} {
		assert.Greater(t, obs.Confidence, 0.8)
		assert.Greater(t, obs.Quality.Stability, 0.8)
		assert.NotNil(t, obs.PrimaryReflection())
	}
	assert.Less(t, last.Geometry.Gaze.DeviationDeg, 2.0)
	assert.Equal(t, behavior.ScanFocused, last.Behavior.Attention.Pattern)
}

func TestProcessFrameCallerMisuse(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	base := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	_, err := s.ProcessFrame(FrameRequest{
		Timestamp: base,
		Left: &gaze.EyeInput{
			Region: gaze.EyeRegion{Width: 0, Height: 0},
		},
	})
	assert.Error(t, err)
}

func TestUpdateScreenGeometry(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)

	next := testScreen()
	next.WidthPx = 2560
	next.HeightPx = 1440
	require.NoError(t, s.UpdateScreenGeometry(next))

	assert.Error(t, s.UpdateScreenGeometry(gaze.ScreenGeometry{}))
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	base := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	_, err := s.ProcessFrame(syntheticFrame(base))
	require.NoError(t, err)
	require.Equal(t, 1, s.Summary().Frames)

	s.Reset()
	assert.Zero(t, s.Summary().Frames)
	assert.Empty(t, s.GazeHistory())

	// The session stays usable after a reset.
	_, err = s.ProcessFrame(syntheticFrame(base.Add(time.Second)))
	assert.NoError(t, err)
}

func TestCloseRejectsFurtherFrames(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	base := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	_, err := s.ProcessFrame(syntheticFrame(base))
	require.NoError(t, err)

	s.Close()
	s.Close() // idempotent

	_, err = s.ProcessFrame(syntheticFrame(base.Add(time.Second)))
	assert.Error(t, err)

	// Summaries remain readable after close.
	assert.Equal(t, 1, s.Summary().Frames)
}
