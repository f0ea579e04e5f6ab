package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anomalyTypes(report ConsistencyReport) []AnomalyType {
	types := make([]AnomalyType, 0, len(report.Anomalies))
	for _, a := range report.Anomalies {
		types = append(types, a.Type)
	}
	return types
}

func TestConsistencyCleanStream(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		s := movementSample(500+float64(i), 500, base.Add(time.Duration(i)*100*time.Millisecond), 0.9)
		report := v.Validate(s)
		assert.Empty(t, report.Anomalies)
		assert.Equal(t, 1.0, report.Score)
		assert.Equal(t, StatusValid, report.Status)
	}
}

func TestConsistencyImpossibleVelocity(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	v.Validate(movementSample(0, 0, base, 0.9))
	// 900 px in 5 ms is 180 px/ms: far beyond any real eye, and also a
	// sudden jump.
	report := v.Validate(movementSample(900, 0, base.Add(5*time.Millisecond), 0.9))

	require.Len(t, report.Anomalies, 2)
	assert.Contains(t, anomalyTypes(report), AnomalyImpossibleVelocity)
	assert.Contains(t, anomalyTypes(report), AnomalySuddenJump)
	assert.InDelta(t, 1-1.7/3, report.Score, 1e-9)
	assert.Equal(t, StatusSuspicious, report.Status)
}

func TestConsistencySuddenJumpAlone(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	v.Validate(movementSample(0, 0, base, 0.9))
	// 300 px in 40 ms is only 7.5 px/ms, but still a large jump within
	// the short-interval bound.
	report := v.Validate(movementSample(300, 0, base.Add(40*time.Millisecond), 0.9))

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, AnomalySuddenJump, report.Anomalies[0].Type)
	assert.InDelta(t, 1-0.7/3, report.Score, 1e-9)
	assert.Equal(t, StatusValid, report.Status)
}

func TestConsistencyTrackingLoss(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	report := v.Validate(movementSample(500, 500, base, 0.2))

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, AnomalyTrackingLoss, report.Anomalies[0].Type)
	assert.InDelta(t, 1-0.5/3, report.Score, 1e-9)
	assert.Equal(t, StatusValid, report.Status)
}

func TestConsistencyCalibrationDrift(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	// Ten samples settled at one position, then ten settled 300 px away.
	// The spacing keeps per-sample velocities plausible.
	var report ConsistencyReport
	for i := 0; i < 20; i++ {
		x := 100.0
		if i >= 10 {
			x = 400.0
		}
		report = v.Validate(movementSample(x, 100, base.Add(time.Duration(i)*100*time.Millisecond), 0.9))
	}

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, AnomalyCalibrationDrift, report.Anomalies[0].Type)
	assert.InDelta(t, 1-0.6/3, report.Score, 1e-9)
	assert.Equal(t, StatusValid, report.Status)
}

func TestConsistencyStatusThresholds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusValid, classifyStatus(0.7))
	assert.Equal(t, StatusSuspicious, classifyStatus(0.69))
	assert.Equal(t, StatusSuspicious, classifyStatus(0.3))
	assert.Equal(t, StatusInvalid, classifyStatus(0.29))
}

func TestConsistencyReset(t *testing.T) {
	t.Parallel()

	v := NewConsistencyValidator()
	base := time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)

	v.Validate(movementSample(0, 0, base, 0.9))
	v.Reset()

	// With no prior sample, even a huge displacement cannot be judged.
	report := v.Validate(movementSample(900, 0, base.Add(5*time.Millisecond), 0.9))
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, StatusValid, report.Status)
}
