package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := NewDB(filepath.Join(t.TempDir(), "proctor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp("migrations"))
	return store
}

func testGeometry() gaze.ScreenGeometry {
	return gaze.ScreenGeometry{
		WidthMM:    600,
		HeightMM:   340,
		DistanceMM: 600,
		WidthPx:    1920,
		HeightPx:   1080,
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	require.NoError(t, store.MigrateUp("migrations"))

	version, dirty, err := store.MigrateVersion("migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestCalibrationRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	geom := testGeometry()

	require.NoError(t, store.SaveCalibration("desk-7", geom))

	p, err := store.GetCalibration("desk-7")
	require.NoError(t, err)
	assert.Equal(t, "desk-7", p.StationID)
	assert.Equal(t, geom, p.Geometry)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestSaveCalibrationUpserts(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	require.NoError(t, store.SaveCalibration("desk-7", testGeometry()))

	updated := testGeometry()
	updated.DistanceMM = 550
	require.NoError(t, store.SaveCalibration("desk-7", updated))

	p, err := store.GetCalibration("desk-7")
	require.NoError(t, err)
	assert.Equal(t, 550.0, p.Geometry.DistanceMM)
}

func TestSaveCalibrationRejectsBadInput(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)

	assert.Error(t, store.SaveCalibration("", testGeometry()))
	assert.Error(t, store.SaveCalibration("desk-7", gaze.ScreenGeometry{}))
}

func TestGetCalibrationMissing(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	_, err := store.GetCalibration("desk-404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionSummaryRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	started := time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC)

	rec := SessionRecord{
		SessionID:        "sess-1",
		StationID:        "desk-7",
		StartedAt:        started,
		EndedAt:          started.Add(30 * time.Minute),
		Frames:           54000,
		Engagement:       0.82,
		ConsistencyScore: 0.95,
		OffScreenMs:      12400,
		OffScreenAlerts:  3,
		Behavior: behavior.Summary{
			Samples:    54000,
			Engagement: 0.82,
			MovementCounts: map[behavior.MovementType]int{
				behavior.MovementFixation: 400,
				behavior.MovementSaccade:  120,
			},
		},
	}
	require.NoError(t, store.RecordSessionSummary(rec))

	records, err := store.ListSessionSummaries(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.StationID, got.StationID)
	assert.Equal(t, rec.Frames, got.Frames)
	assert.Equal(t, rec.Engagement, got.Engagement)
	assert.Equal(t, rec.OffScreenMs, got.OffScreenMs)
	assert.Equal(t, rec.Behavior.MovementCounts, got.Behavior.MovementCounts)
	assert.True(t, got.StartedAt.Equal(rec.StartedAt))
}

func TestListSessionSummariesOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestDB(t)
	base := time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordSessionSummary(SessionRecord{
			SessionID: "sess-" + string(rune('a'+i)),
			StationID: "desk-7",
			StartedAt: base,
			EndedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	records, err := store.ListSessionSummaries(3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "sess-e", records[0].SessionID)
	assert.Equal(t, "sess-d", records[1].SessionID)

	// Non-positive limits fall back to the default cap.
	records, err = store.ListSessionSummaries(0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}
