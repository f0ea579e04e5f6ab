package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
	"github.com/sightline-data/gaze.report/internal/session"
)

type staticSource struct {
	sessions map[string]*session.Session
}

func (s *staticSource) Sessions() map[string]*session.Session {
	return s.sessions
}

func testScreen() gaze.ScreenGeometry {
	return gaze.ScreenGeometry{
		WidthMM: 600, HeightMM: 340, DistanceMM: 600,
		WidthPx: 1920, HeightPx: 1080,
	}
}

// chartedSession builds a live session with a few frames of synthetic
// eye imagery so the charts have samples to draw.
func chartedSession(t *testing.T) *session.Session {
	t.Helper()

	screen := testScreen()
	sess, err := session.New(
		gaze.DefaultConfig(screen),
		behavior.AnalyzerConfig{ScreenWidthPx: screen.WidthPx, ScreenHeightPx: screen.HeightPx},
	)
	require.NoError(t, err)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		left, right := gaze.SyntheticFrameInput(gaze.DefaultSyntheticEye())
		_, err := sess.ProcessFrame(session.FrameRequest{
			Timestamp: base.Add(time.Duration(i) * 33 * time.Millisecond),
			Left:      left,
			Right:     right,
		})
		require.NoError(t, err)
	}
	return sess
}

func TestChartHandlers(t *testing.T) {
	sess := chartedSession(t)
	ws := NewWebServer(&staticSource{sessions: map[string]*session.Session{sess.ID: sess}})

	mux := http.NewServeMux()
	ws.RegisterRoutes(mux)

	cases := []struct {
		name string
		path string
	}{
		{"trace by id", "/debug/gaze/trace?session_id=" + sess.ID},
		{"trace sole session", "/debug/gaze/trace"},
		{"deviation", "/debug/gaze/deviation?session_id=" + sess.ID},
		{"dashboard", "/debug/gaze/dashboard?session_id=" + sess.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.NotEmpty(t, rec.Body.Bytes())
		})
	}
}

func TestChartHandlersUnknownSession(t *testing.T) {
	t.Parallel()

	ws := NewWebServer(&staticSource{sessions: map[string]*session.Session{}})
	mux := http.NewServeMux()
	ws.RegisterRoutes(mux)

	for _, path := range []string{"/debug/gaze/trace", "/debug/gaze/deviation"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?session_id=nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
