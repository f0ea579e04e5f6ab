// Package api exposes the proctoring engine over a JSON HTTP surface:
// session lifecycle, per-frame ingestion, summaries, and calibration.
package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/config"
	"github.com/sightline-data/gaze.report/internal/db"
	"github.com/sightline-data/gaze.report/internal/gaze"
	"github.com/sightline-data/gaze.report/internal/httputil"
	"github.com/sightline-data/gaze.report/internal/monitoring"
	"github.com/sightline-data/gaze.report/internal/session"
	"github.com/sightline-data/gaze.report/internal/version"
)

// ANSI escape codes for request logging.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server routes HTTP requests to live sessions and the session store.
type Server struct {
	store  *db.DB
	tuning *config.TuningConfig

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// liveSession couples a running session with the workstation it was
// opened for.
type liveSession struct {
	sess      *session.Session
	stationID string
}

// NewServer creates a server over the given session store. tuning may
// be nil to use compiled-in defaults everywhere.
func NewServer(store *db.DB, tuning *config.TuningConfig) *Server {
	return &Server{
		store:    store,
		tuning:   tuning,
		sessions: make(map[string]*liveSession),
	}
}

// RegisterRoutes attaches all API handlers to the mux with request
// logging.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.withLogging(s.handleHealth))
	mux.HandleFunc("/api/gaze/session", s.withLogging(s.handleSession))
	mux.HandleFunc("/api/gaze/frame", s.withLogging(s.handleFrame))
	mux.HandleFunc("/api/gaze/summary", s.withLogging(s.handleSummary))
	mux.HandleFunc("/api/gaze/screen", s.withLogging(s.handleScreen))
	mux.HandleFunc("/api/gaze/reset", s.withLogging(s.handleReset))
	mux.HandleFunc("/api/gaze/close", s.withLogging(s.handleClose))
	mux.HandleFunc("/api/gaze/params", s.withLogging(s.handleParams))
	mux.HandleFunc("/api/sessions", s.withLogging(s.handleListSessions))
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// withLogging wraps a handler with method/path/status logging.
func (s *Server) withLogging(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		h(lrw, r)
		monitoring.Logf("%s%s%s %s %s %s", colorCyan, r.Method, colorReset,
			r.URL.Path, statusCodeColor(lrw.statusCode), time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// CreateSessionRequest opens a monitoring session. Screen geometry may
// be given inline or resolved from the workstation's stored calibration
// profile.
type CreateSessionRequest struct {
	StationID string               `json:"station_id"`
	Screen    *gaze.ScreenGeometry `json:"screen,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	screen, err := s.resolveScreen(req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	tuning := s.currentTuning()
	sess, err := session.New(
		session.PipelineConfigFromTuning(tuning, screen),
		session.AnalyzerConfigFromTuning(tuning, screen),
	)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &liveSession{sess: sess, stationID: req.StationID}
	s.mu.Unlock()

	monitoring.Logf("opened session %s for station %q", sess.ID, req.StationID)
	httputil.WriteJSONOK(w, map[string]string{"session_id": sess.ID})
}

// resolveScreen prefers inline geometry, then the stored calibration
// profile for the station.
func (s *Server) resolveScreen(req CreateSessionRequest) (gaze.ScreenGeometry, error) {
	if req.Screen != nil {
		return *req.Screen, req.Screen.Validate()
	}
	if req.StationID == "" {
		return gaze.ScreenGeometry{}, fmt.Errorf("either screen geometry or station_id is required")
	}
	profile, err := s.store.GetCalibration(req.StationID)
	if errors.Is(err, sql.ErrNoRows) {
		return gaze.ScreenGeometry{}, fmt.Errorf("no calibration profile for station %q", req.StationID)
	}
	if err != nil {
		return gaze.ScreenGeometry{}, fmt.Errorf("failed to load calibration: %w", err)
	}
	return profile.Geometry, nil
}

// EyeInputJSON is the wire form of one eye crop: region plus
// base64-encoded RGBA pixels.
type EyeInputJSON struct {
	Region gaze.EyeRegion `json:"region"`
	Pixels string         `json:"pixels"`
}

// FrameRequestJSON is the wire form of one frame submission.
type FrameRequestJSON struct {
	SessionID   string            `json:"session_id"`
	TimestampMs int64             `json:"timestamp_ms"`
	Left        *EyeInputJSON     `json:"left,omitempty"`
	Right       *EyeInputJSON     `json:"right,omitempty"`
	Landmarks   [][3]float64      `json:"landmarks,omitempty"`
	HeadPose    gaze.HeadPose     `json:"head_pose"`
}

func decodeEye(e *EyeInputJSON) (*gaze.EyeInput, error) {
	if e == nil {
		return nil, nil
	}
	pixels, err := base64.StdEncoding.DecodeString(e.Pixels)
	if err != nil {
		return nil, fmt.Errorf("invalid pixel encoding: %w", err)
	}
	return &gaze.EyeInput{Region: e.Region, Pixels: pixels}, nil
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req FrameRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	live := s.lookup(req.SessionID)
	if live == nil {
		httputil.NotFound(w, fmt.Sprintf("unknown session %q", req.SessionID))
		return
	}

	left, err := decodeEye(req.Left)
	if err != nil {
		httputil.BadRequest(w, "left eye: "+err.Error())
		return
	}
	right, err := decodeEye(req.Right)
	if err != nil {
		httputil.BadRequest(w, "right eye: "+err.Error())
		return
	}

	landmarks := make([]behavior.Point3, len(req.Landmarks))
	for i, lm := range req.Landmarks {
		landmarks[i] = behavior.Point3{X: lm[0], Y: lm[1], Z: lm[2]}
	}

	report, err := live.sess.ProcessFrame(session.FrameRequest{
		Timestamp: time.UnixMilli(req.TimestampMs),
		Left:      left,
		Right:     right,
		Landmarks: landmarks,
		HeadPose:  req.HeadPose,
	})
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	live := s.lookup(r.URL.Query().Get("session_id"))
	if live == nil {
		httputil.NotFound(w, "unknown session")
		return
	}
	httputil.WriteJSONOK(w, live.sess.Summary())
}

// ScreenUpdateRequest changes a live session's screen geometry and
// optionally persists it as the station's calibration profile.
type ScreenUpdateRequest struct {
	SessionID string              `json:"session_id"`
	Persist   bool                `json:"persist"`
	Geometry  gaze.ScreenGeometry `json:"geometry"`
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req ScreenUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	live := s.lookup(req.SessionID)
	if live == nil {
		httputil.NotFound(w, fmt.Sprintf("unknown session %q", req.SessionID))
		return
	}
	if err := live.sess.UpdateScreenGeometry(req.Geometry); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Persist && live.stationID != "" {
		if err := s.store.SaveCalibration(live.stationID, req.Geometry); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "updated"})
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sessionRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	live := s.lookup(req.SessionID)
	if live == nil {
		httputil.NotFound(w, fmt.Sprintf("unknown session %q", req.SessionID))
		return
	}
	live.sess.Reset()
	httputil.WriteJSONOK(w, map[string]string{"status": "reset"})
}

// handleClose finishes a session: the aggregate summary is persisted,
// the live session discarded.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sessionRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.mu.Lock()
	live := s.sessions[req.SessionID]
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()
	if live == nil {
		httputil.NotFound(w, fmt.Sprintf("unknown session %q", req.SessionID))
		return
	}

	report := live.sess.Summary()
	live.sess.Close()

	rec := db.SessionRecord{
		SessionID:        report.SessionID,
		StationID:        live.stationID,
		StartedAt:        report.StartedAt,
		EndedAt:          time.Now().UTC(),
		Frames:           report.Frames,
		Engagement:       report.Behavior.Engagement,
		ConsistencyScore: report.Behavior.ConsistencyScore,
		OffScreenMs:      report.Behavior.OffScreenTotal.Milliseconds(),
		OffScreenAlerts:  report.Behavior.OffScreenAlerts,
		Behavior:         report.Behavior,
	}
	if err := s.store.RecordSessionSummary(rec); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, report)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	records, err := s.store.ListSessionSummaries(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, records)
}

// handleParams exposes the tuning document at runtime: GET returns the
// active overrides, POST validates and replaces them. Updates apply to
// sessions opened afterwards; running sessions keep their config.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.currentTuning())
	case http.MethodPost:
		next := config.EmptyTuningConfig()
		if err := json.NewDecoder(r.Body).Decode(next); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if err := next.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.mu.Lock()
		s.tuning = next
		s.mu.Unlock()
		monitoring.Logf("tuning params updated")
		httputil.WriteJSONOK(w, next)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// currentTuning snapshots the active tuning document, never nil.
func (s *Server) currentTuning() *config.TuningConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tuning == nil {
		return config.EmptyTuningConfig()
	}
	return s.tuning
}

// lookup returns the live session for an ID, or nil.
func (s *Server) lookup(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Sessions returns the live sessions keyed by ID, for the monitoring
// surface.
func (s *Server) Sessions() map[string]*session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*session.Session, len(s.sessions))
	for id, live := range s.sessions {
		out[id] = live.sess
	}
	return out
}
