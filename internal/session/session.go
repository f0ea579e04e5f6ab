// Package session binds the geometry pipeline and the behavior analyzer
// into one monitored proctoring session.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
	"github.com/sightline-data/gaze.report/internal/monitoring"
)

// FrameRequest is the complete per-frame input for a session: eye
// crops, facial landmarks, and head pose, all produced by external
// collaborators before the call.
type FrameRequest struct {
	Timestamp time.Time
	Left      *gaze.EyeInput
	Right     *gaze.EyeInput
	Landmarks []behavior.Point3
	HeadPose  gaze.HeadPose
}

// FrameReport is the combined per-frame output surface.
type FrameReport struct {
	Geometry gaze.FrameResult       `json:"geometry"`
	Behavior behavior.FrameBehavior `json:"behavior"`
}

// Report is the on-demand aggregate for a session.
type Report struct {
	SessionID string           `json:"session_id"`
	StartedAt time.Time        `json:"started_at"`
	Frames    int              `json:"frames"`
	Behavior  behavior.Summary `json:"behavior"`
}

// Session owns one subject's engine and analyzer. The engine's frame
// loop is single-writer; Session serializes external callers with a
// mutex so a multi-client surface (HTTP) preserves that invariant.
type Session struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	engine   *gaze.Engine
	analyzer *behavior.Analyzer
	frames   int
	closed   bool
}

// New creates a session for the given pipeline config, validating the
// screen geometry up front.
func New(cfg gaze.Config, behaviorCfg behavior.AnalyzerConfig) (*Session, error) {
	engine, err := gaze.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if behaviorCfg.ScreenWidthPx == 0 {
		behaviorCfg.ScreenWidthPx = cfg.Screen.WidthPx
	}
	if behaviorCfg.ScreenHeightPx == 0 {
		behaviorCfg.ScreenHeightPx = cfg.Screen.HeightPx
	}
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		engine:    engine,
		analyzer:  behavior.NewAnalyzer(behaviorCfg),
	}, nil
}

// ProcessFrame runs one frame through geometry and behavior analysis.
// The error path covers caller misuse only; transient detection
// failures surface as low-confidence output.
func (s *Session) ProcessFrame(req FrameRequest) (FrameReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return FrameReport{}, fmt.Errorf("session %s is closed", s.ID)
	}

	geo, err := s.engine.ProcessFrame(gaze.FrameInput{
		Timestamp: req.Timestamp,
		Left:      req.Left,
		Right:     req.Right,
		HeadPose:  req.HeadPose,
	})
	if err != nil {
		return FrameReport{}, err
	}

	sample := behavior.GazeSample{
		X:          geo.Intersection.ScreenX,
		Y:          geo.Intersection.ScreenY,
		OnScreen:   geo.Intersection.OnScreen,
		Confidence: geo.Intersection.Confidence,
		Timestamp:  req.Timestamp,
	}
	beh := s.analyzer.Update(sample, req.Landmarks)

	s.frames++
	return FrameReport{Geometry: geo, Behavior: beh}, nil
}

// Summary returns the aggregate report for the session so far.
func (s *Session) Summary() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Report{
		SessionID: s.ID,
		StartedAt: s.StartedAt,
		Frames:    s.frames,
		Behavior:  s.analyzer.Summarize(),
	}
}

// UpdateScreenGeometry swaps the calibrated screen geometry at runtime,
// propagating the pixel bounds to the off-screen monitor.
func (s *Session) UpdateScreenGeometry(geom gaze.ScreenGeometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.UpdateScreenGeometry(geom); err != nil {
		return err
	}
	s.analyzer.UpdateScreenBounds(geom.WidthPx, geom.HeightPx)
	return nil
}

// GazeHistory exposes the engine's bounded gaze ring for monitoring
// surfaces. Callers must not retain the returned samples across frames.
func (s *Session) GazeHistory() []gaze.TimedGazeVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.History().All()
}

// Reset clears all per-session state while keeping the session usable.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
	s.analyzer.Reset()
	s.frames = 0
	monitoring.Logf("session %s reset", s.ID)
}

// Close marks the session finished; further frames are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		monitoring.Logf("session %s closed after %d frames", s.ID, s.frames)
	}
}
