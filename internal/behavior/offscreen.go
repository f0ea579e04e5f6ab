package behavior

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Off-screen alerting constants.
const (
	// offScreenAlertDelay is the minimum sustained off-screen duration
	// before an alert is emitted.
	offScreenAlertDelay = 1 * time.Second

	// offScreenCoalesceWindow: an off-screen sample arriving within this
	// window of an existing alert extends it instead of opening a new
	// one.
	offScreenCoalesceWindow = 2 * time.Second

	// Severity escalation thresholds.
	offScreenMediumAfter = 2 * time.Second
	offScreenHighAfter   = 5 * time.Second

	// offScreenAlertCap bounds the retained alert list.
	offScreenAlertCap = 20
)

// OffScreenMonitor tracks sustained off-screen excursions against the
// configured screen bounds and emits debounced, coalesced alerts.
type OffScreenMonitor struct {
	widthPx  float64
	heightPx float64

	samples   []GazeSample // trailing window for backward duration scans
	alerts    []OffScreenAlert
	lastAlert *OffScreenAlert // pointer into alerts, nil when none active
	total     time.Duration   // cumulative off-screen time
	lastTS    time.Time
	lastOff   bool
}

// NewOffScreenMonitor creates a monitor for the given screen pixel
// bounds.
func NewOffScreenMonitor(widthPx, heightPx int) *OffScreenMonitor {
	return &OffScreenMonitor{
		widthPx:  float64(widthPx),
		heightPx: float64(heightPx),
	}
}

// SetBounds updates the screen pixel bounds at runtime.
func (m *OffScreenMonitor) SetBounds(widthPx, heightPx int) {
	m.widthPx = float64(widthPx)
	m.heightPx = float64(heightPx)
}

// Update processes one gaze sample. It returns the new or extended
// alert when the off-screen duration has cleared the delay threshold,
// else nil.
func (m *OffScreenMonitor) Update(s GazeSample) *OffScreenAlert {
	// Accumulate cumulative off-screen time over sample intervals.
	if !m.lastTS.IsZero() && m.lastOff {
		if dt := s.Timestamp.Sub(m.lastTS); dt > 0 {
			m.total += dt
		}
	}
	m.lastTS = s.Timestamp
	m.lastOff = !s.OnScreen

	m.samples = append(m.samples, s)
	m.evict(s.Timestamp)

	if s.OnScreen {
		return nil
	}

	duration := m.offScreenDuration(s)
	if duration < offScreenAlertDelay {
		return nil
	}

	direction := m.exitDirection(s)
	severity := classifySeverity(duration)

	// Coalesce with an in-progress alert if re-triggered soon enough.
	if m.lastAlert != nil && s.Timestamp.Sub(m.lastAlert.Timestamp.Add(m.lastAlert.Duration)) <= offScreenCoalesceWindow {
		m.lastAlert.Duration = s.Timestamp.Sub(m.lastAlert.Timestamp)
		m.lastAlert.Severity = classifySeverity(m.lastAlert.Duration)
		m.lastAlert.Confidence = clamp01(s.Confidence)
		return m.lastAlert
	}

	alert := OffScreenAlert{
		ID:         uuid.NewString(),
		Timestamp:  s.Timestamp.Add(-duration),
		Duration:   duration,
		Direction:  direction,
		Severity:   severity,
		Confidence: clamp01(s.Confidence),
		Reason:     fmt.Sprintf("gaze sustained off-screen %s for %s", direction, duration.Round(time.Millisecond)),
	}
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > offScreenAlertCap {
		m.alerts = m.alerts[len(m.alerts)-offScreenAlertCap:]
	}
	m.lastAlert = &m.alerts[len(m.alerts)-1]
	return m.lastAlert
}

// offScreenDuration scans the history backward to the most recent
// on-screen sample. A stream that was never on-screen measures from its
// first sample.
func (m *OffScreenMonitor) offScreenDuration(current GazeSample) time.Duration {
	start := current.Timestamp
	for i := len(m.samples) - 1; i >= 0; i-- {
		if m.samples[i].OnScreen {
			break
		}
		start = m.samples[i].Timestamp
	}
	return current.Timestamp.Sub(start)
}

// exitDirection picks the dominant screen edge the gaze exited through.
func (m *OffScreenMonitor) exitDirection(s GazeSample) OffScreenDirection {
	// Distance past each edge; the farthest violated edge wins.
	left := -s.X
	right := s.X - m.widthPx
	up := -s.Y
	down := s.Y - m.heightPx

	dir := OffScreenLeft
	best := left
	if right > best {
		best = right
		dir = OffScreenRight
	}
	if up > best {
		best = up
		dir = OffScreenUp
	}
	if down > best {
		dir = OffScreenDown
	}
	return dir
}

// classifySeverity escalates with sustained duration.
func classifySeverity(d time.Duration) AlertSeverity {
	switch {
	case d > offScreenHighAfter:
		return SeverityHigh
	case d > offScreenMediumAfter:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Alerts returns the retained alerts, oldest first.
func (m *OffScreenMonitor) Alerts() []OffScreenAlert {
	return m.alerts
}

// Total returns the cumulative off-screen time observed this session.
func (m *OffScreenMonitor) Total() time.Duration {
	return m.total
}

// evict drops samples outside the backward-scan window. The window only
// needs to cover the longest severity threshold plus the coalescing
// window.
func (m *OffScreenMonitor) evict(now time.Time) {
	cutoff := now.Add(-(offScreenHighAfter + offScreenCoalesceWindow + offScreenAlertDelay))
	i := 0
	for i < len(m.samples) && m.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = m.samples[i:]
	}
}

// Reset clears all off-screen state.
func (m *OffScreenMonitor) Reset() {
	m.samples = nil
	m.alerts = nil
	m.lastAlert = nil
	m.total = 0
	m.lastTS = time.Time{}
	m.lastOff = false
}
