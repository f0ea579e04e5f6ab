// Package monitor serves debugging charts for live sessions. The
// endpoints are unauthenticated and meant for operators inspecting a
// proctoring station, not for subjects.
package monitor

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/sightline-data/gaze.report/internal/gaze"
	"github.com/sightline-data/gaze.report/internal/httputil"
	"github.com/sightline-data/gaze.report/internal/session"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// deviationInRange is the viridis ramp used to color gaze samples by
// angular deviation.
var deviationInRange = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// SessionSource provides the live sessions to chart, keyed by ID.
type SessionSource interface {
	Sessions() map[string]*session.Session
}

// WebServer renders go-echarts debug views over live sessions.
type WebServer struct {
	source SessionSource
}

// NewWebServer creates a monitoring surface over the given source.
func NewWebServer(source SessionSource) *WebServer {
	return &WebServer{source: source}
}

// RegisterRoutes attaches the debug chart handlers to the mux.
func (ws *WebServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/gaze/trace", ws.handleGazeTraceChart)
	mux.HandleFunc("/debug/gaze/deviation", ws.handleDeviationChart)
	mux.HandleFunc("/debug/gaze/dashboard", ws.handleDashboard)
}

// lookup resolves the session_id query param, falling back to the
// only live session when exactly one exists.
func (ws *WebServer) lookup(r *http.Request) (*session.Session, string) {
	sessions := ws.source.Sessions()
	id := r.URL.Query().Get("session_id")
	if id != "" {
		return sessions[id], id
	}
	if len(sessions) == 1 {
		for id, sess := range sessions {
			return sess, id
		}
	}
	return nil, id
}

// handleGazeTraceChart renders the session's recent gaze directions as
// a scatter plot (HTML), colored by angular deviation from straight
// ahead.
func (ws *WebServer) handleGazeTraceChart(w http.ResponseWriter, r *http.Request) {
	sess, id := ws.lookup(r)
	if sess == nil {
		httputil.NotFound(w, "no live session to chart")
		return
	}

	history := sess.GazeHistory()
	if len(history) == 0 {
		httputil.NotFound(w, "no gaze samples recorded yet")
		return
	}

	data := make([]opts.ScatterData, 0, len(history))
	maxAbs := 0.0
	maxDev := 0.0
	for _, sample := range history {
		x := sample.Vector.X
		y := sample.Vector.Y
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		if sample.Vector.DeviationDeg > maxDev {
			maxDev = sample.Vector.DeviationDeg
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, sample.Vector.DeviationDeg}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 0.1
	}
	if maxDev == 0 {
		maxDev = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gaze Trace", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Gaze Direction Trace", Subtitle: fmt.Sprintf("session=%s samples=%d", id, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "horizontal", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "vertical", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxDev),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: deviationInRange},
		}),
	)
	scatter.AddSeries("gaze", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleDeviationChart renders angular deviation over time as a line
// chart, with the alert thresholds drawn as mark lines.
func (ws *WebServer) handleDeviationChart(w http.ResponseWriter, r *http.Request) {
	sess, id := ws.lookup(r)
	if sess == nil {
		httputil.NotFound(w, "no live session to chart")
		return
	}

	history := sess.GazeHistory()
	if len(history) == 0 {
		httputil.NotFound(w, "no gaze samples recorded yet")
		return
	}

	x := make([]string, 0, len(history))
	y := make([]opts.LineData, 0, len(history))
	for _, sample := range history {
		x = append(x, sample.Timestamp.Format("15:04:05.000"))
		y = append(y, opts.LineData{Value: sample.Vector.DeviationDeg})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gaze Deviation", Theme: "dark", Width: "1100px", Height: "520px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Angular Deviation", Subtitle: fmt.Sprintf("session=%s samples=%d", id, len(y))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "deviation (deg)", NameLocation: "middle", NameGap: 35}),
	)
	line.SetXAxis(x).AddSeries("deviation", y,
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: string(gaze.AlertLow), YAxis: 1},
			opts.MarkLineNameYAxisItem{Name: string(gaze.AlertMedium), YAxis: 3},
			opts.MarkLineNameYAxisItem{Name: string(gaze.AlertHigh), YAxis: 5},
		),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleDashboard renders a minimal dashboard with iframes to the
// debug charts, refreshed on an interval.
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	safeSessionID := html.EscapeString(sessionID)
	qs := ""
	if sessionID != "" {
		qs = "?session_id=" + url.QueryEscape(sessionID)
	}
	safeQs := html.EscapeString(qs)

	doc := fmt.Sprintf(dashboardHTML, safeSessionID, safeQs, safeQs, time.Now().UTC().Format(time.RFC3339))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>Gaze Debug Dashboard %s</title>
<style>
body { background: #1e1e1e; color: #ddd; font-family: sans-serif; margin: 1em; }
iframe { border: 1px solid #444; background: #111; }
</style>
</head>
<body>
<h2>Gaze Debug Dashboard</h2>
<iframe src="/debug/gaze/trace%s" width="920" height="920"></iframe>
<iframe src="/debug/gaze/deviation%s" width="1120" height="540"></iframe>
<p>rendered %s</p>
</body>
</html>
`
