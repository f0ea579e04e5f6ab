// Command gaze-plot renders PNG charts from a synth-session dump:
// angular deviation over time and the on-screen gaze trace.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sightline-data/gaze.report/internal/security"
	"github.com/sightline-data/gaze.report/internal/session"
)

type sessionDump struct {
	Frames  []session.FrameReport `json:"frames"`
	Summary session.Report        `json:"summary"`
}

func main() {
	input := flag.String("i", "session.json", "session dump path")
	outDir := flag.String("o", "plots", "output directory")
	flag.Parse()

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("failed to read dump: %v", err)
	}
	var dump sessionDump
	if err := json.Unmarshal(data, &dump); err != nil {
		log.Fatalf("failed to parse dump: %v", err)
	}
	if len(dump.Frames) == 0 {
		log.Fatal("dump contains no frames")
	}

	if err := security.ValidateExportPath(*outDir); err != nil {
		log.Fatalf("invalid output dir: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	// Session IDs come from the dump, so sanitize before they reach a
	// file name.
	tag := security.SanitizeFilename(dump.Summary.SessionID)
	if err := plotDeviation(dump, filepath.Join(*outDir, "deviation-"+tag+".png")); err != nil {
		log.Fatalf("deviation plot: %v", err)
	}
	if err := plotTrace(dump, filepath.Join(*outDir, "trace-"+tag+".png")); err != nil {
		log.Fatalf("trace plot: %v", err)
	}
	log.Printf("✓ Wrote 2 plots to %s", *outDir)
}

// plotDeviation draws deviation and the rolling average per frame.
func plotDeviation(dump sessionDump, outFile string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Angular Deviation (session %s)", dump.Summary.SessionID)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Deviation (deg)"

	current := make(plotter.XYs, 0, len(dump.Frames))
	average := make(plotter.XYs, 0, len(dump.Frames))
	for i, f := range dump.Frames {
		current = append(current, plotter.XY{X: float64(i), Y: f.Geometry.Deviation.CurrentDeg})
		average = append(average, plotter.XY{X: float64(i), Y: f.Geometry.Deviation.AverageDeg})
	}

	currentLine, err := plotter.NewLine(current)
	if err != nil {
		return err
	}
	currentLine.Color = color.RGBA{R: 220, G: 80, B: 60, A: 255}
	currentLine.Width = vg.Points(1)
	p.Add(currentLine)
	p.Legend.Add("current", currentLine)

	avgLine, err := plotter.NewLine(average)
	if err != nil {
		return err
	}
	avgLine.Color = color.RGBA{R: 60, G: 120, B: 220, A: 255}
	avgLine.Width = vg.Points(1)
	p.Add(avgLine)
	p.Legend.Add("average", avgLine)

	p.Legend.Top = true
	p.Legend.Left = false

	return p.Save(14*vg.Inch, 6*vg.Inch, outFile)
}

// plotTrace draws the projected gaze point path in screen pixels, with
// the Y axis flipped so the chart matches screen orientation.
func plotTrace(dump sessionDump, outFile string) error {
	p := plot.New()
	p.Title.Text = "On-Screen Gaze Trace"
	p.X.Label.Text = "Screen X (px)"
	p.Y.Label.Text = "Screen Y (px)"

	pts := make(plotter.XYs, 0, len(dump.Frames))
	for _, f := range dump.Frames {
		if !f.Geometry.Intersection.OnScreen {
			continue
		}
		pts = append(pts, plotter.XY{
			X: f.Geometry.Intersection.ScreenX,
			Y: -f.Geometry.Intersection.ScreenY,
		})
	}
	if len(pts) == 0 {
		return fmt.Errorf("no on-screen samples to plot")
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 60, G: 160, B: 90, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 30, G: 90, B: 50, A: 255}
	p.Add(scatter)

	return p.Save(10*vg.Inch, 6*vg.Inch, outFile)
}
