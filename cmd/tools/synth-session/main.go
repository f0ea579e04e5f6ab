// Command synth-session runs a synthetic proctoring session through the
// full pipeline and writes the per-frame reports as JSON, for tuning
// and for feeding gaze-plot.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"time"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
	"github.com/sightline-data/gaze.report/internal/session"
)

// SessionDump is the output document: every frame report plus the
// aggregate summary.
type SessionDump struct {
	Frames  []session.FrameReport `json:"frames"`
	Summary session.Report        `json:"summary"`
}

func main() {
	output := flag.String("o", "session.json", "output path")
	frames := flag.Int("n", 90, "number of frames")
	fps := flag.Float64("fps", 30, "simulated frame rate")
	wanderPx := flag.Float64("wander", 3, "iris wander amplitude in crop pixels")
	flag.Parse()

	screen := gaze.ScreenGeometry{
		WidthMM: 600, HeightMM: 340, DistanceMM: 600,
		WidthPx: 1920, HeightPx: 1080,
	}
	sess, err := session.New(
		gaze.DefaultConfig(screen),
		behavior.AnalyzerConfig{ScreenWidthPx: screen.WidthPx, ScreenHeightPx: screen.HeightPx},
	)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	frameInterval := time.Duration(float64(time.Second) / *fps)
	base := time.Now()

	dump := SessionDump{Frames: make([]session.FrameReport, 0, *frames)}
	for i := 0; i < *frames; i++ {
		// Slow sinusoidal wander around the crop center simulates a
		// subject reading near the middle of the screen.
		phase := float64(i) / float64(*frames) * 2 * math.Pi
		cfg := gaze.DefaultSyntheticEye()
		cfg.IrisX += *wanderPx * math.Sin(phase)
		cfg.IrisY += *wanderPx * 0.5 * math.Cos(phase)

		left, right := gaze.SyntheticFrameInput(cfg)
		report, err := sess.ProcessFrame(session.FrameRequest{
			Timestamp: base.Add(time.Duration(i) * frameInterval),
			Left:      left,
			Right:     right,
		})
		if err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}
		dump.Frames = append(dump.Frames, report)

		if (i+1)%30 == 0 {
			log.Printf("%d/%d frames", i+1, *frames)
		}
	}
	dump.Summary = sess.Summary()

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames, engagement %.2f)", *output, len(dump.Frames), dump.Summary.Behavior.Engagement)
}
