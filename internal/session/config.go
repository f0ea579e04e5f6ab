package session

import (
	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/config"
	"github.com/sightline-data/gaze.report/internal/gaze"
)

// PipelineConfigFromTuning builds the geometry pipeline config from the
// tuning file, falling back to compiled-in defaults for unset fields.
func PipelineConfigFromTuning(t *config.TuningConfig, screen gaze.ScreenGeometry) gaze.Config {
	cfg := gaze.DefaultConfig(screen)
	if t == nil {
		return cfg
	}
	cfg.Preprocess.GaussianSigma = config.Float(t.GaussianSigma, cfg.Preprocess.GaussianSigma)
	cfg.Preprocess.ClaheTileSize = config.Int(t.ClaheTileSize, cfg.Preprocess.ClaheTileSize)
	cfg.Preprocess.ClaheClipLimit = config.Float(t.ClaheClipLimit, cfg.Preprocess.ClaheClipLimit)
	cfg.Preprocess.UnsharpAmount = config.Float(t.UnsharpAmount, cfg.Preprocess.UnsharpAmount)

	cfg.Boundary.MinRadius = config.Int(t.MinIrisRadius, cfg.Boundary.MinRadius)
	cfg.Boundary.VoteFraction = config.Float(t.HoughVoteFraction, cfg.Boundary.VoteFraction)
	cfg.Boundary.AngleSteps = config.Int(t.HoughAngleSteps, cfg.Boundary.AngleSteps)

	cfg.Reflection.MinBrightness = config.Float(t.GlintMinBrightness, cfg.Reflection.MinBrightness)
	cfg.Reflection.MinLocalContrast = config.Float(t.GlintMinContrast, cfg.Reflection.MinLocalContrast)

	cfg.DeviationThresholdDeg = config.Float(t.DeviationThresholdDeg, cfg.DeviationThresholdDeg)
	return cfg
}

// AnalyzerConfigFromTuning builds the behavior analyzer config from the
// tuning file.
func AnalyzerConfigFromTuning(t *config.TuningConfig, screen gaze.ScreenGeometry) behavior.AnalyzerConfig {
	cfg := behavior.AnalyzerConfig{
		ScreenWidthPx:  screen.WidthPx,
		ScreenHeightPx: screen.HeightPx,
	}
	if t == nil {
		return cfg
	}
	cfg.EARThreshold = config.Float(t.EARThreshold, 0)
	cfg.PixelsPerDegree = config.Float(t.PixelsPerDegree, 0)
	cfg.SaccadeThresholdDeg = config.Float(t.SaccadeThresholdDeg, 0)
	return cfg
}
