// Package config loads the JSON tuning file holding the engine's
// adjustable thresholds. Pointer fields distinguish "not specified"
// from explicit zero so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig is the root tuning document. The schema matches the
// /api/gaze/params endpoint so the same JSON serves both startup
// configuration and runtime updates. Every field is an optional
// override; omitted fields keep their compiled-in defaults.
type TuningConfig struct {
	// Preprocessing params
	GaussianSigma  *float64 `json:"gaussian_sigma,omitempty"`
	ClaheTileSize  *int     `json:"clahe_tile_size,omitempty"`
	ClaheClipLimit *float64 `json:"clahe_clip_limit,omitempty"`
	UnsharpAmount  *float64 `json:"unsharp_amount,omitempty"`

	// Boundary detector params
	MinIrisRadius     *int     `json:"min_iris_radius,omitempty"`
	HoughVoteFraction *float64 `json:"hough_vote_fraction,omitempty"`
	HoughAngleSteps   *int     `json:"hough_angle_steps,omitempty"`

	// Reflection detector params
	GlintMinBrightness *float64 `json:"glint_min_brightness,omitempty"`
	GlintMinContrast   *float64 `json:"glint_min_contrast,omitempty"`

	// Deviation tracking params
	DeviationThresholdDeg *float64 `json:"deviation_threshold_deg,omitempty"`

	// Behavior params. The voluntary-blink burst and off-screen delay
	// are coarse policy constants rather than physiological laws, which
	// is exactly why they live in the tuning file.
	EARThreshold        *float64 `json:"ear_threshold,omitempty"`
	PixelsPerDegree     *float64 `json:"pixels_per_degree,omitempty"`
	SaccadeThresholdDeg *float64 `json:"saccade_threshold_deg,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// carry a .json extension and stay under the size cap; fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set overrides are usable.
func (c *TuningConfig) Validate() error {
	if c.HoughVoteFraction != nil {
		if *c.HoughVoteFraction <= 0 || *c.HoughVoteFraction > 1 {
			return fmt.Errorf("hough_vote_fraction must be in (0, 1], got %f", *c.HoughVoteFraction)
		}
	}
	if c.EARThreshold != nil {
		if *c.EARThreshold <= 0 || *c.EARThreshold >= 1 {
			return fmt.Errorf("ear_threshold must be in (0, 1), got %f", *c.EARThreshold)
		}
	}
	if c.GlintMinBrightness != nil {
		if *c.GlintMinBrightness <= 0 || *c.GlintMinBrightness > 255 {
			return fmt.Errorf("glint_min_brightness must be in (0, 255], got %f", *c.GlintMinBrightness)
		}
	}
	if c.MinIrisRadius != nil && *c.MinIrisRadius < 1 {
		return fmt.Errorf("min_iris_radius must be positive, got %d", *c.MinIrisRadius)
	}
	if c.PixelsPerDegree != nil && *c.PixelsPerDegree <= 0 {
		return fmt.Errorf("pixels_per_degree must be positive, got %f", *c.PixelsPerDegree)
	}
	if c.SaccadeThresholdDeg != nil && *c.SaccadeThresholdDeg <= 0 {
		return fmt.Errorf("saccade_threshold_deg must be positive, got %f", *c.SaccadeThresholdDeg)
	}
	return nil
}

// Float returns the override value or the given default.
func Float(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Int returns the override value or the given default.
func Int(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
