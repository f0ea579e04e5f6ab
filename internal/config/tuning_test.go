package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tuning.json", `{
		"gaussian_sigma": 1.8,
		"min_iris_radius": 10,
		"ear_threshold": 0.22
	}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.GaussianSigma)
	assert.Equal(t, 1.8, *cfg.GaussianSigma)
	require.NotNil(t, cfg.MinIrisRadius)
	assert.Equal(t, 10, *cfg.MinIrisRadius)
	require.NotNil(t, cfg.EARThreshold)
	assert.Equal(t, 0.22, *cfg.EARThreshold)

	// Omitted fields stay unset so defaults apply downstream.
	assert.Nil(t, cfg.HoughVoteFraction)
	assert.Nil(t, cfg.SaccadeThresholdDeg)
}

func TestLoadTuningConfigRejectsNonJSONExtension(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tuning.yaml", `{}`)
	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, ".json extension")
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadTuningConfigMalformedJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tuning.json", `{"gaussian_sigma": `)
	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, "parse")
}

func TestLoadTuningConfigValidation(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tuning.json", `{"hough_vote_fraction": 1.5}`)
	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, "hough_vote_fraction")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{"empty", TuningConfig{}, false},
		{"valid overrides", TuningConfig{
			HoughVoteFraction:  floatPtr(0.3),
			EARThreshold:       floatPtr(0.25),
			GlintMinBrightness: floatPtr(200),
			MinIrisRadius:      intPtr(8),
		}, false},
		{"vote fraction zero", TuningConfig{HoughVoteFraction: floatPtr(0)}, true},
		{"ear threshold one", TuningConfig{EARThreshold: floatPtr(1)}, true},
		{"brightness over range", TuningConfig{GlintMinBrightness: floatPtr(300)}, true},
		{"radius below one", TuningConfig{MinIrisRadius: intPtr(0)}, true},
		{"negative px per degree", TuningConfig{PixelsPerDegree: floatPtr(-1)}, true},
		{"negative saccade threshold", TuningConfig{SaccadeThresholdDeg: floatPtr(-5)}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOverrideHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.5, Float(nil, 1.5))
	assert.Equal(t, 2.0, Float(floatPtr(2.0), 1.5))
	assert.Equal(t, 7, Int(nil, 7))
	assert.Equal(t, 9, Int(intPtr(9), 7))
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
