package gaze

import "math"

// This file provides synthetic eye-image generation for testing and
// demos. Images are fully deterministic: no randomness, so pipeline
// output over a synthetic session is reproducible bit for bit.

// SyntheticEyeConfig describes one rendered eye crop.
type SyntheticEyeConfig struct {
	Width      int
	Height     int
	IrisX      float64 // iris center, crop coordinates
	IrisY      float64
	IrisRadius float64
	Glint      bool    // render a bright corneal reflection
	GlintX     float64 // glint center; defaults to the iris center when zero
	GlintY     float64
}

// DefaultSyntheticEye returns a centered, high-contrast eye crop with a
// single glint, matching the nominal production crop size. The glint
// defaults to the iris center, which models an on-axis gaze: the glint
// and the pupil center coincide when the subject looks straight at the
// light source.
func DefaultSyntheticEye() SyntheticEyeConfig {
	return SyntheticEyeConfig{
		Width:      64,
		Height:     64,
		IrisX:      32,
		IrisY:      32,
		IrisRadius: 10,
		Glint:      true,
	}
}

// RenderSyntheticEye draws an RGBA eye crop: a light sclera field, a
// dark iris disc with radial texture, a darker pupil, and optionally a
// small saturated glint. The buffer is Width*Height*4 bytes.
func RenderSyntheticEye(cfg SyntheticEyeConfig) []uint8 {
	glintX := cfg.GlintX
	glintY := cfg.GlintY
	if cfg.Glint && glintX == 0 && glintY == 0 {
		glintX = cfg.IrisX
		glintY = cfg.IrisY
	}
	pupilRadius := cfg.IrisRadius * 0.4

	// The glint must be wide enough to survive the enhancement chain's
	// Gaussian blur; a sub-2px spot loses most of its brightness.
	const glintRadiusSq = 6.25

	pix := make([]uint8, cfg.Width*cfg.Height*4)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			dx := float64(x) - cfg.IrisX
			dy := float64(y) - cfg.IrisY
			dist := math.Sqrt(dx*dx + dy*dy)

			var v float64
			switch {
			case dist <= pupilRadius:
				v = 20
			case dist <= cfg.IrisRadius:
				// Radial texture keeps the iris from being perfectly flat,
				// which would defeat sharpness and contrast scoring.
				angle := math.Atan2(dy, dx)
				v = 70 + 25*math.Sin(8*angle)
			default:
				v = 230
			}

			if cfg.Glint {
				gdx := float64(x) - glintX
				gdy := float64(y) - glintY
				if gdx*gdx+gdy*gdy <= glintRadiusSq {
					v = 255
				}
			}

			i := (y*cfg.Width + x) * 4
			p := clampPixel(v)
			pix[i] = p
			pix[i+1] = p
			pix[i+2] = p
			pix[i+3] = 255
		}
	}
	return pix
}

// SyntheticFrameInput builds a full binocular FrameInput from one
// synthetic eye configuration, duplicating the crop for both eyes.
func SyntheticFrameInput(cfg SyntheticEyeConfig) (left, right *EyeInput) {
	pix := RenderSyntheticEye(cfg)
	region := EyeRegion{X: 0, Y: 0, Width: cfg.Width, Height: cfg.Height}
	left = &EyeInput{Region: region, Pixels: pix}

	// Separate buffer per eye: the pipeline never shares input slices.
	pixRight := make([]uint8, len(pix))
	copy(pixRight, pix)
	right = &EyeInput{Region: region, Pixels: pixRight}
	return left, right
}
