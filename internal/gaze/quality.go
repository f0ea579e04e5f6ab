package gaze

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Quality component weights. Overall quality is a fixed weighted sum of
// the four components.
const (
	qualityWeightSharpness  = 0.30
	qualityWeightContrast   = 0.25
	qualityWeightVisibility = 0.25
	qualityWeightStability  = 0.20

	// visibilitySamples is the number of points sampled straddling the
	// iris boundary for the visibility score.
	visibilitySamples = 32

	// Normalization ceilings mapping raw statistics onto [0, 1].
	sharpnessNormCeiling  = 1500.0 // Laplacian response variance
	contrastNormCeiling   = 60.0   // intensity standard deviation
	visibilityNormCeiling = 80.0   // mean boundary brightness step
)

// AssessQuality scores a detected iris for sharpness, contrast,
// visibility, and frame-to-frame stability. prev is the caller-owned
// one-slot cache for the same eye side; it is updated in place. A nil
// prev is accepted for one-shot scoring and skips the cache. The first
// frame for an eye defaults to stability 1.0.
func AssessQuality(gray []uint8, width, height int, circle IrisCircle, center Point, prev *PreviousIrisState) IrisQuality {
	q := IrisQuality{
		Sharpness:  sharpnessScore(gray, width, height, circle),
		Contrast:   contrastScore(gray, width, height, circle),
		Visibility: visibilityScore(gray, width, height, circle),
		Stability:  stabilityScore(circle, center, prev),
	}
	q.Overall = clamp01(qualityWeightSharpness*q.Sharpness +
		qualityWeightContrast*q.Contrast +
		qualityWeightVisibility*q.Visibility +
		qualityWeightStability*q.Stability)

	if prev != nil {
		prev.CenterX = center.X
		prev.CenterY = center.Y
		prev.Radius = float64(circle.Radius)
		prev.Seen = true
	}
	return q
}

// irisSamples collects the intensities of pixels inside the iris disc.
func irisSamples(gray []uint8, width, height int, circle IrisCircle) []float64 {
	r := circle.Radius
	samples := make([]float64, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x := circle.CenterX + dx
			y := circle.CenterY + dy
			if x < 0 || y < 0 || x >= width || y >= height {
				continue
			}
			samples = append(samples, float64(gray[y*width+x]))
		}
	}
	return samples
}

// sharpnessScore is the normalized variance of the 4-neighbor Laplacian
// response inside the iris disc. Blurry frames produce a flat response
// and score near zero.
func sharpnessScore(gray []uint8, width, height int, circle IrisCircle) float64 {
	r := circle.Radius
	var responses []float64
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x := circle.CenterX + dx
			y := circle.CenterY + dy
			if x < 1 || y < 1 || x >= width-1 || y >= height-1 {
				continue
			}
			i := y*width + x
			lap := 4*float64(gray[i]) - float64(gray[i-1]) - float64(gray[i+1]) -
				float64(gray[i-width]) - float64(gray[i+width])
			responses = append(responses, lap)
		}
	}
	if len(responses) < 2 {
		return 0
	}
	variance := stat.Variance(responses, nil)
	return clamp01(finiteOrZero(variance) / sharpnessNormCeiling)
}

// contrastScore is the normalized standard deviation of intensity
// inside the iris disc.
func contrastScore(gray []uint8, width, height int, circle IrisCircle) float64 {
	samples := irisSamples(gray, width, height, circle)
	if len(samples) < 2 {
		return 0
	}
	sd := stat.StdDev(samples, nil)
	return clamp01(finiteOrZero(sd) / contrastNormCeiling)
}

// visibilityScore samples the brightness discontinuity straddling the
// iris boundary at evenly spaced angles. A well-visible boundary shows a
// consistent dark-inside/bright-outside step; occlusion by the eyelid
// flattens it.
func visibilityScore(gray []uint8, width, height int, circle IrisCircle) float64 {
	r := float64(circle.Radius)
	if r <= 2 {
		return 0
	}
	inner := r - 2
	outer := r + 2

	var stepSum float64
	var count int
	for i := 0; i < visibilitySamples; i++ {
		theta := 2 * math.Pi * float64(i) / visibilitySamples
		ix := circle.CenterX + int(math.Round(inner*math.Cos(theta)))
		iy := circle.CenterY + int(math.Round(inner*math.Sin(theta)))
		ox := circle.CenterX + int(math.Round(outer*math.Cos(theta)))
		oy := circle.CenterY + int(math.Round(outer*math.Sin(theta)))
		if ix < 0 || iy < 0 || ix >= width || iy >= height {
			continue
		}
		if ox < 0 || oy < 0 || ox >= width || oy >= height {
			continue
		}
		stepSum += math.Abs(float64(gray[oy*width+ox]) - float64(gray[iy*width+ix]))
		count++
	}
	if count == 0 {
		return 0
	}
	return clamp01(stepSum / float64(count) / visibilityNormCeiling)
}

// stabilityScore is the inverse of the frame-to-frame center and radius
// displacement. A missing previous sample scores 1.0 so the first frame
// of a session is not penalized.
func stabilityScore(circle IrisCircle, center Point, prev *PreviousIrisState) float64 {
	if prev == nil || !prev.Seen {
		return 1.0
	}
	centerShift := center.Dist(Point{X: prev.CenterX, Y: prev.CenterY})
	radiusShift := math.Abs(float64(circle.Radius) - prev.Radius)

	// Displacement is normalized against the iris radius so stability is
	// scale-independent.
	r := float64(circle.Radius)
	if r <= 0 {
		return 0
	}
	return clamp01(1.0 - (centerShift+radiusShift)/r)
}
