package gaze

import (
	"math"
	"sort"
)

// ReflectionConfig holds the tunable parameters of the glint detector.
type ReflectionConfig struct {
	SearchRadiusFactor float64 // search region as multiple of the iris radius
	MinBrightness      float64 // minimum pixel intensity for a glint seed
	MinLocalContrast   float64 // minimum brightness rise over the surrounding ring
	MaxReflections     int     // cap on reflections reported per eye
	MaxFloodPixels     int     // flood-fill growth cap per candidate
}

// Contrast ring geometry. The enhancement chain's blur flattens a
// glint's immediate 3x3 neighborhood, so contrast is measured against a
// ring outside the typical glint extent instead of adjacent pixels.
const (
	contrastRingRadius  = 4.0
	contrastRingSamples = 16
)

// DefaultReflectionConfig returns the production glint-detector
// parameters.
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		SearchRadiusFactor: 1.2,
		MinBrightness:      200,
		MinLocalContrast:   50,
		MaxReflections:     4,
		MaxFloodPixels:     64,
	}
}

// ReflectionDetector finds bright corneal glints near the iris. A frame
// with no glints is a valid outcome; the gaze estimator then uses its
// iris-displacement fallback.
type ReflectionDetector struct {
	cfg ReflectionConfig
}

// NewReflectionDetector creates a detector, filling zero config fields
// with defaults.
func NewReflectionDetector(cfg ReflectionConfig) *ReflectionDetector {
	def := DefaultReflectionConfig()
	if cfg.SearchRadiusFactor <= 0 {
		cfg.SearchRadiusFactor = def.SearchRadiusFactor
	}
	if cfg.MinBrightness <= 0 {
		cfg.MinBrightness = def.MinBrightness
	}
	if cfg.MinLocalContrast <= 0 {
		cfg.MinLocalContrast = def.MinLocalContrast
	}
	if cfg.MaxReflections <= 0 {
		cfg.MaxReflections = def.MaxReflections
	}
	if cfg.MaxFloodPixels <= 0 {
		cfg.MaxFloodPixels = def.MaxFloodPixels
	}
	return &ReflectionDetector{cfg: cfg}
}

// glintCandidate is one flood-filled bright region: its
// intensity-weighted centroid, peak intensity, and equivalent diameter.
type glintCandidate struct {
	x, y      float64
	intensity float64
	size      float64
}

// Detect scans the region around the iris for local-maximum pixels
// above the brightness threshold with sufficient local contrast, and
// returns up to MaxReflections glints ranked by intensity. The
// candidate closest to the iris center is classified primary.
func (d *ReflectionDetector) Detect(gray []uint8, width, height int, circle IrisCircle) []CornealReflection {
	searchR := int(math.Ceil(float64(circle.Radius) * d.cfg.SearchRadiusFactor))
	if searchR <= 0 {
		return nil
	}

	claimed := make([]bool, width*height)
	var candidates []glintCandidate
	for dy := -searchR; dy <= searchR; dy++ {
		for dx := -searchR; dx <= searchR; dx++ {
			if dx*dx+dy*dy > searchR*searchR {
				continue
			}
			x := circle.CenterX + dx
			y := circle.CenterY + dy
			if x < 1 || y < 1 || x >= width-1 || y >= height-1 {
				continue
			}
			i := y*width + x
			if claimed[i] {
				continue
			}
			v := float64(gray[i])
			if v < d.cfg.MinBrightness {
				continue
			}
			if !d.isLocalMaximum(gray, width, height, x, y, v) {
				continue
			}
			candidates = append(candidates, d.floodExtent(gray, claimed, width, height, x, y))
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	center := Point{X: float64(circle.CenterX), Y: float64(circle.CenterY)}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].intensity != candidates[j].intensity {
			return candidates[i].intensity > candidates[j].intensity
		}
		// Saturated regions tie at peak intensity; resolve toward the
		// iris center so a washed-out sclera blob cannot crowd out the
		// true glint at the cap.
		return center.Dist(Point{X: candidates[i].x, Y: candidates[i].y}) <
			center.Dist(Point{X: candidates[j].x, Y: candidates[j].y})
	})
	if len(candidates) > d.cfg.MaxReflections {
		candidates = candidates[:d.cfg.MaxReflections]
	}

	// Nearest-to-center candidate becomes the primary glint.
	primaryIdx := 0
	primaryDist := math.Inf(1)
	for i, c := range candidates {
		dist := center.Dist(Point{X: c.x, Y: c.y})
		if dist < primaryDist {
			primaryDist = dist
			primaryIdx = i
		}
	}

	reflections := make([]CornealReflection, len(candidates))
	for i, c := range candidates {
		kind := ReflectionSecondary
		if i == primaryIdx {
			kind = ReflectionPrimary
		}
		reflections[i] = CornealReflection{
			Position:   Point{X: c.x, Y: c.y},
			Intensity:  c.intensity,
			SizePx:     c.size,
			Confidence: d.confidence(c, circle),
			Kind:       kind,
		}
	}
	return reflections
}

// isLocalMaximum requires the seed to be at least as bright as all 8
// neighbors and to rise above the mean of the contrast ring by the
// contrast threshold. Ring samples falling outside the image are
// skipped.
func (d *ReflectionDetector) isLocalMaximum(gray []uint8, width, height, x, y int, v float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if float64(gray[(y+dy)*width+x+dx]) > v {
				return false
			}
		}
	}

	var ringSum float64
	var ringCount int
	for i := 0; i < contrastRingSamples; i++ {
		theta := 2 * math.Pi * float64(i) / contrastRingSamples
		rx := x + int(math.Round(contrastRingRadius*math.Cos(theta)))
		ry := y + int(math.Round(contrastRingRadius*math.Sin(theta)))
		if rx < 0 || ry < 0 || rx >= width || ry >= height {
			continue
		}
		ringSum += float64(gray[ry*width+rx])
		ringCount++
	}
	if ringCount == 0 {
		return false
	}
	return v-ringSum/float64(ringCount) >= d.cfg.MinLocalContrast
}

// floodExtent grows a 4-connected region of bright pixels from the
// seed, capped to prevent runaway growth on saturated frames, and
// summarizes it as a candidate: intensity-weighted centroid, peak
// intensity, and equivalent circular diameter. The centroid, not the
// seed, is the glint position: the seed is merely the first bright
// pixel the scan reaches and sits at the region's edge. Visited pixels
// are claimed so overlapping seeds collapse into one candidate.
func (d *ReflectionDetector) floodExtent(gray []uint8, claimed []bool, width, height, seedX, seedY int) glintCandidate {
	stack := [][2]int{{seedX, seedY}}
	claimed[seedY*width+seedX] = true
	count := 0
	var weightSum, xSum, ySum, peak float64
	for len(stack) > 0 && count < d.cfg.MaxFloodPixels {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++

		w := float64(gray[p[1]*width+p[0]])
		weightSum += w
		xSum += w * float64(p[0])
		ySum += w * float64(p[1])
		if w > peak {
			peak = w
		}

		for _, n := range [][2]int{{p[0] - 1, p[1]}, {p[0] + 1, p[1]}, {p[0], p[1] - 1}, {p[0], p[1] + 1}} {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			i := ny*width + nx
			if claimed[i] || float64(gray[i]) < d.cfg.MinBrightness {
				continue
			}
			claimed[i] = true
			stack = append(stack, n)
		}
	}

	c := glintCandidate{
		x:         float64(seedX),
		y:         float64(seedY),
		intensity: peak,
		// Equivalent circular diameter of the filled area.
		size: 2 * math.Sqrt(float64(count)/math.Pi),
	}
	if weightSum > 0 {
		c.x = xSum / weightSum
		c.y = ySum / weightSum
	}
	return c
}

// confidence blends normalized intensity, size, and positional
// plausibility relative to the iris.
func (d *ReflectionDetector) confidence(c glintCandidate, circle IrisCircle) float64 {
	intensityScore := clamp01((c.intensity - d.cfg.MinBrightness) / (255 - d.cfg.MinBrightness))

	// Glints a few pixels across are most plausible; very large blobs
	// are usually sclera washout.
	sizeScore := clamp01(1.0 - math.Abs(c.size-3.0)/8.0)

	center := Point{X: float64(circle.CenterX), Y: float64(circle.CenterY)}
	dist := center.Dist(Point{X: c.x, Y: c.y})
	posScore := clamp01(1.0 - dist/(float64(circle.Radius)*d.cfg.SearchRadiusFactor))

	return clamp01(0.5*intensityScore + 0.2*sizeScore + 0.3*posScore)
}
