package gaze

import (
	"errors"
	"math"
)

// ErrNoIrisBoundary is returned when no circle candidate clears the
// vote threshold. Callers must treat the eye as untracked for the frame
// rather than retry within the same frame.
var ErrNoIrisBoundary = errors.New("no iris boundary detected")

// achievableVoteFraction is the share of the full-circle vote count the
// best accumulator cell collects for a clean circle. Integer
// quantization of (x, y, r) scatters the remaining votes across
// neighboring cells, so the theoretical full count is unreachable even
// on ideal input; confidence is normalized against this ceiling.
const achievableVoteFraction = 0.7

// BoundaryConfig holds the tunable parameters of the circle detector.
type BoundaryConfig struct {
	MinRadius              int     // smallest iris radius considered, pixels
	MaxRadiusFraction      float64 // largest radius as fraction of the smaller image dimension
	VoteFraction           float64 // minimum votes as fraction of a full-circle vote count
	AngleSteps             int     // vote directions swept per (pixel, radius) pair
	ExpectedRadiusFraction float64 // expected iris radius as fraction of eye-region size
}

// DefaultBoundaryConfig returns the production circle-detector
// parameters.
func DefaultBoundaryConfig() BoundaryConfig {
	return BoundaryConfig{
		MinRadius:              8,
		MaxRadiusFraction:      1.0 / 3.0,
		VoteFraction:           0.30,
		AngleSteps:             36,
		ExpectedRadiusFraction: 0.15,
	}
}

// BoundaryDetector finds the best-fit iris circle in a preprocessed eye
// buffer via edge detection followed by Hough circle voting.
type BoundaryDetector struct {
	cfg BoundaryConfig
}

// NewBoundaryDetector creates a detector, filling zero config fields
// with defaults.
func NewBoundaryDetector(cfg BoundaryConfig) *BoundaryDetector {
	def := DefaultBoundaryConfig()
	if cfg.MinRadius <= 0 {
		cfg.MinRadius = def.MinRadius
	}
	if cfg.MaxRadiusFraction <= 0 {
		cfg.MaxRadiusFraction = def.MaxRadiusFraction
	}
	if cfg.VoteFraction <= 0 {
		cfg.VoteFraction = def.VoteFraction
	}
	if cfg.AngleSteps <= 0 {
		cfg.AngleSteps = def.AngleSteps
	}
	if cfg.ExpectedRadiusFraction <= 0 {
		cfg.ExpectedRadiusFraction = def.ExpectedRadiusFraction
	}
	return &BoundaryDetector{cfg: cfg}
}

// circleCandidate is one accumulator cell that cleared the vote
// threshold, before composite ranking.
type circleCandidate struct {
	circle IrisCircle
	score  float64
}

// Detect returns the best iris circle for a preprocessed buffer, or
// ErrNoIrisBoundary when no candidate clears the vote threshold.
func (d *BoundaryDetector) Detect(gray []uint8, width, height int) (IrisCircle, error) {
	minDim := minInt(width, height)
	maxRadius := int(float64(minDim) * d.cfg.MaxRadiusFraction)
	if maxRadius < d.cfg.MinRadius {
		return IrisCircle{}, ErrNoIrisBoundary
	}

	edges := detectEdges(gray, width, height)
	acc := d.vote(edges, width, height, maxRadius)
	candidates := d.collect(acc, width, height, maxRadius)
	if len(candidates) == 0 {
		return IrisCircle{}, ErrNoIrisBoundary
	}

	best := d.rank(candidates, width, height)
	return best, nil
}

// vote fills a fixed 3D accumulator indexed by quantized (x, y, radius).
// A flat array keyed by quantized coordinates keeps memory predictable
// regardless of edge density.
func (d *BoundaryDetector) vote(edges []bool, width, height, maxRadius int) []uint16 {
	numRadii := maxRadius - d.cfg.MinRadius + 1
	acc := make([]uint16, numRadii*width*height)
	angleStep := 2 * math.Pi / float64(d.cfg.AngleSteps)

	for i, isEdge := range edges {
		if !isEdge {
			continue
		}
		ex := i % width
		ey := i / width
		for r := d.cfg.MinRadius; r <= maxRadius; r++ {
			ri := r - d.cfg.MinRadius
			for a := 0; a < d.cfg.AngleSteps; a++ {
				theta := float64(a) * angleStep
				cx := ex - int(math.Round(float64(r)*math.Cos(theta)))
				cy := ey - int(math.Round(float64(r)*math.Sin(theta)))
				if cx < 0 || cy < 0 || cx >= width || cy >= height {
					continue
				}
				acc[(ri*height+cy)*width+cx]++
			}
		}
	}
	return acc
}

// collect extracts accumulator cells whose votes exceed the threshold
// fraction of a full-circle vote count.
func (d *BoundaryDetector) collect(acc []uint16, width, height, maxRadius int) []circleCandidate {
	threshold := uint16(d.cfg.VoteFraction * float64(d.cfg.AngleSteps))
	if threshold == 0 {
		threshold = 1
	}

	var candidates []circleCandidate
	for ri := 0; ri <= maxRadius-d.cfg.MinRadius; ri++ {
		for cy := 0; cy < height; cy++ {
			for cx := 0; cx < width; cx++ {
				votes := acc[(ri*height+cy)*width+cx]
				if votes < threshold {
					continue
				}
				conf := clamp01(float64(votes) / (achievableVoteFraction * float64(d.cfg.AngleSteps)))
				candidates = append(candidates, circleCandidate{
					circle: IrisCircle{
						CenterX:    cx,
						CenterY:    cy,
						Radius:     ri + d.cfg.MinRadius,
						Confidence: conf,
					},
				})
			}
		}
	}
	return candidates
}

// rank scores candidates by detection confidence weighted by proximity
// to the image center and to the expected iris radius, and returns the
// top-ranked circle.
func (d *BoundaryDetector) rank(candidates []circleCandidate, width, height int) IrisCircle {
	centerX := float64(width) / 2
	centerY := float64(height) / 2
	maxDist := math.Sqrt(centerX*centerX + centerY*centerY)
	expectedRadius := d.cfg.ExpectedRadiusFraction * float64(minInt(width, height))

	best := candidates[0]
	best.score = -1
	for _, c := range candidates {
		dx := float64(c.circle.CenterX) - centerX
		dy := float64(c.circle.CenterY) - centerY
		centerScore := 1.0 - math.Sqrt(dx*dx+dy*dy)/maxDist

		radiusScore := 1.0 - math.Abs(float64(c.circle.Radius)-expectedRadius)/expectedRadius
		if radiusScore < 0 {
			radiusScore = 0
		}

		c.score = c.circle.Confidence * centerScore * radiusScore
		if c.score > best.score {
			best = c
		}
	}
	return best.circle
}
