package gaze

import "math"

// Sub-pixel refinement guards. Fewer qualifying pixels than the minimum,
// or a refined center displaced more than half a radius from the
// integer center, indicates the moments were dominated by noise; the
// refiner then falls back to the integer center.
const (
	subPixelMinPixels = 10
)

// RefineCenter recomputes the iris center with fractional-pixel
// accuracy using intensity-weighted image moments over the pixels
// inside the boundary circle. The dark iris against a lighter sclera
// means weights are inverted intensity.
//
// The fallback to the integer center is a robustness guard, not an
// error: the caller always receives a usable center.
func RefineCenter(gray []uint8, width, height int, circle IrisCircle) Point {
	integer := Point{X: float64(circle.CenterX), Y: float64(circle.CenterY)}
	r := circle.Radius
	if r <= 0 {
		return integer
	}

	var m00, m10, m01 float64
	var count int
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
			w := 255.0 - float64(gray[y*width+x])
			if w <= 0 {
				continue
			}
			m00 += w
			m10 += w * float64(x)
			m01 += w * float64(y)
			count++
		}
	}

	if count < subPixelMinPixels || m00 == 0 {
		return integer
	}

	refined := Point{X: m10 / m00, Y: m01 / m00}
	if math.IsNaN(refined.X) || math.IsNaN(refined.Y) {
		return integer
	}
	if refined.Dist(integer) > float64(r)/2 {
		return integer
	}
	return refined
}
