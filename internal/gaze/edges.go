package gaze

import "math"

// Edge-detection thresholds for the Canny-style chain feeding the
// circle transform. Values are gradient magnitudes on the 0-255 scale.
const (
	edgeHighThreshold = 80.0
	edgeLowThreshold  = 30.0
)

// gradientField holds per-pixel Sobel gradient magnitude and direction.
type gradientField struct {
	magnitude []float64
	direction []float64
	width     int
	height    int
}

// sobelGradient computes gradient magnitude and direction with 3x3
// Sobel kernels. Border pixels are left at zero magnitude.
func sobelGradient(gray []uint8, width, height int) gradientField {
	g := gradientField{
		magnitude: make([]float64, width*height),
		direction: make([]float64, width*height),
		width:     width,
		height:    height,
	}
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			tl := float64(gray[(y-1)*width+x-1])
			tc := float64(gray[(y-1)*width+x])
			tr := float64(gray[(y-1)*width+x+1])
			ml := float64(gray[y*width+x-1])
			mr := float64(gray[y*width+x+1])
			bl := float64(gray[(y+1)*width+x-1])
			bc := float64(gray[(y+1)*width+x])
			br := float64(gray[(y+1)*width+x+1])

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)

			i := y*width + x
			g.magnitude[i] = math.Sqrt(gx*gx+gy*gy) / 4.0
			g.direction[i] = math.Atan2(gy, gx)
		}
	}
	return g
}

// nonMaxSuppress thins edges by zeroing pixels that are not the local
// maximum along their gradient direction.
func nonMaxSuppress(g gradientField) []float64 {
	out := make([]float64, len(g.magnitude))
	for y := 1; y < g.height-1; y++ {
		for x := 1; x < g.width-1; x++ {
			i := y*g.width + x
			m := g.magnitude[i]
			if m == 0 {
				continue
			}

			// Quantize the gradient direction to one of four neighbor axes.
			angle := g.direction[i]
			if angle < 0 {
				angle += math.Pi
			}
			var n1, n2 float64
			switch {
			case angle < math.Pi/8 || angle >= 7*math.Pi/8:
				n1, n2 = g.magnitude[i-1], g.magnitude[i+1]
			case angle < 3*math.Pi/8:
				n1, n2 = g.magnitude[(y-1)*g.width+x+1], g.magnitude[(y+1)*g.width+x-1]
			case angle < 5*math.Pi/8:
				n1, n2 = g.magnitude[(y-1)*g.width+x], g.magnitude[(y+1)*g.width+x]
			default:
				n1, n2 = g.magnitude[(y-1)*g.width+x-1], g.magnitude[(y+1)*g.width+x+1]
			}
			if m >= n1 && m >= n2 {
				out[i] = m
			}
		}
	}
	return out
}

// hysteresisLink produces the final binary edge map: strong edges seed a
// flood fill that keeps weak edges only when 8-connected to a strong
// one. Isolated weak edges are discarded.
func hysteresisLink(thinned []float64, width, height int, low, high float64) []bool {
	edges := make([]bool, len(thinned))
	visited := make([]bool, len(thinned))
	stack := make([]int, 0, 256)

	for i, m := range thinned {
		if m < high || visited[i] {
			continue
		}
		stack = append(stack, i)
		visited[i] = true
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			edges[j] = true

			jx := j % width
			jy := j / width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx := jx + dx
					ny := jy + dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					n := ny*width + nx
					if !visited[n] && thinned[n] >= low {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return edges
}

// detectEdges runs the full edge chain on a preprocessed buffer.
func detectEdges(gray []uint8, width, height int) []bool {
	g := sobelGradient(gray, width, height)
	thinned := nonMaxSuppress(g)
	return hysteresisLink(thinned, width, height, edgeLowThreshold, edgeHighThreshold)
}
