package gaze

import "math"

// Luminance channel weights tuned for iris imagery. Iris texture
// contrasts more strongly against the green channel than red or blue,
// so green carries most of the weight.
const (
	lumaWeightR = 0.25
	lumaWeightG = 0.60
	lumaWeightB = 0.15
)

// PreprocessConfig holds the tunable parameters of the enhancement
// chain. Zero values are replaced by defaults in NewPreprocessor.
type PreprocessConfig struct {
	GaussianSigma    float64 // blur sigma, kernel radius derived as ceil(3*sigma)
	ClaheTileSize    int     // CLAHE tile edge length in pixels
	ClaheClipLimit   float64 // histogram clip limit as multiple of the uniform bin height
	UnsharpAmount    float64 // edge amplification factor
	UnsharpThreshold float64 // minimum blurred-difference magnitude to amplify
}

// DefaultPreprocessConfig returns the production enhancement parameters.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		GaussianSigma:    1.0,
		ClaheTileSize:    16,
		ClaheClipLimit:   2.0,
		UnsharpAmount:    1.5,
		UnsharpThreshold: 0.5,
	}
}

// Preprocessor turns a raw RGBA eye crop into a noise-reduced,
// contrast-normalized, edge-enhanced grayscale buffer. It has no error
// conditions: degenerate (flat) input produces flat output and is
// handled downstream by low-confidence scoring.
type Preprocessor struct {
	cfg    PreprocessConfig
	kernel []float64 // precomputed 1D Gaussian kernel
}

// NewPreprocessor creates a Preprocessor, filling zero config fields
// with defaults and precomputing the separable Gaussian kernel.
func NewPreprocessor(cfg PreprocessConfig) *Preprocessor {
	def := DefaultPreprocessConfig()
	if cfg.GaussianSigma <= 0 {
		cfg.GaussianSigma = def.GaussianSigma
	}
	if cfg.ClaheTileSize <= 0 {
		cfg.ClaheTileSize = def.ClaheTileSize
	}
	if cfg.ClaheClipLimit <= 0 {
		cfg.ClaheClipLimit = def.ClaheClipLimit
	}
	if cfg.UnsharpAmount <= 0 {
		cfg.UnsharpAmount = def.UnsharpAmount
	}
	if cfg.UnsharpThreshold <= 0 {
		cfg.UnsharpThreshold = def.UnsharpThreshold
	}
	return &Preprocessor{
		cfg:    cfg,
		kernel: gaussianKernel(cfg.GaussianSigma),
	}
}

// Process runs the full enhancement chain on an RGBA pixel buffer of
// the given dimensions and returns a grayscale buffer of equal size.
// rgba must hold width*height*4 bytes.
func (p *Preprocessor) Process(rgba []uint8, width, height int) []uint8 {
	gray := toLuminance(rgba, width, height)
	blurred := gaussianBlur(gray, width, height, p.kernel)
	equalized := claheEqualize(blurred, width, height, p.cfg.ClaheTileSize, p.cfg.ClaheClipLimit)
	return unsharpMask(equalized, width, height, p.kernel, p.cfg.UnsharpAmount, p.cfg.UnsharpThreshold)
}

// toLuminance converts RGBA to grayscale with the iris-optimized
// green-weighted channel mix.
func toLuminance(rgba []uint8, width, height int) []uint8 {
	gray := make([]uint8, width*height)
	for i := 0; i < width*height; i++ {
		r := float64(rgba[i*4])
		g := float64(rgba[i*4+1])
		b := float64(rgba[i*4+2])
		v := lumaWeightR*r + lumaWeightG*g + lumaWeightB*b
		gray[i] = clampPixel(v)
	}
	return gray
}

// gaussianKernel builds a normalized 1D kernel with radius ceil(3*sigma).
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianBlur applies the separable kernel horizontally then
// vertically, clamping sample coordinates at the image border.
func gaussianBlur(gray []uint8, width, height int, kernel []float64) []uint8 {
	radius := len(kernel) / 2
	tmp := make([]float64, width*height)
	out := make([]uint8, width*height)

	// Horizontal pass
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				sx := clampIndex(x+k, width)
				acc += float64(gray[y*width+sx]) * kernel[k+radius]
			}
			tmp[y*width+x] = acc
		}
	}

	// Vertical pass
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				sy := clampIndex(y+k, height)
				acc += tmp[sy*width+x] * kernel[k+radius]
			}
			out[y*width+x] = clampPixel(acc)
		}
	}
	return out
}

// claheEqualize performs tiled contrast-limited adaptive histogram
// equalization. Each tile's histogram is clipped at clipLimit times the
// uniform bin height, the excess is redistributed evenly, and the tile
// is remapped through its cumulative distribution.
func claheEqualize(gray []uint8, width, height, tileSize int, clipLimit float64) []uint8 {
	out := make([]uint8, len(gray))
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0 := tx * tileSize
			y0 := ty * tileSize
			x1 := minInt(x0+tileSize, width)
			y1 := minInt(y0+tileSize, height)
			equalizeTile(gray, out, width, x0, y0, x1, y1, clipLimit)
		}
	}
	return out
}

// equalizeTile remaps one tile through its clipped CDF.
func equalizeTile(gray, out []uint8, width, x0, y0, x1, y1 int, clipLimit float64) {
	var hist [256]float64
	pixels := float64((x1 - x0) * (y1 - y0))
	if pixels == 0 {
		return
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[gray[y*width+x]]++
		}
	}

	// Clip and redistribute excess so local noise is not over-amplified.
	clipHeight := clipLimit * pixels / 256.0
	var excess float64
	for i := range hist {
		if hist[i] > clipHeight {
			excess += hist[i] - clipHeight
			hist[i] = clipHeight
		}
	}
	redistribute := excess / 256.0
	for i := range hist {
		hist[i] += redistribute
	}

	// Remap through the cumulative distribution.
	var cdf [256]float64
	var cum float64
	for i := range hist {
		cum += hist[i]
		cdf[i] = cum
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := gray[y*width+x]
			out[y*width+x] = clampPixel(cdf[v] / pixels * 255.0)
		}
	}
}

// unsharpMask restores edge definition lost to blurring by amplifying
// the difference between the image and its blurred copy. Differences
// below threshold are left untouched to avoid sharpening noise.
func unsharpMask(gray []uint8, width, height int, kernel []float64, amount, threshold float64) []uint8 {
	blurred := gaussianBlur(gray, width, height, kernel)
	out := make([]uint8, len(gray))
	for i := range gray {
		diff := float64(gray[i]) - float64(blurred[i])
		if math.Abs(diff) > threshold {
			out[i] = clampPixel(float64(gray[i]) + amount*diff)
		} else {
			out[i] = gray[i]
		}
	}
	return out
}

func clampPixel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
