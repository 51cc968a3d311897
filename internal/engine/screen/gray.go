package screen

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Gray is a row-major grayscale buffer with intensities in [0,255].
type Gray struct {
	W, H int
	Pix  []float64

	// Integral images of Pix and Pix², (W+1)*(H+1), built on first use.
	sum   []float64
	sumSq []float64

	// Padded 2-D spectrum, built by the first FFT correlation against g.
	spec *spectrum
}

// NewGray converts img to grayscale using ITU-R 601 luma weights.
// The result is re-based to (0,0) regardless of img's bounds.
func NewGray(img image.Image) *Gray {
	b := img.Bounds()
	g := &Gray{W: b.Dx(), H: b.Dy(), Pix: make([]float64, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < g.H; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := g.Pix[y*g.W : (y+1)*g.W]
			for x := range row {
				p := src.Pix[off+x*4 : off+x*4+3]
				row[x] = luma(float64(p[0]), float64(p[1]), float64(p[2]))
			}
		}
	case *image.Gray:
		for y := 0; y < g.H; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := g.Pix[y*g.W : (y+1)*g.W]
			for x := range row {
				row[x] = float64(src.Pix[off+x])
			}
		}
	default:
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				g.Pix[y*g.W+x] = luma(float64(r>>8), float64(gg>>8), float64(bb>>8))
			}
		}
	}
	return g
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// Bounds returns the buffer rectangle.
func (g *Gray) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.W, g.H)
}

// Fits reports whether a needle of size w*h fits inside g.
func (g *Gray) Fits(w, h int) bool {
	return w <= g.W && h <= g.H
}

// At returns the intensity at (x, y).
func (g *Gray) At(x, y int) float64 {
	return g.Pix[y*g.W+x]
}

// Span returns w pixels of row y starting at x.
func (g *Gray) Span(x, y, w int) []float64 {
	off := y*g.W + x
	return g.Pix[off : off+w]
}

// Bytes is the approximate memory held by the buffer.
func (g *Gray) Bytes() uint64 {
	n := uint64(len(g.Pix)+len(g.sum)+len(g.sumSq)) * 8
	if g.spec != nil {
		n += uint64(len(g.spec.coeff)) * 16
	}
	return n
}

func (g *Gray) integrals() {
	if g.sum != nil {
		return
	}
	stride := g.W + 1
	g.sum = make([]float64, stride*(g.H+1))
	g.sumSq = make([]float64, stride*(g.H+1))
	for y := 0; y < g.H; y++ {
		var rs, rq float64
		for x := 0; x < g.W; x++ {
			v := g.Pix[y*g.W+x]
			rs += v
			rq += v * v
			i := (y+1)*stride + x + 1
			g.sum[i] = g.sum[i-stride] + rs
			g.sumSq[i] = g.sumSq[i-stride] + rq
		}
	}
}

// window returns the sum and sum of squares of the w*h window at (x, y).
func (g *Gray) window(x, y, w, h int) (sum, sumSq float64) {
	g.integrals()
	stride := g.W + 1
	a := y*stride + x
	b := y*stride + x + w
	c := (y+h)*stride + x
	d := (y+h)*stride + x + w
	return g.sum[d] - g.sum[b] - g.sum[c] + g.sum[a],
		g.sumSq[d] - g.sumSq[b] - g.sumSq[c] + g.sumSq[a]
}

// Image converts the buffer back to an 8-bit gray image.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		img.Pix[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return img
}

// Resize scales the buffer to w*h with bilinear interpolation.
func (g *Gray) Resize(w, h int) *Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), g.Image(), g.Bounds(), draw.Src, nil)
	return NewGray(dst)
}
