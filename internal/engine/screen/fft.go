package screen

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fftCost scales the n·log2(n) estimate of the spectral path against the
// multiply count of sliding the needle directly.
const fftCost = 6

// spectrum is the 2-D real FFT of a buffer zero-padded to cols*rows. Row y
// holds the cols/2+1 non-redundant coefficients of that row.
type spectrum struct {
	cols, rows int
	half       int
	coeff      []complex128
}

// fastLen returns the smallest n >= size whose only prime factors are 2, 3 and 5.
func fastLen(size int) int {
	for n := max(size, 1); ; n++ {
		m := n
		for _, p := range []int{2, 3, 5} {
			for m%p == 0 {
				m /= p
			}
		}
		if m == 1 {
			return n
		}
	}
}

// preferFFT reports whether correlating a w*h needle over haystack is cheaper
// in the frequency domain.
func preferFFT(haystack *Gray, w, h int) bool {
	direct := float64(haystack.W-w+1) * float64(haystack.H-h+1) * float64(w*h)
	p := float64(fastLen(haystack.W) * fastLen(haystack.H))
	return direct > fftCost*p*math.Log2(p)
}

// forward transforms the w*h pixels of src padded with zeros to cols*rows.
// It returns nil once stopped reports true.
func forward(src []float64, w, h, cols, rows int, stopped func() bool) *spectrum {
	s := &spectrum{cols: cols, rows: rows, half: cols/2 + 1}
	s.coeff = make([]complex128, rows*s.half)

	rowFFT := fourier.NewFFT(cols)
	line := make([]float64, cols)
	for y := 0; y < h; y++ {
		if stopped() {
			return nil
		}
		copy(line, src[y*w:(y+1)*w])
		rowFFT.Coefficients(s.coeff[y*s.half:(y+1)*s.half], line)
	}
	if !s.columns(false, stopped) {
		return nil
	}
	return s
}

// columns runs the complex FFT (or its inverse) down every coefficient column.
func (s *spectrum) columns(inverse bool, stopped func() bool) bool {
	colFFT := fourier.NewCmplxFFT(s.rows)
	col := make([]complex128, s.rows)
	for k := 0; k < s.half; k++ {
		if stopped() {
			return false
		}
		for y := range col {
			col[y] = s.coeff[y*s.half+k]
		}
		if inverse {
			colFFT.Sequence(col, col)
		} else {
			colFFT.Coefficients(col, col)
		}
		for y, v := range col {
			s.coeff[y*s.half+k] = v
		}
	}
	return true
}

// transform returns the spectrum of g padded to fast FFT sizes, computing it
// on first use. An interrupted transform is not cached.
func (g *Gray) transform(stopped func() bool) *spectrum {
	if g.spec == nil {
		g.spec = forward(g.Pix, g.W, g.H, fastLen(g.W), fastLen(g.H), stopped)
	}
	return g.spec
}

// crossCorrelate returns, for every placement (x, y) of the w*h kernel inside
// haystack, the sum of kernel[i,j]*haystack[x+i,y+j]. The result is row-major
// with haystack.W-w+1 columns. It returns nil once stopped reports true.
//
// The padded size covers the haystack, so the circular correlation never
// wraps for a valid placement.
func crossCorrelate(haystack *Gray, kernel []float64, w, h int, stopped func() bool) []float64 {
	hs := haystack.transform(stopped)
	if hs == nil {
		return nil
	}
	ks := forward(kernel, w, h, hs.cols, hs.rows, stopped)
	if ks == nil {
		return nil
	}

	for i, v := range ks.coeff {
		ks.coeff[i] = hs.coeff[i] * cmplx.Conj(v)
	}
	if !ks.columns(true, stopped) {
		return nil
	}

	outW, outH := haystack.W-w+1, haystack.H-h+1
	out := make([]float64, outW*outH)
	scale := 1 / float64(ks.cols*ks.rows)
	rowFFT := fourier.NewFFT(ks.cols)
	line := make([]float64, ks.cols)
	for y := 0; y < outH; y++ {
		if stopped() {
			return nil
		}
		rowFFT.Sequence(line, ks.coeff[y*ks.half:(y+1)*ks.half])
		dst := out[y*outW : (y+1)*outW]
		for x := range dst {
			dst[x] = line[x] * scale
		}
	}
	return out
}
