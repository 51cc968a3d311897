package screen

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/constants"
)

// Matcher finds a needle inside a haystack.
type Matcher interface {
	Name() string
	// Scales reports whether scaled template variants should be tried.
	Scales() bool
	// Match returns the chosen placement (top-left), its score in [0,1], and
	// whether the score meets threshold. A needle larger than the haystack
	// never matches. stopped is polled at least once per haystack row; once
	// it reports true Match gives up and reports no match. It may be nil.
	Match(haystack, needle *Gray, threshold float64, stopped func() bool) (image.Point, float64, bool)
}

func never() bool { return false }

// NCCMatcher scores placements by zero-mean normalized cross-correlation and
// picks the best one. Large searches compute the correlation numerator with
// an FFT; small ones slide the needle directly.
type NCCMatcher struct{}

// Name implements Matcher.
func (NCCMatcher) Name() string { return config.MatcherNCC }

// Scales implements Matcher.
func (NCCMatcher) Scales() bool { return true }

// Match implements Matcher.
func (NCCMatcher) Match(haystack, needle *Gray, threshold float64, stopped func() bool) (image.Point, float64, bool) {
	w, h := needle.W, needle.H
	if w == 0 || h == 0 || !haystack.Fits(w, h) {
		return image.Point{}, 0, false
	}
	if stopped == nil {
		stopped = never
	}

	n := float64(w * h)
	mean := floats.Sum(needle.Pix) / n
	zero := make([]float64, len(needle.Pix))
	copy(zero, needle.Pix)
	floats.AddConst(-mean, zero)
	tVar := floats.Dot(zero, zero)
	flatNeedle := tVar <= 1e-9*n

	outW, outH := haystack.W-w+1, haystack.H-h+1

	// Σ zero·window, one entry per placement
	var corr []float64
	if !flatNeedle && preferFFT(haystack, w, h) {
		if corr = crossCorrelate(haystack, zero, w, h, stopped); corr == nil {
			return image.Point{}, 0, false
		}
	}

	best := image.Point{}
	bestScore := -1.0

search:
	for y := 0; y < outH; y++ {
		if stopped() {
			return image.Point{}, 0, false
		}
		for x := 0; x < outW; x++ {
			s, sq := haystack.window(x, y, w, h)
			iVar := sq - s*s/n
			flatWindow := iVar <= 1e-9*n

			var score float64
			switch {
			case flatNeedle && flatWindow:
				score = 1
			case flatNeedle || flatWindow:
				score = 0
			default:
				var num float64
				if corr != nil {
					num = corr[y*outW+x]
				} else {
					for r := 0; r < h; r++ {
						num += floats.Dot(zero[r*w:(r+1)*w], haystack.Span(x, y+r, w))
					}
				}
				score = num / math.Sqrt(tVar*iVar)
			}
			score = clampScore(score)

			if score > bestScore {
				bestScore = score
				best = image.Pt(x, y)
				if score >= 1 {
					break search
				}
			}
		}
	}
	return best, bestScore, bestScore >= threshold
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s >= 1-constants.PerfectScoreEps:
		return 1
	}
	return s
}

// PixelMatcher is the reduced-fidelity fallback: a placement scores the
// fraction of pixels within Tolerance of the needle. It returns the first
// placement meeting the threshold and never tries scaled variants.
type PixelMatcher struct {
	Tolerance float64
}

// Name implements Matcher.
func (PixelMatcher) Name() string { return config.MatcherPixel }

// Scales implements Matcher.
func (PixelMatcher) Scales() bool { return false }

// Match implements Matcher.
func (m PixelMatcher) Match(haystack, needle *Gray, threshold float64, stopped func() bool) (image.Point, float64, bool) {
	w, h := needle.W, needle.H
	if w == 0 || h == 0 || !haystack.Fits(w, h) {
		return image.Point{}, 0, false
	}
	if stopped == nil {
		stopped = never
	}
	tol := m.Tolerance
	if tol <= 0 {
		tol = constants.PixelTolerance
	}

	total := w * h
	budget := int(float64(total) * (1 - threshold))

	// Key pixels for quick rejection: top-left, center, bottom-right
	keys := []image.Point{image.Pt(0, 0), image.Pt(w/2, h/2), image.Pt(w-1, h-1)}

	for y := 0; y <= haystack.H-h; y++ {
		if stopped() {
			return image.Point{}, 0, false
		}
		for x := 0; x <= haystack.W-w; x++ {
			keyFails := 0
			for _, k := range keys {
				if math.Abs(haystack.At(x+k.X, y+k.Y)-needle.At(k.X, k.Y)) > tol {
					keyFails++
				}
			}
			if keyFails > budget {
				continue
			}

			// Full check
			fails := 0
			for ty := 0; ty < h && fails <= budget; ty++ {
				row := haystack.Span(x, y+ty, w)
				for tx, v := range row {
					if math.Abs(v-needle.Pix[ty*w+tx]) > tol {
						fails++
						if fails > budget {
							break
						}
					}
				}
			}
			if fails <= budget {
				score := 1 - float64(fails)/float64(total)
				return image.Pt(x, y), score, score >= threshold
			}
		}
	}
	return image.Point{}, 0, false
}

// SelectMatcher picks the matcher named by pref. "auto" runs the correlation
// backend on a synthetic pattern and falls back to PixelMatcher when it
// fails or panics.
func SelectMatcher(pref string) (Matcher, error) {
	switch pref {
	case config.MatcherNCC:
		return NCCMatcher{}, nil
	case config.MatcherPixel:
		return PixelMatcher{Tolerance: constants.PixelTolerance}, nil
	case "", config.MatcherAuto:
		if selfCheck(NCCMatcher{}) {
			return NCCMatcher{}, nil
		}
		return PixelMatcher{Tolerance: constants.PixelTolerance}, nil
	}
	return nil, fmt.Errorf("unknown matcher %q", pref)
}

// selfCheck reports whether m finds a known pattern in a synthetic image.
// The sizes are large enough to take the FFT path.
func selfCheck(m Matcher) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	rng := rand.New(rand.NewSource(1))
	hay := &Gray{W: 64, H: 48, Pix: make([]float64, 64*48)}
	for i := range hay.Pix {
		hay.Pix[i] = float64(rng.Intn(256))
	}
	needle := &Gray{W: 16, H: 12, Pix: make([]float64, 16*12)}
	for y := 0; y < 12; y++ {
		copy(needle.Pix[y*16:(y+1)*16], hay.Span(23, 17+y, 16))
	}

	pt, score, found := m.Match(hay, needle, 0.99, nil)
	return found && pt == image.Pt(23, 17) && score >= 0.99
}
