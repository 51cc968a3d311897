package screen

import (
	"image"

	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
)

// Locator captures the scan region and searches it for cached templates.
type Locator struct {
	capturer   platform.ScreenCapturer
	cache      *TemplateCache
	matcher    Matcher
	confidence float64
	region     *image.Rectangle
	stopped    func() bool
	log        *logger.Logger
}

// NewLocator creates a locator. region may be nil for the full screen; stopped
// is polled between scaled-variant attempts and by the matcher on every row,
// and may be nil.
func NewLocator(capturer platform.ScreenCapturer, cache *TemplateCache, matcher Matcher, confidence float64, region *image.Rectangle, stopped func() bool, log *logger.Logger) *Locator {
	if stopped == nil {
		stopped = func() bool { return false }
	}
	return &Locator{
		capturer:   capturer,
		cache:      cache,
		matcher:    matcher,
		confidence: confidence,
		region:     region,
		stopped:    stopped,
		log:        log,
	}
}

// ScanRect returns the rectangle captured for each search.
func (l *Locator) ScanRect() image.Rectangle {
	if l.region != nil {
		return *l.region
	}
	return l.capturer.Bounds()
}

// Capture grabs the scan region.
func (l *Locator) Capture() (*image.RGBA, image.Rectangle, error) {
	rect := l.ScanRect()
	img, err := l.capturer.Capture(rect)
	return img, rect, err
}

// Locate returns the absolute screen center of the template at path, or false
// if it is not on screen. Capture and decode failures count as not found.
func (l *Locator) Locate(path string) (image.Point, bool) {
	// 1. Capture Screen
	img, rect, err := l.Capture()
	if err != nil {
		l.log.Debug("Capture failed: %v", err)
		return image.Point{}, false
	}

	// 2. Grayscale once per call
	frame := NewGray(img)
	if l.stopped() {
		return image.Point{}, false
	}

	// 3. Template lookup (lazy decode on a miss)
	tpl, ok := l.cache.Get(path)
	if !ok {
		return image.Point{}, false
	}

	return l.search(frame, tpl, rect.Min)
}

// search runs the unscaled template and then the scaled variants against frame.
func (l *Locator) search(frame *Gray, tpl *Template, origin image.Point) (image.Point, bool) {
	// 4. Unscaled template
	if frame.Fits(tpl.Gray.W, tpl.Gray.H) {
		if pt, score, found := l.matcher.Match(frame, tpl.Gray, l.confidence, l.stopped); found {
			l.log.Debug("Matched %s at scale 1.00 (score %.3f)", tpl.Path, score)
			return center(pt, tpl.Gray, origin), true
		}
	}

	if !l.matcher.Scales() {
		return image.Point{}, false
	}

	// 5. Scaled variants in cache order
	for _, v := range tpl.Variants {
		if l.stopped() {
			return image.Point{}, false
		}
		if !frame.Fits(v.Gray.W, v.Gray.H) {
			continue
		}
		if pt, score, found := l.matcher.Match(frame, v.Gray, l.confidence, l.stopped); found {
			l.log.Debug("Matched %s at scale %.2f (score %.3f)", tpl.Path, v.Scale, score)
			return center(pt, v.Gray, origin), true
		}
	}

	// 6. Nothing matched
	return image.Point{}, false
}

func center(pt image.Point, g *Gray, origin image.Point) image.Point {
	return image.Pt(origin.X+pt.X+g.W/2, origin.Y+pt.Y+g.H/2)
}
