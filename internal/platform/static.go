package platform

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// StaticScreen is a ScreenCapturer over a fixed image, such as a saved
// screenshot. Image coordinates are treated as screen coordinates.
type StaticScreen struct {
	mu  sync.RWMutex
	img image.Image
	err error
}

// NewStaticScreen creates a capturer that always returns img.
func NewStaticScreen(img image.Image) *StaticScreen {
	return &StaticScreen{img: img}
}

// Set swaps the image returned by later captures.
func (s *StaticScreen) Set(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = img
}

// Fail makes later captures return err (nil clears it).
func (s *StaticScreen) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Bounds implements ScreenCapturer.
func (s *StaticScreen) Bounds() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.Bounds()
}

// Capture implements ScreenCapturer.
func (s *StaticScreen) Capture(rect image.Rectangle) (*image.RGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	area := rect.Intersect(s.img.Bounds())
	if area.Empty() {
		return nil, fmt.Errorf("capture rect %v outside screen %v", rect, s.img.Bounds())
	}

	out := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(out, out.Bounds(), s.img, area.Min, draw.Src)
	return out, nil
}
