// Package platform isolates the OS calls the engine depends on behind small
// capability interfaces, so the engine can be exercised with fakes.
package platform

import (
	"errors"
	"image"
	"time"
)

// ErrUnsupported is returned by queries the current platform cannot answer.
var ErrUnsupported = errors.New("not supported on this platform")

// ScreenCapturer grabs screen pixels.
type ScreenCapturer interface {
	// Bounds is the full-screen rectangle used when no scan region is configured.
	Bounds() image.Rectangle
	// Capture returns the pixels of rect (screen coordinates). The result's
	// bounds start at (0,0).
	Capture(rect image.Rectangle) (*image.RGBA, error)
}

// InputState reads global pointer and keyboard state.
type InputState interface {
	CursorPosition() (x, y int)
	ScreenSize() (w, h int)
	// KeyPressed reports whether the named key or mouse button is held right now.
	KeyPressed(name string) (bool, error)
}

// ForegroundWindow describes the active window.
type ForegroundWindow interface {
	Title() (string, error)
	// ProcessName is the executable name owning the active window.
	ProcessName() (string, error)
}

// Actuator performs pointer and keyboard actions.
type Actuator interface {
	MoveTo(x, y int, duration time.Duration)
	Press(button string) error
	Release(button string) error
	Paste(text string) error
	Scroll(ticks int)
	KeyChord(keys []string) error
	Beep()
}

// Desktop bundles every capability the engine needs.
type Desktop interface {
	ScreenCapturer
	InputState
	ForegroundWindow
	Actuator
}
