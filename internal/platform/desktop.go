package platform

import (
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ConserveLee/gui-rpa/internal/constants"
)

// keyAliases maps common spellings onto robotgo key names.
var keyAliases = map[string]string{
	"control": "ctrl",
	"escape":  "esc",
	"return":  "enter",
	"win":     "cmd",
	"windows": "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"option":  "alt",
	"del":     "delete",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
}

// RobotDesktop is the real desktop, driven by robotgo and kbinani/screenshot.
type RobotDesktop struct {
	DisplayIndex int
}

// NewDesktop creates a desktop bound to the given display.
func NewDesktop(display int) *RobotDesktop {
	return &RobotDesktop{DisplayIndex: display}
}

// Displays lists the bounds of each active display.
func Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Bounds returns the bounds of the selected display.
func (d *RobotDesktop) Bounds() image.Rectangle {
	return screenshot.GetDisplayBounds(d.DisplayIndex)
}

// Capture grabs rect from the screen.
func (d *RobotDesktop) Capture(rect image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", rect, err)
	}
	return img, nil
}

// CursorPosition returns the pointer location.
func (d *RobotDesktop) CursorPosition() (int, int) {
	return robotgo.Location()
}

// ScreenSize returns the main screen size.
func (d *RobotDesktop) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// KeyPressed reports whether a key or mouse button is held.
func (d *RobotDesktop) KeyPressed(name string) (bool, error) {
	return keyPressed(name)
}

// Title returns the active window title.
func (d *RobotDesktop) Title() (string, error) {
	return robotgo.GetTitle(), nil
}

// ProcessName returns the executable name of the active window's process.
func (d *RobotDesktop) ProcessName() (string, error) {
	pid, err := foregroundPID()
	if err != nil {
		return "", err
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return p.Name()
}

// MoveTo moves the pointer, interpolating over duration when it is positive.
func (d *RobotDesktop) MoveTo(x, y int, duration time.Duration) {
	if duration <= 0 {
		robotgo.Move(x, y)
		return
	}

	sx, sy := robotgo.Location()
	steps := int(duration / constants.MoveStep)
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		robotgo.Move(sx+int(float64(x-sx)*f), sy+int(float64(y-sy)*f))
		time.Sleep(duration / time.Duration(steps))
	}
	robotgo.Move(x, y)
}

// Press pushes a mouse button down.
func (d *RobotDesktop) Press(button string) error {
	return robotgo.Toggle(button)
}

// Release lets a mouse button up.
func (d *RobotDesktop) Release(button string) error {
	return robotgo.Toggle(button, "up")
}

// Paste puts text on the clipboard and sends the platform paste chord.
func (d *RobotDesktop) Paste(text string) error {
	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return robotgo.KeyTap("v", mod)
}

// Scroll scrolls the wheel vertically.
func (d *RobotDesktop) Scroll(ticks int) {
	robotgo.Scroll(0, ticks)
}

// KeyChord taps the last key while holding the others.
func (d *RobotDesktop) KeyChord(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("empty key chord")
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		if alias, ok := keyAliases[k]; ok {
			k = alias
		}
		names[i] = k
	}
	last := names[len(names)-1]
	if len(names) == 1 {
		return robotgo.KeyTap(last)
	}
	return robotgo.KeyTap(last, names[:len(names)-1])
}

// Beep emits an audible alert.
func (d *RobotDesktop) Beep() {
	beep()
}
