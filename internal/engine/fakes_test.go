package engine

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
)

// fakeDesktop records actuator calls and serves scripted input state.
type fakeDesktop struct {
	*platform.StaticScreen

	mu      sync.Mutex
	events  []string
	cursor  image.Point
	size    image.Point
	keys    map[string]bool
	keyErr  error
	title   string
	process string

	keyPolls   atomic.Int32
	titlePolls atomic.Int32
	beeps      atomic.Int32
	scrolls    atomic.Int32
	pastes     atomic.Int32
	panicOn    string
	// pasteGate, when set, holds every Paste until it is closed.
	pasteGate chan struct{}
}

func newFakeDesktop() *fakeDesktop {
	return &fakeDesktop{
		StaticScreen: platform.NewStaticScreen(image.NewRGBA(image.Rect(0, 0, 200, 150))),
		cursor:       image.Pt(50, 50),
		size:         image.Pt(200, 150),
		keys:         map[string]bool{},
		title:        "Editor",
		process:      "editor.exe",
	}
}

func (d *fakeDesktop) record(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDesktop) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *fakeDesktop) SetKey(name string, pressed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[name] = pressed
}

func (d *fakeDesktop) SetCursor(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = image.Pt(x, y)
}

func (d *fakeDesktop) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

func (d *fakeDesktop) CursorPosition() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor.X, d.cursor.Y
}

func (d *fakeDesktop) ScreenSize() (int, int) {
	return d.size.X, d.size.Y
}

func (d *fakeDesktop) KeyPressed(name string) (bool, error) {
	d.keyPolls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keyErr != nil {
		return false, d.keyErr
	}
	return d.keys[name], nil
}

func (d *fakeDesktop) Title() (string, error) {
	d.titlePolls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title, nil
}

func (d *fakeDesktop) ProcessName() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.process == "" {
		return "", platform.ErrUnsupported
	}
	return d.process, nil
}

func (d *fakeDesktop) MoveTo(x, y int, _ time.Duration) { d.record("move %d,%d", x, y) }

func (d *fakeDesktop) Press(button string) error {
	d.record("press %s", button)
	return nil
}

func (d *fakeDesktop) Release(button string) error {
	d.record("release %s", button)
	return nil
}

func (d *fakeDesktop) Paste(text string) error {
	d.pastes.Add(1)
	if d.pasteGate != nil {
		<-d.pasteGate
	}
	d.record("paste %s", text)
	return nil
}

func (d *fakeDesktop) Scroll(ticks int) {
	if d.panicOn == "scroll" {
		panic("scroll wheel missing")
	}
	d.scrolls.Add(1)
	d.record("scroll %d", ticks)
}

func (d *fakeDesktop) KeyChord(keys []string) error {
	d.record("chord %v", keys)
	return nil
}

func (d *fakeDesktop) Beep() { d.beeps.Add(1) }

// fakeLocator answers Locate from a fixed result and counts calls.
type fakeLocator struct {
	pt    image.Point
	found bool
	calls atomic.Int32
	frame *image.RGBA
	// during runs inside Locate, before the result is returned.
	during func()
}

func (l *fakeLocator) Locate(string) (image.Point, bool) {
	l.calls.Add(1)
	if l.during != nil {
		l.during()
	}
	return l.pt, l.found
}

func (l *fakeLocator) Capture() (*image.RGBA, image.Rectangle, error) {
	if l.frame == nil {
		return nil, image.Rectangle{}, fmt.Errorf("no frame")
	}
	return l.frame, l.frame.Bounds(), nil
}

// lineSink collects run log lines.
type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) Add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *lineSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *lineSink) Count(substr string) int {
	n := 0
	for _, l := range s.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	f := config.Default()
	f.Failsafe.TaskManagerStop = false
	cfg, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}
	cfg.ClickHold = 0
	return cfg
}

func testLogger(t *testing.T, sink *lineSink) *logger.Logger {
	if sink == nil {
		return logger.New(zaptest.NewLogger(t))
	}
	return logger.New(zaptest.NewLogger(t), sink.Add)
}
