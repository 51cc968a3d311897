package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/constants"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
)

// WatchdogStatus is the lifecycle state of a watchdog.
type WatchdogStatus int32

const (
	WatchdogIdle WatchdogStatus = iota
	WatchdogRunning
	WatchdogStopped
)

func (s WatchdogStatus) String() string {
	switch s {
	case WatchdogIdle:
		return "idle"
	case WatchdogRunning:
		return "running"
	case WatchdogStopped:
		return "stopped"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Beeper sounds the audible alert.
type Beeper interface {
	Beep()
}

// Watchdog polls operator stop signals and requests a stop on the first one.
type Watchdog struct {
	failsafe config.Failsafe
	input    platform.InputState
	window   platform.ForegroundWindow
	beeper   Beeper
	state    *RunState
	log      *logger.Logger

	status     atomic.Int32
	lastSample time.Time
	failures   map[string]bool
	now        func() time.Time
}

// NewWatchdog creates an idle watchdog for one run.
func NewWatchdog(failsafe config.Failsafe, input platform.InputState, window platform.ForegroundWindow, beeper Beeper, state *RunState, log *logger.Logger) *Watchdog {
	return &Watchdog{
		failsafe: failsafe,
		input:    input,
		window:   window,
		beeper:   beeper,
		state:    state,
		log:      log,
		now:      time.Now,
	}
}

// Status returns the current lifecycle state.
func (w *Watchdog) Status() WatchdogStatus {
	return WatchdogStatus(w.status.Load())
}

// Run polls until a trigger fires or ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	w.status.Store(int32(WatchdogRunning))
	defer w.status.Store(int32(WatchdogStopped))

	ticker := time.NewTicker(constants.WatchdogPollInterval)
	defer ticker.Stop()

	for {
		reason, err := w.poll()
		if err != nil {
			w.log.Debug("Watchdog poll failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(constants.WatchdogErrorBackoff):
			}
			continue
		}
		if reason != "" {
			w.trigger(reason)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// trigger requests the stop. Only the caller that wins the flag logs and beeps.
func (w *Watchdog) trigger(reason string) {
	if !w.state.RequestStop(reason) {
		return
	}
	w.log.Info("!!! Watchdog triggered: %s !!!", reason)
	w.beeper.Beep()
}

// poll evaluates each enabled check once. A non-empty reason means stop. A
// failing check never masks the others; err is set only when every check
// that ran this cycle failed.
func (w *Watchdog) poll() (reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var ran int
	var errs []error
	check := func(name string, fn func() (string, error)) {
		if reason != "" {
			return
		}
		ran++
		r, cerr := fn()
		if cerr != nil {
			errs = append(errs, cerr)
			w.failing(name, cerr)
			return
		}
		delete(w.failures, name)
		reason = r
	}

	if w.failsafe.KeyStop {
		check("key stop", w.checkKeys)
	}
	if w.failsafe.CornerStop {
		check("corner stop", w.checkCorner)
	}
	if w.failsafe.TaskManagerStop {
		now := w.now()
		if now.Sub(w.lastSample) >= constants.WindowSampleInterval {
			w.lastSample = now
			check("foreground window", w.checkForeground)
		}
	}

	if reason == "" && ran > 0 && len(errs) == ran {
		return "", errors.Join(errs...)
	}
	return reason, nil
}

// failing logs the first failure of a check; repeats stay quiet until the
// check succeeds again.
func (w *Watchdog) failing(name string, err error) {
	if w.failures == nil {
		w.failures = map[string]bool{}
	}
	if w.failures[name] {
		return
	}
	w.failures[name] = true
	w.log.Error("Watchdog check failed (%s): %v", name, err)
}

// checkKeys fails only when no stop key could be read. Keys that fail while
// others still read are reported separately.
func (w *Watchdog) checkKeys() (string, error) {
	var errs []error
	for _, key := range w.failsafe.StopKeys {
		pressed, err := w.input.KeyPressed(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("key %s: %w", key, err))
			continue
		}
		if pressed {
			return "key stop (" + key + ")", nil
		}
	}
	switch {
	case len(errs) == 0:
		delete(w.failures, "stop keys")
	case len(errs) == len(w.failsafe.StopKeys):
		return "", errors.Join(errs...)
	default:
		w.failing("stop keys", errors.Join(errs...))
	}
	return "", nil
}

func (w *Watchdog) checkCorner() (string, error) {
	x, y := w.input.CursorPosition()
	sw, _ := w.input.ScreenSize()
	if x > sw-constants.CornerMargin && y < constants.CornerMargin {
		return "corner stop", nil
	}
	return "", nil
}

func (w *Watchdog) checkForeground() (string, error) {
	title, err := w.window.Title()
	if err != nil {
		return "", fmt.Errorf("foreground title: %w", err)
	}
	if entry := w.blocked(title); entry != "" {
		return "foreground window " + entry, nil
	}

	// Process names are best effort; not every platform can report them
	name, err := w.window.ProcessName()
	if err == nil {
		if entry := w.blocked(name); entry != "" {
			return "foreground process " + entry, nil
		}
	}
	return "", nil
}

func (w *Watchdog) blocked(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	for _, entry := range w.failsafe.WindowBlocklist {
		if entry != "" && strings.Contains(lower, strings.ToLower(entry)) {
			return entry
		}
	}
	return ""
}
