package engine

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/constants"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

// Locator finds templates on screen. *screen.Locator implements it.
type Locator interface {
	Locate(path string) (image.Point, bool)
	Capture() (*image.RGBA, image.Rectangle, error)
}

// Executor performs single actions against the locator and the actuator.
type Executor struct {
	cfg     *config.Config
	state   *RunState
	locator Locator
	act     platform.Actuator
	log     *logger.Logger
	now     func() time.Time
}

// NewExecutor creates an executor bound to one run.
func NewExecutor(cfg *config.Config, state *RunState, locator Locator, act platform.Actuator, log *logger.Logger) *Executor {
	return &Executor{
		cfg:     cfg,
		state:   state,
		locator: locator,
		act:     act,
		log:     log,
		now:     time.Now,
	}
}

// Execute runs one action. A panic inside the action is recovered and
// returned as an error; the caller decides whether to continue.
func (e *Executor) Execute(a task.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch v := a.(type) {
	case task.Click:
		return e.click(v)
	case task.Hover:
		if pt, ok := e.locator.Locate(v.Path); ok {
			e.act.MoveTo(pt.X, pt.Y, e.cfg.MoveDuration)
		}
		return nil
	case task.TypeText:
		if err := e.act.Paste(v.Text); err != nil {
			return err
		}
		time.Sleep(constants.PasteSettle)
		return nil
	case task.Wait:
		e.wait(v.Duration)
		return nil
	case task.Scroll:
		e.act.Scroll(v.Ticks)
		return nil
	case task.Hotkey:
		return e.act.KeyChord(v.Keys)
	case task.Screenshot:
		return e.screenshot(v.Target)
	}
	return fmt.Errorf("unsupported action %T", a)
}

// click locates the template and acts on it according to the retry mode.
// Timeouts at or below TimeoutEpsilon mean a single attempt.
func (e *Executor) click(c task.Click) error {
	single := e.cfg.Timeout <= constants.TimeoutEpsilon
	start := e.now()

	for {
		if e.state.StopRequested() {
			return nil
		}
		if !single && e.now().Sub(start) > e.cfg.Timeout {
			e.log.Debug("Timed out waiting for %s", c.Path)
			return nil
		}

		pt, found := e.locator.Locate(c.Path)
		if !found {
			if single {
				return nil
			}
			time.Sleep(constants.LocateRetryWait)
			continue
		}
		// A locate can take a while; never click after the stop landed
		if e.state.StopRequested() {
			return nil
		}

		if err := e.clickAt(pt, c); err != nil {
			return err
		}
		if c.Mode == task.RetryOnce || single {
			return nil
		}
		time.Sleep(constants.RetryPause)
	}
}

func (e *Executor) clickAt(pt image.Point, c task.Click) error {
	e.act.MoveTo(pt.X, pt.Y, e.cfg.MoveDuration)

	for i := 0; i < c.Count; i++ {
		if i > 0 {
			time.Sleep(constants.DoubleClickGap)
		}
		if err := e.act.Press(c.Button); err != nil {
			return fmt.Errorf("press %s: %w", c.Button, err)
		}
		time.Sleep(e.cfg.ClickHold)
		if err := e.act.Release(c.Button); err != nil {
			return fmt.Errorf("release %s: %w", c.Button, err)
		}
	}

	time.Sleep(e.cfg.SettleWait)

	// Park the pointer so it does not cover the next anchor
	if e.cfg.DodgeEnabled {
		e.act.MoveTo(e.cfg.DodgePoint1.X, e.cfg.DodgePoint1.Y, 0)
		if e.cfg.DoubleDodgeEnabled {
			time.Sleep(e.cfg.DoubleDodgeWait)
			e.act.MoveTo(e.cfg.DodgePoint2.X, e.cfg.DodgePoint2.Y, 0)
		}
	}
	return nil
}

// wait sleeps for d in slices of at most WaitPollStep, returning early on stop.
func (e *Executor) wait(d time.Duration) {
	deadline := e.now().Add(d)
	for {
		if e.state.StopRequested() {
			return
		}
		left := deadline.Sub(e.now())
		if left <= 0 {
			return
		}
		if left > constants.WaitPollStep {
			left = constants.WaitPollStep
		}
		time.Sleep(left)
	}
}

// screenshot writes the scan region to target. A directory target gets a
// timestamped file name.
func (e *Executor) screenshot(target string) error {
	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		path = filepath.Join(target, ScreenshotName(e.now()))
	}

	img, _, err := e.locator.Capture()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	e.log.Info("Screenshot saved: %s", path)
	return nil
}

// ScreenshotName is the file name used for screenshots saved into a directory.
func ScreenshotName(t time.Time) string {
	return "ss_" + t.Format("20060102_150405") + ".png"
}
