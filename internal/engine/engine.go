package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/engine/screen"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is in progress.
	ErrAlreadyRunning = errors.New("a run is already in progress")
	// ErrNoTasks is returned by Start for an empty task list.
	ErrNoTasks = errors.New("task list is empty")
)

// StopByUser is the stop reason recorded by Stop.
const StopByUser = "stop requested"

// Engine owns the runner and watchdog goroutines of one run at a time.
type Engine struct {
	desktop platform.Desktop
	zl      *zap.Logger

	mu     sync.Mutex
	state  RunState
	cancel context.CancelFunc
	done   chan struct{} // closed once both goroutines of the last run exit
	runID  string

	// MaxPasses bounds looping runs started after it is set; 0 is unlimited.
	MaxPasses int
}

// New creates an engine over desktop. zl receives diagnostics and may be nil.
func New(desktop platform.Desktop, zl *zap.Logger) *Engine {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Engine{desktop: desktop, zl: zl}
}

// Start validates the run inputs and spawns the runner and watchdog. Any
// validation error is returned before a goroutine starts. Start and Stop are
// ordered by the engine lock, so a Stop that returns after Start has returned
// always applies to the new run.
func (e *Engine) Start(cfg *config.Config, records []task.Record, loopForever bool, onLog logger.Sink) error {
	if e.state.Running() {
		return ErrAlreadyRunning
	}
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoTasks
	}
	actions, err := task.Compile(records)
	if err != nil {
		return err
	}
	matcher, err := screen.SelectMatcher(cfg.Matcher)
	if err != nil {
		return err
	}

	// A stopped run may still be unwinding; wait without the lock so Stop
	// stays responsive.
	e.mu.Lock()
	prev := e.done
	e.mu.Unlock()
	if prev != nil {
		<-prev
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Running() || e.done != prev {
		return ErrAlreadyRunning
	}

	e.runID = uuid.NewString()
	log := logger.New(e.zl.With(zap.String("run_id", e.runID)), onLog)
	e.state.reset()

	cache := screen.NewTemplateCache(cfg.ScaleMin, cfg.ScaleMax, matcher.Scales(), log)
	locator := screen.NewLocator(e.desktop, cache, matcher, cfg.Confidence, cfg.Region, e.state.StopRequested, log)
	exec := NewExecutor(cfg, &e.state, locator, e.desktop, log)
	runner := NewRunner(&e.state, cache, exec, regionLabel(cfg), log)
	runner.MaxPasses = e.MaxPasses
	watchdog := NewWatchdog(cfg.Failsafe, e.desktop, e.desktop, e.desktop, &e.state, log)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	log.Info("Run started: %d task(s), %s matcher.", len(actions), matcher.Name())
	log.Zap().Debug("run config",
		zap.Float64("confidence", cfg.Confidence),
		zap.Float64("scale_min", cfg.ScaleMin),
		zap.Float64("scale_max", cfg.ScaleMax),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("loop", loopForever),
	)

	done := make(chan struct{})
	e.done = done
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		watchdog.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		runner.Run(actions, loopForever)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
	return nil
}

// Stop requests the current run to stop. It does not wait; see Wait.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.RequestStop(StopByUser)
	if e.cancel != nil {
		e.cancel()
	}
}

// IsRunning reports whether a run is in progress.
func (e *Engine) IsRunning() bool {
	return e.state.Running()
}

// Wait blocks until the runner and watchdog of the last run have exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// RunID identifies the most recent run in diagnostic logs.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

func regionLabel(cfg *config.Config) string {
	if cfg.Region == nil {
		return ""
	}
	r := *cfg.Region
	return fmt.Sprintf("(%d,%d) %dx%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}
