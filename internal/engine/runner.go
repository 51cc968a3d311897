package engine

import (
	"github.com/ConserveLee/gui-rpa/internal/engine/screen"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

// Runner executes an action sequence once or in passes until stopped.
type Runner struct {
	state  *RunState
	cache  *screen.TemplateCache
	exec   *Executor
	region string
	log    *logger.Logger

	// MaxPasses bounds a looping run; 0 loops until stopped.
	MaxPasses int
}

// NewRunner creates a runner. region is the human-readable scan region, empty
// for the full screen.
func NewRunner(state *RunState, cache *screen.TemplateCache, exec *Executor, region string, log *logger.Logger) *Runner {
	return &Runner{
		state:  state,
		cache:  cache,
		exec:   exec,
		region: region,
		log:    log,
	}
}

// Run executes actions and returns when the sequence completes, a stop is
// requested, or the loop panics. It always clears running and emits exactly
// one terminal line.
func (r *Runner) Run(actions []task.Action, loopForever bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Engine error: %v", p)
		}
		r.state.finish()
		if r.state.StopRequested() {
			r.log.Info("Run stopped: %s.", r.state.StopReason())
		} else {
			r.log.Info("Run finished.")
		}
	}()

	r.cache.Preload(task.ImagePaths(actions))
	if r.region != "" {
		r.log.Info("Region mode: scanning %s only", r.region)
	}

	for pass := 1; ; pass++ {
		r.log.Debug("Pass %d started", pass)
		for i, a := range actions {
			if r.state.StopRequested() {
				return
			}
			if err := r.exec.Execute(a); err != nil {
				r.log.Error("Action %d (%s) failed: %v", i+1, a.Kind(), err)
			}
		}

		if !loopForever || (r.MaxPasses > 0 && pass >= r.MaxPasses) {
			return
		}
		if r.state.StopRequested() {
			return
		}
	}
}
