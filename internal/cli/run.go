package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/engine"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

var (
	runFlags  configFlags
	runTasks  string
	runLoop   bool
	runPasses int
	runWatch  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a task file against the desktop",
	Long: `Run executes the task file once, or in passes with --loop, until it
finishes, Ctrl+C is pressed or the watchdog sees a stop signal.

With --watch the task file is reloaded when it changes on disk and the run
restarts with the new tasks.

Example:
  rpa run --tasks tasks.json
  rpa run --tasks tasks.json --config rpa.yaml --loop --passes 10
  rpa run --tasks tasks.json --loop --watch --region 0,0,1280,720`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runTasks, "tasks", "t", "", "task file (JSON)")
	runCmd.Flags().BoolVar(&runLoop, "loop", false, "repeat the task list until stopped")
	runCmd.Flags().IntVar(&runPasses, "passes", 0, "stop looping after this many passes (0 = unlimited)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "restart the run when the task file changes")
	_ = runCmd.MarkFlagRequired("tasks")
	runFlags.register(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runPasses < 0 {
		return fmt.Errorf("--passes must not be negative")
	}

	cfg, err := runFlags.build(cmd)
	if err != nil {
		return err
	}
	records, err := task.LoadFile(runTasks)
	if err != nil {
		return err
	}

	zl, err := logger.NewFileZap(cfg.Log.File, cfg.Log.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(platform.NewDesktop(cfg.Display), zl)
	eng.MaxPasses = runPasses

	s := &session{
		eng:    eng,
		cfg:    cfg,
		loop:   runLoop,
		out:    cmd.OutOrStdout(),
		zl:     zl,
		reload: func() ([]task.Record, error) { return task.LoadFile(runTasks) },
	}

	var changes <-chan struct{}
	if runWatch {
		w, err := task.NewWatcher(zl, runTasks, task.DefaultDebounce)
		if err != nil {
			return err
		}
		changes = w.Run(ctx)
	}
	return s.serve(ctx, records, changes)
}

// session drives one engine from the command line: it starts the first run,
// stops on ctx and restarts when the task file changes.
type session struct {
	eng    *engine.Engine
	cfg    *config.Config
	loop   bool
	out    io.Writer
	zl     *zap.Logger
	reload func() ([]task.Record, error)
}

func (s *session) print(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *session) start(records []task.Record) (<-chan struct{}, error) {
	if err := s.eng.Start(s.cfg, records, s.loop, s.print); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		s.eng.Wait()
		close(done)
	}()
	return done, nil
}

// serve blocks until the run ends, or with changes set, until ctx is done.
func (s *session) serve(ctx context.Context, records []task.Record, changes <-chan struct{}) error {
	done, err := s.start(records)
	if err != nil {
		return err
	}
	watching := changes != nil

	for {
		select {
		case <-ctx.Done():
			if done != nil {
				s.eng.Stop()
				<-done
			}
			return nil

		case <-done:
			done = nil
			if !watching {
				return nil
			}
			s.print(logger.Format(time.Now(), "Waiting for task file changes (Ctrl+C to quit)"))

		case _, ok := <-changes:
			if !ok {
				changes = nil
				watching = false
				if done == nil {
					return nil
				}
				continue
			}
			next, err := s.reload()
			if err != nil {
				s.print(logger.Format(time.Now(), "Reload failed: "+err.Error()))
				continue
			}
			if done != nil {
				s.eng.Stop()
				<-done
			}
			s.zl.Info("task file reloaded", zap.Int("tasks", len(next)))
			s.print(logger.Format(time.Now(), fmt.Sprintf("Task file changed, restarting with %d task(s)", len(next))))
			if done, err = s.start(next); err != nil {
				s.print(logger.Format(time.Now(), "Restart failed: "+err.Error()))
				done = nil
			}
		}
	}
}
