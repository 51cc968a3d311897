package engine

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConserveLee/gui-rpa/internal/task"
)

func newTestExecutor(t *testing.T, loc *fakeLocator) (*Executor, *fakeDesktop, *RunState) {
	t.Helper()
	desk := newFakeDesktop()
	state := &RunState{}
	state.reset()
	return NewExecutor(testConfig(t), state, loc, desk, testLogger(t, nil)), desk, state
}

func TestExecutor_DoubleClickWithDodge(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{pt: image.Pt(30, 40), found: true})
	exec.cfg.DodgeEnabled = true
	exec.cfg.DoubleDodgeEnabled = true

	err := exec.Execute(task.Click{Path: "ok.png", Button: task.ButtonLeft, Count: 2, Mode: task.RetryOnce})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"move 30,40",
		"press left", "release left",
		"press left", "release left",
		"move 100,100",
		"move 200,100",
	}, desk.Events())
}

func TestExecutor_RightClickWithoutDoubleDodge(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{pt: image.Pt(5, 6), found: true})
	exec.cfg.DodgeEnabled = true

	require.NoError(t, exec.Execute(task.Click{Path: "menu.png", Button: task.ButtonRight, Count: 1}))
	assert.Equal(t, []string{"move 5,6", "press right", "release right", "move 100,100"}, desk.Events())
}

func TestExecutor_ZeroTimeoutIsSingleAttempt(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		loc := &fakeLocator{}
		exec, desk, _ := newTestExecutor(t, loc)
		exec.cfg.Timeout = 0

		require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryUntilTimeout}))
		assert.Equal(t, int32(1), loc.calls.Load())
		assert.Empty(t, desk.Events())
	})

	t.Run("found", func(t *testing.T) {
		loc := &fakeLocator{pt: image.Pt(1, 1), found: true}
		exec, desk, _ := newTestExecutor(t, loc)
		exec.cfg.Timeout = time.Millisecond

		require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryUntilTimeout}))
		assert.Equal(t, int32(1), loc.calls.Load())
		assert.Equal(t, []string{"move 1,1", "press left", "release left"}, desk.Events())
	})
}

func TestExecutor_RetriesLocateUntilTimeout(t *testing.T) {
	t.Parallel()

	loc := &fakeLocator{}
	exec, _, _ := newTestExecutor(t, loc)
	exec.cfg.Timeout = 60 * time.Millisecond

	start := time.Now()
	require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryOnce}))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Greater(t, loc.calls.Load(), int32(1))
}

func TestExecutor_RetryUntilTimeoutClicksRepeatedly(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{pt: image.Pt(2, 2), found: true})
	exec.cfg.Timeout = 80 * time.Millisecond

	require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryUntilTimeout}))

	presses := 0
	for _, e := range desk.Events() {
		if e == "press left" {
			presses++
		}
	}
	assert.Greater(t, presses, 1)
}

func TestExecutor_StopInterruptsClickRetry(t *testing.T) {
	t.Parallel()

	exec, _, state := newTestExecutor(t, &fakeLocator{pt: image.Pt(2, 2), found: true})
	exec.cfg.Timeout = 10 * time.Second

	time.AfterFunc(50*time.Millisecond, func() { state.RequestStop("test") })

	start := time.Now()
	require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryUntilTimeout}))
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_StopDuringLocateSkipsClick(t *testing.T) {
	t.Parallel()

	for _, timeout := range []time.Duration{0, 10 * time.Second} {
		loc := &fakeLocator{pt: image.Pt(9, 9), found: true}
		exec, desk, state := newTestExecutor(t, loc)
		exec.cfg.Timeout = timeout
		loc.during = func() { state.RequestStop("corner stop") }

		require.NoError(t, exec.Execute(task.Click{Path: "a.png", Button: task.ButtonLeft, Count: 1, Mode: task.RetryOnce}))
		assert.Equal(t, int32(1), loc.calls.Load())
		assert.Empty(t, desk.Events(), "timeout %v", timeout)
	}
}

func TestExecutor_WaitHonorsStop(t *testing.T) {
	t.Parallel()

	exec, _, state := newTestExecutor(t, &fakeLocator{})
	time.AfterFunc(100*time.Millisecond, func() { state.RequestStop("test") })

	start := time.Now()
	require.NoError(t, exec.Execute(task.Wait{Duration: 5 * time.Second}))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestExecutor_WaitCompletes(t *testing.T) {
	t.Parallel()

	exec, _, _ := newTestExecutor(t, &fakeLocator{})

	start := time.Now()
	require.NoError(t, exec.Execute(task.Wait{Duration: 30 * time.Millisecond}))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestExecutor_Hover(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{pt: image.Pt(7, 8), found: true})
	require.NoError(t, exec.Execute(task.Hover{Path: "h.png"}))
	assert.Equal(t, []string{"move 7,8"}, desk.Events())

	loc := &fakeLocator{}
	exec, desk, _ = newTestExecutor(t, loc)
	require.NoError(t, exec.Execute(task.Hover{Path: "h.png"}))
	assert.Empty(t, desk.Events())
	assert.Equal(t, int32(1), loc.calls.Load())
}

func TestExecutor_KeyboardAndWheel(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{})
	require.NoError(t, exec.Execute(task.TypeText{Text: "héllo"}))
	require.NoError(t, exec.Execute(task.Hotkey{Keys: []string{"ctrl", "s"}}))
	require.NoError(t, exec.Execute(task.Scroll{Ticks: -3}))

	assert.Equal(t, []string{"paste héllo", "chord [ctrl s]", "scroll -3"}, desk.Events())
}

func TestExecutor_RecoversPanics(t *testing.T) {
	t.Parallel()

	exec, desk, _ := newTestExecutor(t, &fakeLocator{})
	desk.panicOn = "scroll"

	err := exec.Execute(task.Scroll{Ticks: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestExecutor_ScreenshotIntoDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	loc := &fakeLocator{frame: image.NewRGBA(image.Rect(0, 0, 12, 9))}
	exec, _, _ := newTestExecutor(t, loc)
	fixed := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)
	exec.now = func() time.Time { return fixed }

	require.NoError(t, exec.Execute(task.Screenshot{Target: dir}))

	f, err := os.Open(filepath.Join(dir, "ss_20240305_140709.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 9), img.Bounds())
}

func TestExecutor_ScreenshotToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shot.png")
	exec, _, _ := newTestExecutor(t, &fakeLocator{frame: image.NewRGBA(image.Rect(0, 0, 4, 4))})

	require.NoError(t, exec.Execute(task.Screenshot{Target: path}))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestExecutor_ScreenshotFailures(t *testing.T) {
	t.Parallel()

	exec, _, _ := newTestExecutor(t, &fakeLocator{})
	err := exec.Execute(task.Screenshot{Target: t.TempDir()})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "capture"))

	exec, _, _ = newTestExecutor(t, &fakeLocator{frame: image.NewRGBA(image.Rect(0, 0, 4, 4))})
	err = exec.Execute(task.Screenshot{Target: filepath.Join(t.TempDir(), "missing", "shot.png")})
	assert.Error(t, err)
}

func TestScreenshotName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, "ss_20231231_235958.png", ScreenshotName(ts))
}
