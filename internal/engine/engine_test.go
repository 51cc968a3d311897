package engine

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/draw"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

func noise(seed int64, w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	return img
}

func TestEngine_StartRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	desk := newFakeDesktop()
	e := New(desk, zaptest.NewLogger(t))
	cfg := testConfig(t)

	err := e.Start(cfg, nil, false, nil)
	assert.ErrorIs(t, err, ErrNoTasks)

	err = e.Start(cfg, []task.Record{{Type: 12, Value: "x", Retry: 1}}, false, nil)
	var compileErr *task.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, 0, compileErr.Index)

	bad := *cfg
	bad.Confidence = 0
	err = e.Start(&bad, []task.Record{{Type: 6, Value: "1", Retry: 1}}, false, nil)
	var vErr config.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "confidence", vErr.Field)

	bad = *cfg
	bad.Failsafe.StopKeys = []string{"esacpe"}
	err = e.Start(&bad, []task.Record{{Type: 6, Value: "1", Retry: 1}}, false, nil)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "failsafe.stop_keys", vErr.Field)

	bad = *cfg
	bad.Matcher = "sift"
	assert.Error(t, e.Start(&bad, []task.Record{{Type: 6, Value: "1", Retry: 1}}, false, nil))

	assert.Error(t, e.Start(nil, []task.Record{{Type: 6, Value: "1", Retry: 1}}, false, nil))

	assert.False(t, e.IsRunning())
	assert.Empty(t, desk.Events())
	assert.Empty(t, e.RunID())
}

func TestEngine_ClicksTemplateOnScreen(t *testing.T) {
	t.Parallel()

	screenImg := noise(11, 200, 150)
	btn := noise(12, 20, 14)
	draw.Draw(screenImg, image.Rect(60, 40, 80, 54), btn, image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "btn.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, btn))
	require.NoError(t, f.Close())

	desk := newFakeDesktop()
	desk.Set(screenImg)
	sink := &lineSink{}
	e := New(desk, zaptest.NewLogger(t))

	cfg := testConfig(t)
	records := []task.Record{
		{Type: float64(task.KindLeftClick), Value: path, Retry: 1},
		{Type: float64(task.KindScroll), Value: "-2", Retry: 1},
	}
	require.NoError(t, e.Start(cfg, records, false, sink.Add))
	e.Wait()

	assert.Equal(t, []string{"move 70,47", "press left", "release left", "scroll -2"}, desk.Events())
	assert.False(t, e.IsRunning())
	assert.NotEmpty(t, e.RunID())
	assert.Equal(t, 1, sink.Count("Run started: 2 task(s), ncc matcher."))
	assert.Equal(t, 1, sink.Count("Preload finished: 1 template(s)"))
	assert.Equal(t, 1, sink.Count("Run finished."))
}

func TestEngine_AlreadyRunningAndRestart(t *testing.T) {
	t.Parallel()

	desk := newFakeDesktop()
	sink := &lineSink{}
	e := New(desk, zaptest.NewLogger(t))
	cfg := testConfig(t)

	long := []task.Record{{Type: float64(task.KindWait), Value: "5", Retry: 1}}
	require.NoError(t, e.Start(cfg, long, true, sink.Add))
	assert.True(t, e.IsRunning())
	firstID := e.RunID()

	assert.ErrorIs(t, e.Start(cfg, long, false, sink.Add), ErrAlreadyRunning)

	start := time.Now()
	time.Sleep(100 * time.Millisecond)
	e.Stop()
	e.Wait()
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, e.IsRunning())
	assert.Equal(t, 1, sink.Count("Run stopped: stop requested."))

	e.Stop()

	short := []task.Record{{Type: float64(task.KindScroll), Value: "1", Retry: 1}}
	require.NoError(t, e.Start(cfg, short, false, sink.Add))
	e.Wait()
	assert.NotEqual(t, firstID, e.RunID())
	assert.Equal(t, 1, sink.Count("Run finished."))
	assert.Equal(t, []string{"scroll 1"}, desk.Events())
}

func TestEngine_StopNotBlockedByPendingStart(t *testing.T) {
	t.Parallel()

	desk := newFakeDesktop()
	gate := make(chan struct{})
	desk.pasteGate = gate
	sink := &lineSink{}
	e := New(desk, zaptest.NewLogger(t))
	cfg := testConfig(t)

	typing := []task.Record{{Type: float64(task.KindTypeText), Value: "hello", Retry: 1}}
	require.NoError(t, e.Start(cfg, typing, false, sink.Add))
	require.Eventually(t, func() bool { return desk.pastes.Load() == 1 }, time.Second, time.Millisecond)
	e.Stop()

	// The first run is parked in Paste, so the next Start waits for it to exit.
	started := make(chan error, 1)
	long := []task.Record{{Type: float64(task.KindWait), Value: "5", Retry: 1}}
	go func() { started <- e.Start(cfg, long, true, sink.Add) }()
	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-started:
		close(gate)
		t.Fatalf("Start returned before the previous run exited: %v", err)
	default:
	}

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("Stop blocked behind a pending Start")
	}

	close(gate)
	require.NoError(t, <-started)
	assert.True(t, e.IsRunning(), "a Stop issued before Start returned belongs to the previous run")

	// Once Start has returned, Stop always reaches the new run.
	e.Stop()
	e.Wait()
	assert.False(t, e.IsRunning())
	assert.Equal(t, 2, sink.Count("Run stopped: stop requested."))
}

func TestEngine_WatchdogStopsLoopingRun(t *testing.T) {
	t.Parallel()

	desk := newFakeDesktop()
	sink := &lineSink{}
	e := New(desk, zaptest.NewLogger(t))
	e.MaxPasses = 0

	records := []task.Record{{Type: float64(task.KindScroll), Value: "1", Retry: 1}}
	require.NoError(t, e.Start(testConfig(t), records, true, sink.Add))

	require.Eventually(t, func() bool { return desk.scrolls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	desk.SetKey("esc", true)

	waited := make(chan struct{})
	go func() {
		e.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		e.Stop()
		<-waited
		t.Fatal("watchdog did not stop the run")
	}

	assert.False(t, e.IsRunning())
	assert.Equal(t, 1, sink.Count("Watchdog triggered: key stop (esc)"))
	assert.Equal(t, 1, sink.Count("Run stopped: key stop (esc)."))
	assert.Equal(t, int32(1), desk.beeps.Load())
}

func TestEngine_MaxPasses(t *testing.T) {
	t.Parallel()

	desk := newFakeDesktop()
	e := New(desk, nil)
	e.MaxPasses = 4

	records := []task.Record{{Type: float64(task.KindScroll), Value: "1", Retry: 1}}
	require.NoError(t, e.Start(testConfig(t), records, true, nil))
	e.Wait()
	assert.Equal(t, int32(4), desk.scrolls.Load())
}

func TestEngine_StopWhenIdle(t *testing.T) {
	t.Parallel()

	e := New(newFakeDesktop(), nil)
	e.Stop()
	e.Stop()
	e.Wait()
	assert.False(t, e.IsRunning())
}

func TestRunState_RequestStopWinsOnce(t *testing.T) {
	t.Parallel()

	var s RunState
	s.reset()
	require.True(t, s.Running())

	assert.True(t, s.RequestStop("first"))
	assert.False(t, s.RequestStop("second"))
	assert.Equal(t, "first", s.StopReason())
	assert.False(t, s.Running())

	s.reset()
	assert.False(t, s.StopRequested())
	assert.Empty(t, s.StopReason())
	assert.True(t, s.RequestStop("again"))
}
