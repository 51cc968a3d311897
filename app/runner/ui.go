package runner

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/constants"
	"github.com/ConserveLee/gui-rpa/internal/engine"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

// NewRunnerPanel creates the UI panel that loads a task file and runs it.
func NewRunnerPanel(win fyne.Window, zl *zap.Logger) fyne.CanvasObject {
	// --- Data Binding ---
	logData := binding.NewStringList()
	statusData := binding.NewString()
	_ = statusData.Set("Status: Ready")

	sink := bindingSink(logData, constants.MaxUILogLines)
	uiLog := logger.New(zl, sink)

	var eng *engine.Engine
	selectedDisplay := 0

	// --- UI Components ---

	// 1. Files
	tasksEntry := widget.NewEntry()
	tasksEntry.SetPlaceHolder("tasks.json")
	configEntry := widget.NewEntry()
	configEntry.SetPlaceHolder("config.yaml (optional)")

	browse := func(entry *widget.Entry, exts ...string) *widget.Button {
		return widget.NewButton("...", func() {
			d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
				if err != nil || r == nil {
					return
				}
				defer r.Close()
				entry.SetText(r.URI().Path())
			}, win)
			d.SetFilter(storage.NewExtensionFileFilter(exts))
			d.Show()
		})
	}

	// 2. Screen Selector
	var displayOptions []string
	for i, b := range platform.Displays() {
		displayOptions = append(displayOptions, fmt.Sprintf("Display %d (%dx%d)", i, b.Dx(), b.Dy()))
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}
	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err == nil {
			selectedDisplay = id
		}
	})
	displaySelect.SetSelected(displayOptions[0])

	loopCheck := widget.NewCheck("Loop until stopped", nil)

	// 3. Status & Logs
	statusLabel := widget.NewLabelWithData(statusData)
	statusLabel.TextStyle = fyne.TextStyle{Bold: true}

	logList := widget.NewListWithData(
		logData,
		func() fyne.CanvasObject { return widget.NewLabel("Log entry template") },
		func(i binding.DataItem, o fyne.CanvasObject) { o.(*widget.Label).Bind(i.(binding.String)) },
	)

	// Auto-scroll
	logData.AddListener(binding.NewDataListener(func() {
		if logData.Length() > 0 {
			logList.ScrollToBottom()
		}
	}))

	// 4. Buttons
	startBtn := widget.NewButton("Start", nil)
	stopBtn := widget.NewButton("Stop", nil)
	stopBtn.Disable()

	setIdle := func(idle bool) {
		if idle {
			startBtn.Enable()
			stopBtn.Disable()
			displaySelect.Enable()
			tasksEntry.Enable()
			configEntry.Enable()
			return
		}
		startBtn.Disable()
		stopBtn.Enable()
		displaySelect.Disable()
		tasksEntry.Disable()
		configEntry.Disable()
	}

	startBtn.OnTapped = func() {
		cfg, records, err := loadInputs(strings.TrimSpace(tasksEntry.Text), strings.TrimSpace(configEntry.Text))
		if err != nil {
			uiLog.Error("Startup Error: %v", err)
			return
		}
		if displaySelect.Selected != "" {
			cfg.Display = selectedDisplay
		}

		eng = engine.New(platform.NewDesktop(cfg.Display), zl)
		if err := eng.Start(cfg, records, loopCheck.Checked, sink); err != nil {
			uiLog.Error("Startup Error: %v", err)
			return
		}

		_ = statusData.Set("Status: Running")
		setIdle(false)

		running := eng
		go func() {
			running.Wait()
			fyne.Do(func() {
				_ = statusData.Set("Status: Stopped")
				setIdle(true)
			})
		}()
	}

	stopBtn.OnTapped = func() {
		if eng != nil {
			eng.Stop()
		}
		stopBtn.Disable()
		_ = statusData.Set("Status: Stopping...")
	}

	// --- Layout ---
	form := widget.NewForm(
		widget.NewFormItem("Tasks", container.NewBorder(nil, nil, nil, browse(tasksEntry, ".json"), tasksEntry)),
		widget.NewFormItem("Config", container.NewBorder(nil, nil, nil, browse(configEntry, ".yaml", ".yml"), configEntry)),
		widget.NewFormItem("Screen", displaySelect),
	)
	controls := container.NewVBox(
		widget.NewLabel("任务配置:"),
		form,
		loopCheck,
		statusLabel,
		container.NewHBox(startBtn, stopBtn),
		widget.NewLabel("Stop: Esc / middle button / top-right corner / Task Manager"),
		widget.NewSeparator(),
		widget.NewLabel("运行日志:"),
	)

	return container.NewBorder(controls, nil, nil, nil, logList)
}

// loadInputs reads the task file and the optional config file.
func loadInputs(tasksPath, configPath string) (*config.Config, []task.Record, error) {
	if tasksPath == "" {
		return nil, nil, fmt.Errorf("no task file selected")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	records, err := task.LoadFile(tasksPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, records, nil
}
