package main

import (
	"github.com/ConserveLee/gui-rpa/app/runner"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"go.uber.org/zap"
)

func main() {
	// Console diagnostics, like the run log but with Debug lines too
	zl, err := zap.NewDevelopment()
	if err != nil {
		zl = zap.NewNop()
	}
	defer func() { _ = zl.Sync() }()

	myApp := app.New()
	myWindow := myApp.NewWindow("GUI RPA")
	myWindow.Resize(fyne.NewSize(520, 640))

	tabs := container.NewAppTabs(
		container.NewTabItem("任务运行", runner.NewRunnerPanel(myWindow, zl)),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	myWindow.SetContent(tabs)
	myWindow.ShowAndRun()
}
