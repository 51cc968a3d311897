package runner

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"

	"github.com/ConserveLee/gui-rpa/internal/logger"
)

// appendLine adds line to list and drops the oldest entries beyond limit.
func appendLine(list binding.StringList, line string, limit int) {
	lines, _ := list.Get()
	lines = append(lines, line)
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	_ = list.Set(lines)
}

// bindingSink returns a log sink that feeds list from any goroutine.
func bindingSink(list binding.StringList, limit int) logger.Sink {
	return func(line string) {
		fyne.Do(func() { appendLine(list, line, limit) })
	}
}
