package logger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ConserveLee/gui-rpa/internal/constants"
)

// Sink receives one formatted log line.
type Sink func(string)

// Logger fans run messages out to line sinks (UI, caller callbacks) and mirrors
// them to a zap logger for the diagnostic file. Safe for concurrent use: sinks
// are never invoked concurrently.
type Logger struct {
	mu    sync.Mutex
	zl    *zap.Logger
	sinks []Sink
	now   func() time.Time
}

// New creates a logger. A nil zap logger disables the diagnostic mirror.
func New(zl *zap.Logger, sinks ...Sink) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	l := &Logger{zl: zl, now: time.Now}
	for _, s := range sinks {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
	return l
}

// Zap returns the underlying diagnostic logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Info logs an informational message to every sink.
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Info(msg)
	l.emit(msg)
}

// Error logs an error message to every sink.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.Error(msg)
	l.emit(msg)
}

// Debug logs to the diagnostic logger only (to keep the UI clean).
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) emit(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := Format(l.now(), msg)
	for _, s := range l.sinks {
		s(line)
	}
}

// Format prefixes msg with a "[YYYY-MM-DD HH:MM:SS]" timestamp.
func Format(t time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s", t.Format(constants.LogTimeLayout), msg)
}

// NewFileZap builds the diagnostic logger. An empty path returns a no-op logger.
func NewFileZap(path string, debug bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(constants.LogTimeLayout)
	cfg.Sampling = nil
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return zl, nil
}
