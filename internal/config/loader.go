package config

import (
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ConserveLee/gui-rpa/internal/platform"
)

// Matcher names accepted in the config file.
const (
	MatcherAuto  = "auto"
	MatcherNCC   = "ncc"
	MatcherPixel = "pixel"
)

// Default values for File.
const (
	DefaultConfidence      = 0.8
	DefaultScaleMin        = 1.0
	DefaultScaleMax        = 1.0
	DefaultClickHold       = 0.04
	DefaultDoubleDodgeWait = 0.015
)

// DefaultStopKeys are the keys that abort a run when held.
var DefaultStopKeys = []string{"esc", "middle"}

// DefaultWindowBlocklist are foreground window title or process name fragments that abort a run.
var DefaultWindowBlocklist = []string{"任务管理器", "Task Manager", "Taskmgr"}

// Default returns a File with sensible default values.
func Default() File {
	return File{
		Confidence: DefaultConfidence,
		ScaleMin:   DefaultScaleMin,
		ScaleMax:   DefaultScaleMax,
		Matcher:    MatcherAuto,
		Timing: TimingFile{
			ClickHold: DefaultClickHold,
		},
		Dodge: DodgeFile{
			Point1:     PointFile{X: 100, Y: 100},
			Point2:     PointFile{X: 200, Y: 100},
			DoubleWait: DefaultDoubleDodgeWait,
		},
		Failsafe: Failsafe{
			KeyStop:         true,
			CornerStop:      true,
			TaskManagerStop: true,
			StopKeys:        append([]string(nil), DefaultStopKeys...),
			WindowBlocklist: append([]string(nil), DefaultWindowBlocklist...),
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Load reads, parses and validates a YAML config file. An empty path yields
// the defaults. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Read parses a YAML config file over the defaults without validating it, so
// callers can apply overrides first.
func Read(path string) (File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse config file: %w", err)
	}
	return f, nil
}

// Build validates the file values and converts them into a Config.
func (f File) Build() (*Config, error) {
	if err := Validate(&f); err != nil {
		return nil, err
	}

	cfg := &Config{
		Confidence:         f.Confidence,
		ScaleMin:           f.ScaleMin,
		ScaleMax:           f.ScaleMax,
		Matcher:            strings.ToLower(f.Matcher),
		Display:            f.Display,
		MoveDuration:       seconds(f.Timing.MoveDuration),
		ClickHold:          seconds(f.Timing.ClickHold),
		SettleWait:         seconds(f.Timing.SettleWait),
		Timeout:            seconds(f.Timing.Timeout),
		DodgeEnabled:       f.Dodge.Enabled,
		DoubleDodgeEnabled: f.Dodge.Double,
		DodgePoint1:        image.Pt(f.Dodge.Point1.X, f.Dodge.Point1.Y),
		DodgePoint2:        image.Pt(f.Dodge.Point2.X, f.Dodge.Point2.Y),
		DoubleDodgeWait:    seconds(f.Dodge.DoubleWait),
		Failsafe:           f.Failsafe,
		Log:                f.Log,
	}
	if cfg.Matcher == "" {
		cfg.Matcher = MatcherAuto
	}
	if f.Region != nil {
		r := image.Rect(f.Region.X, f.Region.Y, f.Region.X+f.Region.Width, f.Region.Y+f.Region.Height)
		cfg.Region = &r
	}
	cfg.Failsafe.StopKeys = append([]string(nil), f.Failsafe.StopKeys...)
	cfg.Failsafe.WindowBlocklist = append([]string(nil), f.Failsafe.WindowBlocklist...)
	return cfg, nil
}

// Validate checks that all values are within range.
func Validate(f *File) error {
	if !finite(f.Confidence) || f.Confidence <= 0 || f.Confidence > 1 {
		return ValidationError{Field: "confidence", Message: "must be in (0, 1]"}
	}
	if !finite(f.ScaleMin) || f.ScaleMin <= 0 {
		return ValidationError{Field: "scale_min", Message: "must be positive"}
	}
	if !finite(f.ScaleMax) || f.ScaleMax <= 0 {
		return ValidationError{Field: "scale_max", Message: "must be positive"}
	}
	if f.ScaleMin > f.ScaleMax {
		return ValidationError{Field: "scale_min", Message: "must not exceed scale_max"}
	}

	durations := []struct {
		field string
		value float64
	}{
		{"timing.move_duration", f.Timing.MoveDuration},
		{"timing.click_hold", f.Timing.ClickHold},
		{"timing.settle_wait", f.Timing.SettleWait},
		{"timing.timeout", f.Timing.Timeout},
		{"dodge.double_wait", f.Dodge.DoubleWait},
	}
	for _, d := range durations {
		if !finite(d.value) || d.value < 0 {
			return ValidationError{Field: d.field, Message: "must be a non-negative number of seconds"}
		}
	}

	if f.Region != nil && (f.Region.Width <= 0 || f.Region.Height <= 0) {
		return ValidationError{Field: "region", Message: "width and height must be positive"}
	}
	if f.Display < 0 {
		return ValidationError{Field: "display", Message: "must not be negative"}
	}

	switch strings.ToLower(f.Matcher) {
	case "", MatcherAuto, MatcherNCC, MatcherPixel:
	default:
		return ValidationError{Field: "matcher", Message: fmt.Sprintf("unknown matcher %q", f.Matcher)}
	}
	return validateStopKeys(f.Failsafe.StopKeys)
}

// validateStopKeys rejects key names the watchdog cannot poll, so a typo
// fails the run up front instead of disabling key-stop silently.
func validateStopKeys(keys []string) error {
	for _, k := range keys {
		if !platform.KnownKey(k) {
			return ValidationError{Field: "failsafe.stop_keys", Message: fmt.Sprintf("unknown key %q", k)}
		}
	}
	return nil
}

// ParseRegion parses "x,y,w,h" as typed on the command line.
func ParseRegion(s string) (*RegionFile, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, ValidationError{Field: "region", Message: "expected x,y,width,height"}
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, ValidationError{Field: "region", Message: fmt.Sprintf("invalid number %q", p)}
		}
		vals[i] = v
	}
	return &RegionFile{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
