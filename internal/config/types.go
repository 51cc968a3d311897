package config

import (
	"image"
	"time"
)

// File is the on-disk shape of a run configuration (config.yaml).
// Timing fields are seconds, matching the values operators type into the UI.
type File struct {
	Confidence float64     `yaml:"confidence"`
	ScaleMin   float64     `yaml:"scale_min"`
	ScaleMax   float64     `yaml:"scale_max"`
	Region     *RegionFile `yaml:"region,omitempty"`
	Matcher    string      `yaml:"matcher"`
	Display    int         `yaml:"display"`
	Timing     TimingFile  `yaml:"timing"`
	Dodge      DodgeFile   `yaml:"dodge"`
	Failsafe   Failsafe    `yaml:"failsafe"`
	Log        Log         `yaml:"log"`
}

// RegionFile is the scan region as x, y, width, height.
type RegionFile struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TimingFile holds the timing knobs in seconds.
type TimingFile struct {
	MoveDuration float64 `yaml:"move_duration"`
	ClickHold    float64 `yaml:"click_hold"`
	SettleWait   float64 `yaml:"settle_wait"`
	Timeout      float64 `yaml:"timeout"`
}

// DodgeFile configures the post-click pointer parking.
type DodgeFile struct {
	Enabled    bool      `yaml:"enabled"`
	Double     bool      `yaml:"double"`
	Point1     PointFile `yaml:"point1"`
	Point2     PointFile `yaml:"point2"`
	DoubleWait float64   `yaml:"double_wait"`
}

// PointFile is a screen coordinate.
type PointFile struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Failsafe toggles the watchdog's abort conditions.
type Failsafe struct {
	KeyStop         bool     `yaml:"key_stop"`
	CornerStop      bool     `yaml:"corner_stop"`
	TaskManagerStop bool     `yaml:"task_manager_stop"`
	StopKeys        []string `yaml:"stop_keys"`
	WindowBlocklist []string `yaml:"window_blocklist"`
}

// Log controls the diagnostic log file.
type Log struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// Config is the validated, immutable snapshot a run executes with.
type Config struct {
	Confidence float64
	ScaleMin   float64
	ScaleMax   float64
	// Region is nil when the full screen is scanned.
	Region  *image.Rectangle
	Matcher string
	Display int

	MoveDuration time.Duration
	ClickHold    time.Duration
	SettleWait   time.Duration
	Timeout      time.Duration

	DodgeEnabled       bool
	DoubleDodgeEnabled bool
	DodgePoint1        image.Point
	DodgePoint2        image.Point
	DoubleDodgeWait    time.Duration

	Failsafe Failsafe
	Log      Log
}

// Scaled reports whether the run needs precomputed scaled templates.
func (c *Config) Scaled() bool {
	return c.ScaleMin != 1.0 || c.ScaleMax != 1.0
}

// Validate re-checks the value ranges of a Config that was not produced by Build.
func (c *Config) Validate() error {
	if c.Confidence <= 0 || c.Confidence > 1 {
		return ValidationError{Field: "confidence", Message: "must be in (0, 1]"}
	}
	if c.ScaleMin <= 0 || c.ScaleMax <= 0 || c.ScaleMin > c.ScaleMax {
		return ValidationError{Field: "scale_min", Message: "scale range must be positive and ordered"}
	}
	for _, d := range []time.Duration{c.MoveDuration, c.ClickHold, c.SettleWait, c.Timeout, c.DoubleDodgeWait} {
		if d < 0 {
			return ValidationError{Field: "timing", Message: "durations must not be negative"}
		}
	}
	if c.Region != nil && c.Region.Empty() {
		return ValidationError{Field: "region", Message: "width and height must be positive"}
	}
	return validateStopKeys(c.Failsafe.StopKeys)
}
