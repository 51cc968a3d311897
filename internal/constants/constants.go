package constants

import "time"

// Task Runner / Action Executor
const (
	// Retry Loops
	RetryPause      = 10 * time.Millisecond // Pause between match-and-act cycles in retry-until-timeout mode
	LocateRetryWait = 1 * time.Millisecond  // Pause after a failed locate while the action deadline is still open
	TimeoutEpsilon  = 1 * time.Millisecond  // Timeouts at or below this mean "single attempt, no retry"

	// Interaction Delays
	DoubleClickGap = 20 * time.Millisecond  // Gap between repeated clicks of a multi-click
	PasteSettle    = 200 * time.Millisecond // Wait after issuing the paste chord
	WaitPollStep   = 50 * time.Millisecond  // Max sleep slice inside a Wait action before re-checking stop
	MoveStep       = 10 * time.Millisecond  // Interpolation step for timed pointer moves
)

// Watchdog
const (
	WatchdogPollInterval = 20 * time.Millisecond  // Poll cadence for key and corner checks
	WindowSampleInterval = 100 * time.Millisecond // Minimum spacing between foreground window samples
	WatchdogErrorBackoff = 1 * time.Second        // Back-off after a failed or panicking poll cycle
	CornerMargin         = 10                     // Trigger zone size in pixels at the top-right corner
)

// Image Matching
const (
	ScaleStep       = 0.05 // Spacing of precomputed template scales
	UnitScaleBand   = 0.01 // Scales within this distance of 1.0 reuse the unscaled template
	PixelTolerance  = 24.0 // Intensity tolerance of the fallback matcher (0-255)
	PerfectScoreEps = 1e-7 // Correlation scores this close to 1 are snapped to 1
)

// Logging
const (
	LogTimeLayout = "2006-01-02 15:04:05"
	MaxUILogLines = 100 // Lines kept in the UI log list
)
