package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mouse buttons understood by the platform actuator.
const (
	ButtonLeft  = "left"
	ButtonRight = "right"
)

// Action is one compiled, validated step of a run.
type Action interface {
	Kind() Kind
}

// Click locates an image and clicks its center Count times.
type Click struct {
	Path   string
	Button string
	Count  int
	Mode   RetryMode
}

// Hover locates an image once and moves the pointer onto it.
type Hover struct {
	Path string
}

// TypeText pastes Text through the clipboard.
type TypeText struct {
	Text string
}

// Wait sleeps for Duration, honoring stop requests.
type Wait struct {
	Duration time.Duration
}

// Scroll scrolls the wheel by Ticks (positive is up).
type Scroll struct {
	Ticks int
}

// Hotkey presses Keys as one chord; the last key is tapped while the others are held.
type Hotkey struct {
	Keys []string
}

// Screenshot saves the scan region to Target, a file or a directory.
type Screenshot struct {
	Target string
}

// Kind derives the click kind from the button and repeat count.
func (c Click) Kind() Kind {
	switch {
	case c.Button == ButtonRight:
		return KindRightClick
	case c.Count > 1:
		return KindDoubleClick
	}
	return KindLeftClick
}

func (Hover) Kind() Kind { return KindHover }

func (TypeText) Kind() Kind { return KindTypeText }

func (Wait) Kind() Kind { return KindWait }

func (Scroll) Kind() Kind { return KindScroll }

func (Hotkey) Kind() Kind { return KindHotkey }

func (Screenshot) Kind() Kind { return KindScreenshot }

// CompileError reports the record that could not be turned into an action.
type CompileError struct {
	Index int
	Field string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("task %d: %s: %v", e.Index+1, e.Field, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ErrEmptyValue is returned for actions that need a value but have none.
var ErrEmptyValue = errors.New("value is empty")

// Compile validates records and converts them into typed actions, in order.
func Compile(records []Record) ([]Action, error) {
	actions := make([]Action, 0, len(records))
	for i, r := range records {
		a, field, err := compileOne(r)
		if err != nil {
			return nil, &CompileError{Index: i, Field: field, Err: err}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func compileOne(r Record) (Action, string, error) {
	kind, err := r.Kind()
	if err != nil {
		return nil, "type", err
	}
	value := strings.TrimSpace(r.Value)

	switch kind {
	case KindLeftClick, KindDoubleClick, KindRightClick:
		if value == "" {
			return nil, "value", ErrEmptyValue
		}
		c := Click{Path: value, Button: ButtonLeft, Count: 1, Mode: r.RetryMode()}
		if kind == KindDoubleClick {
			c.Count = 2
		}
		if kind == KindRightClick {
			c.Button = ButtonRight
		}
		return c, "", nil

	case KindHover:
		if value == "" {
			return nil, "value", ErrEmptyValue
		}
		return Hover{Path: value}, "", nil

	case KindTypeText:
		return TypeText{Text: r.Value}, "", nil

	case KindWait:
		secs, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, "value", fmt.Errorf("invalid wait seconds %q", r.Value)
		}
		if secs < 0 {
			return nil, "value", fmt.Errorf("negative wait %v", secs)
		}
		return Wait{Duration: time.Duration(secs * float64(time.Second))}, "", nil

	case KindScroll:
		ticks, err := strconv.Atoi(value)
		if err != nil {
			return nil, "value", fmt.Errorf("invalid scroll ticks %q", r.Value)
		}
		return Scroll{Ticks: ticks}, "", nil

	case KindHotkey:
		keys, err := ParseHotkey(value)
		if err != nil {
			return nil, "value", err
		}
		return Hotkey{Keys: keys}, "", nil

	case KindScreenshot:
		if value == "" {
			return nil, "value", ErrEmptyValue
		}
		return Screenshot{Target: value}, "", nil
	}
	return nil, "type", fmt.Errorf("unsupported kind %v", kind)
}

// ParseHotkey splits a "+"-joined, case-insensitive key combination.
func ParseHotkey(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyValue
	}
	parts := strings.Split(s, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(p))
		if k == "" {
			return nil, fmt.Errorf("malformed hotkey %q", s)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// ImagePaths returns the distinct template paths referenced by actions, in first-use order.
func ImagePaths(actions []Action) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, a := range actions {
		var p string
		switch v := a.(type) {
		case Click:
			p = v.Path
		case Hover:
			p = v.Path
		default:
			continue
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}
