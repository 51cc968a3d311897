package task

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Kind identifies what an action does. Values match the "type" field of task files.
type Kind int

const (
	KindLeftClick Kind = iota + 1
	KindDoubleClick
	KindRightClick
	KindTypeText
	KindWait
	KindScroll
	KindHotkey
	KindHover
	KindScreenshot
)

var kindNames = map[Kind]string{
	KindLeftClick:   "left click",
	KindDoubleClick: "double click",
	KindRightClick:  "right click",
	KindTypeText:    "type text",
	KindWait:        "wait",
	KindScroll:      "scroll",
	KindHotkey:      "hotkey",
	KindHover:       "hover",
	KindScreenshot:  "screenshot",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RetryMode selects how long an image-seeking action keeps trying.
type RetryMode int

const (
	// RetryOnce returns after the first successful match-and-act.
	RetryOnce RetryMode = iota
	// RetryUntilTimeout keeps matching and acting until the action deadline.
	RetryUntilTimeout
)

// RetryForever is the "retry" value that selects RetryUntilTimeout.
const RetryForever = -1

// Record is one entry of a task file, as authored by the operator.
type Record struct {
	Type  float64 `json:"type"`
	Value string  `json:"value"`
	Retry int     `json:"retry"`
}

// UnmarshalJSON defaults a missing "retry" to a single shot.
func (r *Record) UnmarshalJSON(data []byte) error {
	type raw Record
	v := raw{Retry: 1}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Record(v)
	return nil
}

// Kind returns the record's action kind, or an error if "type" is not one of 1-9.
func (r Record) Kind() (Kind, error) {
	if r.Type != math.Trunc(r.Type) {
		return 0, fmt.Errorf("type %v is not a whole number", r.Type)
	}
	k := Kind(r.Type)
	if _, ok := kindNames[k]; !ok {
		return 0, fmt.Errorf("unknown type %v", r.Type)
	}
	return k, nil
}

// RetryMode maps the "retry" field onto a retry policy.
func (r Record) RetryMode() RetryMode {
	if r.Retry == RetryForever {
		return RetryUntilTimeout
	}
	return RetryOnce
}

// LoadFile reads a JSON array of records.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse task file: %w", err)
	}
	return records, nil
}
