package platform

import (
	"strconv"
	"strings"
)

// virtualKeys maps key names onto Windows virtual-key codes. The table also
// defines which stop-key names are accepted on every platform.
var virtualKeys = map[string]uintptr{
	"lbutton":   0x01,
	"left":      0x01,
	"rbutton":   0x02,
	"right":     0x02,
	"mbutton":   0x04,
	"middle":    0x04,
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"return":    0x0D,
	"shift":     0x10,
	"ctrl":      0x11,
	"control":   0x11,
	"alt":       0x12,
	"pause":     0x13,
	"capslock":  0x14,
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pgup":      0x21,
	"pagedown":  0x22,
	"pgdn":      0x22,
	"end":       0x23,
	"home":      0x24,
	"insert":    0x2D,
	"delete":    0x2E,
	"del":       0x2E,
	"win":       0x5B,
}

func virtualKey(name string) (uintptr, bool) {
	name = strings.ToLower(name)
	if vk, ok := virtualKeys[name]; ok {
		return vk, true
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uintptr(c - 'a' + 'A'), true
		case c >= '0' && c <= '9':
			return uintptr(c), true
		}
	}
	if rest, ok := strings.CutPrefix(name, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 24 {
			return uintptr(0x70 + n - 1), true
		}
	}
	return 0, false
}

// KnownKey reports whether name can be polled as a stop key.
func KnownKey(name string) bool {
	_, ok := virtualKey(name)
	return ok
}
