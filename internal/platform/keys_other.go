//go:build !windows

package platform

import (
	"fmt"
	"os"
)

// Global key state polling is only wired on Windows; elsewhere key-stop never fires.
func keyPressed(name string) (bool, error) {
	if !KnownKey(name) {
		return false, fmt.Errorf("unknown key %q", name)
	}
	return false, nil
}

func foregroundPID() (uint32, error) {
	return 0, ErrUnsupported
}

func beep() {
	fmt.Fprint(os.Stderr, "\a")
}
