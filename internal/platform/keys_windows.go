//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procMessageBeep      = user32.NewProc("MessageBeep")
)

func keyPressed(name string) (bool, error) {
	vk, ok := virtualKey(name)
	if !ok {
		return false, fmt.Errorf("unknown key %q", name)
	}
	state, _, _ := procGetAsyncKeyState.Call(vk)
	return state&0x8000 != 0, nil
}

func foregroundPID() (uint32, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, fmt.Errorf("no foreground window")
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func beep() {
	procMessageBeep.Call(0xFFFFFFFF)
}
