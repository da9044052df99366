// Package console handles the Windows console window: Ctrl+C delivery while
// SDL holds the main thread, and detaching when started minimized.
package console

import (
	"sync/atomic"

	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow      = kernel32.NewProc("GetConsoleWindow")
	procFreeConsole           = kernel32.NewProc("FreeConsole")
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")
)

const (
	ctrlCEvent     = 0
	ctrlBreakEvent = 1
)

// handlerState is reachable from the Windows callback.
type handlerState struct {
	fired       atomic.Bool
	onInterrupt func()
	callback    uintptr
}

// InstallInterruptHandler calls onInterrupt once on Ctrl+C or Ctrl+Break.
// SDL replaces console handlers during initialization, so the returned
// function must be called again after SDL is up.
func InstallInterruptHandler(onInterrupt func()) (reinstall func()) {
	st := &handlerState{onInterrupt: onInterrupt}
	st.callback = windows.NewCallback(func(ctrlType uint32) uintptr {
		if ctrlType == ctrlCEvent || ctrlType == ctrlBreakEvent {
			if st.fired.CompareAndSwap(false, true) {
				st.onInterrupt()
			}
			return 1
		}
		return 0
	})

	register := func() {
		procSetConsoleCtrlHandler.Call(st.callback, 1)
	}
	register()
	return register
}

// HasWindow reports whether the process owns a console window.
func HasWindow() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd != 0
}

// Hide detaches the process from its console window. It reports whether a
// window was detached.
func Hide() bool {
	if !HasWindow() {
		return false
	}
	ret, _, _ := procFreeConsole.Call()
	return ret != 0
}
