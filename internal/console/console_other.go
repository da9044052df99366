//go:build !windows

// Package console handles the Windows console window. Other platforms get
// no-ops; os.Interrupt handling works there as is.
package console

// InstallInterruptHandler does nothing outside Windows.
func InstallInterruptHandler(onInterrupt func()) (reinstall func()) {
	return func() {}
}

func HasWindow() bool { return false }

// Hide does nothing outside Windows.
func Hide() bool { return false }
