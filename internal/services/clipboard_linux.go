//go:build linux

package services

import "fmt"

// The clipboard library needs cgo and X11 on Linux, which headless builds lack.
const clipboardAvailable = false

func initClipboard() error {
	return fmt.Errorf("clipboard not available on this platform (Linux without X11)")
}

func writeToClipboard(_ string) error {
	return fmt.Errorf("clipboard not available on this platform (Linux without X11)")
}
