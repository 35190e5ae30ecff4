//go:build !unix

package slcd

import (
	"fmt"
	"runtime"
)

// CharDevice is an SLCD controller exposed as a character device
type CharDevice struct{}

// OpenCharDevice is not available on this platform
func OpenCharDevice(path string) (*CharDevice, error) {
	return nil, fmt.Errorf("slcd character devices are not supported on %s", runtime.GOOS)
}

func (d *CharDevice) Path() string { return "" }

func (d *CharDevice) Attributes() (Attributes, error) {
	return Attributes{}, fmt.Errorf("not supported")
}

func (d *CharDevice) CursorPos() (CursorPos, error) {
	return CursorPos{}, fmt.Errorf("not supported")
}

func (d *CharDevice) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("not supported")
}

func (d *CharDevice) Close() error { return nil }
