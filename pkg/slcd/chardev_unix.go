//go:build unix

package slcd

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NuttX segment LCD ioctls, from nuttx/lcd/slcd_ioctl.h
const (
	slcdiocBase          = 0x1100
	slcdiocGetAttributes = slcdiocBase | 0x0001
	slcdiocCurPos        = slcdiocBase | 0x0002
)

// slcdAttributes mirrors struct slcd_attributes_s
type slcdAttributes struct {
	nrows         uint16
	ncolumns      uint16
	nbars         uint8
	maxcontrast   uint8
	maxbrightness uint8
	_             uint8
}

// slcdCurPos mirrors struct slcd_curpos_s
type slcdCurPos struct {
	row    uint16
	column uint16
}

// CharDevice is an SLCD controller exposed as a character device
type CharDevice struct {
	path string
	file *os.File
}

// OpenCharDevice opens the controller at path for reading and writing
func OpenCharDevice(path string) (*CharDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open display %s: %w", path, err)
	}

	return &CharDevice{
		path: path,
		file: os.NewFile(uintptr(fd), path),
	}, nil
}

// Path returns the device path
func (d *CharDevice) Path() string {
	return d.path
}

// Attributes implements Device
func (d *CharDevice) Attributes() (Attributes, error) {
	var attr slcdAttributes
	if err := d.ioctl(slcdiocGetAttributes, unsafe.Pointer(&attr)); err != nil {
		return Attributes{}, fmt.Errorf("failed to get slcd attributes: %w", err)
	}

	return Attributes{
		Rows:          int(attr.nrows),
		Columns:       int(attr.ncolumns),
		Bars:          int(attr.nbars),
		MaxContrast:   int(attr.maxcontrast),
		MaxBrightness: int(attr.maxbrightness),
	}, nil
}

// CursorPos implements Device
func (d *CharDevice) CursorPos() (CursorPos, error) {
	var pos slcdCurPos
	if err := d.ioctl(slcdiocCurPos, unsafe.Pointer(&pos)); err != nil {
		return CursorPos{}, fmt.Errorf("failed to get slcd cursor position: %w", err)
	}
	return CursorPos{Row: int(pos.row), Column: int(pos.column)}, nil
}

// Write implements Device
func (d *CharDevice) Write(p []byte) (int, error) {
	return d.file.Write(p)
}

// Close implements Device
func (d *CharDevice) Close() error {
	return d.file.Close()
}

func (d *CharDevice) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
