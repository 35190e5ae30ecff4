package slcd

import "fmt"

// Attributes describe the controller geometry and capabilities
type Attributes struct {
	Rows          int
	Columns       int
	Bars          int
	MaxContrast   int
	MaxBrightness int
}

// Validate checks that the geometry can hold a cursor
func (a Attributes) Validate() error {
	if a.Rows <= 0 || a.Columns <= 0 {
		return fmt.Errorf("display geometry must be positive, got %dx%d", a.Columns, a.Rows)
	}
	return nil
}

// CursorPos is a zero-based cursor position as reported by the controller
type CursorPos struct {
	Row    int
	Column int
}

// Device is the target display as seen by the translator
type Device interface {
	// Attributes returns the controller geometry
	Attributes() (Attributes, error)
	// CursorPos queries the current cursor position
	CursorPos() (CursorPos, error)
	// Write sends raw encoded bytes to the controller
	Write(p []byte) (int, error)
	Close() error
}
