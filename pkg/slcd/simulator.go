package slcd

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// SimulatorOptions configures a Simulator
type SimulatorOptions struct {
	Attributes Attributes

	// WrapJump makes the controller land two rows down, instead of one,
	// after a character is written to the last column.
	WrapJump bool

	// UpShortfall makes UP move only half the requested rows, rounded up.
	UpShortfall bool
}

// DefaultSimulatorOptions describes a 20x4 controller that wraps two rows down
func DefaultSimulatorOptions() SimulatorOptions {
	return SimulatorOptions{
		Attributes: Attributes{
			Rows:          4,
			Columns:       20,
			Bars:          0,
			MaxContrast:   0,
			MaxBrightness: 255,
		},
		WrapJump: true,
	}
}

// Screen is a copy of the simulated display contents
type Screen struct {
	Cells  [][]byte
	Cursor CursorPos
	Blink  bool
}

// Line returns row r as a string
func (s Screen) Line(r int) string {
	return string(s.Cells[r])
}

// String renders all rows separated by newlines
func (s Screen) String() string {
	lines := make([]string, len(s.Cells))
	for i := range s.Cells {
		lines[i] = s.Line(i)
	}
	return strings.Join(lines, "\n")
}

// Simulator is an in-memory SLCD controller. It implements Device and is
// safe for concurrent use so that a viewer can render it while a session
// writes to it.
type Simulator struct {
	mu     sync.Mutex
	opts   SimulatorOptions
	cells  [][]byte
	row    int
	col    int
	blink  bool
	dec    Decoder
	writes int
	out    bytes.Buffer
	closed bool
}

// NewSimulator creates a blank simulated controller
func NewSimulator(opts SimulatorOptions) (*Simulator, error) {
	if err := opts.Attributes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator attributes: %w", err)
	}

	s := &Simulator{opts: opts}
	s.cells = make([][]byte, opts.Attributes.Rows)
	for r := range s.cells {
		s.cells[r] = bytes.Repeat([]byte{' '}, opts.Attributes.Columns)
	}
	return s, nil
}

// Attributes implements Device
func (s *Simulator) Attributes() (Attributes, error) {
	return s.opts.Attributes, nil
}

// CursorPos implements Device
func (s *Simulator) CursorPos() (CursorPos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return CursorPos{}, fmt.Errorf("simulator is closed")
	}
	return CursorPos{Row: s.row, Column: s.col}, nil
}

// Write implements Device
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("simulator is closed")
	}

	s.writes++
	s.out.Write(p)
	for _, b := range p {
		s.dec.Feed(b, s.apply)
	}
	return len(p), nil
}

// Close implements Device
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Writes returns how many Write calls the controller received
func (s *Simulator) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes
}

// Output returns every byte written to the controller
func (s *Simulator) Output() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return bytes.Clone(s.out.Bytes())
}

// Snapshot copies the current display state
func (s *Simulator) Snapshot() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := make([][]byte, len(s.cells))
	for r := range s.cells {
		cells[r] = bytes.Clone(s.cells[r])
	}
	return Screen{
		Cells:  cells,
		Cursor: CursorPos{Row: s.row, Column: s.col},
		Blink:  s.blink,
	}
}

// apply executes one decoded sequence; s.mu is held
func (s *Simulator) apply(seq Sequence) {
	rows, cols := s.opts.Attributes.Rows, s.opts.Attributes.Columns
	n := int(seq.Count)

	switch seq.Code {
	case CodeNormal:
		s.put(seq.Char)
	case CodeClear:
		for r := range s.cells {
			s.blankFrom(r, 0)
		}
		s.row, s.col = 0, 0
	case CodeHome:
		s.col = 0
	case CodeEnd:
		s.col = cols - 1
	case CodeEraseEOL:
		s.blankFrom(s.row, s.col)
	case CodeErase:
		for i := s.col; i < cols && i < s.col+n; i++ {
			s.cells[s.row][i] = ' '
		}
	case CodeFwdDel:
		s.deleteAt(s.col, n)
	case CodeBackDel:
		if n > s.col {
			n = s.col
		}
		s.col -= n
		s.deleteAt(s.col, n)
	case CodeLeft:
		s.col = max(s.col-n, 0)
	case CodeRight:
		s.col = min(s.col+n, cols-1)
	case CodeUp:
		if s.opts.UpShortfall {
			n = (n + 1) / 2
		}
		s.row = max(s.row-n, 0)
	case CodeDown:
		s.row = min(s.row+n, rows-1)
	case CodeBlinkStart:
		s.blink = true
	case CodeBlinkEnd, CodeBlinkOff:
		s.blink = false
	case CodePageUp, CodePageDown:
		// single page controller
	}
}

func (s *Simulator) put(c byte) {
	rows, cols := s.opts.Attributes.Rows, s.opts.Attributes.Columns

	s.cells[s.row][s.col] = c
	s.col++
	if s.col < cols {
		return
	}

	s.col = 0
	step := 1
	if s.opts.WrapJump {
		step = 2
	}
	s.row = (s.row + step) % rows
}

func (s *Simulator) blankFrom(r, c int) {
	for i := c; i < len(s.cells[r]); i++ {
		s.cells[r][i] = ' '
	}
}

func (s *Simulator) deleteAt(c, n int) {
	line := s.cells[s.row]
	if n <= 0 || c >= len(line) {
		return
	}
	if c+n > len(line) {
		n = len(line) - c
	}
	copy(line[c:], line[c+n:])
	for i := len(line) - n; i < len(line); i++ {
		line[i] = ' '
	}
}
