// Package slcd drives NuttX style segment LCD controllers through their
// escape-code character interface.
package slcd

import (
	"fmt"
	"io"
)

const (
	esc     byte = 0x1b
	bracket byte = '['
)

// Code is a controller operation in the SLCD escape encoding
type Code uint8

const (
	CodeNormal Code = iota
	CodeFwdDel
	CodeBackDel
	CodeErase
	CodeEraseEOL
	CodeClear
	CodeHome
	CodeEnd
	CodeLeft
	CodeRight
	CodeUp
	CodeDown
	CodePageUp
	CodePageDown
	CodeBlinkStart
	CodeBlinkEnd
	CodeBlinkOff

	codeCount
)

var codeNames = [codeCount]string{
	"normal", "fwddel", "backdel", "erase", "eraseeol", "clear", "home", "end",
	"left", "right", "up", "down", "pageup", "pagedown", "blinkstart", "blinkend", "blinkoff",
}

// String returns the string representation of Code
func (c Code) String() string {
	if c < codeCount {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// Counted reports whether the code carries a repeat count
func (c Code) Counted() bool {
	switch c {
	case CodeFwdDel, CodeBackDel, CodeErase,
		CodeLeft, CodeRight, CodeUp, CodeDown, CodePageUp, CodePageDown:
		return true
	default:
		return false
	}
}

// Encode writes the escape sequence for code to w. count is ignored for
// codes that take none. All bytes are attempted; the first error is returned.
func Encode(w io.ByteWriter, code Code, count uint8) error {
	if code == CodeNormal || code >= codeCount {
		return fmt.Errorf("cannot encode slcd code %s", code)
	}

	seq := [5]byte{esc, bracket}
	n := 2
	if code.Counted() {
		seq[2] = nibble(count >> 4)
		seq[3] = nibble(count & 0x0f)
		n = 4
	}
	seq[n] = 'A' + byte(code)
	n++

	var first error
	for _, b := range seq[:n] {
		if err := w.WriteByte(b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func nibble(v uint8) byte {
	if v < 10 {
		return '0' + v
	}
	return 'a' + v - 10
}

func unnibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// Sequence is one decoded unit of controller input: either a literal
// character (Code == CodeNormal) or an operation with its count.
type Sequence struct {
	Code  Code
	Count uint8
	Char  byte
}

type decodeState int

const (
	decodeNormal decodeState = iota
	decodeEscape
	decodeBracket
	decodeNibble
)

// Decoder parses the controller's escape encoding incrementally.
// Bytes of a malformed sequence are delivered back as literals.
type Decoder struct {
	state   decodeState
	pending []byte
	count   uint8
}

// Feed consumes one byte and calls emit for every sequence it completes
func (d *Decoder) Feed(b byte, emit func(Sequence)) {
	switch d.state {
	case decodeNormal:
		if b == esc {
			d.state = decodeEscape
			d.pending = append(d.pending[:0], b)
			return
		}
		emit(Sequence{Char: b})

	case decodeEscape:
		if b != bracket {
			d.abort(b, emit)
			return
		}
		d.pending = append(d.pending, b)
		d.state = decodeBracket

	case decodeBracket:
		if v, ok := unnibble(b); ok && !isNoCountLetter(b) {
			d.count = v << 4
			d.pending = append(d.pending, b)
			d.state = decodeNibble
			return
		}
		code := Code(b - 'A')
		if b < 'A' || code >= codeCount || code == CodeNormal || code.Counted() {
			d.abort(b, emit)
			return
		}
		d.state = decodeNormal
		emit(Sequence{Code: code})

	case decodeNibble:
		if len(d.pending) == 3 {
			v, ok := unnibble(b)
			if !ok {
				d.abort(b, emit)
				return
			}
			d.count |= v
			d.pending = append(d.pending, b)
			return
		}
		code := Code(b - 'A')
		if b < 'A' || code >= codeCount || !code.Counted() {
			d.abort(b, emit)
			return
		}
		d.state = decodeNormal
		emit(Sequence{Code: code, Count: d.count})
	}
}

// isNoCountLetter reports whether b terminates a sequence without a count.
// The letters 'A'..'F' double as hex digits; only those naming uncounted
// codes end a sequence right after the bracket.
func isNoCountLetter(b byte) bool {
	if b < 'A' || b > 'F' {
		return false
	}
	code := Code(b - 'A')
	return code != CodeNormal && !code.Counted()
}

func (d *Decoder) abort(b byte, emit func(Sequence)) {
	d.state = decodeNormal
	for _, p := range d.pending {
		emit(Sequence{Char: p})
	}
	d.pending = d.pending[:0]
	d.Feed(b, emit)
}

// Decode parses a complete buffer
func Decode(p []byte) []Sequence {
	var d Decoder
	var out []Sequence
	for _, b := range p {
		d.Feed(b, func(s Sequence) { out = append(out, s) })
	}
	return out
}

// Dump formats a buffer as offset, hex and printable columns, 32 bytes per line
func Dump(p []byte) string {
	const perLine = 32
	var sb []byte

	for i := 0; i < len(p); i += perLine {
		sb = fmt.Appendf(sb, "%04x: ", i)
		for j := 0; j < perLine; j++ {
			if j == 16 {
				sb = append(sb, ' ')
			}
			if k := i + j; k < len(p) {
				sb = fmt.Appendf(sb, "%02x", p[k])
			} else {
				sb = append(sb, ' ', ' ')
			}
		}
		sb = append(sb, ' ')
		for j := 0; j < perLine && i+j < len(p); j++ {
			if j == 16 {
				sb = append(sb, ' ')
			}
			if c := p[i+j]; c >= 0x20 && c < 0x7f {
				sb = append(sb, c)
			} else {
				sb = append(sb, '.')
			}
		}
		sb = append(sb, '\n')
	}
	return string(sb)
}
