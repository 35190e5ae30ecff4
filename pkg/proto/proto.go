// Package proto decodes the Matrix Orbital style LCD command stream
package proto

import "fmt"

// Header introduces a command in the upstream stream
const Header byte = 0xFE

// Placeholder replaces literal bytes that collide with custom glyph slots
const Placeholder byte = '#'

// Kind identifies the operation a decoded message represents
type Kind uint8

const (
	KindInvalid Kind = iota
	KindASCII
	KindGetSN
	KindGetFWVer
	KindGetDisplayType
	KindAutoLineWrapOn
	KindAutoLineWrapOff
	KindAutoScrollOn
	KindAutoScrollOff
	KindSetCursorPos
	KindSendCursorHome
	KindUnderlineCursorOn
	KindUnderlineCursorOff
	KindBlinkCursorOn
	KindBlinkCursorOff
	KindCursorLeft
	KindCursorRight
	KindAddCustomChar
	KindClearDisplay
	KindSetContrast
	KindBacklightOn
	KindBacklightOff
	KindBacklightLevel

	kindCount
)

var names = [kindCount]string{
	KindInvalid:            "invalid",
	KindASCII:              "ascii",
	KindGetSN:              "get_sn",
	KindGetFWVer:           "get_fw_ver",
	KindGetDisplayType:     "get_display_type",
	KindAutoLineWrapOn:     "auto_line_wrap_on",
	KindAutoLineWrapOff:    "auto_line_wrap_off",
	KindAutoScrollOn:       "auto_scroll_on",
	KindAutoScrollOff:      "auto_scroll_off",
	KindSetCursorPos:       "set_cursor_pos",
	KindSendCursorHome:     "send_cursor_home",
	KindUnderlineCursorOn:  "underline_cursor_on",
	KindUnderlineCursorOff: "underline_cursor_off",
	KindBlinkCursorOn:      "blink_cursor_on",
	KindBlinkCursorOff:     "blink_cursor_off",
	KindCursorLeft:         "cursor_left",
	KindCursorRight:        "cursor_right",
	KindAddCustomChar:      "add_custom_char",
	KindClearDisplay:       "clr_display",
	KindSetContrast:        "set_contrast",
	KindBacklightOn:        "backlight_on",
	KindBacklightOff:       "backlight_off",
	KindBacklightLevel:     "backlight_lvl",
}

// String returns the diagnostic label of the kind
func (k Kind) String() string {
	if k < kindCount {
		return names[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds returns every command kind except KindInvalid and KindASCII
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-2)
	for k := KindGetSN; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind returns the kind with the given label
func ParseKind(name string) (Kind, error) {
	for k, n := range names {
		if n == name {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown command kind: %q", name)
}

// DataLen returns how many data bytes follow the command code
func DataLen(k Kind) int {
	switch k {
	case KindSetCursorPos:
		return 2
	case KindSetContrast, KindBacklightOn, KindBacklightLevel:
		return 1
	case KindAddCustomChar:
		return 9
	default:
		return 0
	}
}

// Position is a 1-based cursor position as sent by the host
type Position struct {
	Col uint8
	Row uint8
}

// Event is a decoded command together with its payload.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// Char is the literal byte for KindASCII, already remapped
	Char byte

	// Pos is set for KindSetCursorPos
	Pos Position

	// Value carries contrast, backlight level or backlight-on minutes
	Value byte

	// Glyph holds the slot index followed by 8 bitmap rows
	Glyph [9]byte
}

// String formats the event for traces
func (e Event) String() string {
	switch e.Kind {
	case KindASCII:
		return fmt.Sprintf("ascii 0x%02x %q", e.Char, rune(e.Char))
	case KindSetCursorPos:
		return fmt.Sprintf("set_cursor_pos col=%d row=%d", e.Pos.Col, e.Pos.Row)
	case KindSetContrast, KindBacklightOn, KindBacklightLevel:
		return fmt.Sprintf("%s %d", e.Kind, e.Value)
	case KindAddCustomChar:
		return fmt.Sprintf("add_custom_char slot=%d % x", e.Glyph[0], e.Glyph[1:])
	default:
		return e.Kind.String()
	}
}

// remapLiteral replaces bytes that would select a custom glyph slot
func remapLiteral(b byte) byte {
	if b <= 0x07 || b == 0xFF {
		return Placeholder
	}
	return b
}
