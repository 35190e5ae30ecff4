package proto

import (
	"fmt"
	"sort"
)

// CodeTable maps command code bytes to kinds.
// A zero CodeTable maps nothing; use DefaultCodes.
type CodeTable struct {
	byCode [256]Kind
	byKind [kindCount]byte
	has    [kindCount]bool
}

// CodeEntry is one row of a code table
type CodeEntry struct {
	Code byte
	Kind Kind
}

var defaultEntries = []CodeEntry{
	{0x35, KindGetSN},
	{0x36, KindGetFWVer},
	{0x37, KindGetDisplayType},
	{0x43, KindAutoLineWrapOn},
	{0x44, KindAutoLineWrapOff},
	{0x51, KindAutoScrollOn},
	{0x52, KindAutoScrollOff},
	{0x47, KindSetCursorPos},
	{0x48, KindSendCursorHome},
	{0x4a, KindUnderlineCursorOn},
	{0x4b, KindUnderlineCursorOff},
	{0x53, KindBlinkCursorOn},
	{0x54, KindBlinkCursorOff},
	{0x4c, KindCursorLeft},
	{0x4d, KindCursorRight},
	{0x4e, KindAddCustomChar},
	{0x58, KindClearDisplay},
	{0x50, KindSetContrast},
	{0x42, KindBacklightOn},
	{0x46, KindBacklightOff},
	{0x99, KindBacklightLevel},
}

// DefaultCodes returns the standard command code table
func DefaultCodes() CodeTable {
	t, err := NewCodeTable(defaultEntries)
	if err != nil {
		panic(err)
	}
	return t
}

// NewCodeTable builds a table from entries. A code or kind listed twice is an error.
func NewCodeTable(entries []CodeEntry) (CodeTable, error) {
	var t CodeTable
	for _, e := range entries {
		if err := t.set(e.Code, e.Kind); err != nil {
			return CodeTable{}, err
		}
	}
	return t, nil
}

func (t *CodeTable) set(code byte, k Kind) error {
	if k == KindInvalid || k == KindASCII || k >= kindCount {
		return fmt.Errorf("kind %s cannot be assigned a command code", k)
	}
	if code == Header {
		return fmt.Errorf("code 0x%02x is the command header", code)
	}
	if prev := t.byCode[code]; prev != KindInvalid {
		return fmt.Errorf("code 0x%02x already assigned to %s, cannot assign to %s", code, prev, k)
	}
	if t.has[k] {
		return fmt.Errorf("kind %s already has code 0x%02x", k, t.byKind[k])
	}
	t.byCode[code] = k
	t.byKind[k] = code
	t.has[k] = true
	return nil
}

// WithOverrides returns a copy of the table with the given kinds moved to new codes.
// The result is rejected if two kinds end up sharing a code.
func (t CodeTable) WithOverrides(overrides map[Kind]byte) (CodeTable, error) {
	if len(overrides) == 0 {
		return t, nil
	}

	entries := make([]CodeEntry, 0, len(t.Entries()))
	for _, e := range t.Entries() {
		if _, moved := overrides[e.Kind]; moved {
			continue
		}
		entries = append(entries, e)
	}
	for k, code := range overrides {
		entries = append(entries, CodeEntry{Code: code, Kind: k})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })

	return NewCodeTable(entries)
}

// Lookup returns the kind assigned to code
func (t CodeTable) Lookup(code byte) (Kind, bool) {
	k := t.byCode[code]
	return k, k != KindInvalid
}

// Code returns the code assigned to kind
func (t CodeTable) Code(k Kind) (byte, bool) {
	if k >= kindCount || !t.has[k] {
		return 0, false
	}
	return t.byKind[k], true
}

// Len returns the number of assigned codes
func (t CodeTable) Len() int {
	n := 0
	for _, ok := range t.has {
		if ok {
			n++
		}
	}
	return n
}

// Entries returns the table sorted by code
func (t CodeTable) Entries() []CodeEntry {
	var entries []CodeEntry
	for code, k := range t.byCode {
		if k != KindInvalid {
			entries = append(entries, CodeEntry{Code: byte(code), Kind: k})
		}
	}
	return entries
}
