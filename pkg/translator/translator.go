// Package translator maps decoded LCD commands onto an SLCD controller
package translator

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"lcd-translator/pkg/proto"
	"lcd-translator/pkg/slcd"
)

// maxCount is the largest repeat count an escape sequence can carry
const maxCount = 0xff

// supported lists the commands the display has an equivalent for
var supported = map[proto.Kind]bool{
	proto.KindASCII:          true,
	proto.KindSetCursorPos:   true,
	proto.KindSendCursorHome: true,
	proto.KindCursorLeft:     true,
	proto.KindCursorRight:    true,
	proto.KindClearDisplay:   true,
}

// Supported reports whether Apply translates k into display operations
func Supported(k proto.Kind) bool {
	return supported[k]
}

// Options configures a Translator
type Options struct {
	Logger zerolog.Logger
	Stream slcd.StreamOptions
}

// DefaultOptions returns options with a silent logger and the default flush policy
func DefaultOptions() Options {
	return Options{
		Logger: zerolog.Nop(),
		Stream: slcd.DefaultStreamOptions(),
	}
}

// Outcome describes what applying one event did
type Outcome struct {
	Kind proto.Kind
	// Supported is false for commands the display has no equivalent for
	Supported bool
	// Err holds device errors hit while applying the event. They are
	// reported, never fatal: the next event is applied as usual.
	Err error
}

// Translator owns the display for the lifetime of a session
type Translator struct {
	dev    slcd.Device
	stream *slcd.Stream
	attr   slcd.Attributes
	log    zerolog.Logger
}

// New reads the display attributes once and clears the display
func New(dev slcd.Device, opts Options) (*Translator, error) {
	attr, err := dev.Attributes()
	if err != nil {
		return nil, fmt.Errorf("failed to get display attributes: %w", err)
	}
	if err := attr.Validate(); err != nil {
		return nil, err
	}

	opts.Logger.Info().
		Int("rows", attr.Rows).
		Int("columns", attr.Columns).
		Int("nbars", attr.Bars).
		Int("max_contrast", attr.MaxContrast).
		Int("max_brightness", attr.MaxBrightness).
		Msg("slcd attributes")

	streamOpts := opts.Stream
	streamOpts.Logger = opts.Logger

	t := &Translator{
		dev:    dev,
		stream: slcd.NewStream(dev, streamOpts),
		attr:   attr,
		log:    opts.Logger,
	}

	if err := errors.Join(t.encode(slcd.CodeClear, 0), t.stream.Flush()); err != nil {
		return nil, fmt.Errorf("failed to clear display: %w", err)
	}

	return t, nil
}

// Attributes returns the geometry read at construction
func (t *Translator) Attributes() slcd.Attributes {
	return t.attr
}

// Close releases the display
func (t *Translator) Close() error {
	return t.dev.Close()
}

// Apply issues the display operations for ev
func (t *Translator) Apply(ev proto.Event) Outcome {
	out := Outcome{Kind: ev.Kind, Supported: true}

	if ev.Kind == proto.KindASCII {
		t.log.Trace().Str("char", fmt.Sprintf("0x%02x %q", ev.Char, rune(ev.Char))).Msg("ascii")
		out.Err = t.literal(ev.Char)
		t.report(out)
		return out
	}

	var err error
	switch ev.Kind {
	case proto.KindSetCursorPos:
		row, col := t.clamp(ev.Pos)
		t.log.Debug().Int("row", row).Int("col", col).Msg("cursor")
		err = t.moveTo(row, col, true)
	case proto.KindSendCursorHome:
		t.log.Debug().Msg("cursor home")
		// HOME only resets the column, the UP reaches the first row
		err = t.moveTo(0, 0, false)
	case proto.KindCursorLeft:
		err = t.encode(slcd.CodeLeft, 1)
	case proto.KindCursorRight:
		err = t.encode(slcd.CodeRight, 1)
	case proto.KindClearDisplay:
		err = t.encode(slcd.CodeClear, 0)
	default:
		out.Supported = false
		t.log.Debug().Str("cmd", ev.Kind.String()).Msg("command not supported by display")
	}

	out.Err = errors.Join(err, t.stream.Flush())
	t.report(out)
	return out
}

// literal writes c and performs the line wrap itself. The cursor is read
// before the write: after the last column some controllers report a row
// two lines down instead of the next one.
func (t *Translator) literal(c byte) error {
	pos, qerr := t.dev.CursorPos()

	err := errors.Join(t.stream.WriteByte(c), t.stream.Flush())
	if qerr != nil {
		return errors.Join(fmt.Errorf("failed to query cursor: %w", qerr), err)
	}

	if pos.Column != t.attr.Columns-1 {
		return err
	}

	row := (pos.Row + 1) % t.attr.Rows
	return errors.Join(err, t.moveTo(row, 0, true), t.stream.Flush())
}

// moveTo places the cursor at a zero-based position starting from HOME.
// doubleUp overshoots the climb to the first row by a full screen for
// controllers that lose a line when moving up.
func (t *Translator) moveTo(row, col int, doubleUp bool) error {
	up := t.attr.Rows
	if doubleUp {
		up *= 2
	}

	errs := []error{
		t.encode(slcd.CodeHome, 0),
		t.encode(slcd.CodeUp, count(up)),
		t.stream.Flush(),
	}
	if col > 0 {
		errs = append(errs, t.encode(slcd.CodeRight, count(col)))
	}
	if row > 0 {
		errs = append(errs, t.encode(slcd.CodeDown, count(row)))
	}
	return errors.Join(errs...)
}

// clamp converts a 1-based host position to a zero-based one on this display.
// Out-of-range host coordinates, 0 included, are pinned to the nearest edge
// rather than wrapping or being left for the controller to clamp.
func (t *Translator) clamp(p proto.Position) (row, col int) {
	row = min(max(int(p.Row), 1), t.attr.Rows) - 1
	col = min(max(int(p.Col), 1), t.attr.Columns) - 1
	return row, col
}

func (t *Translator) encode(code slcd.Code, n uint8) error {
	return slcd.Encode(t.stream, code, n)
}

func (t *Translator) report(out Outcome) {
	if out.Err != nil {
		t.log.Error().Err(out.Err).Str("cmd", out.Kind.String()).Msg("display command failed")
	}
}

func count(n int) uint8 {
	if n > maxCount {
		return maxCount
	}
	return uint8(n)
}
