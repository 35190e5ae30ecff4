// Package lcdview draws a simulated character display in a terminal
package lcdview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/charmap"

	"lcd-translator/pkg/slcd"
)

// ErrQuit is returned by Run when the user closes the view
var ErrQuit = errors.New("view closed")

// Source provides display snapshots. *slcd.Simulator implements it.
type Source interface {
	Snapshot() slcd.Screen
}

// Options configures a View
type Options struct {
	Title string
	// Interval between redraws, which is also the cursor blink period
	Interval time.Duration
}

// DefaultOptions returns the options used by the CLI
func DefaultOptions() Options {
	return Options{
		Title:    "lcd-translator",
		Interval: 250 * time.Millisecond,
	}
}

// View renders a Source inside a box
type View struct {
	screen tcell.Screen
	src    Source
	opts   Options

	blinkOn bool
}

var (
	frameStyle  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	cellStyle   = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorBlack)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// New creates a view drawing src on screen. The screen is initialised by Run.
func New(screen tcell.Screen, src Source, opts Options) *View {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	return &View{screen: screen, src: src, opts: opts}
}

// Run draws until ctx is done or the user presses Esc, Ctrl+C or q.
// A user quit returns ErrQuit.
func (v *View) Run(ctx context.Context) error {
	if err := v.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer v.screen.Fini()

	v.screen.SetStyle(tcell.StyleDefault)
	v.screen.HideCursor()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go v.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(v.opts.Interval)
	defer ticker.Stop()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v.blinkOn = !v.blinkOn
			v.Draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuitKey(ev) {
					return ErrQuit
				}
			case *tcell.EventResize:
				v.screen.Sync()
				v.Draw()
			}
		}
	}
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

// Draw renders the current snapshot
func (v *View) Draw() {
	snap := v.src.Snapshot()
	rows := len(snap.Cells)
	cols := 0
	if rows > 0 {
		cols = len(snap.Cells[0])
	}

	v.screen.Clear()
	v.drawFrame(cols+2, rows+2)

	for r, line := range snap.Cells {
		for c, b := range line {
			style := cellStyle
			if r == snap.Cursor.Row && c == snap.Cursor.Column {
				style = v.cursorStyle(snap.Blink)
			}
			v.screen.SetContent(c+1, r+1, Rune(b), nil, style)
		}
	}

	status := fmt.Sprintf("%dx%d  row %d col %d", cols, rows, snap.Cursor.Row, snap.Cursor.Column)
	if snap.Blink {
		status += "  blink"
	}
	v.drawText(0, rows+2, status+"  (q to quit)", statusStyle)

	v.screen.Show()
}

func (v *View) cursorStyle(blink bool) tcell.Style {
	style := cellStyle.Underline(true)
	if blink && v.blinkOn {
		style = style.Reverse(true)
	}
	return style
}

func (v *View) drawFrame(w, h int) {
	v.screen.SetContent(0, 0, '┌', nil, frameStyle)
	v.screen.SetContent(w-1, 0, '┐', nil, frameStyle)
	v.screen.SetContent(0, h-1, '└', nil, frameStyle)
	v.screen.SetContent(w-1, h-1, '┘', nil, frameStyle)
	for x := 1; x < w-1; x++ {
		v.screen.SetContent(x, 0, '─', nil, frameStyle)
		v.screen.SetContent(x, h-1, '─', nil, frameStyle)
	}
	for y := 1; y < h-1; y++ {
		v.screen.SetContent(0, y, '│', nil, frameStyle)
		v.screen.SetContent(w-1, y, '│', nil, frameStyle)
	}

	if v.opts.Title != "" && w > 4 {
		title := runewidth.Truncate(" "+v.opts.Title+" ", w-2, "…")
		v.drawText(1, 0, title, frameStyle.Bold(true))
	}
}

// drawText draws text at x, y advancing by each rune's display width
func (v *View) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// Rune maps a display byte to the rune shown for it. C0 and C1 control
// bytes are shown as a middle dot.
func Rune(b byte) rune {
	if b < 0x20 || (b >= 0x7f && b < 0xa0) {
		return '·'
	}
	return charmap.ISO8859_1.DecodeByte(b)
}
