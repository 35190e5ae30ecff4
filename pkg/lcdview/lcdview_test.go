package lcdview

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"lcd-translator/pkg/slcd"
)

type fixedSource struct {
	screen slcd.Screen
}

func (f fixedSource) Snapshot() slcd.Screen { return f.screen }

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	s.SetSize(40, 10)
	t.Cleanup(s.Fini)
	return s
}

func readLine(s tcell.Screen, y, x0, n int) string {
	var b strings.Builder
	for x := x0; x < x0+n; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestRune(t *testing.T) {
	tests := []struct {
		in   byte
		want rune
	}{
		{'A', 'A'},
		{' ', ' '},
		{'#', '#'},
		{0x01, '·'},
		{0x7f, '·'},
		{0x85, '·'},
		{0xe9, 'é'},
		{0xb0, '°'},
	}

	for _, tt := range tests {
		if got := Rune(tt.in); got != tt.want {
			t.Errorf("Rune(%#x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestView_Draw(t *testing.T) {
	screen := newScreen(t)
	src := fixedSource{screen: slcd.Screen{
		Cells:  [][]byte{[]byte("Hello    "), []byte("World    ")},
		Cursor: slcd.CursorPos{Row: 1, Column: 5},
	}}

	v := New(screen, src, Options{Title: "bench"})
	v.Draw()

	if got := readLine(screen, 1, 1, 9); got != "Hello    " {
		t.Errorf("row 0 = %q, want %q", got, "Hello    ")
	}
	if got := readLine(screen, 2, 1, 9); got != "World    " {
		t.Errorf("row 1 = %q, want %q", got, "World    ")
	}

	if r, _, _, _ := screen.GetContent(0, 0); r != '┌' {
		t.Errorf("top-left corner = %q, want %q", r, '┌')
	}
	if r, _, _, _ := screen.GetContent(10, 3); r != '┘' {
		t.Errorf("bottom-right corner = %q, want %q", r, '┘')
	}
	if got := readLine(screen, 0, 1, 7); got != " bench " {
		t.Errorf("title = %q, want %q", got, " bench ")
	}

	_, _, style, _ := screen.GetContent(6, 2)
	if _, _, attrs := style.Decompose(); attrs&tcell.AttrUnderline == 0 {
		t.Error("cursor cell should be underlined")
	}

	if status := readLine(screen, 4, 0, 20); !strings.HasPrefix(status, "9x2  row 1 col 5") {
		t.Errorf("status = %q, want prefix %q", status, "9x2  row 1 col 5")
	}
}

func TestView_TitleTruncated(t *testing.T) {
	screen := newScreen(t)
	src := fixedSource{screen: slcd.Screen{Cells: [][]byte{[]byte("abcd")}}}

	v := New(screen, src, Options{Title: "a very long title"})
	v.Draw()

	if got := readLine(screen, 0, 1, 4); got != " a …" {
		t.Errorf("title = %q, want %q", got, " a …")
	}
	if r, _, _, _ := screen.GetContent(5, 0); r != '┐' {
		t.Errorf("title overwrote corner: got %q", r)
	}
}

func TestView_BlinkCursor(t *testing.T) {
	screen := newScreen(t)
	src := fixedSource{screen: slcd.Screen{Cells: [][]byte{[]byte("ab")}, Blink: true}}

	v := New(screen, src, Options{})
	reversed := func() bool {
		_, _, style, _ := screen.GetContent(1, 1)
		_, _, attrs := style.Decompose()
		return attrs&tcell.AttrReverse != 0
	}

	v.blinkOn = true
	v.Draw()
	if !reversed() {
		t.Error("blinking cursor should be reversed in its on phase")
	}

	v.blinkOn = false
	v.Draw()
	if reversed() {
		t.Error("blinking cursor should not be reversed in its off phase")
	}
}

func TestIsQuitKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want bool
	}{
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), true},
		{"ctrl-c", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), true},
		{"q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), true},
		{"Q", tcell.NewEventKey(tcell.KeyRune, 'Q', tcell.ModNone), true},
		{"x", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), false},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuitKey(tt.ev); got != tt.want {
				t.Errorf("isQuitKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestView_RunStopsOnContext(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	src := fixedSource{screen: slcd.Screen{Cells: [][]byte{[]byte("ab")}}}
	v := New(screen, src, Options{Interval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
