package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"lcd-translator/pkg/app"
	"lcd-translator/pkg/lcdview"
	"lcd-translator/pkg/slcd"
)

// renderScreen draws a framed text copy of a simulated display
func renderScreen(w io.Writer, screen slcd.Screen) {
	width := 0
	if len(screen.Cells) > 0 {
		width = len(screen.Cells[0])
	}
	border := "+" + strings.Repeat("-", width) + "+"

	fmt.Fprintln(w, border)
	for _, row := range screen.Cells {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(lcdview.Rune(c))
		}
		fmt.Fprintf(w, "|%s|\n", b.String())
	}
	fmt.Fprintln(w, border)
	fmt.Fprintf(w, "cursor: row %d col %d\n", screen.Cursor.Row, screen.Cursor.Column)
}

func printSessionSummary(w io.Writer, r *app.Runner) {
	session := r.Session()
	stats := r.Stats()
	if session == nil {
		return
	}
	bytesIn, bytesOut := session.GetStats()

	fmt.Fprintln(w, "\n=== Session Summary ===")
	fmt.Fprintf(w, "Upstream: %s\n", session.Upstream)
	fmt.Fprintf(w, "Display: %s\n", session.Display)
	fmt.Fprintf(w, "Duration: %v\n", session.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Bytes In: %d\n", bytesIn)
	fmt.Fprintf(w, "Bytes Out: %d\n", bytesOut)
	fmt.Fprintf(w, "Literals: %d\n", stats.Literals)
	fmt.Fprintf(w, "Commands: %d (%d unsupported)\n", stats.Commands, stats.Unsupported)
	fmt.Fprintf(w, "Invalid: %d\n", stats.Invalid)
	fmt.Fprintf(w, "Display Errors: %d\n", stats.Errors)
	if h := r.History(); h != nil {
		fmt.Fprintf(w, "History: %d entries (%d bytes)\n", h.GetEntryCount(), h.GetSize())
	}
}
