// Package render prints a polling snapshot for a terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/mattn/go-isatty"

	"github.com/bwestlin/pi-home-info/pkg/types"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Terminal writes snapshots as plain text, optionally colored.
type Terminal struct {
	w     io.Writer
	color bool
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color}
}

// Configured sets up a Terminal on stdout. Color is used when stdout is a
// terminal and no-color isn't set.
func Configured() *Terminal {
	t := NewTerminal(os.Stdout, false)

	noColor := lflag.Bool("no-color", false, "Disable colored price output")

	lflag.Do(func() {
		t.color = !*noColor && IsTerminal(os.Stdout)
	})

	return t
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes snap to the underlying writer.
func (t *Terminal) Render(snap types.Snapshot) error {
	var b strings.Builder

	b.WriteString("\n")
	fmt.Fprintf(&b, "now=%s\n", snap.StartedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n")

	switch {
	case len(snap.PriceRows) > 0:
		b.WriteString("Prices:\n")
		for _, row := range snap.PriceRows {
			fmt.Fprintf(&b, " %s:00", row.Label)
		}
		b.WriteString("\n")
		for _, row := range snap.PriceRows {
			t.colored(&b, levelColor(row.Level), fmt.Sprintf("%6.1f", row.Display))
		}
		b.WriteString("\n")
	case snap.PriceErr != nil:
		fmt.Fprintf(&b, "(prices unavailable: %s)\n", kindOf(snap.PriceErr))
	}

	switch {
	case snap.Climate != nil:
		b.WriteString("\n")
		b.WriteString("Temperatures:\n")
		readings := snap.Climate.Readings()
		for i, r := range readings {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s: %s°", r.Area, strconv.FormatFloat(r.Temperature, 'f', -1, 64))
		}
		b.WriteString("\n")
	case snap.ClimateErr != nil:
		b.WriteString("\n")
		fmt.Fprintf(&b, "(temperatures unavailable: %s)\n", kindOf(snap.ClimateErr))
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *Terminal) colored(b *strings.Builder, color, s string) {
	if !t.color || color == "" {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

func levelColor(l types.BucketLevel) string {
	switch l {
	case types.BucketLow:
		return ansiGreen
	case types.BucketMedium:
		return ansiYellow
	case types.BucketHigh:
		return ansiRed
	default:
		return ""
	}
}

func kindOf(err error) string {
	if kind := types.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
