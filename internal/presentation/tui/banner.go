package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                  _         ", "#38bdf8"},
	{"  _ __  __ _ _ __| |___ _  _", "#22d3ee"},
	{" | '_ \\/ _` | '_ | / -_) || |", "#2dd4bf"},
	{" | .__/\\__,_|_| |_\\___|\\_, |", "#34d399"},
	{" |_|                    |__/ ", "#4ade80"},
}

// PrintBanner writes the parley banner, colored for the terminal profile of w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
