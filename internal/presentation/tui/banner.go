package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/curriculum/pkg/domain"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                     _             _             ", "#34d399"},
	{"  ___ _   _ _ __ _ __(_) ___ _   _| |_   _ _ __ ___  ", "#2dd4bf"},
	{" / __| | | | '__| '__| |/ __| | | | | | | | '_ ` _ \\ ", "#22d3ee"},
	{"| (__| |_| | |  | |  | | (__| |_| | | |_| | | | | | |", "#38bdf8"},
	{" \\___|\\__,_|_|  |_|  |_|\\___|\\__,_|_|\\__,_|_| |_| |_|", "#60a5fa"},
}

// PrintBanner writes the coloured program banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// RoundLine formats a finished round for the terminal: green on success, red on failure.
func RoundLine(w io.Writer, e *domain.RoundEvent) string {
	out := termenv.NewOutput(w)
	if e.Err != nil {
		return out.String(fmt.Sprintf("✗ round %d  t≤%.4g  failed: %v", e.Round, e.TimeUpper, e.Err)).
			Foreground(out.Color("#f87171")).String()
	}
	head := out.String(fmt.Sprintf("✓ round %d", e.Round)).Foreground(out.Color("#34d399")).Bold()
	return fmt.Sprintf("%s  t≤%.4g  budget=%d  iters=%d  loss=%.4e  (%s)",
		head, e.TimeUpper, e.Budget, e.Iterations, e.Loss, e.Duration.Round(1e6))
}
