package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Markdown renders the round summaries as a markdown document.
func (r *Reporter) Markdown(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	rounds := r.Summaries()
	if len(rounds) == 0 {
		b.WriteString("_No completed rounds._\n")
		return b.String()
	}

	b.WriteString("| Round | t upper | Iterations | Loss | Max abs error | RMS error |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range rounds {
		fmt.Fprintf(&b, "| %d | %.4g | %d | %.4e | %.4e | %.4e |\n",
			s.Round, s.TimeUpper, s.Iterations, s.Loss, s.MaxAbs, s.RMS)
	}

	last := rounds[len(rounds)-1]
	fmt.Fprintf(&b, "\n## Round %d by frame\n\n", last.Round)
	b.WriteString("| t | Max abs error | RMS error |\n")
	b.WriteString("|---:|---:|---:|\n")
	for _, f := range last.Frames {
		fmt.Fprintf(&b, "| %.4g | %.4e | %.4e |\n", f.Time, f.MaxAbs, f.RMS)
	}
	return b.String()
}

// WriteMarkdown writes Markdown(title) to report.md in the reporter's directory
// and returns the path. It is a no-op without a directory.
func (r *Reporter) WriteMarkdown(title string) (string, error) {
	if r.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, MarkdownFile)
	if err := os.WriteFile(path, []byte(r.Markdown(title)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
