// Package report compares trained approximations against the analytic
// reference after every round and writes the comparison as CSV and markdown.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/aretw0/curriculum/internal/logging"
	"github.com/aretw0/curriculum/pkg/domain"
	"github.com/aretw0/curriculum/pkg/ports"
)

// MarkdownFile is the summary written by WriteMarkdown.
const MarkdownFile = "report.md"

// FrameError is the error of one time slice.
type FrameError struct {
	Time   float64 `json:"t"`
	MaxAbs float64 `json:"max_abs"`
	RMS    float64 `json:"rms"`
}

// RoundSummary is what the reporter keeps of one round.
type RoundSummary struct {
	Round      int          `json:"round"`
	TimeUpper  float64      `json:"time_upper"`
	Loss       float64      `json:"loss"`
	Iterations int          `json:"iterations"`
	Frames     []FrameError `json:"frames"`
	MaxAbs     float64      `json:"max_abs"`
	RMS        float64      `json:"rms"`
	File       string       `json:"file,omitempty"`
}

// Reporter samples each round's approximation on a regular grid.
type Reporter struct {
	evaluator ports.Evaluator
	reference domain.ReferenceFunc

	dir    string
	grid   int
	frames int
	logger *slog.Logger

	mu     sync.Mutex
	rounds []RoundSummary
	errs   []error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithDir writes a CSV per round into dir. Without it nothing touches disk.
func WithDir(dir string) Option {
	return func(r *Reporter) { r.dir = dir }
}

// WithGrid sets the number of samples per space axis (at least 2).
func WithGrid(n int) Option {
	return func(r *Reporter) {
		if n >= 2 {
			r.grid = n
		}
	}
}

// WithFrames sets the number of time slices sampled in [0, t_upper].
func WithFrames(n int) Option {
	return func(r *Reporter) {
		if n >= 1 {
			r.frames = n
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reporter. evaluator turns parameters into values; reference is the exact solution.
func New(evaluator ports.Evaluator, reference domain.ReferenceFunc, opts ...Option) *Reporter {
	r := &Reporter{
		evaluator: evaluator,
		reference: reference,
		grid:      11,
		frames:    3,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe matches domain.Observer. Write errors are logged and kept for Err;
// they never interrupt training.
func (r *Reporter) Observe(round int, dom domain.DomainSpec, result domain.TrainingResult) {
	summary, rows := r.evaluate(round, dom, result)

	if r.dir != "" {
		name := fmt.Sprintf("round-%02d.csv", round)
		if err := r.writeCSV(filepath.Join(r.dir, name), dom, rows); err != nil {
			r.logger.Error("failed to write round report", "round", round, "err", err)
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		} else {
			summary.File = name
		}
	}

	r.mu.Lock()
	r.rounds = append(r.rounds, summary)
	r.mu.Unlock()

	r.logger.Debug("round evaluated", "round", round, "max_abs", summary.MaxAbs, "rms", summary.RMS)
}

// Summaries returns a copy of every recorded round.
func (r *Reporter) Summaries() []RoundSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoundSummary, len(r.rounds))
	for i, s := range r.rounds {
		s.Frames = append([]FrameError(nil), s.Frames...)
		out[i] = s
	}
	return out
}

// Err returns the first write error seen, if any.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

type sample struct {
	point     domain.Point
	predicted float64
	analytic  float64
}

func (r *Reporter) evaluate(round int, dom domain.DomainSpec, result domain.TrainingResult) (RoundSummary, []sample) {
	summary := RoundSummary{
		Round:      round,
		TimeUpper:  dom.Time().Upper,
		Loss:       result.FinalLoss,
		Iterations: result.Iterations,
	}

	space := dom.Space()
	axes := make([][]float64, len(space))
	for i, iv := range space {
		axes[i] = linspace(iv.Lower, iv.Upper, r.grid)
	}

	var rows []sample
	var all []float64
	for _, t := range frameTimes(dom.Time().Upper, r.frames) {
		var diffs []float64
		grid(axes, func(x []float64) {
			p := append(domain.Point{t}, x...)
			s := sample{
				point:     p,
				predicted: r.evaluator.Evaluate(result.Parameters, p),
				analytic:  r.reference(p),
			}
			rows = append(rows, s)
			diffs = append(diffs, s.predicted-s.analytic)
		})
		summary.Frames = append(summary.Frames, FrameError{
			Time:   t,
			MaxAbs: floats.Norm(diffs, math.Inf(1)),
			RMS:    rms(diffs),
		})
		all = append(all, diffs...)
	}
	summary.MaxAbs = floats.Norm(all, math.Inf(1))
	summary.RMS = rms(all)
	return summary, rows
}

func (r *Reporter) writeCSV(path string, dom domain.DomainSpec, rows []sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{domain.TimeAxis}
	for _, iv := range dom.Space() {
		header = append(header, iv.Name)
	}
	header = append(header, "predicted", "analytic", "error")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range rows {
		rec := make([]string, 0, len(header))
		for _, v := range s.point {
			rec = append(rec, formatFloat(v))
		}
		rec = append(rec, formatFloat(s.predicted), formatFloat(s.analytic), formatFloat(s.predicted-s.analytic))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func rms(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2) / math.Sqrt(float64(len(v)))
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	out[n-1] = hi
	return out
}

// frameTimes returns n slices ending at upper; a single frame is upper itself.
func frameTimes(upper float64, n int) []float64 {
	if n == 1 {
		return []float64{upper}
	}
	return linspace(0, upper, n)
}

func grid(axes [][]float64, fn func([]float64)) {
	if len(axes) == 0 {
		fn(nil)
		return
	}
	idx := make([]int, len(axes))
	for {
		x := make([]float64, len(axes))
		for a, i := range idx {
			x[a] = axes[a][i]
		}
		fn(x)

		a := len(axes) - 1
		for ; a >= 0; a-- {
			idx[a]++
			if idx[a] < len(axes[a]) {
				break
			}
			idx[a] = 0
		}
		if a < 0 {
			return
		}
	}
}
