package report

import (
	"fmt"
	"io"
	"sync"
)

// Status classifies how a single job ended
type Status string

const (
	StatusConverted Status = "converted"
	StatusDegraded  Status = "degraded" // output produced without metadata or by plain copy
	StatusCopied    Status = "copied"   // source copied unmodified, speed unchanged
	StatusSkipped   Status = "skipped"  // output already present from a previous run
	StatusFailed    Status = "failed"
)

// Outcome describes the result of one file
type Outcome struct {
	JobID      string
	InputPath  string
	OutputPath string
	Speed      float64
	Strategy   string
	Status     Status
	Err        error
}

// Summary is the final tally for a run
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []Outcome
}

// Reporter receives per-file outcomes as they complete and the final summary
type Reporter interface {
	Outcome(o Outcome)
	Summary(s Summary)
}

// ConsoleReporter prints human-readable lines to w
type ConsoleReporter struct {
	w io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) Outcome(o Outcome) {
	switch o.Status {
	case StatusFailed:
		fmt.Fprintf(r.w, "FAILED  %s: %v\n", o.InputPath, o.Err)
	case StatusSkipped:
		fmt.Fprintf(r.w, "Skipping %s (output already exists)\n", o.InputPath)
	case StatusCopied:
		fmt.Fprintf(r.w, "Copied unmodified: %s -> %s (requested speed %gx not applied)\n",
			o.InputPath, o.OutputPath, o.Speed)
	case StatusDegraded:
		fmt.Fprintf(r.w, "Processed (%s): %s -> %s (speed: %gx)\n",
			o.Strategy, o.InputPath, o.OutputPath, o.Speed)
	default:
		fmt.Fprintf(r.w, "Processed: %s -> %s (speed: %gx)\n",
			o.InputPath, o.OutputPath, o.Speed)
	}
}

func (r *ConsoleReporter) Summary(s Summary) {
	fmt.Fprintf(r.w, "\nDone: %d attempted, %d succeeded, %d failed, %d skipped\n",
		s.Attempted, s.Succeeded, s.Failed, s.Skipped)
	if len(s.Failures) > 0 {
		fmt.Fprintln(r.w, "Failed files:")
		for _, f := range s.Failures {
			fmt.Fprintf(r.w, "  %s: %v\n", f.InputPath, f.Err)
		}
	}
}

// MultiReporter fans out to multiple reporters
type MultiReporter struct {
	mu        sync.RWMutex
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Add(r Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporters = append(m.reporters, r)
}

func (m *MultiReporter) Outcome(o Outcome) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reporters {
		r.Outcome(o)
	}
}

func (m *MultiReporter) Summary(s Summary) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reporters {
		r.Summary(s)
	}
}

// NoopReporter discards everything
type NoopReporter struct{}

func (NoopReporter) Outcome(_ Outcome) {}
func (NoopReporter) Summary(_ Summary) {}
