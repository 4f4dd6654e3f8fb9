package comparison

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/report-comparator/internal/report"
)

// SourceResolver returns the existing and new report locations for a metric.
type SourceResolver interface {
	Sources(kind report.MetricKind) (existing, newReport report.Source, err error)
}

// Sink persists a finished comparison and returns where it was written.
// Remove clears a metric's output left by an earlier run, reporting whether
// anything was there.
type Sink interface {
	Write(kind report.MetricKind, rows []Row) (string, error)
	Remove(kind report.MetricKind) (bool, error)
}

// Status is the result of one metric's comparison.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to a single metric during a run.
type Outcome struct {
	Metric     report.MetricKind
	Status     Status
	OutputPath string
	Stats      Stats
	// Dropped counts malformed rows skipped across both reports.
	Dropped int
	Err     error
}

// Reason returns the failure message, empty on success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Summary collects the outcomes of a run in metric order.
type Summary struct {
	Selection  report.Selection
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the outcomes that did not produce output.
func (s *Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Runner loads, compares and writes one or all metrics.
type Runner struct {
	sources     SourceResolver
	loader      *report.Loader
	sink        Sink
	logger      *slog.Logger
	parallelism int
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallelism compares up to n metrics at once in "all" mode.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// NewRunner wires a runner. logger may be nil.
func NewRunner(sources SourceResolver, loader *report.Loader, sink Sink, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		sources:     sources,
		loader:      loader,
		sink:        sink,
		logger:      logger,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run compares the selected metrics.
//
// A single-metric run returns its error as soon as it happens. An "all" run
// keeps going past failures and returns ErrPartialFailure or ErrAllFailed
// alongside the summary.
func (r *Runner) Run(sel report.Selection) (*Summary, error) {
	summary := &Summary{Selection: sel, StartedAt: time.Now()}
	kinds := sel.Kinds()

	r.logger.Info("Starting comparison run", "selection", sel.String(), "metrics", len(kinds), "parallelism", r.parallelism)

	if !sel.All {
		outcome := r.runMetric(kinds[0])
		summary.Outcomes = []Outcome{outcome}
		summary.FinishedAt = time.Now()
		return summary, outcome.Err
	}

	summary.Outcomes = r.runAll(kinds)
	summary.FinishedAt = time.Now()

	failed := summary.Failed()
	switch {
	case len(failed) == 0:
		r.logger.Info("Comparison run complete", "succeeded", len(kinds))
		return summary, nil
	case len(failed) == len(kinds):
		return summary, fmt.Errorf("%w: %s", ErrAllFailed, failedMetrics(failed))
	default:
		r.logger.Warn("Comparison run partially failed",
			"succeeded", len(kinds)-len(failed),
			"failed", failedMetrics(failed))
		return summary, fmt.Errorf("%w: %s", ErrPartialFailure, failedMetrics(failed))
	}
}

func (r *Runner) runAll(kinds []report.MetricKind) []Outcome {
	outcomes := make([]Outcome, len(kinds))

	if r.parallelism <= 1 {
		for i, kind := range kinds {
			outcomes[i] = r.runMetric(kind)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.parallelism)
	for i, kind := range kinds {
		wg.Add(1)
		go func(idx int, kind report.MetricKind) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			outcomes[idx] = r.runMetric(kind)
		}(i, kind)
	}
	wg.Wait()

	return outcomes
}

func (r *Runner) runMetric(kind report.MetricKind) Outcome {
	outcome := Outcome{Metric: kind, Status: StatusFailed}

	fail := func(err error) Outcome {
		outcome.Err = err
		r.logger.Error("Metric comparison failed", "metric", kind, "kind", ErrorKind(err), "error", err)
		r.removeStale(kind)
		return outcome
	}

	existingSrc, newSrc, err := r.sources.Sources(kind)
	if err != nil {
		return fail(err)
	}

	existing, err := r.loader.LoadSource(existingSrc, kind)
	if err != nil {
		return fail(fmt.Errorf("%s existing report: %w", kind, err))
	}
	newTable, err := r.loader.LoadSource(newSrc, kind)
	if err != nil {
		return fail(fmt.Errorf("%s new report: %w", kind, err))
	}

	rows := Compare(existing, newTable, kind)
	outcome.Stats = Summarize(rows)
	outcome.Dropped = len(existing.Dropped) + len(newTable.Dropped)

	path, err := r.sink.Write(kind, rows)
	if err != nil {
		return fail(fmt.Errorf("%s comparison output: %w", kind, err))
	}

	outcome.Status = StatusSucceeded
	outcome.OutputPath = path
	r.logger.Info("Comparison saved",
		"metric", kind,
		"path", path,
		"rows", outcome.Stats.Total,
		"paired", outcome.Stats.Paired,
		"existing_only", outcome.Stats.ExistingOnly,
		"new_only", outcome.Stats.NewOnly)

	return outcome
}

// removeStale drops output from a previous run so a failed metric leaves no file behind.
func (r *Runner) removeStale(kind report.MetricKind) {
	removed, err := r.sink.Remove(kind)
	if err != nil {
		r.logger.Warn("Failed to remove stale comparison output", "metric", kind, "error", err)
		return
	}
	if removed {
		r.logger.Warn("Removed stale comparison output from an earlier run", "metric", kind)
	}
}

func failedMetrics(outcomes []Outcome) string {
	names := make([]string, len(outcomes))
	for i, o := range outcomes {
		names[i] = o.Metric.String()
	}
	return strings.Join(names, ", ")
}
