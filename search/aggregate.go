package search

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Summary is the mean and sample standard deviation of a metric over the
// successful folds of a candidate.
type Summary struct {
	Mean float64
	Std  float64
	N    int
}

// AggregatedResult summarises a candidate's fold results.
type AggregatedResult struct {
	Candidate   hyperparam.Candidate
	Summary     map[string]Summary
	FailedFolds int
}

// Mean returns the mean of metric, or NaN when it was never computed.
func (r AggregatedResult) Mean(metric string) float64 {
	s, ok := r.Summary[metric]
	if !ok {
		return math.NaN()
	}
	return s.Mean
}

// Diagnostic explains why a candidate was dropped from the ranking.
type Diagnostic struct {
	CandidateID string
	Index       int
	Reason      string
	Errors      []string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.CandidateID, d.Reason)
}

// Aggregate summarises results per candidate, in generation order. Only
// folds without error contribute. Candidates whose folds all failed are left
// out and described by a Diagnostic instead.
func Aggregate(cands []hyperparam.Candidate, results []FoldResult) ([]AggregatedResult, []Diagnostic) {
	byID := make(map[string][]FoldResult, len(cands))
	for _, r := range results {
		byID[r.CandidateID] = append(byID[r.CandidateID], r)
	}

	ordered := append([]hyperparam.Candidate(nil), cands...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var out []AggregatedResult
	var diags []Diagnostic
	for _, c := range ordered {
		folds := byID[c.ID]
		values := make(map[string][]float64)
		var failures []string
		for _, f := range folds {
			if f.Err != nil {
				failures = append(failures, fmt.Sprintf("fold %d: %v", f.Fold, f.Err))
				continue
			}
			for name, v := range f.Metrics {
				values[name] = append(values[name], v)
			}
		}

		if len(folds) == 0 || len(failures) == len(folds) {
			diags = append(diags, Diagnostic{
				CandidateID: c.ID,
				Index:       c.Index,
				Reason:      fmt.Sprintf("all %d folds failed", len(folds)),
				Errors:      failures,
			})
			continue
		}

		summary := make(map[string]Summary, len(values))
		for name, xs := range values {
			mean, std := stat.MeanStdDev(xs, nil)
			if len(xs) < 2 {
				std = 0
			}
			summary[name] = Summary{Mean: mean, Std: std, N: len(xs)}
		}
		out = append(out, AggregatedResult{Candidate: c, Summary: summary, FailedFolds: len(failures)})
	}
	return out, diags
}

// Rank orders results by the mean of metric, ascending for Minimize and
// descending for Maximize. Results lacking the metric (NaN mean) go last; ties keep
// the earlier generation index first. The input is not modified.
func Rank(results []AggregatedResult, metric string, dir metrics.Direction) []AggregatedResult {
	out := append([]AggregatedResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Mean(metric), out[j].Mean(metric)
		aBad, bBad := math.IsNaN(a), math.IsNaN(b)
		switch {
		case aBad && bBad:
			return out[i].Candidate.Index < out[j].Candidate.Index
		case aBad != bBad:
			return bBad
		case a != b:
			if dir == metrics.Maximize {
				return a > b
			}
			return a < b
		}
		return out[i].Candidate.Index < out[j].Candidate.Index
	})
	return out
}

// SelectBest returns the first ranked result.
func SelectBest(results []AggregatedResult, metric string, dir metrics.Direction) (AggregatedResult, error) {
	ranked := Rank(results, metric, dir)
	if len(ranked) == 0 || math.IsNaN(ranked[0].Mean(metric)) {
		return AggregatedResult{}, errors.NewNoViableConfigurationError(len(results), nil)
	}
	return ranked[0], nil
}

// ShowBest returns at most n top-ranked results.
func ShowBest(results []AggregatedResult, metric string, dir metrics.Direction, n int) []AggregatedResult {
	ranked := Rank(results, metric, dir)
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
