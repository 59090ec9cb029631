package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/search"
)

type reporter struct {
	w      io.Writer
	header func(a ...interface{}) string
	good   func(a ...interface{}) string
	warn   func(a ...interface{}) string
}

func newReporter(w io.Writer) *reporter {
	return &reporter{
		w:      w,
		header: color.New(color.FgCyan, color.Bold).SprintFunc(),
		good:   color.New(color.FgGreen).SprintFunc(),
		warn:   color.New(color.FgYellow).SprintFunc(),
	}
}

func (r *reporter) section(title string) {
	fmt.Fprintf(r.w, "\n%s\n", r.header("== "+title+" =="))
}

func (r *reporter) dataset(ds *dataset.Dataset, dropped []string) {
	r.section("Data")
	fmt.Fprintf(r.w, "rows: %s  target: %s  predictors: %d\n",
		humanize.Comma(int64(ds.Len())), ds.Target(), len(ds.Predictors()))
	if len(dropped) > 0 {
		fmt.Fprintf(r.w, "dropped: %s\n", strings.Join(dropped, ", "))
	}
}

func (r *reporter) table(results []search.AggregatedResult, metricNames []string, withConfig bool) {
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	head := []string{"rank", "id"}
	for _, m := range metricNames {
		head = append(head, m+" mean", m+" std")
	}
	head = append(head, "folds")
	if withConfig {
		head = append(head, "config")
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))

	for i, res := range results {
		cells := []string{strconv.Itoa(i + 1), res.Candidate.ID}
		n := 0
		for _, m := range metricNames {
			s, ok := res.Summary[m]
			if !ok {
				cells = append(cells, "NA", "NA")
				continue
			}
			n = max(n, s.N)
			cells = append(cells, fmt.Sprintf("%.4f", s.Mean), fmt.Sprintf("%.4f", s.Std))
		}
		cells = append(cells, fmt.Sprintf("%d/%d", n, n+res.FailedFolds))
		if withConfig {
			cells = append(cells, res.Candidate.Config.String())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func (r *reporter) diagnostics(diags []search.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(r.w, r.warn("dropped "+d.String()))
	}
}

func (r *reporter) comparison(cmp *search.Comparison, metricNames []string, selection string) {
	r.section("Model families (default settings, ranked by " + selection + ")")
	r.table(cmp.Ranked, metricNames, false)
	r.diagnostics(cmp.Diagnostics)
}

func (r *reporter) result(res *search.Result, metricNames []string, top int) {
	o := res.Options
	r.section(fmt.Sprintf("Candidates for %s (run %s)", res.Family, res.RunID))
	fmt.Fprintf(r.w, "train: %s  test: %s  folds: %d  fits: %s\n",
		humanize.Comma(int64(len(res.Partition.Train))),
		humanize.Comma(int64(len(res.Partition.Test))),
		res.Folds.Count(),
		humanize.Comma(int64(len(res.FoldResults))))

	shown := res.Ranked
	if top > 0 && top < len(shown) {
		shown = shown[:top]
	}
	r.table(shown, metricNames, true)
	r.diagnostics(res.Diagnostics)

	r.section("Selected configuration")
	fmt.Fprintf(r.w, "%s %s  %s %s = %.4f\n",
		r.good(res.Selected.Candidate.ID), res.Selected.Candidate.Config,
		o.Direction, o.SelectionMetric, res.Selected.Mean(o.SelectionMetric))

	if params := res.Final.Params(); len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.w, "  %s = %v\n", k, params[k])
		}
	}

	r.section("Test set")
	for _, m := range metricNames {
		if v, ok := res.TestMetrics[m]; ok {
			fmt.Fprintf(r.w, "%-10s %.4f\n", m, v)
		} else if err, ok := res.TestMetricErrors[m]; ok {
			fmt.Fprintf(r.w, "%-10s %s\n", m, r.warn("NA ("+err.Error()+")"))
		}
	}
}

// writeResiduals writes one CSV record per dataset row with its predictors,
// prediction, actual value and residual. Categorical and missing cells are
// written as text.
func writeResiduals(w io.Writer, ds *dataset.Dataset, preds []search.Prediction) error {
	cw := csv.NewWriter(w)
	cols := ds.Predictors()
	header := append([]string{"row"}, cols...)
	header = append(header, "predicted", "actual", "residual")
	if err := cw.Write(header); err != nil {
		return err
	}

	format := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	for _, p := range preds {
		row := ds.Row(p.Row)
		rec := []string{strconv.Itoa(p.Row)}
		for _, c := range cols {
			rec = append(rec, row[c].String())
		}
		rec = append(rec, format(p.Predicted), format(p.Actual), format(p.Residual))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
