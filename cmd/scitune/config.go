package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// config is the command line surface. Every flag falls back to a SCITUNE_*
// environment variable, which may come from a .env file.
type config struct {
	input     string
	target    string
	synthetic int
	drop      []string
	// dropSet is true when -drop or SCITUNE_DROP was given; the default
	// drop list tolerates absent columns, an explicit one does not.
	dropSet bool

	family  string
	compare bool
	trees   int

	trainFraction float64
	folds         int
	candidates    int
	metrics       []string
	selection     string
	direction     metrics.Direction
	seed          int64
	workers       int
	maxEvals      int
	strata        int
	global        bool

	top       int
	residuals string
	logLevel  string
}

// env reads SCITUNE_* variables, remembering the first malformed one.
type env struct {
	getenv func(string) string
	err    error
}

func (e *env) String(name, def string) string {
	if v := e.getenv("SCITUNE_" + name); v != "" {
		return v
	}
	return def
}

func (e *env) Int(name string, def int) int {
	v := e.getenv("SCITUNE_" + name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if e.err == nil {
			e.err = errors.NewValidationError("SCITUNE_"+name, "not an integer", v)
		}
		return def
	}
	return n
}

func (e *env) Float(name string, def float64) float64 {
	v := e.getenv("SCITUNE_" + name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if e.err == nil {
			e.err = errors.NewValidationError("SCITUNE_"+name, "not a number", v)
		}
		return def
	}
	return f
}

func (e *env) Bool(name string, def bool) bool {
	v := e.getenv("SCITUNE_" + name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		if e.err == nil {
			e.err = errors.NewValidationError("SCITUNE_"+name, "not a boolean", v)
		}
		return def
	}
	return b
}

func parseConfig(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	e := &env{getenv: getenv}
	fs := flag.NewFlagSet("scitune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: scitune [flags] (-input data.csv | -synthetic N)")
		fs.PrintDefaults()
	}

	var cfg config
	var drop, metricList, direction string
	fs.StringVar(&cfg.input, "input", e.String("INPUT", ""), "CSV file with a header row")
	fs.StringVar(&cfg.target, "target", e.String("TARGET", "q_mean"), "target column")
	fs.IntVar(&cfg.synthetic, "synthetic", e.Int("SYNTHETIC", 0), "generate N synthetic catchments instead of reading -input")
	fs.StringVar(&drop, "drop", e.String("DROP", "gauge_id"), "comma-separated columns removed before modelling")
	fs.StringVar(&cfg.family, "family", e.String("FAMILY", adapter.BoostedTreesName), "model family to tune")
	fs.BoolVar(&cfg.compare, "compare", e.Bool("COMPARE", false), "cross-validate every family with default settings first")
	fs.IntVar(&cfg.trees, "trees", e.Int("TREES", 200), "boosting iterations of boosted_trees")
	fs.Float64Var(&cfg.trainFraction, "train-fraction", e.Float("TRAIN_FRACTION", 0.8), "share of rows used for training")
	fs.IntVar(&cfg.folds, "folds", e.Int("FOLDS", 10), "cross-validation folds")
	fs.IntVar(&cfg.candidates, "candidates", e.Int("CANDIDATES", 25), "hyperparameter candidates")
	fs.StringVar(&metricList, "metrics", e.String("METRICS", "rmse,r_squared,mae"), "comma-separated metrics")
	fs.StringVar(&cfg.selection, "select", e.String("SELECT", metrics.MeanAbsoluteError), "selection metric")
	fs.StringVar(&direction, "direction", e.String("DIRECTION", "minimize"), "minimize or maximize the selection metric")
	fs.Int64Var(&cfg.seed, "seed", int64(e.Int("SEED", 1)), "random seed")
	fs.IntVar(&cfg.workers, "workers", e.Int("WORKERS", 0), "concurrent fits (0 = all CPUs)")
	fs.IntVar(&cfg.maxEvals, "max-evals", e.Int("MAX_EVALS", 0), "cap on candidate × fold fits (0 = none)")
	fs.IntVar(&cfg.strata, "strata", e.Int("STRATA", 4), "target quantile bins for the split (<2 disables)")
	fs.BoolVar(&cfg.global, "global-pipeline", e.Bool("GLOBAL_PIPELINE", false), "fit preprocessing once on the training partition")
	fs.IntVar(&cfg.top, "top", e.Int("TOP", 10), "ranked candidates to print")
	fs.StringVar(&cfg.residuals, "residuals", e.String("RESIDUALS", ""), "write the residual table to this CSV file (- for stdout)")
	fs.StringVar(&cfg.logLevel, "log-level", e.String("LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if e.err != nil {
		return config{}, e.err
	}

	cfg.drop = splitList(drop)
	cfg.dropSet = getenv("SCITUNE_DROP") != ""
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "drop" {
			cfg.dropSet = true
		}
	})
	cfg.metrics = splitList(metricList)
	dir, err := metrics.ParseDirection(direction)
	if err != nil {
		return config{}, err
	}
	cfg.direction = dir

	if (cfg.input == "") == (cfg.synthetic == 0) {
		return config{}, errors.NewValidationError("input", "give exactly one of -input or -synthetic", cfg.input)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
