package search

import (
	"slices"

	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/pkg/log"
	"github.com/YuminosukeSato/scitune/preprocessing"
)

// Options configures a search run. Use DefaultOptions and the With* functions
// rather than filling it by hand.
type Options struct {
	TrainFraction   float64
	FoldCount       int
	CandidateCount  int
	Metrics         []string
	SelectionMetric string
	Direction       metrics.Direction
	Seed            int64
	// Workers bounds concurrent fold fits; 0 means runtime.NumCPU().
	Workers int
	// MaxEvaluations caps candidates × folds; 0 means no cap.
	MaxEvaluations int
	// Strata is the number of target quantile bins for the initial split.
	Strata int
	// Tries is the number of Latin hypercube designs compared per round.
	Tries    int
	Pipeline *preprocessing.Pipeline
	Logger   log.Logger
	// GlobalPipeline fits the pipeline once on the whole training partition
	// and reuses it in every fold instead of refitting it per fold.
	GlobalPipeline bool
}

// Option modifies Options.
type Option func(*Options)

// DefaultOptions returns an 80/20 split, 10 folds, 25 candidates, and
// selection by minimal mean MAE.
func DefaultOptions() Options {
	return Options{
		TrainFraction:   0.8,
		FoldCount:       10,
		CandidateCount:  25,
		Metrics:         []string{metrics.RootMeanSquaredError, metrics.RSquared, metrics.MeanAbsoluteError},
		SelectionMetric: metrics.MeanAbsoluteError,
		Direction:       metrics.Minimize,
		Seed:            1,
		Strata:          4,
		Tries:           10,
	}
}

// WithTrainFraction sets the share of rows in the training partition.
func WithTrainFraction(f float64) Option {
	return func(o *Options) { o.TrainFraction = f }
}

// WithFoldCount sets the number of cross-validation folds.
func WithFoldCount(v int) Option {
	return func(o *Options) { o.FoldCount = v }
}

// WithCandidateCount sets how many configurations are generated.
func WithCandidateCount(n int) Option {
	return func(o *Options) { o.CandidateCount = n }
}

// WithMetrics sets the metrics computed on every held-out fold.
func WithMetrics(names ...string) Option {
	return func(o *Options) { o.Metrics = append([]string(nil), names...) }
}

// WithSelection sets the metric and direction used to rank candidates.
func WithSelection(metric string, dir metrics.Direction) Option {
	return func(o *Options) {
		o.SelectionMetric = metric
		o.Direction = dir
	}
}

// WithSeed sets the seed for splitting, fold assignment and candidate
// generation.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithWorkers bounds the number of concurrent fold fits.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMaxEvaluations caps the total number of model fits during resampling.
func WithMaxEvaluations(n int) Option {
	return func(o *Options) { o.MaxEvaluations = n }
}

// WithStrata sets the number of target quantile bins for the split; values
// below 2 disable stratification.
func WithStrata(bins int) Option {
	return func(o *Options) { o.Strata = bins }
}

// WithTries sets the number of candidate designs compared per round.
func WithTries(n int) Option {
	return func(o *Options) { o.Tries = n }
}

// WithPipeline sets the feature pipeline.
func WithPipeline(p *preprocessing.Pipeline) Option {
	return func(o *Options) { o.Pipeline = p }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithGlobalPipeline toggles fitting the pipeline once on the training
// partition instead of once per fold. Held-out folds then influence the
// statistics used to transform them.
func WithGlobalPipeline(global bool) Option {
	return func(o *Options) { o.GlobalPipeline = global }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Pipeline == nil {
		o.Pipeline = preprocessing.Default()
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("search")
	}
	return o
}

// validate checks the options against a dataset of nRows rows and resolves
// the metric set. The selection metric is always evaluated.
func (o Options) validate(nRows int) ([]metrics.Metric, error) {
	if !(o.TrainFraction > 0 && o.TrainFraction < 1) {
		return nil, errors.NewInvalidFractionError(o.TrainFraction)
	}
	if nRows < 2 {
		return nil, errors.NewValidationError("dataset", "search needs at least 2 rows", nRows)
	}
	if trainRows := dataset.TrainSize(nRows, o.TrainFraction); o.FoldCount < 2 || o.FoldCount > trainRows {
		return nil, errors.NewInvalidFoldCountError(o.FoldCount, trainRows)
	}
	if o.CandidateCount < 1 {
		return nil, errors.NewValidationError("candidate_count", "must be >= 1", o.CandidateCount)
	}
	if o.Workers < 0 {
		return nil, errors.NewValidationError("workers", "must be >= 0", o.Workers)
	}
	if o.MaxEvaluations < 0 {
		return nil, errors.NewValidationError("max_evaluations", "must be >= 0", o.MaxEvaluations)
	}
	if o.MaxEvaluations > 0 && o.MaxEvaluations < o.FoldCount {
		return nil, errors.NewValidationError("max_evaluations",
			"budget is smaller than one candidate's fold count", o.MaxEvaluations)
	}
	if o.Tries < 1 {
		return nil, errors.NewValidationError("tries", "must be >= 1", o.Tries)
	}

	names := o.Metrics
	if !slices.Contains(names, o.SelectionMetric) {
		names = append(slices.Clone(names), o.SelectionMetric)
	}
	return metrics.LookupAll(names)
}
