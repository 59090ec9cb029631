package search

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/pkg/log"
)

// Result collects every artifact of a search run.
type Result struct {
	RunID  string
	Family string

	Partition dataset.Partition
	Folds     *dataset.Folds

	Candidates  []hyperparam.Candidate
	FoldResults []FoldResult
	// Ranked is sorted by the selection metric.
	Ranked      []AggregatedResult
	Diagnostics []Diagnostic
	Selected    AggregatedResult

	Final       *FinalModel
	TestMetrics map[string]float64
	// TestMetricErrors holds the metrics that could not be computed on the
	// test partition; they are absent from TestMetrics.
	TestMetricErrors map[string]error
	TestPredictions  []Prediction
	// Residuals covers every row of the input dataset, in row order.
	Residuals []Prediction

	Options Options
}

// setup is the state shared by Run and CompareFamilies: a validated
// configuration, the split and the folds.
type setup struct {
	opts    Options
	metrics []metrics.Metric
	runID   string
	logger  log.Logger
	part    dataset.Partition
	train   *dataset.Dataset
	test    *dataset.Dataset
	folds   *dataset.Folds
}

func newSetup(ds *dataset.Dataset, family string, opts []Option) (*setup, error) {
	o := buildOptions(opts)
	ms, err := o.validate(ds.Len())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.Logger.With(log.RunIDKey, runID, log.ModelNameKey, family)

	part, err := dataset.Split(ds, o.TrainFraction, o.Seed, dataset.WithStrata(o.Strata))
	if err != nil {
		return nil, err
	}
	train := ds.Subset(part.Train)
	folds, err := dataset.MakeFolds(train.Len(), o.FoldCount, o.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("data split",
		log.PhaseKey, log.PhaseSplit,
		log.TrainSizeKey, len(part.Train),
		log.TestSizeKey, len(part.Test),
		log.FoldCountKey, folds.Count(),
		log.RandomSeedKey, o.Seed,
	)

	return &setup{
		opts:    o,
		metrics: ms,
		runID:   runID,
		logger:  logger,
		part:    part,
		train:   train,
		test:    ds.Subset(part.Test),
		folds:   folds,
	}, nil
}

func (s *setup) evaluator(ctx context.Context, a adapter.Adapter) (*Evaluator, error) {
	return NewEvaluator(ctx, a, s.train, s.folds, EvalConfig{
		Pipeline: s.opts.Pipeline,
		Metrics:  s.metrics,
		Workers:  s.opts.Workers,
		Logger:   s.logger,
		Global:   s.opts.GlobalPipeline,
	})
}

// Run tunes a on ds: split, fold, generate candidates, cross-validate them,
// rank by the selection metric, refit the winner on the training partition,
// score it once on the test partition and compute residuals for every row.
//
// Configuration errors are returned before any model is fitted. Failing folds
// and candidates are dropped from the ranking; Run fails with
// NoViableConfigurationError only when no candidate survives.
func Run(ctx context.Context, ds *dataset.Dataset, a adapter.Adapter, opts ...Option) (*Result, error) {
	start := time.Now()
	s, err := newSetup(ds, a.Name(), opts)
	if err != nil {
		return nil, err
	}
	o := s.opts
	a = adapter.Seeded(a, o.Seed)

	// the space's data-dependent bounds come from the pipeline fitted on the
	// whole training partition
	fp, err := o.Pipeline.Fit(s.train)
	if err != nil {
		return nil, errors.Wrap(err, "fit pipeline on training partition")
	}
	space, err := a.Space().Finalize(len(fp.FeatureNames()))
	if err != nil {
		return nil, err
	}

	count := o.CandidateCount
	if o.MaxEvaluations > 0 {
		count = min(count, o.MaxEvaluations/o.FoldCount)
	}
	if space.Len() == 0 && count > 1 {
		s.logger.Info("model family has no tunable parameters; evaluating its default configuration")
		count = 1
	}
	cands, err := hyperparam.Generate(space, count, o.Seed,
		hyperparam.WithTries(o.Tries), hyperparam.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	ev, err := s.evaluator(ctx, a)
	if err != nil {
		return nil, err
	}
	s.logger.Info("resampling started",
		log.PhaseKey, log.PhaseResampling,
		log.CandidateCountKey, len(cands),
		log.WorkersKey, o.Workers,
	)
	perCandidate, err := ev.EvaluateAll(ctx, cands)
	if err != nil {
		return nil, err
	}
	var foldResults []FoldResult
	for _, rs := range perCandidate {
		foldResults = append(foldResults, rs...)
	}

	aggregated, diags := Aggregate(cands, foldResults)
	for _, d := range diags {
		s.logger.Warn("candidate dropped",
			log.CandidateKey, d.CandidateID,
			log.ErrorCodeKey, log.ErrorCandidateDropped,
			"reason", d.Reason,
		)
	}
	if len(aggregated) == 0 {
		reasons := make([]string, len(diags))
		for i, d := range diags {
			reasons[i] = d.String()
		}
		err := errors.NewNoViableConfigurationError(len(cands), reasons)
		s.logger.Error("search failed", err, log.ErrorCodeKey, log.ErrorNoViableConfig)
		return nil, err
	}

	ranked := Rank(aggregated, o.SelectionMetric, o.Direction)
	best, err := SelectBest(ranked, o.SelectionMetric, o.Direction)
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate selected",
		log.PhaseKey, log.PhaseRanking,
		log.CandidateKey, best.Candidate.ID,
		log.HyperParamsKey, best.Candidate.Config,
		log.MetricKey, o.SelectionMetric,
		log.MetricValueKey, best.Mean(o.SelectionMetric),
		log.DirectionKey, o.Direction.String(),
	)

	final, err := Finalize(a, best.Candidate.Config, o.Pipeline, s.train)
	if err != nil {
		return nil, errors.Wrapf(err, "finalize %s", best.Candidate.ID)
	}
	testMetrics, testErrs, testPreds, err := scoreTest(final, s.test, s.metrics)
	if err != nil {
		return nil, errors.Wrap(err, "score test partition")
	}
	for _, m := range s.metrics {
		if e, ok := testErrs[m.Name]; ok {
			s.logger.Warn("test metric undefined",
				log.PhaseKey, log.PhaseTesting,
				log.MetricKey, m.Name,
				log.ErrorCodeKey, log.ErrorCode(e),
				"error", e,
			)
		}
	}
	residuals, err := Residuals(final, ds)
	if err != nil {
		return nil, err
	}
	s.logger.Info("search finished",
		log.PhaseKey, log.PhaseTesting,
		log.MetricKey, o.SelectionMetric,
		log.MetricValueKey, testMetrics[o.SelectionMetric],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Result{
		RunID:            s.runID,
		Family:           a.Name(),
		Partition:        s.part,
		Folds:            s.folds,
		Candidates:       cands,
		FoldResults:      foldResults,
		Ranked:           ranked,
		Diagnostics:      diags,
		Selected:         best,
		Final:            final,
		TestMetrics:      testMetrics,
		TestMetricErrors: testErrs,
		TestPredictions:  testPreds,
		Residuals:        residuals,
		Options:          o,
	}, nil
}

// Comparison ranks model families evaluated with their default settings.
// Each ranked result's Candidate.ID is the family name.
type Comparison struct {
	RunID       string
	Ranked      []AggregatedResult
	Diagnostics []Diagnostic
	FoldResults []FoldResult
}

// CompareFamilies cross-validates every family with its default configuration
// on the same split and folds and ranks them by the selection metric. The
// candidate and evaluation-budget options do not apply.
func CompareFamilies(ctx context.Context, ds *dataset.Dataset, families []adapter.Adapter, opts ...Option) (*Comparison, error) {
	if len(families) == 0 {
		return nil, errors.NewValidationError("families", "at least one model family is required", 0)
	}
	s, err := newSetup(ds, "comparison", opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(families))
	for _, a := range families {
		if seen[a.Name()] {
			return nil, errors.NewValidationError("families", "duplicate model family", a.Name())
		}
		seen[a.Name()] = true
	}

	ev, err := s.evaluator(ctx, families[0])
	if err != nil {
		return nil, err
	}
	cands := make([]hyperparam.Candidate, len(families))
	var foldResults []FoldResult
	for i, a := range families {
		cands[i] = hyperparam.Candidate{ID: a.Name(), Index: i, Config: hyperparam.NewConfig(nil)}
		rs, err := ev.For(adapter.Seeded(a, s.opts.Seed)).Evaluate(ctx, cands[i])
		if err != nil {
			return nil, err
		}
		foldResults = append(foldResults, rs...)
	}

	aggregated, diags := Aggregate(cands, foldResults)
	for _, d := range diags {
		s.logger.Warn("model family dropped",
			log.ModelNameKey, d.CandidateID,
			log.ErrorCodeKey, log.ErrorCandidateDropped,
			"reason", d.Reason,
		)
	}
	if len(aggregated) == 0 {
		reasons := make([]string, len(diags))
		for i, d := range diags {
			reasons[i] = d.String()
		}
		return nil, errors.NewNoViableConfigurationError(len(families), reasons)
	}
	return &Comparison{
		RunID:       s.runID,
		Ranked:      Rank(aggregated, s.opts.SelectionMetric, s.opts.Direction),
		Diagnostics: diags,
		FoldResults: foldResults,
	}, nil
}
