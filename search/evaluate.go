// Package search runs cross-validated hyperparameter searches: it evaluates
// candidate configurations of a model family across folds, aggregates and
// ranks the fold metrics, and refits the winner on the training partition.
package search

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/core/parallel"
	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/pkg/log"
	"github.com/YuminosukeSato/scitune/preprocessing"
)

// FoldResult holds the held-out metrics of one candidate on one fold. Err is
// set when the fold failed; Metrics then holds whatever could be computed.
type FoldResult struct {
	CandidateID string
	Index       int
	Fold        int
	Metrics     map[string]float64
	Err         error
	Duration    time.Duration
}

// EvalConfig configures an Evaluator.
type EvalConfig struct {
	Pipeline *preprocessing.Pipeline
	Metrics  []metrics.Metric
	Workers  int
	Logger   log.Logger
	// Global fits Pipeline once on the whole training partition.
	Global bool
}

// foldData is the transformed training and held-out data of one fold. It is
// shared read-only by every candidate.
type foldData struct {
	xTrain, yTrain *mat.Dense
	xHold, yHold   *mat.Dense
	err            error
}

// Evaluator cross-validates candidates of one model family on fixed folds.
type Evaluator struct {
	adapter adapter.Adapter
	metrics []metrics.Metric
	folds   []foldData
	workers int
	logger  log.Logger
}

// NewEvaluator fits the pipeline for every fold on that fold's training rows
// and transforms both parts. A fold whose preparation fails is reported as
// failed for every candidate.
func NewEvaluator(ctx context.Context, a adapter.Adapter, train *dataset.Dataset, folds *dataset.Folds, cfg EvalConfig) (*Evaluator, error) {
	if folds.Len() != train.Len() {
		return nil, errors.NewDimensionError("search.NewEvaluator", train.Len(), folds.Len(), 0)
	}
	if len(cfg.Metrics) == 0 {
		return nil, errors.NewValidationError("metrics", "at least one metric is required", 0)
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = preprocessing.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLoggerWithName("search")
	}

	var global *preprocessing.FittedPipeline
	if cfg.Global {
		fp, err := cfg.Pipeline.Fit(train)
		if err != nil {
			return nil, errors.Wrap(err, "fit global pipeline")
		}
		global = fp
	}

	e := &Evaluator{
		adapter: a,
		metrics: cfg.Metrics,
		folds:   make([]foldData, folds.Count()),
		workers: cfg.Workers,
		logger:  cfg.Logger,
	}
	err := parallel.ForEach(ctx, folds.Count(), cfg.Workers, func(_ context.Context, k int) {
		e.folds[k] = prepareFold(cfg.Pipeline, global, train, folds, k)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func prepareFold(pipe *preprocessing.Pipeline, global *preprocessing.FittedPipeline, train *dataset.Dataset, folds *dataset.Folds, k int) foldData {
	trainPos, holdPos := folds.Partition(k)
	fitSet := train.Subset(trainPos)

	fp := global
	if fp == nil {
		var err error
		if fp, err = pipe.Fit(fitSet); err != nil {
			return foldData{err: errors.Wrapf(err, "fold %d: fit pipeline", k)}
		}
	}
	xTrain, yTrain, err := fp.Matrix(fitSet.Rows())
	if err != nil {
		return foldData{err: errors.Wrapf(err, "fold %d: transform training rows", k)}
	}
	xHold, yHold, err := fp.Matrix(train.Subset(holdPos).Rows())
	if err != nil {
		return foldData{err: errors.Wrapf(err, "fold %d: transform held-out rows", k)}
	}
	return foldData{
		xTrain: xTrain,
		yTrain: yTrain,
		xHold:  xHold,
		yHold:  yHold,
	}
}

// For returns an evaluator for another model family that shares e's prepared
// folds.
func (e *Evaluator) For(a adapter.Adapter) *Evaluator {
	cp := *e
	cp.adapter = a
	return &cp
}

// Folds returns the number of folds.
func (e *Evaluator) Folds() int { return len(e.folds) }

// Evaluate cross-validates one candidate. Fold failures are recorded in the
// results, never returned; the error is non-nil only when ctx is cancelled.
func (e *Evaluator) Evaluate(ctx context.Context, cand hyperparam.Candidate) ([]FoldResult, error) {
	out, err := e.EvaluateAll(ctx, []hyperparam.Candidate{cand})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EvaluateAll cross-validates every candidate, running all candidate×fold
// fits on one bounded worker pool. out[i] holds the folds of cands[i] in fold
// order, so the result does not depend on scheduling.
func (e *Evaluator) EvaluateAll(ctx context.Context, cands []hyperparam.Candidate) ([][]FoldResult, error) {
	v := len(e.folds)
	out := make([][]FoldResult, len(cands))
	for i := range out {
		out[i] = make([]FoldResult, v)
	}
	err := parallel.ForEach(ctx, len(cands)*v, e.workers, func(_ context.Context, task int) {
		c, k := task/v, task%v
		out[c][k] = e.evaluateFold(cands[c], k)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Evaluator) evaluateFold(cand hyperparam.Candidate, k int) FoldResult {
	start := time.Now()
	res := FoldResult{CandidateID: cand.ID, Index: cand.Index, Fold: k, Metrics: make(map[string]float64, len(e.metrics))}

	res.Err = errors.SafeExecute("search.evaluateFold", func() error {
		fd := e.folds[k]
		if fd.err != nil {
			return fd.err
		}
		model, err := e.adapter.Fit(fd.xTrain, fd.yTrain, cand.Config)
		if err != nil {
			return err
		}
		pred, err := model.Predict(fd.xHold)
		if err != nil {
			return errors.NewTrainingFailedError(e.adapter.Name(), "predict held-out fold", err)
		}
		yTrue, err := metrics.ColumnVector(fd.yHold)
		if err != nil {
			return err
		}
		yPred, err := metrics.ColumnVector(pred)
		if err != nil {
			return err
		}

		var firstErr error
		for _, m := range e.metrics {
			val, err := m.Compute(yTrue, yPred)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			res.Metrics[m.Name] = val
		}
		return firstErr
	})
	res.Duration = time.Since(start)

	if res.Err != nil {
		code := log.ErrorCode(res.Err)
		if code == "" {
			code = log.ErrorTrainingFailed
		}
		e.logger.Warn("fold failed",
			log.CandidateKey, cand.ID,
			log.FoldKey, k,
			log.ErrorCodeKey, code,
			"error", res.Err,
		)
	} else {
		e.logger.Debug("fold evaluated",
			log.CandidateKey, cand.ID,
			log.FoldKey, k,
			log.DurationMsKey, res.Duration.Milliseconds(),
		)
	}
	return res
}

// Evaluate cross-validates a single candidate of a on the given folds of
// train, refitting the pipeline per fold unless cfg.Global is set.
func Evaluate(ctx context.Context, a adapter.Adapter, cand hyperparam.Candidate, train *dataset.Dataset, folds *dataset.Folds, cfg EvalConfig) ([]FoldResult, error) {
	e, err := NewEvaluator(ctx, a, train, folds, cfg)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, cand)
}
