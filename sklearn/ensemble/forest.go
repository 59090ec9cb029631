// Package ensemble implements tree ensembles for regression: a bagged random
// forest and squared-error gradient boosting, both built on sklearn/tree.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/core/parallel"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/sklearn/tree"
)

// RandomForestRegressor averages regression trees grown on bootstrap samples
// with per-split feature sampling.
type RandomForestRegressor struct {
	model.BaseEstimator

	Trees []*tree.Tree

	nEstimators int
	params      tree.Params
	seed        uint64
	workers     int
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// WithForestTrees sets the number of trees.
func WithForestTrees(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.nEstimators = n }
}

// WithMaxFeatures sets the number of features sampled per split (mtry).
// 0 selects floor(sqrt(n_features)) at fit time.
func WithMaxFeatures(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.params.MaxFeatures = n }
}

// WithForestMinSamplesSplit sets the smallest node that may be split (min_n).
func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.params.MinSamplesSplit = n }
}

// WithForestMaxDepth limits tree depth (0 = unlimited).
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.params.MaxDepth = depth }
}

// WithForestSeed sets the seed. Tree i draws from its own stream, so results
// do not depend on the worker count.
func WithForestSeed(seed uint64) ForestOption {
	return func(rf *RandomForestRegressor) { rf.seed = seed }
}

// WithForestWorkers bounds the goroutines used to grow trees (0 = NumCPU).
func WithForestWorkers(n int) ForestOption {
	return func(rf *RandomForestRegressor) { rf.workers = n }
}

// NewRandomForestRegressor creates a forest of 500 trees by default.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		nEstimators: 500,
		params:      tree.Params{MinSamplesSplit: 5, MinSamplesLeaf: 1},
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows every tree on its own bootstrap sample.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	rf.Reset()
	rows, cols, err := model.CheckFit(X, y)
	if err != nil {
		return errors.NewModelError("RandomForestRegressor.Fit", "invalid input", err)
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("trees", "must be >= 1", rf.nEstimators)
	}

	params := rf.params
	if params.MaxFeatures == 0 {
		params.MaxFeatures = max(1, isqrt(cols))
	}

	target := make([]float64, rows)
	for i := range target {
		target[i] = y.At(i, 0)
	}

	trees := make([]*tree.Tree, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, rf.workers, func(start, end int) {
		for t := start; t < end; t++ {
			rng := rand.New(rand.NewPCG(rf.seed, uint64(t)+1))
			sample := make([]int, rows)
			grad := make([]float64, rows)
			hess := make([]float64, rows)
			for i := range sample {
				sample[i] = rng.IntN(rows)
				grad[i] = -target[sample[i]]
				hess[i] = 1
			}
			trees[t], errs[t] = params.Grow(X, sample, grad, hess, rng)
		}
	})
	for t, e := range errs {
		if e != nil {
			return errors.NewModelError("RandomForestRegressor.Fit", fmt.Sprintf("tree %d", t), e)
		}
	}

	rf.Trees = trees
	rf.SetFitted(cols)
	return nil
}

// Predict averages the trees' predictions.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := rf.CheckPredict("RandomForestRegressor", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		x := make([]float64, rf.NFeatures())
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			var sum float64
			for _, t := range rf.Trees {
				sum += t.PredictRow(x)
			}
			out.Set(i, 0, sum/float64(len(rf.Trees)))
		}
	})
	return out, nil
}

// FeatureImportances returns normalised total split gain per feature.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	return tree.GainImportances(rf.NFeatures(), rf.Trees...), nil
}

// GetParams returns the forest's hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"trees":             rf.nEstimators,
		"max_features":      rf.params.MaxFeatures,
		"min_samples_split": rf.params.MinSamplesSplit,
		"max_depth":         rf.params.MaxDepth,
		"random_state":      rf.seed,
	}
}

func isqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
