package ensemble

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/sklearn/tree"
)

// GradientBoostingRegressor fits an additive model of regression trees to the
// gradients of squared error, starting from the mean target. Split gain and
// leaf values follow the second-order boosting formulas with an L2 penalty.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	InitScore   float64
	Trees       []*tree.Tree
	TrainLoss   []float64 // training MSE after each iteration
	nEstimators int
	learnRate   float64
	params      tree.Params
}

// BoostingOption configures a GradientBoostingRegressor.
type BoostingOption func(*GradientBoostingRegressor)

// WithBoostingTrees sets the number of boosting iterations.
func WithBoostingTrees(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.nEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(rate float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.learnRate = rate }
}

// WithTreeDepth sets the maximum depth of each tree.
func WithTreeDepth(depth int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.params.MaxDepth = depth }
}

// WithLossReduction sets the minimum split gain (gamma).
func WithLossReduction(gain float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.params.MinGain = gain }
}

// WithBoostingMinSamplesSplit sets the smallest node that may be split (min_n).
func WithBoostingMinSamplesSplit(n int) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.params.MinSamplesSplit = n }
}

// WithL2 sets the L2 penalty on leaf values.
func WithL2(lambda float64) BoostingOption {
	return func(gb *GradientBoostingRegressor) { gb.params.Lambda = lambda }
}

// NewGradientBoostingRegressor creates a booster with 100 trees of depth 6,
// learning rate 0.3 and L2 penalty 1 unless overridden.
func NewGradientBoostingRegressor(opts ...BoostingOption) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		nEstimators: 100,
		learnRate:   0.3,
		params: tree.Params{
			MaxDepth:        6,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			Lambda:          1,
		},
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// Fit runs the boosting iterations.
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	gb.Reset()
	rows, cols, err := model.CheckFit(X, y)
	if err != nil {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "invalid input", err)
	}
	if gb.nEstimators < 1 {
		return errors.NewValidationError("trees", "must be >= 1", gb.nEstimators)
	}
	if !(gb.learnRate > 0) || math.IsInf(gb.learnRate, 0) {
		return errors.NewValidationError("learn_rate", "must be positive and finite", gb.learnRate)
	}

	target := make([]float64, rows)
	idx := make([]int, rows)
	for i := range target {
		target[i] = y.At(i, 0)
		idx[i] = i
		gb.InitScore += target[i]
	}
	gb.InitScore /= float64(rows)

	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = gb.InitScore
	}
	grad := make([]float64, rows)
	hess := make([]float64, rows)
	for i := range hess {
		hess[i] = 1
	}

	gb.Trees = make([]*tree.Tree, 0, gb.nEstimators)
	gb.TrainLoss = make([]float64, 0, gb.nEstimators)
	x := make([]float64, cols)
	warned := false
	for it := 0; it < gb.nEstimators; it++ {
		for i := range grad {
			grad[i] = pred[i] - target[i]
		}
		t, err := gb.params.Grow(X, idx, grad, hess, nil)
		if err != nil {
			return errors.NewModelError("GradientBoostingRegressor.Fit", "grow failed", err)
		}

		var loss float64
		for i := 0; i < rows; i++ {
			mat.Row(x, i, X)
			pred[i] += gb.learnRate * t.PredictRow(x)
			d := pred[i] - target[i]
			loss += d * d
		}
		loss /= float64(rows)
		if err := errors.CheckScalar("GradientBoostingRegressor.Fit", loss, it); err != nil {
			return err
		}
		if n := len(gb.TrainLoss); !warned && n > 0 && loss > gb.TrainLoss[n-1]*(1+1e-12) {
			errors.Warn(errors.NewConvergenceWarning("gradient_boosting", it, "training loss increased; learning rate may be too high"))
			warned = true
		}

		gb.Trees = append(gb.Trees, t)
		gb.TrainLoss = append(gb.TrainLoss, loss)
	}

	gb.SetFitted(cols)
	return nil
}

// Predict returns InitScore plus the shrunken sum of tree outputs.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := gb.CheckPredict("GradientBoostingRegressor", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	x := make([]float64, gb.NFeatures())
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		sum := gb.InitScore
		for _, t := range gb.Trees {
			sum += gb.learnRate * t.PredictRow(x)
		}
		out.Set(i, 0, sum)
	}
	return out, nil
}

// FeatureImportances returns normalised total split gain per feature.
func (gb *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "FeatureImportances")
	}
	return tree.GainImportances(gb.NFeatures(), gb.Trees...), nil
}

// GetParams returns the booster's hyperparameters.
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"trees":             gb.nEstimators,
		"learn_rate":        gb.learnRate,
		"tree_depth":        gb.params.MaxDepth,
		"loss_reduction":    gb.params.MinGain,
		"min_samples_split": gb.params.MinSamplesSplit,
		"lambda":            gb.params.Lambda,
	}
}
