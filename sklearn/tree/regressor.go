package tree

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/core/parallel"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree minimising squared error.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	Tree *Tree

	params Params
	seed   uint64
}

// NewDecisionTreeRegressor creates a regression tree with the given options.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{params: DefaultParams()}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.CheckFit(X, y)
	if err != nil {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "invalid input", err)
	}

	idx := make([]int, rows)
	grad := make([]float64, rows)
	hess := make([]float64, rows)
	for i := 0; i < rows; i++ {
		idx[i] = i
		grad[i] = -y.At(i, 0)
		hess[i] = 1
	}

	rng := rand.New(rand.NewPCG(dt.seed, dt.seed))
	tree, err := dt.params.Grow(X, idx, grad, hess, rng)
	if err != nil {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "grow failed", err)
	}
	dt.Tree = tree
	dt.SetFitted(cols)
	return nil
}

// Predict returns the leaf value of each row as an n×1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := dt.CheckPredict("DecisionTreeRegressor", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 1000, func(start, end int) {
		x := make([]float64, dt.NFeatures())
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			out.Set(i, 0, dt.Tree.PredictRow(x))
		}
	})
	return out, nil
}

// FeatureImportances returns the total split gain per feature, normalised to
// sum to one. A tree without splits returns all zeros.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "FeatureImportances")
	}
	return GainImportances(dt.NFeatures(), dt.Tree), nil
}

// GainImportances sums split gains per feature over trees and normalises.
func GainImportances(nFeatures int, trees ...*Tree) []float64 {
	imp := make([]float64, nFeatures)
	var total float64
	for _, t := range trees {
		for i := range t.Nodes {
			n := &t.Nodes[i]
			if !n.IsLeaf() {
				imp[n.Feature] += n.Gain
				total += n.Gain
			}
		}
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// GetParams returns the tree's hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         dt.params.MaxDepth,
		"min_samples_split": dt.params.MinSamplesSplit,
		"min_samples_leaf":  dt.params.MinSamplesLeaf,
		"max_features":      dt.params.MaxFeatures,
		"min_gain":          dt.params.MinGain,
		"random_state":      dt.seed,
	}
}

func (dt *DecisionTreeRegressor) String() string {
	if !dt.IsFitted() {
		return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d)", dt.params.MaxDepth)
	}
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, depth=%d, leaves=%d)",
		dt.params.MaxDepth, dt.Tree.Depth, dt.Tree.NumLeaves())
}
