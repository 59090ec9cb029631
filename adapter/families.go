package adapter

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/linear"
	"github.com/YuminosukeSato/scitune/sklearn/ensemble"
)

// Linear is ordinary least squares. It has nothing to tune.
type Linear struct {
	opts []linear.Option
}

// NewLinear returns the linear family; opts are passed to every fit.
func NewLinear(opts ...linear.Option) *Linear {
	return &Linear{opts: opts}
}

func (a *Linear) Name() string { return LinearName }

func (a *Linear) Space() hyperparam.Space { return hyperparam.Space{} }

func (a *Linear) Fit(X, y mat.Matrix, _ hyperparam.Config) (model.Predictor, error) {
	return fitChecked(a.Name(), linear.NewLinearRegression(a.opts...), X, y)
}

// Boosted tree hyperparameter names.
const (
	TreeDepth     = "tree_depth"
	LearnRate     = "learn_rate"
	LossReduction = "loss_reduction"
)

// BoostedTrees is gradient boosting with a fixed number of trees. Depth,
// learning rate and minimum loss reduction are tuned.
type BoostedTrees struct {
	trees int
	minN  int
}

// BoostedOption configures BoostedTrees.
type BoostedOption func(*BoostedTrees)

// WithBoostedTrees sets the fixed number of boosting iterations.
func WithBoostedTrees(n int) BoostedOption {
	return func(a *BoostedTrees) { a.trees = n }
}

// WithBoostedMinN sets the fixed smallest node that may be split.
func WithBoostedMinN(n int) BoostedOption {
	return func(a *BoostedTrees) { a.minN = n }
}

// NewBoostedTrees returns the boosted tree family with 200 trees.
func NewBoostedTrees(opts ...BoostedOption) *BoostedTrees {
	a := &BoostedTrees{trees: 200, minN: 2}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *BoostedTrees) Name() string { return BoostedTreesName }

func (a *BoostedTrees) Space() hyperparam.Space {
	return hyperparam.NewSpace(
		hyperparam.Param{Name: TreeDepth, Type: hyperparam.Int, Min: 1, Max: 15},
		hyperparam.Param{Name: LearnRate, Type: hyperparam.Float, Min: 1e-10, Max: 1, Scale: hyperparam.Log10},
		hyperparam.Param{Name: LossReduction, Type: hyperparam.Float, Min: 1e-10, Max: math.Pow(10, 1.5), Scale: hyperparam.Log10},
	)
}

func (a *BoostedTrees) Fit(X, y mat.Matrix, cfg hyperparam.Config) (model.Predictor, error) {
	gb := ensemble.NewGradientBoostingRegressor(
		ensemble.WithBoostingTrees(a.trees),
		ensemble.WithBoostingMinSamplesSplit(a.minN),
		ensemble.WithTreeDepth(cfg.Int(TreeDepth, 6)),
		ensemble.WithLearningRate(cfg.Float(LearnRate, 0.3)),
		ensemble.WithLossReduction(cfg.Float(LossReduction, 0)),
	)
	return fitChecked(a.Name(), gb, X, y)
}

// Random forest hyperparameter names.
const (
	Mtry  = "mtry"
	Trees = "trees"
	MinN  = "min_n"
)

// RandomForest is a bagged forest. Features per split, tree count and minimum
// node size are tuned; mtry's upper bound is the number of predictors.
type RandomForest struct {
	maxTrees int
	seed     uint64
	seedSet  bool
	workers  int
}

// ForestOption configures RandomForest.
type ForestOption func(*RandomForest)

// WithMaxTrees sets the upper bound of the trees parameter.
func WithMaxTrees(n int) ForestOption {
	return func(a *RandomForest) { a.maxTrees = n }
}

// WithForestSeed sets the seed used for bootstrap samples and feature sampling.
// An explicit seed is kept when the search reseeds the family; without one the
// forest follows the search seed.
func WithForestSeed(seed uint64) ForestOption {
	return func(a *RandomForest) {
		a.seed = seed
		a.seedSet = true
	}
}

// WithForestWorkers bounds the goroutines growing the trees of one fit. The
// search already runs folds in parallel, so the default is 1.
func WithForestWorkers(n int) ForestOption {
	return func(a *RandomForest) { a.workers = n }
}

// NewRandomForest returns the forest family.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	a := &RandomForest{maxTrees: 2000, workers: 1}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *RandomForest) Name() string { return RandomForestName }

// Reseed implements Seeder.
func (a *RandomForest) Reseed(seed int64) Adapter {
	if a.seedSet {
		return a
	}
	c := *a
	c.seed = uint64(seed)
	return &c
}

func (a *RandomForest) Space() hyperparam.Space {
	return hyperparam.NewSpace(
		hyperparam.Param{Name: Mtry, Type: hyperparam.Int, Min: 1, MaxFromFeatures: true},
		hyperparam.Param{Name: Trees, Type: hyperparam.Int, Min: 1, Max: float64(a.maxTrees)},
		hyperparam.Param{Name: MinN, Type: hyperparam.Int, Min: 2, Max: 40},
	)
}

// Fit clamps mtry to the columns of X; a fold can see fewer one-hot columns
// than the data the space was finalised on.
func (a *RandomForest) Fit(X, y mat.Matrix, cfg hyperparam.Config) (model.Predictor, error) {
	_, cols := X.Dims()
	mtry := cfg.Int(Mtry, 0)
	if mtry > cols {
		mtry = cols
	}
	rf := ensemble.NewRandomForestRegressor(
		ensemble.WithForestTrees(cfg.Int(Trees, 500)),
		ensemble.WithMaxFeatures(max(mtry, 0)),
		ensemble.WithForestMinSamplesSplit(cfg.Int(MinN, 5)),
		ensemble.WithForestSeed(a.seed),
		ensemble.WithForestWorkers(a.workers),
	)
	return fitChecked(a.Name(), rf, X, y)
}
