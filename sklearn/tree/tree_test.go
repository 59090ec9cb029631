package tree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// stepData は x0 <= 0.5 で 1、それ以外で 5 となる階段関数。x1 はノイズ列
func stepData(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		X.Set(i, 0, x0)
		X.Set(i, 1, rng.Float64())
		if x0 <= 0.5 {
			y.Set(i, 0, 1)
		} else {
			y.Set(i, 0, 5)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor_FitPredict_Step(t *testing.T) {
	X, y := stepData(40)

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-9, "sample %d", i)
	}

	root := dt.Tree.Nodes[0]
	assert.Equal(t, 0, root.Feature)
	assert.Equal(t, 3, len(dt.Tree.Nodes))
	assert.Equal(t, 2, dt.Tree.NumLeaves())
	assert.Equal(t, 1, dt.Tree.Depth)
}

func TestDecisionTreeRegressor_LeafIsMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 6})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	// 全て同じ値なので分割できない
	assert.Len(t, dt.Tree.Nodes, 1)
	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{7}))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, pred.At(0, 0), 1e-9)
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	n := 64
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, math.Sin(float64(i)))
	}

	for _, depth := range []int{1, 2, 3, 5} {
		dt := NewDecisionTreeRegressor(WithMaxDepth(depth))
		require.NoError(t, dt.Fit(X, y))
		assert.LessOrEqual(t, dt.Tree.Depth, depth)
		assert.LessOrEqual(t, dt.Tree.NumLeaves(), 1<<depth)
	}
}

func TestDecisionTreeRegressor_MinSamples(t *testing.T) {
	X, y := stepData(40)

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(15))
	require.NoError(t, dt.Fit(X, y))
	for _, node := range dt.Tree.Nodes {
		if node.IsLeaf() {
			assert.GreaterOrEqual(t, node.Samples, 15)
		}
	}

	dt = NewDecisionTreeRegressor(WithMinSamplesSplit(41))
	require.NoError(t, dt.Fit(X, y))
	assert.Len(t, dt.Tree.Nodes, 1)
}

func TestDecisionTreeRegressor_MinGain(t *testing.T) {
	X, y := stepData(40)

	// 最良分割の利得は 0.5 * SSE減少量 = 0.5 * 159.6 ≈ 80
	dt := NewDecisionTreeRegressor(WithMinGain(100))
	require.NoError(t, dt.Fit(X, y))
	assert.Len(t, dt.Tree.Nodes, 1)

	dt = NewDecisionTreeRegressor(WithMinGain(10))
	require.NoError(t, dt.Fit(X, y))
	assert.Greater(t, len(dt.Tree.Nodes), 1)
}

func TestDecisionTreeRegressor_FeatureImportance(t *testing.T) {
	X, y := stepData(40)

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))
	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, imp, 1e-12)
}

func TestDecisionTreeRegressor_MaxFeaturesDeterministic(t *testing.T) {
	X, y := stepData(60)

	a := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(9))
	b := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(9))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Tree, b.Tree)
}

func TestDecisionTreeRegressor_GetParams(t *testing.T) {
	dt := NewDecisionTreeRegressor(WithMaxDepth(4), WithMinSamplesLeaf(3))
	params := dt.GetParams()
	assert.Equal(t, 4, params["max_depth"])
	assert.Equal(t, 3, params["min_samples_leaf"])
	assert.Contains(t, dt.String(), "max_depth=4")
}

func TestDecisionTreeRegressor_NotFitted(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = dt.FeatureImportances()
	assert.True(t, errors.As(err, &nf))
}

func TestParamsValidation(t *testing.T) {
	X, y := stepData(10)
	tests := []struct {
		name string
		opt  Option
	}{
		{"negative depth", WithMaxDepth(-1)},
		{"split below two", WithMinSamplesSplit(1)},
		{"empty leaf", WithMinSamplesLeaf(0)},
		{"too many features", WithMaxFeatures(3)},
		{"negative gain", WithMinGain(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDecisionTreeRegressor(tt.opt).Fit(X, y)
			var v *errors.ValidationError
			assert.True(t, errors.As(err, &v), "got %v", err)
		})
	}
}

func TestGrowWithGradients(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	// 行 0 と 3 を重複して使う（ブートストラップ標本）
	rows := []int{0, 0, 3, 3}
	grad := []float64{-1, -1, -3, -3}
	hess := []float64{1, 1, 1, 1}

	p := DefaultParams()
	p.Lambda = 2
	tree, err := p.Grow(X, rows, grad, hess, nil)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 3)
	// 葉の値は -G/(H+λ)
	assert.InDelta(t, 2.0/4.0, tree.PredictRow([]float64{0}), 1e-6)
	assert.InDelta(t, 6.0/4.0, tree.PredictRow([]float64{3}), 1e-6)
}
