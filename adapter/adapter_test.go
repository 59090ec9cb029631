package adapter

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/linear"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

func sampleData(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(9, 9))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b, c := rng.Float64(), rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b, c})
		y.Set(i, 0, 2*a-b+0.5*c+1)
	}
	return X, y
}

// emptyMatrix has no rows; gonum refuses to allocate a 0-row Dense.
type emptyMatrix struct{ cols int }

func (m emptyMatrix) Dims() (int, int)    { return 0, m.cols }
func (m emptyMatrix) At(i, j int) float64 { panic(mat.ErrIndexOutOfRange) }
func (m emptyMatrix) T() mat.Matrix       { return mat.Transpose{Matrix: m} }

type panicModel struct{}

func (panicModel) Fit(X, y mat.Matrix) error                { panic("boom") }
func (panicModel) Predict(X mat.Matrix) (mat.Matrix, error) { return nil, nil }

type nanModel struct{}

func (nanModel) Fit(X, y mat.Matrix) error { return nil }
func (nanModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	out.Set(0, 0, math.NaN())
	return out, nil
}

func TestFamilies_FitPredict(t *testing.T) {
	X, y := sampleData(80)

	tests := []struct {
		name    string
		adapter Adapter
		cfg     hyperparam.Config
		maxRMSE float64
	}{
		{"linear", NewLinear(), hyperparam.Config{}, 1e-8},
		{"boosted default", NewBoostedTrees(WithBoostedTrees(30)), hyperparam.Config{}, 0.3},
		{"boosted tuned", NewBoostedTrees(WithBoostedTrees(30)), hyperparam.NewConfig(map[string]float64{
			TreeDepth: 3, LearnRate: 0.2, LossReduction: 1e-6,
		}), 0.3},
		{"forest", NewRandomForest(WithForestSeed(1)), hyperparam.NewConfig(map[string]float64{
			Mtry: 2, Trees: 25, MinN: 4,
		}), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.adapter.Fit(X, y, tt.cfg)
			require.NoError(t, err)

			pred, err := p.Predict(X)
			require.NoError(t, err)
			r, c := pred.Dims()
			assert.Equal(t, 80, r)
			assert.Equal(t, 1, c)

			var ss float64
			for i := 0; i < r; i++ {
				d := pred.At(i, 0) - y.At(i, 0)
				ss += d * d
			}
			assert.Less(t, math.Sqrt(ss/float64(r)), tt.maxRMSE)
		})
	}
}

func TestFamilies_Spaces(t *testing.T) {
	assert.Equal(t, 0, NewLinear().Space().Len())

	boosted := NewBoostedTrees().Space()
	require.NoError(t, boosted.Validate())
	assert.Equal(t, []string{TreeDepth, LearnRate, LossReduction}, boosted.Names())
	assert.Equal(t, hyperparam.Log10, boosted.Params[1].Scale)

	forest := NewRandomForest(WithMaxTrees(50)).Space()
	assert.Error(t, forest.Validate(), "mtry needs the predictor count")
	final, err := forest.Finalize(3)
	require.NoError(t, err)
	require.NoError(t, final.Validate())
	assert.Equal(t, 3.0, final.Params[0].Max)
	assert.Equal(t, 50.0, final.Params[1].Max)
}

func TestRandomForest_ClampsMtry(t *testing.T) {
	X, y := sampleData(30)
	cfg := hyperparam.NewConfig(map[string]float64{Mtry: 10, Trees: 3, MinN: 2})

	_, err := NewRandomForest().Fit(X, y, cfg)
	assert.NoError(t, err)
}

func TestRandomForest_Reseed(t *testing.T) {
	X, y := sampleData(60)
	cfg := hyperparam.NewConfig(map[string]float64{Trees: 20, Mtry: 1, MinN: 2})
	predict := func(a Adapter) []float64 {
		t.Helper()
		p, err := a.Fit(X, y, cfg)
		require.NoError(t, err)
		out, err := p.Predict(X)
		require.NoError(t, err)
		return mat.Col(nil, 0, out)
	}

	rf := NewRandomForest()
	base := predict(rf)
	assert.Equal(t, base, predict(Seeded(rf, 0)), "seed 0 is the unseeded default")
	assert.Equal(t, predict(Seeded(rf, 7)), predict(Seeded(rf, 7)))
	assert.NotEqual(t, base, predict(Seeded(rf, 7)))
	assert.Equal(t, base, predict(rf), "Reseed must not modify the receiver")

	pinned := NewRandomForest(WithForestSeed(3))
	assert.Same(t, pinned, Seeded(pinned, 7))

	lin := NewLinear()
	assert.Same(t, lin, Seeded(lin, 7))
}

func TestFit_Failures(t *testing.T) {
	X, y := sampleData(10)

	t.Run("zero rows", func(t *testing.T) {
		_, err := NewLinear().Fit(emptyMatrix{cols: 3}, emptyMatrix{cols: 1}, hyperparam.Config{})
		var tf *errors.TrainingFailedError
		require.True(t, errors.As(err, &tf), "got %v", err)
		assert.Equal(t, LinearName, tf.Model)
		assert.Equal(t, "zero training rows", tf.Reason)
	})

	t.Run("model error", func(t *testing.T) {
		_, err := NewBoostedTrees().Fit(X, y, hyperparam.NewConfig(map[string]float64{LearnRate: -1}))
		var tf *errors.TrainingFailedError
		require.True(t, errors.As(err, &tf), "got %v", err)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("panic", func(t *testing.T) {
		_, err := fitChecked("custom", panicModel{}, X, y)
		var tf *errors.TrainingFailedError
		require.True(t, errors.As(err, &tf), "got %v", err)
		var pe *errors.PanicError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("non-finite prediction", func(t *testing.T) {
		p, err := fitChecked("custom", nanModel{}, X, y)
		require.NoError(t, err)
		_, err = p.Predict(X)
		var tf *errors.TrainingFailedError
		require.True(t, errors.As(err, &tf), "got %v", err)
		assert.Equal(t, "non-finite predictions", tf.Reason)
	})
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{BoostedTreesName, LinearName, RandomForestName}, r.Names())

	for _, name := range r.Names() {
		a, err := r.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name())
	}

	_, err := r.New("svm")
	assert.Error(t, err)

	require.NoError(t, r.Register("linear_no_intercept", func() Adapter { return NewLinear(linear.WithFitIntercept(false)) }))
	assert.Error(t, r.Register(LinearName, func() Adapter { return NewLinear() }))
	assert.Error(t, r.Register("", nil))
	assert.Len(t, r.Names(), 4)
}
