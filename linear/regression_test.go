package linear

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// makeLinearData は y = 1 + Σ (j+1)/2 * x_j + noise のデータを生成する
func makeLinearData(rows, cols int, noise float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(42, 42))

	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			v := rng.Float64()*2.0 - 1.0
			X.Set(i, j, v)
			sum += v * float64(j+1) * 0.5
		}
		sum += (rng.Float64() - 0.5) * noise
		y.Set(i, 0, sum)
	}
	return X, y
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := makeLinearData(200, 3, 0)

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDelta(t, 1.0, lr.GetIntercept(), 1e-8)
	assert.InDeltaSlice(t, []float64{0.5, 1.0, 1.5}, lr.Weights(), 1e-8)
	assert.Equal(t, 4, lr.Rank)
	assert.Nil(t, lr.Singular)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 1, c)
	assert.InDelta(t, y.At(7, 0), pred.At(7, 0), 1e-8)
}

func TestLinearRegressionRankDeficientFallsBackToSVD(t *testing.T) {
	X, y := makeLinearData(50, 3, 0.05)
	// 定数0の列（あるフォールドで水準が消えたダミー列に相当）と重複列
	Xd := mat.NewDense(50, 5, nil)
	for i := 0; i < 50; i++ {
		Xd.Set(i, 0, X.At(i, 0))
		Xd.Set(i, 1, X.At(i, 1))
		Xd.Set(i, 2, X.At(i, 2))
		Xd.Set(i, 3, 0)
		Xd.Set(i, 4, X.At(i, 0))
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(Xd, y))
	assert.Equal(t, 4, lr.Rank)
	assert.Len(t, lr.Singular, 6)
	assert.InDelta(t, 0, lr.Weights()[3], 1e-8, "minimum norm solution puts no weight on a zero column")

	pred, err := lr.Predict(Xd)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 0.1)
	}
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0.0, lr.GetIntercept())
	assert.InDelta(t, 2.0, lr.Weights()[0], 1e-12)
	assert.Equal(t, false, lr.GetParams()["fit_intercept"])
}

func TestLinearRegressionErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want func(error) bool
	}{
		{
			name: "predict before fit",
			run: func() error {
				_, err := NewLinearRegression().Predict(mat.NewDense(1, 1, nil))
				return err
			},
			want: func(err error) bool {
				var e *errors.NotFittedError
				return errors.As(err, &e)
			},
		},
		{
			name: "row mismatch",
			run: func() error {
				return NewLinearRegression().Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
			},
			want: func(err error) bool {
				var e *errors.DimensionError
				return errors.As(err, &e)
			},
		},
		{
			name: "feature mismatch at predict",
			run: func() error {
				lr := NewLinearRegression()
				X, y := makeLinearData(10, 2, 0.1)
				if err := lr.Fit(X, y); err != nil {
					return err
				}
				_, err := lr.Predict(mat.NewDense(1, 3, nil))
				return err
			},
			want: func(err error) bool {
				var e *errors.DimensionError
				return errors.As(err, &e)
			},
		},
		{
			name: "all zero design without intercept",
			run: func() error {
				return NewLinearRegression(WithFitIntercept(false)).Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 1, []float64{1, 2, 3}))
			},
			want: func(err error) bool {
				return errors.Is(err, errors.ErrSingularMatrix)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, tt.want(err), "unexpected error: %v", err)
		})
	}
}
