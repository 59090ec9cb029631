package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/core/parallel"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

var (
	_ model.Regressor       = (*LinearRegression)(nil)
	_ model.LinearModel     = (*LinearRegression)(nil)
	_ model.ParameterGetter = (*LinearRegression)(nil)
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は最小二乗法による線形回帰モデル
//
// 通常は正規方程式 w = (XᵀX)⁻¹Xᵀy で解く。XᵀX が特異、または条件数が
// 悪い場合（例えば、あるフォールドで定数になったダミー列がある場合）は
// 計画行列のSVDから最小ノルム解を求める。
type LinearRegression struct {
	model.BaseEstimator

	Coef      *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	Rank      int           // 計画行列の数値ランク
	Singular  []float64     // SVDにフォールバックした場合の特異値

	fitIntercept bool
	tol          float64
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		fitIntercept: true,
		tol:          1e-10,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c, err := model.CheckFit(X, y)
	if err != nil {
		return errors.NewModelError("LinearRegression.Fit", "invalid input", err)
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	design := mat.NewDense(r, c+offset, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0) // 切片項
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	coef, err := lr.solveNormal(design, y)
	if err != nil {
		coef, err = lr.solveSVD(design, y)
		if err != nil {
			return err
		}
	} else {
		lr.Rank = c + offset
		lr.Singular = nil
	}

	if err := errors.CheckNumericalStability("LinearRegression.Fit", coef.RawVector().Data, 0); err != nil {
		return err
	}

	lr.Intercept = 0
	if offset == 1 {
		lr.Intercept = coef.AtVec(0)
	}
	lr.Coef = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Coef.SetVec(j, coef.AtVec(j+offset))
	}

	lr.SetFitted(c)
	return nil
}

// solveNormal は正規方程式を解く。逆行列が得られない、または条件数が
// 悪い場合はエラーを返す
func (lr *LinearRegression) solveNormal(design *mat.Dense, y mat.Matrix) (*mat.VecDense, error) {
	var xtx mat.Dense
	xtx.Mul(design.T(), design)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	var xty mat.Dense
	xty.Mul(design.T(), y)

	var w mat.Dense
	w.Mul(&inv, &xty)
	return mat.NewVecDense(w.RawMatrix().Rows, mat.Col(nil, 0, &w)), nil
}

// solveSVD は計画行列のSVDで最小ノルム最小二乗解を求める
func (lr *LinearRegression) solveSVD(design *mat.Dense, y mat.Matrix) (*mat.VecDense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return nil, errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	lr.Singular = svd.Values(nil)
	lr.Rank = svd.Rank(lr.tol)
	if lr.Rank == 0 {
		return nil, errors.NewModelError("LinearRegression.Fit", "design matrix has rank 0", errors.ErrSingularMatrix)
	}

	var w mat.Dense
	svd.SolveTo(&w, y, lr.Rank)
	return mat.NewVecDense(w.RawMatrix().Rows, mat.Col(nil, 0, &w)), nil
}

// Predict は入力データに対する予測を行う
// 予測: y = X * coef + intercept
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := lr.CheckPredict("LinearRegression", X)
	if err != nil {
		return nil, err
	}

	var pred mat.VecDense
	pred.MulVec(X, lr.Coef)
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, pred.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// Weights は学習された重み（係数）を返す
func (lr *LinearRegression) Weights() []float64 {
	if lr.Coef == nil {
		return nil
	}
	out := make([]float64, lr.Coef.Len())
	copy(out, lr.Coef.RawVector().Data)
	return out
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// GetParams はモデルのパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"tol":           lr.tol,
	}
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.fitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)",
		lr.fitIntercept, lr.NFeatures(), lr.Rank)
}
