package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
// 学習状態と、学習時に見た特徴量の数を保持する
type BaseEstimator struct {
	state     EstimatorState
	nFeatures int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定し、特徴量数を記録する
func (e *BaseEstimator) SetFitted(nFeatures int) {
	e.state = Fitted
	e.nFeatures = nFeatures
}

// NFeatures は学習時の特徴量数を返す
func (e *BaseEstimator) NFeatures() int {
	return e.nFeatures
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.nFeatures = 0
}

// CheckPredict は予測前の共通検査を行い、入力の行数を返す
// 未学習、列数の不一致、空の入力をエラーにする
func (e *BaseEstimator) CheckPredict(modelName string, X mat.Matrix) (int, error) {
	if !e.IsFitted() {
		return 0, errors.NewNotFittedError(modelName, "Predict")
	}
	rows, cols := X.Dims()
	if cols != e.nFeatures {
		return 0, errors.NewDimensionError("Predict", e.nFeatures, cols, 1)
	}
	if rows == 0 {
		return 0, errors.ErrEmptyData
	}
	return rows, nil
}

// CheckFit は学習データの形状を検査し、行数と列数を返す
func CheckFit(X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.ErrEmptyData
	}
	if yRows != rows {
		return 0, 0, errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	return rows, cols, nil
}
