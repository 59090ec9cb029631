package search

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/preprocessing"
)

// FinalModel is a pipeline and model fitted on the full training partition.
// It keeps no reference to fold data.
type FinalModel struct {
	Family   string
	Config   hyperparam.Config
	Pipeline *preprocessing.FittedPipeline
	Model    model.Predictor
}

// Params returns the hyperparameters reported by the fitted model, or nil
// when it reports none.
func (f *FinalModel) Params() map[string]interface{} {
	m := f.Model
	if u, ok := m.(interface{ Unwrap() model.Predictor }); ok {
		m = u.Unwrap()
	}
	if pg, ok := m.(model.ParameterGetter); ok {
		return pg.GetParams()
	}
	return nil
}

// Prediction is one row of the residual table. Row is the position in the
// dataset the prediction was made for.
type Prediction struct {
	Row       int
	Predicted float64
	Actual    float64
	Residual  float64
}

// Finalize fits a fresh pipeline on train and then a on the transformed rows
// with cfg.
func Finalize(a adapter.Adapter, cfg hyperparam.Config, pipe *preprocessing.Pipeline, train *dataset.Dataset) (*FinalModel, error) {
	if pipe == nil {
		pipe = preprocessing.Default()
	}
	fp, err := pipe.Fit(train)
	if err != nil {
		return nil, errors.Wrap(err, "finalize: fit pipeline")
	}
	X, y, err := fp.Matrix(train.Rows())
	if err != nil {
		return nil, errors.Wrap(err, "finalize: transform training rows")
	}
	m, err := a.Fit(X, y, cfg)
	if err != nil {
		return nil, err
	}
	return &FinalModel{Family: a.Name(), Config: cfg, Pipeline: fp, Model: m}, nil
}

// Predict returns one prediction per row. Rows need not carry the target.
func (f *FinalModel) Predict(rows []dataset.Row) ([]float64, error) {
	X, _, err := f.Pipeline.Matrix(rows)
	if err != nil {
		return nil, err
	}
	pred, err := f.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, pred), nil
}

// predictions pairs the model's output with the target of every row of ds.
func (f *FinalModel) predictions(ds *dataset.Dataset) ([]Prediction, error) {
	pred, err := f.Predict(ds.Rows())
	if err != nil {
		return nil, err
	}
	actual := ds.TargetValues()
	out := make([]Prediction, len(pred))
	for i, p := range pred {
		out[i] = Prediction{Row: i, Predicted: p, Actual: actual[i], Residual: actual[i] - p}
	}
	return out, nil
}

// EvaluateOnce scores the final model on the test partition. The returned
// predictions are aligned with the rows of test.
//
// A metric that cannot be computed on test is left out of the scores and its
// error, the first one in metric order, is returned together with the scores
// and predictions that were produced.
func EvaluateOnce(f *FinalModel, test *dataset.Dataset, ms []metrics.Metric) (map[string]float64, []Prediction, error) {
	scores, failed, preds, err := scoreTest(f, test, ms)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range ms {
		if e, ok := failed[m.Name]; ok {
			return scores, preds, e
		}
	}
	return scores, preds, nil
}

// scoreTest predicts test and computes every metric, collecting metric errors
// per name. Only a prediction failure is returned as err.
func scoreTest(f *FinalModel, test *dataset.Dataset, ms []metrics.Metric) (map[string]float64, map[string]error, []Prediction, error) {
	preds, err := f.predictions(test)
	if err != nil {
		return nil, nil, nil, err
	}
	yTrue := mat.NewVecDense(len(preds), nil)
	yPred := mat.NewVecDense(len(preds), nil)
	for i, p := range preds {
		yTrue.SetVec(i, p.Actual)
		yPred.SetVec(i, p.Predicted)
	}

	scores := make(map[string]float64, len(ms))
	failed := make(map[string]error)
	for _, m := range ms {
		v, err := m.Compute(yTrue, yPred)
		if err != nil {
			failed[m.Name] = err
			continue
		}
		scores[m.Name] = v
	}
	return scores, failed, preds, nil
}

// Residuals predicts every row of ds, typically the full dataset, and returns
// the row-aligned prediction, actual and residual table.
func Residuals(f *FinalModel, ds *dataset.Dataset) ([]Prediction, error) {
	return f.predictions(ds)
}
