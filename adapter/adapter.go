// Package adapter wraps trainable model families behind one interface so the
// search engine can fit any of them from a hyperparameter configuration.
package adapter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/core/model"
	"github.com/YuminosukeSato/scitune/hyperparam"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Family names used by the registry and the CLI.
const (
	LinearName       = "linear"
	BoostedTreesName = "boosted_trees"
	RandomForestName = "random_forest"
)

// Adapter is a model family with a declared hyperparameter space.
//
// Fit must not retain X or y. Parameters absent from cfg take the family's
// defaults, so an empty Config fits the default model.
type Adapter interface {
	Name() string
	Space() hyperparam.Space
	Fit(X, y mat.Matrix, cfg hyperparam.Config) (model.Predictor, error)
}

// Seeder is implemented by families whose fits are random. Reseed returns a
// copy drawing from seed; the search calls it with its own seed so one seed
// reproduces the whole run. A family whose seed was set explicitly keeps it.
type Seeder interface {
	Reseed(seed int64) Adapter
}

// Seeded returns a reseeded copy of a when it implements Seeder, and a
// otherwise.
func Seeded(a Adapter, seed int64) Adapter {
	if s, ok := a.(Seeder); ok {
		return s.Reseed(seed)
	}
	return a
}

// fitChecked fits m and converts every failure, including a panic inside the
// model, into a TrainingFailedError for family name.
func fitChecked(name string, m model.Regressor, X, y mat.Matrix) (p model.Predictor, err error) {
	defer func() {
		if err != nil && !errors.As(err, new(*errors.TrainingFailedError)) {
			err = errors.NewTrainingFailedError(name, "fit failed", err)
		}
	}()
	defer errors.Recover(&err, name+".Fit")

	if rows, _ := X.Dims(); rows == 0 {
		return nil, errors.NewTrainingFailedError(name, "zero training rows", errors.ErrEmptyData)
	}
	if err := m.Fit(X, y); err != nil {
		return nil, err
	}
	return &checked{name: name, model: m}, nil
}

// checked rejects non-finite predictions.
type checked struct {
	name  string
	model model.Predictor
}

func (c *checked) Predict(X mat.Matrix) (pred mat.Matrix, err error) {
	defer errors.Recover(&err, c.name+".Predict")

	pred, err = c.model.Predict(X)
	if err != nil {
		return nil, err
	}
	r, k := pred.Dims()
	if err := errors.CheckMatrix(c.name+".Predict", pred, r, k, 0); err != nil {
		return nil, errors.NewTrainingFailedError(c.name, "non-finite predictions", err)
	}
	return pred, nil
}

// Unwrap returns the fitted model.
func (c *checked) Unwrap() model.Predictor { return c.model }
