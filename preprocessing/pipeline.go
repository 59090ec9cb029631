// Package preprocessing implements the feature pipeline applied before model
// fitting: an ordered list of stages, each learning its statistics once from
// training rows and replaying them verbatim on any later rows.
//
// The matrix-level StandardScaler backs the Standardize stage.
package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Stage is an unfitted pipeline step.
type Stage interface {
	// Name identifies the stage in errors and logs.
	Name() string
	// Fit learns the stage's statistics from rows. target is never transformed.
	Fit(rows []dataset.Row, target string) (FittedStage, error)
}

// FittedStage replays learned statistics. Transform never modifies its
// input rows and returns new ones.
type FittedStage interface {
	Transform(rows []dataset.Row) ([]dataset.Row, error)
}

// Pipeline is an ordered list of stages. It holds no learned state, so one
// Pipeline value can be fitted any number of times, e.g. once per fold.
type Pipeline struct {
	stages []Stage
}

// NewPipeline composes stages in the given order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// DefaultStages returns the standard stage order: drop the given columns,
// one-hot encode categorical predictors, median-impute numeric predictors,
// then standardize every numeric predictor.
func DefaultStages(drop ...string) []Stage {
	stages := make([]Stage, 0, 4)
	if len(drop) > 0 {
		stages = append(stages, DropColumns(drop...))
	}
	return append(stages, &OneHotEncoder{}, &MedianImputer{}, &Standardize{})
}

// Default returns a Pipeline of DefaultStages.
func Default(drop ...string) *Pipeline {
	return NewPipeline(DefaultStages(drop...)...)
}

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Fit fits every stage in order on the output of the previous one. The
// feature column order of the result is fixed here.
func (p *Pipeline) Fit(ds *dataset.Dataset) (*FittedPipeline, error) {
	if ds.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "pipeline fit")
	}
	target := ds.Target()
	rows := ds.Rows()

	fitted := make([]FittedStage, 0, len(p.stages))
	for _, stage := range p.stages {
		fs, err := stage.Fit(rows, target)
		if err != nil {
			return nil, errors.Wrapf(err, "fit stage %s", stage.Name())
		}
		rows, err = fs.Transform(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "transform stage %s", stage.Name())
		}
		fitted = append(fitted, fs)
	}

	features := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		if name != target {
			features = append(features, name)
		}
	}
	sort.Strings(features)
	if len(features) == 0 {
		return nil, errors.NewValidationError("pipeline", "no predictor columns left after preprocessing", 0)
	}

	fp := &FittedPipeline{target: target, stages: fitted, features: features}
	if _, _, err := fp.matrix(rows); err != nil {
		return nil, err
	}
	return fp, nil
}

// FittedPipeline is the immutable result of Pipeline.Fit.
type FittedPipeline struct {
	target   string
	stages   []FittedStage
	features []string
}

// FeatureNames returns the output feature columns in matrix order.
func (fp *FittedPipeline) FeatureNames() []string {
	out := make([]string, len(fp.features))
	copy(out, fp.features)
	return out
}

// Target returns the target column name.
func (fp *FittedPipeline) Target() string { return fp.target }

// Transform applies every fitted stage in order.
func (fp *FittedPipeline) Transform(rows []dataset.Row) ([]dataset.Row, error) {
	var err error
	for _, fs := range fp.stages {
		rows, err = fs.Transform(rows)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Matrix transforms rows and lays them out as a feature matrix X and an n×1
// target matrix y. y is nil when the rows carry no target column.
func (fp *FittedPipeline) Matrix(rows []dataset.Row) (*mat.Dense, *mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "pipeline matrix")
	}
	out, err := fp.Transform(rows)
	if err != nil {
		return nil, nil, err
	}
	return fp.matrix(out)
}

func (fp *FittedPipeline) matrix(rows []dataset.Row) (*mat.Dense, *mat.Dense, error) {
	X := mat.NewDense(len(rows), len(fp.features), nil)
	for i, row := range rows {
		for j, name := range fp.features {
			v, ok := row[name]
			if !ok {
				return nil, nil, errors.NewUnknownColumnError("pipeline matrix", name)
			}
			f, ok := v.Float()
			if !ok {
				return nil, nil, errors.NewValidationError(name,
					fmt.Sprintf("row %d is %s after preprocessing, expected numeric", i, v.Kind()), v.String())
			}
			X.Set(i, j, f)
		}
	}

	if _, ok := rows[0][fp.target]; !ok {
		return X, nil, nil
	}
	y := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		f, ok := row[fp.target].Float()
		if !ok {
			return nil, nil, errors.NewValidationError(fp.target,
				fmt.Sprintf("row %d target is %s", i, row[fp.target].Kind()), row[fp.target].String())
		}
		y.Set(i, 0, f)
	}
	return X, y, nil
}

// numericPredictors returns the sorted non-target columns in which no row
// holds a categorical value.
func numericPredictors(rows []dataset.Row, target string) []string {
	var out []string
	for _, name := range columnNames(rows) {
		if name == target {
			continue
		}
		numeric := true
		for _, row := range rows {
			if row[name].Kind() == dataset.Categorical {
				numeric = false
				break
			}
		}
		if numeric {
			out = append(out, name)
		}
	}
	return out
}

func columnNames(rows []dataset.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requireColumns(op string, rows []dataset.Row, columns []string) error {
	if len(rows) == 0 {
		return nil
	}
	for _, c := range columns {
		if _, ok := rows[0][c]; !ok {
			return errors.NewUnknownColumnError(op, c)
		}
	}
	return nil
}

func cloneRows(rows []dataset.Row) []dataset.Row {
	out := make([]dataset.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
