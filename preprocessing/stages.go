package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// DropColumns removes the named columns. Every named column must exist.
func DropColumns(names ...string) Stage {
	return &dropColumns{names: names}
}

type dropColumns struct {
	names []string
}

func (d *dropColumns) Name() string { return "drop_columns" }

func (d *dropColumns) Fit(rows []dataset.Row, target string) (FittedStage, error) {
	for _, n := range d.names {
		if n == target {
			return nil, errors.NewValidationError("drop_columns", "cannot drop the target column", n)
		}
	}
	if err := requireColumns("drop_columns", rows, d.names); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dropColumns) Transform(rows []dataset.Row) ([]dataset.Row, error) {
	if err := requireColumns("drop_columns", rows, d.names); err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for _, row := range out {
		for _, n := range d.names {
			delete(row, n)
		}
	}
	return out, nil
}

// OneHotEncoder replaces each categorical predictor with one 0/1 column per
// level seen at fit time, named "<column>_<level>". Levels are sorted and the
// first is the reference level, which gets no column. Missing values and
// levels unseen at fit time encode as all zeros, the same as the reference.
//
// Columns selects the encoded predictors; when empty, every predictor holding
// a categorical value is encoded.
type OneHotEncoder struct {
	Columns []string
}

func (e *OneHotEncoder) Name() string { return "one_hot" }

func (e *OneHotEncoder) Fit(rows []dataset.Row, target string) (FittedStage, error) {
	columns := e.Columns
	if len(columns) == 0 {
		numeric := make(map[string]bool)
		for _, n := range numericPredictors(rows, target) {
			numeric[n] = true
		}
		for _, n := range columnNames(rows) {
			if n != target && !numeric[n] {
				columns = append(columns, n)
			}
		}
	} else if err := requireColumns("one_hot", rows, columns); err != nil {
		return nil, err
	}

	taken := make(map[string]bool)
	for _, n := range columnNames(rows) {
		taken[n] = true
	}
	f := &fittedOneHot{levels: make(map[string][]string, len(columns))}
	for _, c := range columns {
		seen := make(map[string]bool)
		for _, row := range rows {
			if v := row[c]; !v.IsMissing() {
				seen[v.String()] = true
			}
		}
		levels := make([]string, 0, len(seen))
		for l := range seen {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		// dummy names must not shadow an existing column or another dummy
		for _, l := range levels[min(1, len(levels)):] {
			name := c + "_" + l
			if taken[name] {
				return nil, errors.NewValidationError(name, "one-hot column collides with an existing column", c)
			}
			taken[name] = true
		}
		f.columns = append(f.columns, c)
		f.levels[c] = levels
	}
	return f, nil
}

type fittedOneHot struct {
	columns []string
	levels  map[string][]string
}

func (f *fittedOneHot) Transform(rows []dataset.Row) ([]dataset.Row, error) {
	if err := requireColumns("one_hot", rows, f.columns); err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for _, row := range out {
		for _, c := range f.columns {
			v := row[c]
			delete(row, c)
			levels := f.levels[c]
			for _, l := range levels[min(1, len(levels)):] {
				ind := 0.0
				if !v.IsMissing() && v.String() == l {
					ind = 1
				}
				row[c+"_"+l] = dataset.Num(ind)
			}
		}
	}
	return out, nil
}

// MedianImputer fills missing numeric predictor values with the column median
// learned at fit time. A column with no observed values is filled with 0.
//
// Columns selects the imputed predictors; when empty, every numeric predictor
// is imputed.
type MedianImputer struct {
	Columns []string
}

func (m *MedianImputer) Name() string { return "impute_median" }

func (m *MedianImputer) Fit(rows []dataset.Row, target string) (FittedStage, error) {
	columns := m.Columns
	if len(columns) == 0 {
		columns = numericPredictors(rows, target)
	} else if err := requireColumns("impute_median", rows, columns); err != nil {
		return nil, err
	}

	f := &fittedImputer{columns: columns, medians: make([]float64, len(columns))}
	vals := make([]float64, 0, len(rows))
	for j, c := range columns {
		vals = vals[:0]
		for _, row := range rows {
			if x, ok := row[c].Float(); ok {
				vals = append(vals, x)
			}
		}
		f.medians[j] = median(vals)
	}
	return f, nil
}

type fittedImputer struct {
	columns []string
	medians []float64
}

func (f *fittedImputer) Transform(rows []dataset.Row) ([]dataset.Row, error) {
	if err := requireColumns("impute_median", rows, f.columns); err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for _, row := range out {
		for j, c := range f.columns {
			if row[c].IsMissing() {
				row[c] = dataset.Num(f.medians[j])
			}
		}
	}
	return out, nil
}

// median sorts vals in place. The median of an even count is the mean of the
// two middle values.
func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sort.Float64s(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// Standardize centers and scales numeric predictors with a StandardScaler
// fitted on the training rows. Columns must be complete, so it belongs after
// MedianImputer.
//
// Columns selects the scaled predictors; when empty, every numeric predictor
// is scaled.
type Standardize struct {
	Columns []string
}

func (s *Standardize) Name() string { return "standardize" }

func (s *Standardize) Fit(rows []dataset.Row, target string) (FittedStage, error) {
	columns := s.Columns
	if len(columns) == 0 {
		columns = numericPredictors(rows, target)
	} else if err := requireColumns("standardize", rows, columns); err != nil {
		return nil, err
	}

	f := &fittedStandardize{columns: columns, scaler: NewStandardScaler(true, true)}
	if len(columns) == 0 {
		return f, nil
	}
	X, err := f.gather(rows)
	if err != nil {
		return nil, err
	}
	if err := f.scaler.Fit(X); err != nil {
		return nil, err
	}
	return f, nil
}

type fittedStandardize struct {
	columns []string
	scaler  *StandardScaler
}

func (f *fittedStandardize) gather(rows []dataset.Row) (*mat.Dense, error) {
	X := mat.NewDense(len(rows), len(f.columns), nil)
	for i, row := range rows {
		for j, c := range f.columns {
			v, ok := row[c].Float()
			if !ok {
				return nil, errors.NewValidationError(c, "standardize needs complete numeric values", row[c].String())
			}
			X.Set(i, j, v)
		}
	}
	return X, nil
}

func (f *fittedStandardize) Transform(rows []dataset.Row) ([]dataset.Row, error) {
	if len(f.columns) == 0 || len(rows) == 0 {
		return cloneRows(rows), nil
	}
	if err := requireColumns("standardize", rows, f.columns); err != nil {
		return nil, err
	}
	X, err := f.gather(rows)
	if err != nil {
		return nil, err
	}
	Z, err := f.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for i, row := range out {
		for j, c := range f.columns {
			row[c] = dataset.Num(Z.At(i, j))
		}
	}
	return out, nil
}
