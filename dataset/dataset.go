// Package dataset holds tabular data for a search run and produces the
// deterministic train/test and k-fold partitions the search evaluates on.
//
// Rows are read-only once a Dataset is built. Subsets share row maps with
// their parent, so callers that need to modify values must Clone first.
package dataset

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Dataset is an ordered sequence of rows with one designated numeric target
// column. Every row carries the same column set.
type Dataset struct {
	columns []string
	target  string
	rows    []Row
}

// New validates rows and builds a Dataset. The column set is taken from the
// first row; every other row must match it exactly. The target column must be
// numeric and non-missing in every row.
func New(rows []Row, target string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}

	columns := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	if _, ok := rows[0][target]; !ok {
		return nil, errors.NewUnknownColumnError("dataset.New", target)
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewValidationError("rows",
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), len(columns)), len(row))
		}
		for _, name := range columns {
			if _, ok := row[name]; !ok {
				return nil, errors.NewValidationError("rows",
					fmt.Sprintf("row %d is missing column %q", i, name), name)
			}
		}
		if row[target].Kind() != Numeric {
			return nil, errors.NewValidationError(target,
				fmt.Sprintf("target must be numeric and present, row %d is %s", i, row[target].Kind()), row[target].String())
		}
	}

	return &Dataset{columns: columns, target: target, rows: rows}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Target returns the target column name.
func (d *Dataset) Target() string { return d.target }

// Columns returns every column name in sorted order, target included.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Predictors returns the non-target column names in sorted order.
func (d *Dataset) Predictors() []string {
	out := make([]string, 0, len(d.columns)-1)
	for _, c := range d.columns {
		if c != d.target {
			out = append(out, c)
		}
	}
	return out
}

// HasColumn reports whether name is a column of the dataset.
func (d *Dataset) HasColumn(name string) bool {
	i := sort.SearchStrings(d.columns, name)
	return i < len(d.columns) && d.columns[i] == name
}

// Row returns row i. The returned map must not be modified.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Rows returns the rows in order. The slice and its maps must not be modified.
func (d *Dataset) Rows() []Row { return d.rows }

// TargetValues returns the target column in row order.
func (d *Dataset) TargetValues() []float64 {
	out := make([]float64, len(d.rows))
	for i, row := range d.rows {
		out[i], _ = row[d.target].Float()
	}
	return out
}

// Subset returns a dataset holding the rows at the given positions, in the
// given order. Row maps are shared with d.
func (d *Dataset) Subset(idx []int) *Dataset {
	rows := make([]Row, len(idx))
	for i, j := range idx {
		rows[i] = d.rows[j]
	}
	return &Dataset{columns: d.columns, target: d.target, rows: rows}
}
