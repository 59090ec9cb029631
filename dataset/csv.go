package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

type csvConfig struct {
	missing     map[string]bool
	categorical map[string]bool
	comma       rune
}

// CSVOption configures ReadCSV.
type CSVOption func(*csvConfig)

// WithMissingTokens replaces the set of cell texts read as missing.
// The default set is "", "NA", "NaN", "null".
func WithMissingTokens(tokens ...string) CSVOption {
	return func(c *csvConfig) {
		c.missing = make(map[string]bool, len(tokens))
		for _, t := range tokens {
			c.missing[t] = true
		}
	}
}

// WithCategorical forces the named columns to be read as categorical even
// when every cell parses as a number, e.g. numeric site codes.
func WithCategorical(columns ...string) CSVOption {
	return func(c *csvConfig) {
		for _, col := range columns {
			c.categorical[col] = true
		}
	}
}

// WithComma sets the field delimiter.
func WithComma(r rune) CSVOption {
	return func(c *csvConfig) {
		c.comma = r
	}
}

// ReadCSV reads a header-first CSV table into a Dataset. A column is numeric
// when every non-missing cell parses as a float; otherwise the whole column
// is read as categorical and a DataConversionWarning is raised for it.
func ReadCSV(r io.Reader, target string, opts ...CSVOption) (*Dataset, error) {
	cfg := csvConfig{
		missing:     map[string]bool{"": true, "NA": true, "NaN": true, "null": true},
		categorical: map[string]bool{},
		comma:       ',',
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) < 2 {
		return nil, errors.Wrap(errors.ErrEmptyData, "read csv")
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.NewValidationError("header", fmt.Sprintf("column %d has no name", i), name)
		}
		if seen[name] {
			return nil, errors.NewValidationError("header", "duplicate column name", name)
		}
		seen[name] = true
		header[i] = name
	}
	body := records[1:]

	numeric := make([]bool, len(header))
	for j, name := range header {
		numeric[j] = !cfg.categorical[name]
		if !numeric[j] {
			continue
		}
		for _, rec := range body {
			cell := strings.TrimSpace(rec[j])
			if cfg.missing[cell] {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[j] = false
				if name != target {
					errors.Warn(errors.NewDataConversionWarning("numeric", "categorical",
						fmt.Sprintf("column %q has non-numeric cell %q", name, cell)))
				}
				break
			}
		}
	}

	rows := make([]Row, len(body))
	for i, rec := range body {
		row := make(Row, len(header))
		for j, name := range header {
			cell := strings.TrimSpace(rec[j])
			switch {
			case cfg.missing[cell]:
				row[name] = NA()
			case numeric[j]:
				f, _ := strconv.ParseFloat(cell, 64)
				row[name] = Num(f)
			default:
				row[name] = Cat(cell)
			}
		}
		rows[i] = row
	}

	return New(rows, target)
}
