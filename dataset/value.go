package dataset

import (
	"math"
	"strconv"
)

// Kind classifies a cell value.
type Kind uint8

const (
	// Missing marks an absent cell. NaN numbers are stored as Missing.
	Missing Kind = iota
	// Numeric cells hold a float64.
	Numeric
	// Categorical cells hold a level name.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "missing"
	}
}

// Value is a single cell of a Dataset.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Num returns a numeric value. NaN is treated as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: Numeric, num: f}
}

// Cat returns a categorical value.
func Cat(level string) Value {
	return Value{kind: Categorical, str: level}
}

// NA returns a missing value.
func NA() Value {
	return Value{}
}

// Kind reports what the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is missing.
func (v Value) IsMissing() bool { return v.kind == Missing }

// Float returns the numeric content and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != Numeric {
		return math.NaN(), false
	}
	return v.num, true
}

// Level returns the categorical level and whether the value is categorical.
func (v Value) Level() (string, bool) {
	if v.kind != Categorical {
		return "", false
	}
	return v.str, true
}

func (v Value) String() string {
	switch v.kind {
	case Numeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Categorical:
		return v.str
	default:
		return "NA"
	}
}

// Row maps column names to values.
type Row map[string]Value

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
