// Package hyperparam describes tunable hyperparameter spaces and generates
// space-filling candidate configurations from them.
package hyperparam

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Type is the value type of a parameter.
type Type int

const (
	// Float parameters take any value in [Min, Max].
	Float Type = iota
	// Int parameters take integer values in [Min, Max].
	Int
)

func (t Type) String() string {
	if t == Int {
		return "int"
	}
	return "float"
}

// Scale is the transformation under which a parameter is sampled uniformly.
type Scale int

const (
	Linear Scale = iota
	Log10
)

func (s Scale) String() string {
	if s == Log10 {
		return "log10"
	}
	return "linear"
}

// Param declares one tunable parameter. Min and Max are given on the original
// (untransformed) scale and are inclusive.
type Param struct {
	Name  string
	Type  Type
	Min   float64
	Max   float64
	Scale Scale

	// MaxFromFeatures marks an upper bound that equals the number of predictor
	// columns, resolved by Space.Finalize.
	MaxFromFeatures bool
}

// Validate checks the bounds of p.
func (p Param) Validate() error {
	if p.Name == "" {
		return errors.NewValidationError("name", "parameter name is empty", p.Name)
	}
	if p.MaxFromFeatures {
		return errors.NewValidationError(p.Name, "upper bound depends on the data; call Space.Finalize first", p.Max)
	}
	if math.IsNaN(p.Min) || math.IsNaN(p.Max) || math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0) {
		return errors.NewValidationError(p.Name, "bounds must be finite", [2]float64{p.Min, p.Max})
	}
	if p.Min > p.Max {
		return errors.NewValidationError(p.Name, "min must not exceed max", [2]float64{p.Min, p.Max})
	}
	if p.Scale == Log10 && p.Min <= 0 {
		return errors.NewValidationError(p.Name, "log10 scale requires positive bounds", p.Min)
	}
	if p.Type == Int && math.Ceil(p.Min) > math.Floor(p.Max) {
		return errors.NewValidationError(p.Name, "range contains no integer", [2]float64{p.Min, p.Max})
	}
	return nil
}

// FromUnit maps u in [0, 1) to the parameter's range. Linear integers are split
// into equally wide strata so every level is equally likely; log-scaled values
// are interpolated in log space and then rounded for integers.
func (p Param) FromUnit(u float64) float64 {
	u = math.Min(math.Max(u, 0), math.Nextafter(1, 0))

	if p.Type == Int && p.Scale == Linear {
		lo, hi := math.Ceil(p.Min), math.Floor(p.Max)
		return math.Min(lo+math.Floor(u*(hi-lo+1)), hi)
	}

	var v float64
	switch p.Scale {
	case Log10:
		lo, hi := math.Log10(p.Min), math.Log10(p.Max)
		v = math.Pow(10, lo+u*(hi-lo))
	default:
		v = p.Min + u*(p.Max-p.Min)
	}
	v = math.Min(math.Max(v, p.Min), p.Max)
	if p.Type == Int {
		v = math.Min(math.Max(math.Round(v), math.Ceil(p.Min)), math.Floor(p.Max))
	}
	return v
}

// levels is the number of distinct values of an integer parameter, or -1.
func (p Param) levels() int {
	if p.Type != Int {
		return -1
	}
	return int(math.Floor(p.Max)-math.Ceil(p.Min)) + 1
}

func (p Param) String() string {
	hi := fmt.Sprintf("%g", p.Max)
	if p.MaxFromFeatures {
		hi = "n_features"
	}
	return fmt.Sprintf("%s %s [%g, %s] %s", p.Name, p.Type, p.Min, hi, p.Scale)
}

// Space is an ordered set of parameters tuned together.
type Space struct {
	Params []Param
}

// NewSpace builds a space from params.
func NewSpace(params ...Param) Space {
	return Space{Params: append([]Param(nil), params...)}
}

// Len returns the number of tunable parameters.
func (s Space) Len() int { return len(s.Params) }

// Names returns the parameter names in declaration order.
func (s Space) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Validate checks every parameter and rejects duplicate names.
func (s Space) Validate() error {
	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return errors.NewValidationError(p.Name, "duplicate parameter", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Finalize returns a copy of s with data-dependent upper bounds set to
// nFeatures.
func (s Space) Finalize(nFeatures int) (Space, error) {
	out := NewSpace(s.Params...)
	for i := range out.Params {
		p := &out.Params[i]
		if !p.MaxFromFeatures {
			continue
		}
		if float64(nFeatures) < p.Min {
			return Space{}, errors.NewValidationError(p.Name,
				fmt.Sprintf("needs at least %g predictors", p.Min), nFeatures)
		}
		p.Max = float64(nFeatures)
		p.MaxFromFeatures = false
	}
	return out, nil
}

// capacity is the number of distinct configurations when every parameter is an
// integer, or -1 when the space is continuous.
func (s Space) capacity() int {
	total := 1
	for _, p := range s.Params {
		n := p.levels()
		if n < 0 {
			return -1
		}
		if total > math.MaxInt32/n {
			return -1
		}
		total *= n
	}
	return total
}

func (s Space) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, "; ") + "}"
}
