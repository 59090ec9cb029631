package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/YuminosukeSato/scitune/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Metric names understood by Lookup.
const (
	RootMeanSquaredError = "rmse"
	RSquared             = "r_squared"
	MeanAbsoluteError    = "mae"
	MeanSquaredError     = "mse"
)

// Direction says whether smaller or larger metric values are better.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// ParseDirection accepts "minimize"/"min" and "maximize"/"max".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "minimize", "min":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	}
	return Minimize, errors.NewValidationError("direction", "must be minimize or maximize", s)
}

// Func computes a metric from observed and predicted values.
type Func func(yTrue, yPred *mat.VecDense) (float64, error)

// Metric is a named evaluation function with its natural direction.
type Metric struct {
	Name      string
	Compute   Func
	Direction Direction
}

var registry = map[string]Metric{
	RootMeanSquaredError: {Name: RootMeanSquaredError, Compute: RMSE, Direction: Minimize},
	RSquared:             {Name: RSquared, Compute: R2Score, Direction: Maximize},
	MeanAbsoluteError:    {Name: MeanAbsoluteError, Compute: MAE, Direction: Minimize},
	MeanSquaredError:     {Name: MeanSquaredError, Compute: MSE, Direction: Minimize},
}

// Lookup returns the metric registered under name.
func Lookup(name string) (Metric, error) {
	m, ok := registry[name]
	if !ok {
		return Metric{}, errors.NewValidationError("metric",
			fmt.Sprintf("unknown metric, expected one of %s", strings.Join(Names(), ", ")), name)
	}
	return m, nil
}

// LookupAll resolves every name, failing on the first unknown one.
func LookupAll(names []string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		m, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Names returns the registered metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
