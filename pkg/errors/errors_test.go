package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "scitune: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "scitune: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)

	want := "scitune: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LinearRegression", "Predict")

	want := "scitune: LinearRegression: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestSearchErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		check   func(error) bool
	}{
		{
			name:    "invalid fraction",
			err:     NewInvalidFractionError(1.5),
			wantMsg: "scitune: train fraction must be in (0, 1), got 1.5",
			check:   func(err error) bool { var e *InvalidFractionError; return As(err, &e) },
		},
		{
			name:    "invalid fold count",
			err:     NewInvalidFoldCountError(1, 400),
			wantMsg: "scitune: fold count must be in [2, 400], got 1",
			check:   func(err error) bool { var e *InvalidFoldCountError; return As(err, &e) },
		},
		{
			name:    "unknown column",
			err:     NewUnknownColumnError("DropColumns.Fit", "gauge_id"),
			wantMsg: `scitune: DropColumns.Fit: unknown column "gauge_id"`,
			check:   func(err error) bool { var e *UnknownColumnError; return As(err, &e) },
		},
		{
			name:    "training failed",
			err:     NewTrainingFailedError("boosted_trees", "zero training rows", nil),
			wantMsg: "scitune: training boosted_trees failed: zero training rows",
			check:   func(err error) bool { var e *TrainingFailedError; return As(err, &e) },
		},
		{
			name:    "empty space",
			err:     NewEmptySpaceError(10),
			wantMsg: "scitune: hyperparameter space has no tunable parameters but 10 candidates were requested",
			check:   func(err error) bool { var e *EmptySpaceError; return As(err, &e) },
		},
		{
			name:    "metric undefined",
			err:     NewMetricUndefinedError("r_squared", "fewer than two observations"),
			wantMsg: "scitune: metric 'r_squared' is undefined: fewer than two observations",
			check:   func(err error) bool { var e *MetricUndefinedError; return As(err, &e) },
		},
		{
			name:    "no viable configuration",
			err:     NewNoViableConfigurationError(3, []string{"Model01", "Model02", "Model03"}),
			wantMsg: "scitune: no viable configuration: all 3 candidates failed",
			check:   func(err error) bool { var e *NoViableConfigurationError; return As(err, &e) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.wantMsg)
			}
			if !tt.check(tt.err) {
				t.Errorf("error %T is not castable to its declared type", tt.err)
			}
			wrapped := Wrap(tt.err, "search")
			if !tt.check(wrapped) {
				t.Error("wrapped error lost its type")
			}
		})
	}
}

func TestTrainingFailedErrorUnwrap(t *testing.T) {
	cause := NewModelError("LinearRegression.Fit", "singular matrix", ErrSingularMatrix)
	err := NewTrainingFailedError("linear", "fit failed", cause)

	if !Is(err, ErrSingularMatrix) {
		t.Error("Expected Is(err, ErrSingularMatrix) through TrainingFailedError")
	}
	if !strings.Contains(err.Error(), "singular matrix") {
		t.Errorf("Expected cause in message, got %q", err.Error())
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("GradientBoosting", 200, "loss did not decrease")

	want := "GradientBoosting failed to converge after 200 iterations: loss did not decrease"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnRoutesToZerologFunc(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewDataConversionWarning("numeric", "categorical", "non-numeric cell"))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	var dcw *DataConversionWarning
	if !As(got[0], &dcw) {
		t.Errorf("expected *DataConversionWarning, got %T", got[0])
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("predict", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := CheckScalar("boosting_update", nan(), 7)
	var nie *NumericalInstabilityError
	if !As(err, &nie) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if nie.Iteration != 7 {
		t.Errorf("Iteration = %d, want 7", nie.Iteration)
	}
}

type grid [][]float64

func (g grid) At(i, j int) float64 { return g[i][j] }

func TestCheckMatrix(t *testing.T) {
	if err := CheckMatrix("predict", grid{{1, 2}, {3, 4}}, 2, 2, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// only the first ten offending values are kept
	bad := make(grid, 12)
	for i := range bad {
		bad[i] = []float64{nan(), 1}
	}
	err := CheckMatrix("predict", bad, 12, 2, 3)
	var nie *NumericalInstabilityError
	if !As(err, &nie) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if len(nie.Values) != 10 {
		t.Errorf("len(Values) = %d, want 10", len(nie.Values))
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
