package dataset

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			"q_mean":    Num(float64(i)),
			"area":      Num(float64(i%7) * 1.5),
			"landcover": Cat(fmt.Sprintf("lc%d", i%3)),
		}
	}
	return rows
}

func TestValue(t *testing.T) {
	assert.True(t, Num(math.NaN()).IsMissing())
	f, ok := Num(2.5).Float()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = Cat("forest").Float()
	assert.False(t, ok)
	lvl, ok := Cat("forest").Level()
	assert.True(t, ok)
	assert.Equal(t, "forest", lvl)

	assert.Equal(t, "NA", NA().String())
	assert.Equal(t, "categorical", Categorical.String())
}

func TestNew(t *testing.T) {
	ds, err := New(makeRows(10), "q_mean")
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Len())
	assert.Equal(t, []string{"area", "landcover", "q_mean"}, ds.Columns())
	assert.Equal(t, []string{"area", "landcover"}, ds.Predictors())
	assert.True(t, ds.HasColumn("area"))
	assert.False(t, ds.HasColumn("slope"))
	assert.Equal(t, 9.0, ds.TargetValues()[9])
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name  string
		rows  func() []Row
		check func(error) bool
	}{
		{"empty", func() []Row { return nil }, func(err error) bool { return errors.Is(err, errors.ErrEmptyData) }},
		{"unknown target", func() []Row { return []Row{{"a": Num(1)}} }, func(err error) bool {
			var e *errors.UnknownColumnError
			return errors.As(err, &e) && e.Column == "q_mean"
		}},
		{"ragged rows", func() []Row {
			rows := makeRows(3)
			delete(rows[2], "area")
			return rows
		}, func(err error) bool {
			var e *errors.ValidationError
			return errors.As(err, &e)
		}},
		{"missing target", func() []Row {
			rows := makeRows(3)
			rows[1]["q_mean"] = NA()
			return rows
		}, func(err error) bool {
			var e *errors.ValidationError
			return errors.As(err, &e) && e.ParamName == "q_mean"
		}},
		{"categorical target", func() []Row {
			rows := makeRows(3)
			rows[0]["q_mean"] = Cat("high")
			return rows
		}, func(err error) bool {
			var e *errors.ValidationError
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rows(), "q_mean")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestSubsetKeepsOrder(t *testing.T) {
	ds, err := New(makeRows(10), "q_mean")
	require.NoError(t, err)
	sub := ds.Subset([]int{7, 2, 5})
	assert.Equal(t, 3, sub.Len())
	assert.Equal(t, []float64{7, 2, 5}, sub.TargetValues())
	assert.Equal(t, ds.Columns(), sub.Columns())
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"site, q_mean ,area,landcover,code",
		"a,1.5,10,forest,01",
		"b,2.5,NA,crop,02",
		"c,3.5,30,,03",
	}, "\n")

	ds, err := ReadCSV(strings.NewReader(input), "q_mean", WithCategorical("code"))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, Numeric, ds.Row(0)["area"].Kind())
	assert.True(t, ds.Row(1)["area"].IsMissing())
	assert.True(t, ds.Row(2)["landcover"].IsMissing())
	assert.Equal(t, Categorical, ds.Row(0)["code"].Kind())
	assert.Equal(t, "01", ds.Row(0)["code"].String())
	assert.Equal(t, Categorical, ds.Row(0)["site"].Kind())
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, ds.TargetValues())
}

func TestReadCSVMixedColumnWarns(t *testing.T) {
	var warned []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	input := "y,x\n1,2\n2,high\n"
	ds, err := ReadCSV(strings.NewReader(input), "y")
	require.NoError(t, err)
	assert.Equal(t, Categorical, ds.Row(0)["x"].Kind())
	require.Len(t, warned, 1)

	var w *errors.DataConversionWarning
	assert.True(t, errors.As(warned[0], &w))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("y,x\n"), "y")
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = ReadCSV(strings.NewReader("y,y\n1,2\n"), "y")
	var v *errors.ValidationError
	assert.True(t, errors.As(err, &v))

	_, err = ReadCSV(strings.NewReader("y,x\n1,2\n"), "q_mean")
	var u *errors.UnknownColumnError
	assert.True(t, errors.As(err, &u))
}

func TestSynthetic(t *testing.T) {
	ds, err := Synthetic(200, 1)
	require.NoError(t, err)
	assert.Equal(t, 200, ds.Len())
	assert.Equal(t, SyntheticTarget, ds.Target())
	assert.Equal(t,
		[]string{"area", "aridity", "elev_mean", "gauge_id", "geology", "p_mean", "q_mean", "slope_mean"},
		ds.Columns())

	missingArea := 0
	for i := 0; i < ds.Len(); i++ {
		if ds.Row(i)["area"].IsMissing() {
			missingArea++
		}
	}
	assert.Greater(t, missingArea, 0)
	assert.Less(t, missingArea, 40)
	for _, q := range ds.TargetValues() {
		assert.GreaterOrEqual(t, q, 0.01)
	}

	again, err := Synthetic(200, 1)
	require.NoError(t, err)
	assert.Equal(t, ds.Rows(), again.Rows())

	other, err := Synthetic(200, 2)
	require.NoError(t, err)
	assert.NotEqual(t, ds.TargetValues(), other.TargetValues())

	_, err = Synthetic(0, 1)
	assert.Error(t, err)
}
