package dataset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

func checkPartition(t *testing.T, p Partition, n int) {
	t.Helper()
	all := append(append([]int{}, p.Train...), p.Test...)
	sort.Ints(all)
	require.Len(t, all, n)
	for i, v := range all {
		require.Equal(t, i, v, "positions must be disjoint and exhaustive")
	}
}

func TestSplitProportions(t *testing.T) {
	ds, err := New(makeRows(500), "q_mean")
	require.NoError(t, err)

	tests := []struct {
		fraction float64
		strata   int
		train    int
	}{
		{0.8, 0, 400},
		{0.8, 4, 400},
		{0.75, 4, 375},
		{0.3, 0, 150},
		{0.001, 0, 1},
		{0.999, 4, 499},
	}
	for _, tt := range tests {
		p, err := Split(ds, tt.fraction, 42, WithStrata(tt.strata))
		require.NoError(t, err)
		assert.Len(t, p.Train, tt.train, "fraction %v strata %d", tt.fraction, tt.strata)
		checkPartition(t, p, 500)
	}
}

func TestSplitDeterministic(t *testing.T) {
	ds, err := New(makeRows(200), "q_mean")
	require.NoError(t, err)

	a, err := Split(ds, 0.8, 7, WithStrata(4))
	require.NoError(t, err)
	b, err := Split(ds, 0.8, 7, WithStrata(4))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Split(ds, 0.8, 8, WithStrata(4))
	require.NoError(t, err)
	assert.NotEqual(t, a.Test, c.Test)
}

func TestSplitStratifiedBalancesTarget(t *testing.T) {
	ds, err := New(makeRows(400), "q_mean")
	require.NoError(t, err)
	p, err := Split(ds, 0.75, 3, WithStrata(4))
	require.NoError(t, err)

	// target equals position, so each quartile bin is a contiguous block of 100
	perBin := make([]int, 4)
	for _, pos := range p.Test {
		perBin[pos/100]++
	}
	assert.Equal(t, []int{25, 25, 25, 25}, perBin)
}

func TestSplitInvalidFraction(t *testing.T) {
	ds, err := New(makeRows(10), "q_mean")
	require.NoError(t, err)
	for _, f := range []float64{0, 1, -0.2, 1.5} {
		_, err := Split(ds, f, 1)
		var e *errors.InvalidFractionError
		assert.True(t, errors.As(err, &e), "fraction %v", f)
	}
}

func TestTrainSizeClamp(t *testing.T) {
	assert.Equal(t, 1, TrainSize(10, 0.01))
	assert.Equal(t, 9, TrainSize(10, 0.99))
	assert.Equal(t, 8, TrainSize(10, 0.8))
}

func TestMakeFolds(t *testing.T) {
	tests := []struct {
		n, v int
	}{
		{400, 5},
		{401, 10},
		{10, 10},
		{7, 2},
	}
	for _, tt := range tests {
		folds, err := MakeFolds(tt.n, tt.v, 11)
		require.NoError(t, err)
		assert.Equal(t, tt.v, folds.Count())
		assert.Equal(t, tt.n, folds.Len())

		sizes := folds.Sizes()
		minSize, maxSize := sizes[0], sizes[0]
		total := 0
		for _, s := range sizes {
			total += s
			minSize = min(minSize, s)
			maxSize = max(maxSize, s)
		}
		assert.Equal(t, tt.n, total)
		assert.LessOrEqual(t, maxSize-minSize, 1)

		covered := make([]int, tt.n)
		for k := 0; k < tt.v; k++ {
			train, holdout := folds.Partition(k)
			assert.Len(t, train, tt.n-len(holdout))
			for _, pos := range holdout {
				covered[pos]++
				assert.Equal(t, k, folds.Of(pos))
			}
		}
		for pos, c := range covered {
			assert.Equal(t, 1, c, "position %d", pos)
		}
	}
}

func TestMakeFoldsDeterministic(t *testing.T) {
	a, err := MakeFolds(100, 5, 3)
	require.NoError(t, err)
	b, err := MakeFolds(100, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMakeFoldsInvalid(t *testing.T) {
	for _, tt := range []struct{ n, v int }{{10, 1}, {10, 11}, {0, 2}} {
		_, err := MakeFolds(tt.n, tt.v, 1)
		var e *errors.InvalidFoldCountError
		require.True(t, errors.As(err, &e))
		assert.Equal(t, tt.v, e.Folds)
	}
}
