package dataset

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Folds assigns each of n positions to one of v folds. Positions are indices
// into the training partition, not into the parent dataset.
type Folds struct {
	assign []int
	v      int
}

// MakeFolds shuffles positions 0..n-1 with the seed and deals them
// round-robin into v folds, so fold sizes differ by at most one.
func MakeFolds(n, v int, seed int64) (*Folds, error) {
	if v < 2 || v > n {
		return nil, errors.NewInvalidFoldCountError(v, n)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), foldStream))
	r.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	assign := make([]int, n)
	for k, pos := range perm {
		assign[pos] = k % v
	}
	return &Folds{assign: assign, v: v}, nil
}

// Count returns the number of folds.
func (f *Folds) Count() int { return f.v }

// Len returns the number of assigned positions.
func (f *Folds) Len() int { return len(f.assign) }

// Of returns the fold of position pos.
func (f *Folds) Of(pos int) int { return f.assign[pos] }

// Sizes returns the number of positions in each fold.
func (f *Folds) Sizes() []int {
	sizes := make([]int, f.v)
	for _, k := range f.assign {
		sizes[k]++
	}
	return sizes
}

// Partition returns the analysis positions (every fold but k) and the
// holdout positions (fold k), both ascending.
func (f *Folds) Partition(k int) (train, holdout []int) {
	train = make([]int, 0, len(f.assign))
	for pos, fold := range f.assign {
		if fold == k {
			holdout = append(holdout, pos)
		} else {
			train = append(train, pos)
		}
	}
	return train, holdout
}
