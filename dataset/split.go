package dataset

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// PCG stream selectors. Each consumer of a run seed draws from its own stream
// so that changing one step never perturbs another.
const (
	splitStream = 0x5b11
	foldStream  = 0xf01d
	synthStream = 0x5e7d
)

// Partition is a disjoint, exhaustive split of dataset rows into train and
// test positions. Both slices are sorted ascending.
type Partition struct {
	Train []int
	Test  []int
}

type splitConfig struct {
	strata int
}

// SplitOption configures Split.
type SplitOption func(*splitConfig)

// WithStrata splits within quantile bins of the target so that train and test
// share its distribution. bins <= 1 disables stratification.
func WithStrata(bins int) SplitOption {
	return func(c *splitConfig) {
		c.strata = bins
	}
}

// TrainSize returns round(fraction*n) clamped to [1, n-1].
func TrainSize(n int, fraction float64) int {
	size := int(math.Round(fraction * float64(n)))
	if size < 1 {
		size = 1
	}
	if size > n-1 {
		size = n - 1
	}
	return size
}

// Split partitions ds into train and test. It is a pure function of its
// arguments: the same seed always yields the same partition.
func Split(ds *Dataset, trainFraction float64, seed int64, opts ...SplitOption) (Partition, error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return Partition{}, errors.NewInvalidFractionError(trainFraction)
	}
	n := ds.Len()
	if n < 2 {
		return Partition{}, errors.NewValidationError("dataset", "split needs at least 2 rows", n)
	}

	cfg := splitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := rand.New(rand.NewPCG(uint64(seed), splitStream))
	total := TrainSize(n, trainFraction)

	strata := quantileStrata(ds.TargetValues(), cfg.strata)
	quotas := allocate(strata, trainFraction, total)

	var p Partition
	for b, members := range strata {
		r.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		p.Train = append(p.Train, members[:quotas[b]]...)
		p.Test = append(p.Test, members[quotas[b]:]...)
	}
	sort.Ints(p.Train)
	sort.Ints(p.Test)
	return p, nil
}

// quantileStrata groups row positions into bins of near-equal size by target
// rank. Ties in the target are ordered by position.
func quantileStrata(target []float64, bins int) [][]int {
	n := len(target)
	if bins > n/2 {
		bins = n / 2
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if bins <= 1 {
		return [][]int{order}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return target[order[a]] < target[order[b]]
	})
	strata := make([][]int, bins)
	for rank, pos := range order {
		b := rank * bins / n
		strata[b] = append(strata[b], pos)
	}
	for _, s := range strata {
		sort.Ints(s)
	}
	return strata
}

// allocate distributes total train rows across strata by largest remainder so
// that the overall train size is exact.
func allocate(strata [][]int, fraction float64, total int) []int {
	quotas := make([]int, len(strata))
	rems := make([]float64, len(strata))
	sum := 0
	for b, s := range strata {
		q := fraction * float64(len(s))
		quotas[b] = int(math.Floor(q))
		rems[b] = q - float64(quotas[b])
		sum += quotas[b]
	}

	order := make([]int, len(strata))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })

	for sum < total {
		progressed := false
		for _, b := range order {
			if sum == total {
				break
			}
			if quotas[b] < len(strata[b]) {
				quotas[b]++
				sum++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return quotas
}
