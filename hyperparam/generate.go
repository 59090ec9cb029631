package hyperparam

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/pkg/log"
)

const (
	designStream = 0x1a7e

	defaultTries = 10
	maxRefills   = 20
)

type generateConfig struct {
	tries  int
	logger log.Logger
}

// GenerateOption configures Generate.
type GenerateOption func(*generateConfig)

// WithTries sets how many Latin hypercube designs are drawn per round; the one
// with the largest minimum pairwise distance wins.
func WithTries(n int) GenerateOption {
	return func(c *generateConfig) { c.tries = n }
}

// WithLogger sets the logger used to report shortfalls.
func WithLogger(l log.Logger) GenerateOption {
	return func(c *generateConfig) { c.logger = l }
}

// Generate returns count distinct configurations covering space, in generation
// order. Designs are maximin Latin hypercubes in the unit cube mapped onto each
// parameter's scale. Configurations that collide after integer rounding are
// replaced from further designs; if the space has fewer distinct values than
// count, the distinct ones are returned and a warning is logged.
//
// A space without parameters yields a single empty configuration and fails with
// EmptySpaceError when more than one is requested.
func Generate(space Space, count int, seed int64, opts ...GenerateOption) ([]Candidate, error) {
	cfg := generateConfig{tries: defaultTries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("hyperparam")
	}
	if cfg.tries < 1 {
		return nil, errors.NewValidationError("tries", "must be >= 1", cfg.tries)
	}
	if count < 1 {
		return nil, errors.NewValidationError("candidate_count", "must be >= 1", count)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}

	if space.Len() == 0 {
		if count > 1 {
			return nil, errors.NewEmptySpaceError(count)
		}
		return []Candidate{{ID: CandidateID(0, 1), Index: 0, Config: NewConfig(nil)}}, nil
	}

	target := count
	if c := space.capacity(); c > 0 && c < target {
		target = c
	}

	rng := rand.New(rand.NewPCG(uint64(seed), designStream))
	seen := make(map[string]bool, target)
	configs := make([]Config, 0, target)
	// refill rounds draw full-size designs so that sparse integer grids
	// still reach every remaining combination
	for round := 0; round <= maxRefills && len(configs) < target; round++ {
		for _, point := range maximinDesign(rng, target, space.Len(), cfg.tries) {
			c := space.configAt(point)
			if key := c.Key(); !seen[key] {
				seen[key] = true
				configs = append(configs, c)
				if len(configs) == target {
					break
				}
			}
		}
	}

	if len(configs) < count {
		cfg.logger.Warn("hyperparameter space cannot supply the requested candidates",
			log.CandidateCountKey, len(configs),
			"requested", count,
		)
	}

	candidates := make([]Candidate, len(configs))
	for i, c := range configs {
		candidates[i] = Candidate{ID: CandidateID(i, len(configs)), Index: i, Config: c}
	}
	return candidates, nil
}

func (s Space) configAt(point []float64) Config {
	values := make(map[string]float64, len(s.Params))
	for j, p := range s.Params {
		values[p.Name] = p.FromUnit(point[j])
	}
	return Config{values: values}
}

// maximinDesign draws tries Latin hypercube designs of n points in d
// dimensions and keeps the one whose closest pair of points is farthest apart.
func maximinDesign(rng *rand.Rand, n, d, tries int) [][]float64 {
	var best [][]float64
	bestDist := math.Inf(-1)
	for t := 0; t < tries; t++ {
		design := latinHypercube(rng, n, d)
		if dist := minPairwiseDistance(design); dist > bestDist {
			best, bestDist = design, dist
		}
	}
	return best
}

// latinHypercube places exactly one point in each of the n equal strata of
// every dimension, jittered uniformly within the stratum.
func latinHypercube(rng *rand.Rand, n, d int) [][]float64 {
	design := make([][]float64, n)
	for i := range design {
		design[i] = make([]float64, d)
	}
	for j := 0; j < d; j++ {
		for i, stratum := range rng.Perm(n) {
			design[i][j] = (float64(stratum) + rng.Float64()) / float64(n)
		}
	}
	return design
}

func minPairwiseDistance(design [][]float64) float64 {
	minDist := math.Inf(1)
	for i := 0; i < len(design); i++ {
		for j := i + 1; j < len(design); j++ {
			if dist := floats.Distance(design[i], design[j], 2); dist < minDist {
				minDist = dist
			}
		}
	}
	return minDist
}
