package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// SyntheticTarget is the target column of Synthetic.
const SyntheticTarget = "q_mean"

var geologies = []string{"basalt", "granite", "limestone", "shale"}

// Synthetic generates n catchments with hydrology-like attributes and their
// mean daily discharge q_mean (mm/day). About 5% of the area values and 2% of
// the geology labels are missing. The result depends only on n and seed.
func Synthetic(n int, seed int64) (*Dataset, error) {
	if n < 1 {
		return nil, errors.NewValidationError("rows", "must be >= 1", n)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), synthStream))
	// quantile sampling keeps the draws on rng
	unit := func() float64 { return (float64(rng.Uint64()>>11) + 0.5) / (1 << 53) }

	logArea := distuv.Normal{Mu: 5, Sigma: 1.2}
	elev := distuv.Normal{Mu: 900, Sigma: 350}
	precip := distuv.Gamma{Alpha: 16, Beta: 16.0 / 1100}
	noise := distuv.Normal{Mu: 0, Sigma: 0.15}

	rows := make([]Row, n)
	for i := range rows {
		area := math.Exp(logArea.Quantile(unit()))
		e := math.Max(elev.Quantile(unit()), 0)
		p := precip.Quantile(unit())
		slope := 40 * unit()
		aridity := 0.3 + 1.7*unit()
		geo := geologies[rng.IntN(len(geologies))]

		// runoff ratio falls with aridity; steep, high and impermeable
		// catchments shed more of their rainfall
		ratio := 0.55 * math.Exp(-0.9*aridity) * (1 + 0.004*slope) * (1 + e/4000)
		if geo == "granite" || geo == "shale" {
			ratio *= 1.15
		}
		q := p/365*ratio + 0.02*math.Log(area) + noise.Quantile(unit())
		q = math.Max(q, 0.01)

		row := Row{
			"gauge_id":      Cat(fmt.Sprintf("G%05d", i+1)),
			"area":          Num(area),
			"elev_mean":     Num(e),
			"slope_mean":    Num(slope),
			"p_mean":        Num(p),
			"aridity":       Num(aridity),
			"geology":       Cat(geo),
			SyntheticTarget: Num(q),
		}
		if unit() < 0.05 {
			row["area"] = NA()
		}
		if unit() < 0.02 {
			row["geology"] = NA()
		}
		rows[i] = row
	}
	return New(rows, SyntheticTarget)
}
