package program

import (
	"fmt"

	"github.com/atomica-sim/atomica/framework"
	"github.com/shopspring/decimal"
)

// Contribution is one active program's effect on a targeted parameter, used
// to blend multiple simultaneous programs (spec.md §4.7).
type Contribution struct {
	Program  string
	Coverage float64
	Baseline float64
	Effect   float64
}

// ComputeCoverage runs the per-program budget-to-coverage pipeline of
// spec.md §4.7 steps 1-3: reached = spending(t)*dt/unit_cost(t) (one-off)
// or spending(t)/unit_cost(t) (continuous), clamped by capacity, divided by
// denominator, clamped to [0,1] and by saturation.
//
// Currency arithmetic (spending, unit cost, capacity) is carried out in
// decimal.Decimal rather than float64, avoiding accumulated rounding error
// across a long annual spending time series (SPEC_FULL.md §4.9) before the
// result re-enters the float64 engine as a coverage fraction.
func ComputeCoverage(p Program, instr *Instructions, t, dt, denominator float64) (coverage, reached float64, err error) {
	if instr != nil {
		if cov, ok := instr.AlternativeCoverage[p.Name]; ok {
			return clamp01(applySaturation(cov, p.Saturation)), 0, nil
		}
	}

	spendingSeries := p.Spending
	if instr != nil {
		if override, ok := instr.SpendingOverrides[p.Name]; ok {
			spendingSeries = override
		}
	}

	spending := decimal.NewFromFloat(spendingSeries.At(t))
	unitCost := decimal.NewFromFloat(p.UnitCost.At(t))
	if unitCost.IsZero() {
		return 0, 0, fmt.Errorf("program %q: unit cost is zero at t=%v", p.Name, t)
	}

	var reachedDec decimal.Decimal
	if p.Continuous {
		reachedDec = spending.Div(unitCost)
	} else {
		reachedDec = spending.Mul(decimal.NewFromFloat(dt)).Div(unitCost)
	}

	if p.Capacity != nil {
		capDec := decimal.NewFromFloat(*p.Capacity)
		if reachedDec.GreaterThan(capDec) {
			reachedDec = capDec
		}
	}

	reached, _ = reachedDec.Float64()

	if denominator <= 0 {
		return 0, reached, nil
	}
	coverage = reached / denominator
	coverage = clamp01(coverage)
	coverage = applySaturation(coverage, p.Saturation)
	return coverage, reached, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func applySaturation(coverage float64, saturation *float64) float64 {
	if saturation != nil && coverage > *saturation {
		return *saturation
	}
	return coverage
}

// Blend combines every active program's contribution to a targeted
// parameter into a single overlay value, per the modality declared in the
// framework (spec.md §4.7). baseline is the value that applies when
// coverage is 0; [min,max] limits are applied by the caller as a
// post-modality clip (spec.md §9 resolved open question), not here.
func Blend(modality framework.Modality, baseline float64, contributions []Contribution) float64 {
	if len(contributions) == 0 {
		return baseline
	}
	switch modality {
	case framework.Multiplicative:
		return blendMultiplicative(baseline, contributions)
	case framework.Random:
		return blendRandom(baseline, contributions)
	case framework.Additive, "":
		return blendAdditive(baseline, contributions)
	default:
		return blendAdditive(baseline, contributions)
	}
}

func blendAdditive(baseline float64, cs []Contribution) float64 {
	value := baseline
	for _, c := range cs {
		value += c.Coverage * (c.Effect - c.Baseline)
	}
	return value
}

// blendMultiplicative treats each program as a multiplier on the remaining
// shortfall to full effect: each program closes coverage_p of whatever gap
// to its own effect remains after the programs ahead of it have acted.
func blendMultiplicative(baseline float64, cs []Contribution) float64 {
	value := baseline
	for _, c := range cs {
		gap := c.Effect - value
		value += c.Coverage * gap
	}
	return value
}

// blendRandom computes the coverage of the union of programs assuming
// independence, then weights each program's effect delta by its share of
// that union (spec.md §4.7).
func blendRandom(baseline float64, cs []Contribution) float64 {
	unionUncovered := 1.0
	var totalCoverage float64
	for _, c := range cs {
		unionUncovered *= (1 - c.Coverage)
		totalCoverage += c.Coverage
	}
	unionCoverage := 1 - unionUncovered
	if totalCoverage == 0 {
		return baseline
	}
	var weightedDelta float64
	for _, c := range cs {
		share := c.Coverage / totalCoverage
		weightedDelta += share * (c.Effect - c.Baseline)
	}
	return baseline + unionCoverage*weightedDelta
}
