package program

import (
	"testing"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProgramOverlayScenario matches spec.md §8 scenario 6.
func TestProgramOverlayScenario(t *testing.T) {
	p := Program{
		Name:       "treat",
		UnitCost:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{100}},
		Spending:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{1000}},
		Continuous: false,
	}
	coverage, reached, err := ComputeCoverage(p, nil, 2020, 0.25, 100)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, reached, 1e-9)
	assert.InDelta(t, 0.025, coverage, 1e-9)

	value := Blend(framework.Additive, 0, []Contribution{{Program: "treat", Coverage: coverage, Baseline: 0, Effect: 0.9}})
	assert.InDelta(t, 0.0225, value, 1e-9)
}

func TestComputeCoverageContinuousSkipsDtFactor(t *testing.T) {
	p := Program{
		Name:       "vax",
		UnitCost:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{10}},
		Spending:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{100}},
		Continuous: true,
	}
	_, reached, err := ComputeCoverage(p, nil, 2020, 0.1, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, reached, 1e-9)
}

func TestComputeCoverageAppliesCapacityAndSaturation(t *testing.T) {
	cap := 5.0
	sat := 0.5
	p := Program{
		Name:       "treat",
		UnitCost:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{1}},
		Spending:   databook.TimeSeries{Years: []float64{2020}, Values: []float64{1000}},
		Capacity:   &cap,
		Saturation: &sat,
	}
	coverage, reached, err := ComputeCoverage(p, nil, 2020, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 5.0, reached)
	assert.Equal(t, 0.5, coverage)
}

func TestComputeCoverageZeroUnitCostErrors(t *testing.T) {
	p := Program{Name: "x", UnitCost: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0}}, Spending: databook.TimeSeries{Years: []float64{2020}, Values: []float64{1}}}
	_, _, err := ComputeCoverage(p, nil, 2020, 1, 100)
	assert.Error(t, err)
}

func TestAlternativeCoverageBypassesBudget(t *testing.T) {
	p := Program{Name: "x"}
	instr := &Instructions{AlternativeCoverage: map[string]float64{"x": 0.4}}
	coverage, reached, err := ComputeCoverage(p, instr, 2020, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.4, coverage)
	assert.Equal(t, 0.0, reached)
}

func TestBlendAdditiveSumsMultiplePrograms(t *testing.T) {
	value := Blend(framework.Additive, 0.1, []Contribution{
		{Coverage: 0.2, Baseline: 0.1, Effect: 0.9},
		{Coverage: 0.1, Baseline: 0.1, Effect: 0.5},
	})
	assert.InDelta(t, 0.1+0.2*0.8+0.1*0.4, value, 1e-9)
}

func TestBlendMultiplicativeClosesShortfallProgressively(t *testing.T) {
	value := Blend(framework.Multiplicative, 0, []Contribution{
		{Coverage: 0.5, Baseline: 0, Effect: 1},
		{Coverage: 0.5, Baseline: 0, Effect: 1},
	})
	// First program: 0 + 0.5*(1-0) = 0.5. Second: 0.5 + 0.5*(1-0.5) = 0.75.
	assert.InDelta(t, 0.75, value, 1e-9)
}

func TestBlendRandomWeightsByCoverageShare(t *testing.T) {
	value := Blend(framework.Random, 0, []Contribution{
		{Coverage: 0.5, Baseline: 0, Effect: 1},
		{Coverage: 0.5, Baseline: 0, Effect: 0},
	})
	// Union coverage = 1 - 0.5*0.5 = 0.75; weighted delta = 0.5*1 + 0.5*0 = 0.5.
	assert.InDelta(t, 0.375, value, 1e-9)
}

func TestBlendWithNoContributionsReturnsBaseline(t *testing.T) {
	assert.Equal(t, 0.3, Blend(framework.Additive, 0.3, nil))
}
