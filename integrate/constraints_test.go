package integrate

import (
	"testing"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompetingOutflowsExceedingSizeAreRescaled matches spec.md §8's
// outflow-bound invariant: two transitions leaving the same compartment
// whose combined per-step flow would exceed its size are rescaled down
// proportionally rather than driving it negative.
func TestCompetingOutflowsExceedingSizeAreRescaled(t *testing.T) {
	fw := &framework.Framework{
		PopulationTypes: []framework.PopulationType{{Name: "human"}},
		Compartments: []framework.Compartment{
			{Name: "inf", PopType: "human"},
			{Name: "rec", PopType: "human"},
			{Name: "dead", PopType: "human"},
		},
		Parameters: []framework.Parameter{
			{Name: "recov_rate", PopType: "human", Units: units.Probability},
			{Name: "death_rate", PopType: "human", Units: units.Probability},
		},
		Transitions: []framework.Transition{
			{PopType: "human", From: "inf", To: "rec", Parameters: []string{"recov_rate"}},
			{PopType: "human", From: "inf", To: "dead", Parameters: []string{"death_rate"}},
		},
	}
	db := &databook.Databook{
		Populations: []databook.PopulationDef{{Name: "p", PopType: "human"}},
		Pages: []databook.Page{{
			Population: "p",
			Data: []databook.VarData{
				{Name: "inf", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{100}}},
				{Name: "rec", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0}}},
				{Name: "dead", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0}}},
				{Name: "recov_rate", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0.7}}},
				{Name: "death_rate", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0.7}}},
			},
		}},
	}
	g, errs := graph.Build(fw, db)
	require.Empty(t, errs)

	res, err := Run(g, fw, Config{Grid: units.TimeGrid{Start: 2020, Dt: 1, Steps: 1}})
	require.NoError(t, err)

	pop, _ := g.GetPopulation("p")
	inf, _ := pop.GetComp("inf")
	rec, _ := pop.GetComp("rec")
	dead, _ := pop.GetComp("dead")

	assert.InDelta(t, 0, inf.Vals[1], 1e-9)
	assert.InDelta(t, 100, rec.Vals[1]+dead.Vals[1], 1e-9)
	assert.InDelta(t, 50, rec.Vals[1], 1e-9)
	assert.InDelta(t, 50, dead.Vals[1], 1e-9)
	assert.NotEmpty(t, res.Warnings)
}

// TestDependencyCycleBetweenParametersFailsTheRun matches spec.md §4.2: a
// cycle outside of link-driven lag is a configuration error, surfaced as a
// Failed Result rather than an infinite loop or a silent wrong answer.
func TestDependencyCycleBetweenParametersFailsTheRun(t *testing.T) {
	fw := &framework.Framework{
		PopulationTypes: []framework.PopulationType{{Name: "human"}},
		Compartments:    []framework.Compartment{{Name: "a", PopType: "human"}},
		Parameters: []framework.Parameter{
			{Name: "p", PopType: "human", Units: units.Number, Expression: "q + 1"},
			{Name: "q", PopType: "human", Units: units.Number, Expression: "p + 1"},
		},
	}
	db := &databook.Databook{
		Populations: []databook.PopulationDef{{Name: "x", PopType: "human"}},
		Pages: []databook.Page{{
			Population: "x",
			Data:       []databook.VarData{{Name: "a", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{1}}}},
		}},
	}
	g, errs := graph.Build(fw, db)
	require.Empty(t, errs)

	res, err := Run(g, fw, Config{Grid: units.TimeGrid{Start: 2020, Dt: 1, Steps: 1}})
	require.Error(t, err)
	assert.Equal(t, "config", res.Err.Kind)
}
