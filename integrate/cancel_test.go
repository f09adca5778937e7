package integrate

import (
	"sync/atomic"
	"testing"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/result"
	"github.com/atomica-sim/atomica/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAbortFlagCancelsRunBeforeCompletion matches spec.md §5's cooperative
// cancellation requirement: a run observes the abort flag between
// timesteps and stops promptly rather than running to completion.
func TestAbortFlagCancelsRunBeforeCompletion(t *testing.T) {
	fw := &framework.Framework{
		PopulationTypes: []framework.PopulationType{{Name: "human"}},
		Compartments:    []framework.Compartment{{Name: "alive", PopType: "human"}, {Name: "dead", PopType: "human"}},
		Parameters:      []framework.Parameter{{Name: "death_rate", PopType: "human", Units: units.Probability}},
		Transitions:     []framework.Transition{{PopType: "human", From: "alive", To: "dead", Parameters: []string{"death_rate"}}},
	}
	db := &databook.Databook{
		Populations: []databook.PopulationDef{{Name: "cohort", PopType: "human"}},
		Pages: []databook.Page{{
			Population: "cohort",
			Data: []databook.VarData{
				{Name: "alive", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{1000}}},
				{Name: "dead", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0}}},
				{Name: "death_rate", Series: databook.TimeSeries{Years: []float64{2020}, Values: []float64{0.1}}},
			},
		}},
	}
	g, errs := graph.Build(fw, db)
	require.Empty(t, errs)

	var abort atomic.Bool
	abort.Store(true)

	res, err := Run(g, fw, Config{Grid: units.TimeGrid{Start: 2020, Dt: 1, Steps: 10}, Abort: &abort})
	require.Error(t, err)
	assert.Equal(t, result.Cancelled, res.Status)

	pop, _ := g.GetPopulation("cohort")
	alive, _ := pop.GetComp("alive")
	assert.Equal(t, 1000.0, alive.Vals[0])
	assert.Zero(t, alive.Vals[1])
}
