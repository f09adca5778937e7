package integrate

import (
	"fmt"

	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/units"
)

// updateLinks converts every non-junction-sourced link's driving parameter
// value into a per-step flow at t (spec.md §4.4). Links leaving a junction
// are left for graph.FlushJunctions to set: a junction's outflow is a
// proportional redistribution of arrived mass, not a unit conversion.
func (r *runner) updateLinks(t int, dt float64) error {
	numberShareTotal := make(map[*graph.Parameter]float64)
	for _, pop := range r.g.Populations {
		for _, p := range pop.Parameters {
			if p.Units != units.Number || len(p.DrivenLinks) < 2 {
				continue
			}
			var total float64
			for _, dl := range p.DrivenLinks {
				total += dl.From.Vals[t]
			}
			numberShareTotal[p] = total
		}
	}

	for _, pop := range r.g.Populations {
		for _, c := range pop.Compartments {
			for _, l := range c.Outlinks {
				if l.From.IsJunction {
					continue
				}
				p := l.Parameter

				rate := p.Vals[t]
				if p.Units == units.Probability && rate*dt > 1 {
					r.warn(pop.Name, p.Name, t, fmt.Sprintf("probability-per-step %.6g exceeds 1 at dt=%v; clipped to 1", rate*dt, dt))
					rate = 1 / dt
				}

				// A `number`-unit parameter driving more than one link
				// (e.g. a transfer shared across several compartments)
				// apportions its total per-step flow across those links
				// proportionally to each source compartment's current size
				// (spec.md §4.4); falls back to an equal split only when
				// every driven compartment is empty, to avoid a 0/0 NaN.
				share := 1.0
				if p.Units == units.Number && len(p.DrivenLinks) > 1 {
					total := numberShareTotal[p]
					if total > 0 {
						share = l.From.Vals[t] / total
					} else {
						share = 1.0 / float64(len(p.DrivenLinks))
					}
				}

				v := units.PerStepNumber(p.Units, rate, dt, l.From.Vals[t], share)
				if v < 0 {
					v = 0
				}
				l.Vals[t] = v
			}
		}
	}
	return nil
}
