package integrate

import (
	"fmt"

	"github.com/atomica-sim/atomica/expr"
	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/program"
)

// updateParameters recomputes every parameter's value at t, in the order
// buildParameterOrder derived for its population type, then blends in any
// active program overlay and clips to [Min,Max] (spec.md §4.4, §4.7).
func (r *runner) updateParameters(t int) error {
	year := r.times[t]
	dt := r.cfg.Grid.Dt
	active := r.cfg.Instructions.Active(year)
	r.covCache = make(map[string]float64)
	views := r.g.Views(t)

	for _, pop := range r.g.Populations {
		for _, name := range r.paramOrder[pop.PopType] {
			p, ok := pop.GetParam(name)
			if !ok {
				continue
			}
			v, err := r.evalParameter(pop, p, t, year, views)
			if err != nil {
				return err
			}

			if active && r.cfg.ProgSet != nil {
				v = r.applyProgramOverlay(pop, p, v, t, year, dt)
			}

			if p.Min != nil && v < *p.Min {
				v = *p.Min
			}
			if p.Max != nil && v > *p.Max {
				v = *p.Max
			}
			p.Vals[t] = v
		}
	}
	return nil
}

func (r *runner) evalParameter(pop *graph.Population, p *graph.Parameter, t int, year float64, views map[string]expr.PopulationView) (float64, error) {
	if p.HasData {
		return p.Data(year) * p.YFactor, nil
	}
	if p.Compiled == nil {
		return 0, nil
	}
	scope := expr.Scope{
		Pop:          views[pop.Name],
		Populations:  views,
		Interactions: r.g,
		Warn: func(msg string) {
			r.warn(pop.Name, p.Name, t, msg)
		},
	}
	return p.Compiled(scope)
}

// applyProgramOverlay blends every active program's effect on (p, pop) into
// baseline, using framework.Modalities[p.Name] to choose how (spec.md
// §4.7). A program with no Effect targeting this (parameter, population)
// pair contributes nothing.
func (r *runner) applyProgramOverlay(pop *graph.Population, p *graph.Parameter, baseline float64, t int, year, dt float64) float64 {
	var contributions []program.Contribution
	for _, prog := range r.cfg.ProgSet.Programs {
		for _, e := range prog.Effects {
			if e.Parameter != p.Name || e.Population != pop.Name {
				continue
			}
			coverage, err := r.coverageFor(prog, pop, t, year, dt)
			if err != nil {
				r.warn(pop.Name, p.Name, t, fmt.Sprintf("program %q: %v", prog.Name, err))
				continue
			}
			contributions = append(contributions, program.Contribution{
				Program:  prog.Name,
				Coverage: coverage,
				Baseline: e.Baseline,
				Effect:   e.Value,
			})
		}
	}
	if len(contributions) == 0 {
		return baseline
	}
	modality := r.fw.Modalities[p.Name]
	return program.Blend(modality, baseline, contributions)
}

// coverageFor computes (and caches for the remainder of this timestep) one
// program's coverage: a single denominator summing every target
// compartment's size across every one of the program's target populations
// (spec.md §4.7 step 1), reused as-is wherever the program's Effects list
// targets a parameter, regardless of which targeted population that
// Effect is in.
func (r *runner) coverageFor(prog program.Program, pop *graph.Population, t int, year, dt float64) (float64, error) {
	if v, ok := r.covCache[prog.Name]; ok {
		return v, nil
	}

	var denom float64
	for _, popName := range prog.TargetPopulations {
		tp, ok := r.g.GetPopulation(popName)
		if !ok {
			continue
		}
		for _, name := range prog.TargetCompartments {
			if c, ok := tp.GetComp(name); ok {
				denom += c.Vals[t]
			}
		}
	}

	coverage, _, err := program.ComputeCoverage(prog, r.cfg.Instructions, year, dt, denom)
	if err != nil {
		return 0, err
	}
	r.covCache[prog.Name] = coverage
	return coverage, nil
}
