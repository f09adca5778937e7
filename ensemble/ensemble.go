// Package ensemble dispatches an embarrassingly-parallel set of integration
// runs over a bounded worker pool (spec.md §5): each member is a
// (parset, progset, instructions) triple that runs against its own cloned
// graph, and the collected Results form an Ensemble (SPEC_FULL.md §2
// item 8).
package ensemble

import (
	"fmt"

	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/integrate"
	"github.com/atomica-sim/atomica/program"
	"github.com/atomica-sim/atomica/result"
	"github.com/atomica-sim/atomica/units"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Member is one parameter-set realization to run (spec.md §5's "parset").
// Overrides replaces a parameter's value with a constant for the run,
// keyed by population name then parameter code name — the shape an
// uncertainty sampler produces when it draws one value per sampled
// parameter per population. A Member with a nil Overrides map runs the
// base graph's own parameter values unchanged.
type Member struct {
	Name         string
	Overrides    map[string]map[string]float64
	ProgSet      *program.ProgramSet
	Instructions *program.Instructions
}

// Ensemble is the collection of Results produced by running every Member
// against clones of the same base graph (SPEC_FULL.md §3 "Ensemble").
type Ensemble struct {
	Names   []string
	Results []*result.Result
}

// Options configures the worker pool and shared cancellation for a Run.
type Options struct {
	// Workers bounds concurrent members in flight. Zero means unbounded
	// (every member runs as soon as it is dispatched).
	Workers int
	// Abort is shared across every member: setting it cancels every
	// in-flight and not-yet-started member cooperatively (spec.md §5),
	// each member's partial Result is still collected with status
	// Cancelled rather than dropped.
	Abort  integrate.AbortFlag
	Logger *zerolog.Logger
}

// Run clones base once per member, applies that member's parameter
// overrides, and integrates it over grid using the member's own program
// overlay instructions. Results are returned in the same order as members
// regardless of completion order. A non-nil error (and a nil Ensemble) is
// returned when any member's overrides name an unknown population or
// parameter, or when integrate.Run returns no Result for a member; the
// other members still run to completion. A member's own integration
// failure is recorded on its Result, not returned here.
func Run(base *graph.Graph, fw *framework.Framework, grid units.TimeGrid, members []Member, opts Options) (*Ensemble, error) {
	ens := &Ensemble{
		Names:   make([]string, len(members)),
		Results: make([]*result.Result, len(members)),
	}

	g := &errgroup.Group{}
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, m := range members {
		i, m := i, m
		ens.Names[i] = m.Name
		g.Go(func() error {
			mg := base.Clone()
			if err := applyOverrides(mg, m.Overrides); err != nil {
				return fmt.Errorf("ensemble: member %q: %w", m.Name, err)
			}
			res, err := integrate.Run(mg, fw, integrate.Config{
				Grid:         grid,
				ProgSet:      m.ProgSet,
				Instructions: m.Instructions,
				Logger:       opts.Logger,
				Abort:        opts.Abort,
			})
			if res == nil {
				return fmt.Errorf("ensemble: member %q: %w", m.Name, err)
			}
			res.Name = m.Name
			ens.Results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ens, nil
}

// applyOverrides replaces each named parameter's evaluation with a constant
// function, bypassing both its data series and its compiled expression for
// the remainder of this run (spec.md §4.2: a parameter is either
// data-driven or expression-driven; an override makes it a constant of
// either kind).
func applyOverrides(g *graph.Graph, overrides map[string]map[string]float64) error {
	for popName, byParam := range overrides {
		pop, ok := g.GetPopulation(popName)
		if !ok {
			return fmt.Errorf("unknown population %q in override set", popName)
		}
		for paramName, v := range byParam {
			p, ok := pop.GetParam(paramName)
			if !ok {
				return fmt.Errorf("unknown parameter %q in population %q", paramName, popName)
			}
			v := v
			p.HasData = true
			p.YFactor = 1
			p.Data = func(float64) float64 { return v }
			p.Compiled = nil
		}
	}
	return nil
}
