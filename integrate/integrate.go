// Package integrate runs the explicit forward-Euler timestep loop of
// spec.md §4.5 over a built graph: per timestep it updates compartments,
// then parameters, then links, then flushes junctions, enforcing the
// non-negativity and outflow-bound constraints of spec.md §8 along the way.
package integrate

import (
	"errors"
	"fmt"

	"github.com/atomica-sim/atomica/dependency"
	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/graph"
	"github.com/atomica-sim/atomica/program"
	"github.com/atomica-sim/atomica/result"
	"github.com/atomica-sim/atomica/units"
	"github.com/rs/zerolog"
)

// AbortFlag is checked between timesteps for cooperative cancellation
// (spec.md §5: an ensemble run must be able to stop a worker early).
type AbortFlag interface {
	Load() bool
}

// Config holds everything a Run needs beyond the graph itself.
type Config struct {
	Grid units.TimeGrid

	// ProgSet and Instructions are both optional: a run with no program
	// overlay simply leaves ProgSet nil.
	ProgSet      *program.ProgramSet
	Instructions *program.Instructions

	Logger *zerolog.Logger
	Abort  AbortFlag
}

var errCancelled = errors.New("integrate: run cancelled")

// Run integrates g over cfg.Grid, returning a Result whose Status reflects
// how the run ended. A non-nil error is also returned for a Failed or
// Cancelled run, so callers that only care about success/failure can check
// the error directly; callers that want the partial Result (e.g. an
// ensemble collecting every outcome) use the returned Result regardless.
func Run(g *graph.Graph, fw *framework.Framework, cfg Config) (*result.Result, error) {
	if cfg.Grid.Steps < 1 {
		return nil, fmt.Errorf("integrate: time grid must have at least one step")
	}
	logger := cfg.Logger
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	if err := g.Reset(cfg.Grid.Steps); err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}

	times := cfg.Grid.Times()
	res := result.New("", g, times)

	paramOrder, err := buildParameterOrder(g)
	if err != nil {
		res.Status = result.Failed
		res.Err = &result.Error{Kind: "config", Message: err.Error()}
		return res, err
	}

	r := &runner{
		g:          g,
		fw:         fw,
		cfg:        cfg,
		logger:     logger,
		times:      times,
		paramOrder: paramOrder,
		res:        res,
	}

	if err := r.execute(); err != nil {
		if errors.Is(err, errCancelled) {
			res.Status = result.Cancelled
			logger.Warn().Msg("integration cancelled")
			return res, err
		}
		res.Status = result.Failed
		res.Err = toResultError(err)
		logger.Error().Err(err).Msg("integration failed")
		return res, err
	}

	res.Status = result.Completed
	return res, nil
}

type runner struct {
	g          *graph.Graph
	fw         *framework.Framework
	cfg        Config
	logger     *zerolog.Logger
	times      []float64
	paramOrder map[string][]string
	res        *result.Result

	covCache map[string]float64
}

// execute runs the per-step loop of spec.md §4.5: a t=0 warm-up that
// evaluates characteristics/parameters/links without yet updating
// compartments (junctions were already flushed from Initial by g.Reset),
// then T steps of compartment update followed by the next timestep's
// characteristics/parameters/links/junction flush.
func (r *runner) execute() error {
	dt := r.cfg.Grid.Dt
	steps := r.cfg.Grid.Steps

	if err := r.updateCharacteristics(0); err != nil {
		return err
	}
	if err := r.updateParameters(0); err != nil {
		return err
	}
	if err := r.updateLinks(0, dt); err != nil {
		return err
	}
	// The t=0 flush g.Reset already performed only seeded arrived mass from
	// Compartment.Initial (spec.md §4.3 step 7); now that update_links has
	// populated real t=0 inflow link values, flush again using those so a
	// junction cascade that starts moving mass on the very first step still
	// settles before update_compartments(0) reads its outflow links.
	if err := graph.FlushJunctions(r.g, 0, false); err != nil {
		return err
	}

	for t := 0; t < steps; t++ {
		if r.cfg.Abort != nil && r.cfg.Abort.Load() {
			return errCancelled
		}

		if err := r.updateCompartments(t, dt); err != nil {
			return err
		}

		next := t + 1
		if err := r.updateCharacteristics(next); err != nil {
			return err
		}
		if err := r.updateParameters(next); err != nil {
			return err
		}
		if err := r.updateLinks(next, dt); err != nil {
			return err
		}
		if err := graph.FlushJunctions(r.g, next, false); err != nil {
			return err
		}
	}
	return nil
}

// updateCompartments advances every non-junction compartment from t to
// t+1: sources and sinks hold their declared constant size; every other
// compartment adds inflows and subtracts outflows, rescaling outflows that
// would drive it negative (spec.md §8 invariants: non-negativity, outflow
// bound).
func (r *runner) updateCompartments(t int, dt float64) error {
	next := t + 1
	for _, pop := range r.g.Populations {
		for _, c := range pop.Compartments {
			if c.IsJunction {
				continue
			}
			if c.IsSource || c.IsSink {
				c.Vals[next] = c.Vals[t]
				continue
			}

			size := c.Vals[t]
			var inflow, outflow float64
			for _, l := range c.Inlinks {
				inflow += l.Vals[t]
			}
			for _, l := range c.Outlinks {
				outflow += l.Vals[t]
			}

			if outflow > size {
				r.rescaleOutflows(pop, c, t, size, outflow)
				outflow = size
			}

			v := size + inflow - outflow
			if v < 0 {
				r.warn(pop.Name, c.Name, next, fmt.Sprintf("compartment update would go negative (%.6g); clamped to 0", v))
				v = 0
			}
			c.Vals[next] = v
		}
	}
	return nil
}

// rescaleOutflows scales every one of c's outflow link values at t down
// proportionally so their sum no longer exceeds c's current size
// (spec.md §8 "outflow bound").
func (r *runner) rescaleOutflows(pop *graph.Population, c *graph.Compartment, t int, size, outflow float64) {
	if outflow <= 0 {
		return
	}
	factor := size / outflow
	for _, l := range c.Outlinks {
		l.Vals[t] *= factor
	}
	r.warn(pop.Name, c.Name, t, fmt.Sprintf("proposed outflow %.6g exceeds compartment size %.6g; rescaled by %.6g", outflow, size, factor))
}

// buildParameterOrder computes, once per population type represented in g,
// the evaluation order every parameter must be updated in at each
// timestep (spec.md §4.2): every parameter appears after everything its
// expression references, with ties resolved as dependency.Order describes.
// A type's order covers the parameters of every population of that type,
// including each population's own synthetic transfer parameters. Every
// parameter is evaluated every step rather than only
// the "dependent" subset Closure would select: spec.md §9 frames that
// pruning as purely a performance optimization, so always recomputing is
// behaviorally equivalent and avoids stale values for a parameter a user
// later asks a Result for.
func buildParameterOrder(g *graph.Graph) (map[string][]string, error) {
	order := make(map[string][]string)
	nodes := make(map[string][]dependency.Node)
	all := make(map[string]map[string]bool)
	for _, pop := range g.Populations {
		if all[pop.PopType] == nil {
			all[pop.PopType] = make(map[string]bool, len(pop.Parameters))
		}
		for _, p := range pop.Parameters {
			if all[pop.PopType][p.Name] {
				continue
			}
			nodes[pop.PopType] = append(nodes[pop.PopType], dependency.Node{
				Name:       p.Name,
				References: p.References,
				DrivesLink: len(p.DrivenLinks) > 0,
				Aggregates: p.Aggregates,
			})
			all[pop.PopType][p.Name] = true
		}
	}
	for popType, typeNodes := range nodes {
		names, err := dependency.Order(typeNodes, all[popType])
		if err != nil {
			return nil, fmt.Errorf("integrate: population type %q: %w", popType, err)
		}
		order[popType] = names
	}
	return order, nil
}
