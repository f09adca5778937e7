// Package result wraps a run's integrated graph into the read-only view
// spec.md §3/§6 describes: a time vector, a get_variable lookup, and the
// warnings/status a run accumulated.
package result

import (
	"fmt"

	"github.com/atomica-sim/atomica/graph"
	"github.com/google/uuid"
)

// Status is a run's terminal state (spec.md §7).
type Status string

const (
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Warning is a non-fatal anomaly encountered during integration (division by
// zero, a probability-per-step clip, a constraint rescale; spec.md §4.5,
// §9). Warnings never stop a run.
type Warning struct {
	Kind       string
	Population string
	Variable   string
	Timestep   int
	Message    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s.%s[t=%d]: %s", w.Kind, w.Population, w.Variable, w.Timestep, w.Message)
}

// Error is one of the three first-class error kinds of spec.md §7: a
// problem serious enough to abort the run and mark it Failed.
type Error struct {
	Kind       string
	Population string
	Variable   string
	Timestep   int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s.%s[t=%d]: %s", e.Kind, e.Population, e.Variable, e.Timestep, e.Message)
}

// Series is one population's values for a requested variable.
type Series struct {
	Population string
	Values     []float64
}

// Result is the outcome of one integration run (spec.md §3).
type Result struct {
	ID       uuid.UUID
	Name     string
	Graph    *graph.Graph
	Times    []float64
	Status   Status
	Warnings []Warning
	Err      *Error
}

// New builds a Result in the Completed state; a run mutates Status/Err if
// it fails or is cancelled.
func New(name string, g *graph.Graph, times []float64) *Result {
	return &Result{ID: uuid.New(), Name: name, Graph: g, Times: times, Status: Completed}
}

// GetVariable implements spec.md §6 get_variable: the named compartment,
// characteristic, or parameter's time series. population restricts the
// lookup to a single population; empty returns one Series per population
// that declares the variable.
func (r *Result) GetVariable(name, population string) ([]Series, error) {
	if population != "" {
		pop, ok := r.Graph.GetPopulation(population)
		if !ok {
			return nil, fmt.Errorf("result: unknown population %q", population)
		}
		v, ok := lookupSeries(pop, name)
		if !ok {
			return nil, fmt.Errorf("result: unknown variable %q in population %q", name, population)
		}
		return []Series{{Population: population, Values: v}}, nil
	}

	var out []Series
	for _, pop := range r.Graph.Populations {
		if v, ok := lookupSeries(pop, name); ok {
			out = append(out, Series{Population: pop.Name, Values: v})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("result: unknown variable %q", name)
	}
	return out, nil
}

func lookupSeries(pop *graph.Population, name string) ([]float64, bool) {
	if c, ok := pop.GetComp(name); ok {
		return c.Vals, true
	}
	if c, ok := pop.GetCharac(name); ok {
		return c.Vals, true
	}
	if p, ok := pop.GetParam(name); ok {
		return p.Vals, true
	}
	return nil, false
}
