// Package graph builds the typed integration graph described in spec.md
// §4.3 from a framework and a databook: one population per databook entry,
// compartments/characteristics/parameters/links instantiated per
// population, cross-referenced, and initialized.
package graph

import (
	"fmt"

	"github.com/atomica-sim/atomica/expr"
	"github.com/atomica-sim/atomica/units"
)

// Compartment is a runtime stock of entities within one population
// (spec.md §3).
type Compartment struct {
	Name       string
	PopType    string
	IsSource   bool
	IsSink     bool
	IsJunction bool
	Default    float64
	// DefaultOutflow names the link taken when a junction's outflow
	// proportions all normalize to zero (spec.md §4.5); empty means the
	// first declared outflow.
	DefaultOutflow string

	// Initial is the solved (or defaulted) t=0 size, computed once at
	// build time (spec.md §4.3 step 6).
	Initial float64

	Inlinks  []*Link
	Outlinks []*Link

	Vals []float64
}

// Characteristic is a named aggregate within one population (spec.md §3).
type Characteristic struct {
	Name        string
	PopType     string
	Includes    []string
	Denominator string

	Vals []float64
}

// Parameter is a named scalar time series within one population
// (spec.md §3).
type Parameter struct {
	Name       string
	PopType    string
	Units      units.Kind
	Targetable bool
	Min, Max   *float64
	YFactor    float64

	// Compiled is non-nil for expression-driven parameters; data-driven
	// parameters read Data instead.
	Compiled expr.Compiled
	HasData  bool
	Data     func(year float64) float64

	// References lists every identifier Compiled reads (compartments,
	// characteristics and parameters alike, as expr.References returns), for the
	// per-timestep evaluation ordering built by the dependency package
	// (spec.md §4.2). Empty for data-driven parameters.
	References []string

	// Aggregates marks a parameter whose expression uses a SRC_POP_*/
	// TGT_POP_* aggregator (spec.md §4.6).
	Aggregates bool

	// DrivenLinks lists the links this parameter drives, for `number`-unit
	// share distribution (spec.md §4.4).
	DrivenLinks []*Link

	Vals []float64
}

// Link is a directed edge from a source compartment to a destination
// compartment, driven by exactly one parameter (spec.md §3).
type Link struct {
	Name       string
	From       *Compartment
	To         *Compartment
	Parameter  *Parameter
	IsTransfer bool

	Vals []float64
}

// Population is one instance of a population type carrying numeric state
// (spec.md §3).
type Population struct {
	Name    string
	Label   string
	PopType string

	Compartments    []*Compartment
	Characteristics []*Characteristic
	Parameters      []*Parameter

	compByName   map[string]*Compartment
	characByName map[string]*Characteristic
	parByName    map[string]*Parameter
	linkByName   map[string]*Link
}

// GetComp looks up a compartment by code name.
func (p *Population) GetComp(name string) (*Compartment, bool) { c, ok := p.compByName[name]; return c, ok }

// GetCharac looks up a characteristic by code name.
func (p *Population) GetCharac(name string) (*Characteristic, bool) {
	c, ok := p.characByName[name]
	return c, ok
}

// GetParam looks up a parameter by code name.
func (p *Population) GetParam(name string) (*Parameter, bool) { v, ok := p.parByName[name]; return v, ok }

// GetLink looks up a link by its synthetic name.
func (p *Population) GetLink(name string) (*Link, bool) { l, ok := p.linkByName[name]; return l, ok }

// ValueAt implements the duck-typed variable lookup of spec.md §9: it
// searches compartments, characteristics, and parameters in turn.
func (p *Population) ValueAt(name string, t int) (float64, bool) {
	if c, ok := p.compByName[name]; ok {
		return atIndex(c.Vals, t), true
	}
	if c, ok := p.characByName[name]; ok {
		return atIndex(c.Vals, t), true
	}
	if v, ok := p.parByName[name]; ok {
		return atIndex(v.Vals, t), true
	}
	return 0, false
}

func atIndex(vals []float64, t int) float64 {
	if t < 0 || t >= len(vals) {
		return 0
	}
	return vals[t]
}

// InteractionDecl carries a named interaction's declared population types,
// for endpoint validation (spec.md §4.1, §9).
type InteractionDecl struct {
	Name     string
	FromType string
	ToType   string
}

// Graph is the fully built integration graph: populations plus the
// interaction matrices used by cross-population aggregators.
type Graph struct {
	Populations []*Population
	popByName   map[string]*Population

	interactionDecls map[string]InteractionDecl
	// weights maps interaction -> (from, to) population names -> weight.
	weights map[string]map[[2]string]float64
	edges   []expr.Edge
}

// GetPopulation looks up a population by code name.
func (g *Graph) GetPopulation(name string) (*Population, bool) {
	p, ok := g.popByName[name]
	return p, ok
}

// Weight implements expr.Interactions.
func (g *Graph) Weight(interaction, from, to string) (float64, bool) {
	m, ok := g.weights[interaction]
	if !ok {
		return 0, false
	}
	v, ok := m[[2]string{from, to}]
	return v, ok
}

// Edges implements expr.Interactions.
func (g *Graph) Edges() []expr.Edge { return g.edges }

// Endpoints implements expr.Interactions.
func (g *Graph) Endpoints(interaction string) (string, string, bool) {
	d, ok := g.interactionDecls[interaction]
	if !ok {
		return "", "", false
	}
	return d.FromType, d.ToType, true
}

// Views returns the expr.PopulationView set for every population, usable as
// a Scope's Populations table, at timestep t.
func (g *Graph) Views(t int) map[string]expr.PopulationView {
	out := make(map[string]expr.PopulationView, len(g.Populations))
	for _, p := range g.Populations {
		out[p.Name] = &popView{pop: p, t: t}
	}
	return out
}

type popView struct {
	pop *Population
	t   int
}

func (v *popView) Name() string { return v.pop.Name }
func (v *popView) Type() string { return v.pop.PopType }
func (v *popView) Value(name string) (float64, bool) {
	return v.pop.ValueAt(name, v.t)
}

// Reset (re)allocates every time-indexed slice to steps+1 points, sets
// compartment t=0 values from the solved Initial, and performs the t=0
// junction flush (spec.md §4.3 step 7). Run calls this once before
// integrating.
func (g *Graph) Reset(steps int) error {
	if steps < 1 {
		return fmt.Errorf("graph: steps must be >= 1, got %d", steps)
	}
	n := steps + 1
	for _, pop := range g.Populations {
		for _, c := range pop.Compartments {
			c.Vals = make([]float64, n)
			if !c.IsJunction {
				c.Vals[0] = c.Initial
			}
		}
		for _, c := range pop.Characteristics {
			c.Vals = make([]float64, n)
		}
		for _, p := range pop.Parameters {
			p.Vals = make([]float64, n)
		}
		for _, l := range linksOf(pop) {
			l.Vals = make([]float64, n)
		}
	}
	return FlushJunctions(g, 0, true)
}

func linksOf(pop *Population) []*Link {
	seen := make(map[*Link]bool)
	var out []*Link
	for _, c := range pop.Compartments {
		for _, l := range c.Outlinks {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
		for _, l := range c.Inlinks {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}
