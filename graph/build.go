package graph

import (
	"fmt"

	"github.com/atomica-sim/atomica/ast"
	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/expr"
	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/parser"
	"github.com/atomica-sim/atomica/units"
)

// Build constructs the integration graph from a validated framework and
// databook (spec.md §4.3). It accumulates every problem it finds rather
// than stopping at the first, mirroring framework.Validate and the
// teacher's Errors() accumulation; the run never starts if len(errs) > 0.
func Build(fw *framework.Framework, db *databook.Databook) (*Graph, []error) {
	var errs []error

	if fwErrs := fw.Validate(); len(fwErrs) > 0 {
		errs = append(errs, fwErrs...)
	}

	popTypes := make(map[string]bool)
	for _, pt := range fw.PopulationTypes {
		popTypes[pt.Name] = true
	}
	if len(fw.PopulationTypes) == 0 {
		popTypes["default"] = true
	}
	if dbErrs := db.Validate(popTypes); len(dbErrs) > 0 {
		errs = append(errs, dbErrs...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	db.Normalize()

	g := &Graph{
		popByName:        make(map[string]*Population),
		interactionDecls: make(map[string]InteractionDecl),
	}

	// Step 1: one population per databook entry.
	for _, pd := range db.Populations {
		pop := &Population{
			Name:         pd.Name,
			Label:        pd.Label,
			PopType:      pd.PopType,
			compByName:   make(map[string]*Compartment),
			characByName: make(map[string]*Characteristic),
			parByName:    make(map[string]*Parameter),
			linkByName:   make(map[string]*Link),
		}
		g.Populations = append(g.Populations, pop)
		g.popByName[pop.Name] = pop
	}

	// Step 2: instantiate compartments/characteristics/parameters whose
	// population-type matches each population.
	for _, pop := range g.Populations {
		for _, cd := range fw.Compartments {
			if cd.PopType != pop.PopType {
				continue
			}
			c := &Compartment{
				Name:           cd.Name,
				PopType:        cd.PopType,
				IsSource:       cd.IsSource,
				IsSink:         cd.IsSink,
				IsJunction:     cd.IsJunction,
				Default:        cd.Default,
				DefaultOutflow: cd.DefaultOutflow,
			}
			pop.Compartments = append(pop.Compartments, c)
			pop.compByName[c.Name] = c
		}
		for _, cd := range fw.Characteristics {
			if cd.PopType != pop.PopType {
				continue
			}
			c := &Characteristic{Name: cd.Name, PopType: cd.PopType, Includes: cd.Includes, Denominator: cd.Denominator}
			pop.Characteristics = append(pop.Characteristics, c)
			pop.characByName[c.Name] = c
		}
		for _, pd := range fw.Parameters {
			if pd.PopType != pop.PopType {
				continue
			}
			p := &Parameter{
				Name:       pd.Name,
				PopType:    pd.PopType,
				Units:      pd.Units,
				Targetable: pd.Targetable,
				Min:        pd.Min,
				Max:        pd.Max,
				YFactor:    1,
			}
			pop.Parameters = append(pop.Parameters, p)
			pop.parByName[p.Name] = p
		}
	}

	// Bind data pages and compile expressions now that every population's
	// variable set is fully instantiated (an expression may reference a
	// sibling variable declared later in the framework).
	for _, pop := range g.Populations {
		for _, pd := range fw.Parameters {
			if pd.PopType != pop.PopType {
				continue
			}
			p, _ := pop.GetParam(pd.Name)
			if vd, ok := db.VarDataFor(pop.Name, pd.Name); ok {
				series := vd.Series
				yfactor := vd.YFactor
				if yfactor == 0 {
					yfactor = 1
				}
				p.YFactor = yfactor
				p.HasData = true
				p.Data = func(year float64) float64 { return series.At(year) }
			}
			if pd.Expression != "" {
				node, perrs := parser.ParseExpression(pd.Expression)
				if len(perrs) > 0 {
					errs = append(errs, fmt.Errorf("graph: parameter %q in population %q: %s", pd.Name, pop.Name, perrs[0]))
					continue
				}
				compiled, err := expr.Compile(node)
				if err != nil {
					errs = append(errs, fmt.Errorf("graph: parameter %q in population %q: %w", pd.Name, pop.Name, err))
					continue
				}
				p.Compiled = compiled
				p.Aggregates = usesAggregator(node)
				p.References = expr.References(node)
			}
		}
	}

	// An unknown variable reference is a configuration error (spec.md §7),
	// caught here rather than left to surface as a runtime evaluation
	// failure mid-integration. Expressions that aggregate across
	// populations (SRC_POP_SUM/TGT_POP_SUM/SRC_POP_AVG/TGT_POP_AVG) are
	// exempt: their var/weight arguments resolve against whichever other
	// population the interaction connects to at evaluation time, which may
	// be of a different population type with its own variable set, so this
	// population's own variable set is not the right thing to check them
	// against.
	for _, pop := range g.Populations {
		for _, pd := range fw.Parameters {
			if pd.PopType != pop.PopType || pd.Expression == "" {
				continue
			}
			p, _ := pop.GetParam(pd.Name)
			if p == nil || p.Compiled == nil || p.Aggregates {
				continue
			}
			for _, name := range p.References {
				if _, ok := pop.GetComp(name); ok {
					continue
				}
				if _, ok := pop.GetCharac(name); ok {
					continue
				}
				if _, ok := pop.GetParam(name); ok {
					continue
				}
				errs = append(errs, fmt.Errorf("graph: parameter %q in population %q: unknown variable reference %q", pd.Name, pop.Name, name))
			}
		}
	}

	// Step 3: one link per transition, per population.
	for _, pop := range g.Populations {
		for _, td := range fw.Transitions {
			if td.PopType != pop.PopType {
				continue
			}
			from, fromOK := pop.GetComp(td.From)
			to, toOK := pop.GetComp(td.To)
			if !fromOK || !toOK {
				continue // already reported by framework.Validate
			}
			for _, pname := range td.Parameters {
				p, ok := pop.GetParam(pname)
				if !ok {
					continue
				}
				link := &Link{
					Name:      fmt.Sprintf("%s->%s[%s]", from.Name, to.Name, p.Name),
					From:      from,
					To:        to,
					Parameter: p,
				}
				from.Outlinks = append(from.Outlinks, link)
				to.Inlinks = append(to.Inlinks, link)
				p.DrivenLinks = append(p.DrivenLinks, link)
				pop.linkByName[link.Name] = link
			}
		}
	}

	// Step 4: one link per transfer, per shared compartment.
	for _, tr := range db.Transfers {
		fromPop, fromOK := g.GetPopulation(tr.FromPop)
		toPop, toOK := g.GetPopulation(tr.ToPop)
		if !fromOK || !toOK {
			continue // already reported by databook.Validate
		}
		kind, err := parseTransferUnits(tr.Units)
		if err != nil {
			errs = append(errs, fmt.Errorf("graph: transfer %q: %w", tr.Name, err))
			continue
		}
		// One synthetic parameter per transfer per source population,
		// driving every shared compartment's outflow link: a `number`-unit
		// transfer's declared series is the *total* moved per year, which
		// integrate.updateLinks then apportions across DrivenLinks in
		// proportion to each compartment's size (spec.md §8 scenario 3).
		// A separate synthetic parameter per compartment would instead move
		// the full series value out of every compartment independently.
		series := tr.Series
		synth := &Parameter{
			Name:    fmt.Sprintf("__transfer_%s_%s", tr.Name, fromPop.Name),
			PopType: fromPop.PopType,
			Units:   kind,
			YFactor: 1,
			HasData: true,
			Data:    func(year float64) float64 { return series.At(year) },
		}
		fromPop.Parameters = append(fromPop.Parameters, synth)
		fromPop.parByName[synth.Name] = synth
		for _, c := range fromPop.Compartments {
			toC, ok := toPop.GetComp(c.Name)
			if !ok {
				continue // compartment not shared by both populations
			}
			link := &Link{
				Name:       fmt.Sprintf("transfer:%s:%s->%s:%s", tr.Name, fromPop.Name, toPop.Name, c.Name),
				From:       c,
				To:         toC,
				Parameter:  synth,
				IsTransfer: true,
			}
			c.Outlinks = append(c.Outlinks, link)
			toC.Inlinks = append(toC.Inlinks, link)
			synth.DrivenLinks = append(synth.DrivenLinks, link)
			fromPop.linkByName[link.Name] = link
		}
	}

	// Step 5's remaining piece: interaction declarations and weights, used
	// by the expr.Interactions implementation (spec.md §4.1, §4.6).
	for _, ia := range fw.Interactions {
		g.interactionDecls[ia.Name] = InteractionDecl{Name: ia.Name, FromType: ia.FromType, ToType: ia.ToType}
	}
	g.weights = make(map[string]map[[2]string]float64)
	for _, w := range db.Interactions {
		if g.weights[w.Interaction] == nil {
			g.weights[w.Interaction] = make(map[[2]string]float64)
		}
		g.weights[w.Interaction][[2]string{w.FromPop, w.ToPop}] = w.Weight
		if w.Weight != 0 {
			g.edges = append(g.edges, expr.Edge{Interaction: w.Interaction, From: w.FromPop, To: w.ToPop})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// Step 6: solve initial compartment sizes.
	if initErrs := solveInitialSizes(g, fw, db); len(initErrs) > 0 {
		return nil, initErrs
	}

	return g, nil
}

// parseTransferUnits maps a transfer's declared units ("number" or
// "probability", databook.Transfer.Units) to the shared units.Kind enum.
func parseTransferUnits(s string) (units.Kind, error) {
	switch s {
	case "number":
		return units.Number, nil
	case "probability":
		return units.Probability, nil
	default:
		return units.Unknown, fmt.Errorf("unsupported transfer units %q", s)
	}
}

func usesAggregator(node ast.Expression) bool { return expr.UsesAggregator(node) }
