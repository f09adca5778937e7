package graph

import "github.com/atomica-sim/atomica/expr"

// Clone deep-copies the graph so an ensemble member can run independently
// without sharing mutable state (spec.md §5, §8 "idempotence of build" and
// the ensemble orchestrator's per-member isolation requirement). Compiled
// expression closures are reference-shared (they are pure functions of
// their Scope argument and hold no mutable state of their own); everything
// time-indexed or graph-structural is copied.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		popByName:        make(map[string]*Population, len(g.Populations)),
		interactionDecls: make(map[string]InteractionDecl, len(g.interactionDecls)),
		weights:          make(map[string]map[[2]string]float64, len(g.weights)),
		edges:            append([]expr.Edge{}, g.edges...),
	}
	for name, d := range g.interactionDecls {
		out.interactionDecls[name] = d
	}
	for ia, m := range g.weights {
		cp := make(map[[2]string]float64, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.weights[ia] = cp
	}

	// Compartments, characteristics, parameters, and links carry pointer
	// cross-references (links point at their endpoint compartments and
	// driving parameter); clone per population first, then relink.
	compMap := make(map[*Compartment]*Compartment)
	paramMap := make(map[*Parameter]*Parameter)

	for _, pop := range g.Populations {
		npop := &Population{
			Name:         pop.Name,
			Label:        pop.Label,
			PopType:      pop.PopType,
			compByName:   make(map[string]*Compartment, len(pop.compByName)),
			characByName: make(map[string]*Characteristic, len(pop.characByName)),
			parByName:    make(map[string]*Parameter, len(pop.parByName)),
			linkByName:   make(map[string]*Link, len(pop.linkByName)),
		}
		for _, c := range pop.Compartments {
			nc := *c
			nc.Vals = append([]float64{}, c.Vals...)
			nc.Inlinks = nil
			nc.Outlinks = nil
			npop.Compartments = append(npop.Compartments, &nc)
			npop.compByName[nc.Name] = &nc
			compMap[c] = &nc
		}
		for _, c := range pop.Characteristics {
			nc := *c
			nc.Vals = append([]float64{}, c.Vals...)
			npop.Characteristics = append(npop.Characteristics, &nc)
			npop.characByName[nc.Name] = &nc
		}
		for _, p := range pop.Parameters {
			np := *p
			np.Vals = append([]float64{}, p.Vals...)
			np.DrivenLinks = nil
			npop.Parameters = append(npop.Parameters, &np)
			npop.parByName[np.Name] = &np
			paramMap[p] = &np
		}
		out.Populations = append(out.Populations, npop)
		out.popByName[npop.Name] = npop
	}

	for _, pop := range g.Populations {
		npop := out.popByName[pop.Name]
		for name, l := range pop.linkByName {
			nl := &Link{
				Name:       l.Name,
				From:       compMap[l.From],
				To:         compMap[l.To],
				Parameter:  paramMap[l.Parameter],
				IsTransfer: l.IsTransfer,
				Vals:       append([]float64{}, l.Vals...),
			}
			npop.linkByName[name] = nl
			nl.From.Outlinks = append(nl.From.Outlinks, nl)
			nl.To.Inlinks = append(nl.To.Inlinks, nl)
			nl.Parameter.DrivenLinks = append(nl.Parameter.DrivenLinks, nl)
		}
	}

	return out
}
