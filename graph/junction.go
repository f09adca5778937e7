package graph

import "fmt"

// JunctionCycleError reports a set of junctions that could not be flushed
// because each was waiting on another junction in the same set (spec.md
// §4.5: "Detect cycles with a seen-set... abort with a fatal error
// identifying the cycle").
type JunctionCycleError struct {
	Population string
	Junctions  []string
}

func (e *JunctionCycleError) Error() string {
	return fmt.Sprintf("graph: junction cycle detected in population %q among %v", e.Population, e.Junctions)
}

// FlushJunctions redistributes any mass that has arrived at a junction
// compartment downstream within the same timestep, for every population in
// the graph (spec.md §4.5). init selects the t=0 initialization variant,
// which seeds arrived mass from Compartment.Initial rather than inflow link
// values (spec.md §4.3 step 7, §4.5 "Subtlety at t=0 initialization").
func FlushJunctions(g *Graph, t int, init bool) error {
	for _, pop := range g.Populations {
		if err := flushPopulationJunctions(pop, t, init); err != nil {
			return err
		}
	}
	return nil
}

// flushPopulationJunctions processes a population's junctions in
// dependency order: a junction is flushed once every junction upstream of
// it (directly feeding it) has already been flushed, so cascades (spec.md
// §8 scenario 5: X -> J1 -> J2 -> Y) settle correctly regardless of fan-in
// shape. A junction with no resolvable order (a genuine cycle among
// junctions) aborts with a *JunctionCycleError.
func flushPopulationJunctions(pop *Population, t int, init bool) error {
	var junctions []*Compartment
	for _, c := range pop.Compartments {
		if c.IsJunction {
			junctions = append(junctions, c)
		}
	}
	if len(junctions) == 0 {
		return nil
	}

	external := make(map[string]float64, len(junctions))
	for _, c := range junctions {
		if init {
			external[c.Name] = c.Initial
			continue
		}
		var sum float64
		for _, l := range c.Inlinks {
			if l.From.IsJunction {
				continue
			}
			sum += l.Vals[t]
		}
		external[c.Name] = sum
	}

	flushed := make(map[string]bool, len(junctions))
	remaining := append([]*Compartment{}, junctions...)

	for len(remaining) > 0 {
		progressed := false
		var next []*Compartment
		for _, c := range remaining {
			ready := true
			for _, l := range c.Inlinks {
				if l.From.IsJunction && !flushed[l.From.Name] {
					ready = false
					break
				}
			}
			if !ready {
				next = append(next, c)
				continue
			}

			mass := external[c.Name]
			if !init {
				for _, l := range c.Inlinks {
					if l.From.IsJunction {
						mass += l.Vals[t]
					}
				}
			}
			if err := distribute(pop, c, t, mass); err != nil {
				return err
			}
			flushed[c.Name] = true
			progressed = true
		}
		if !progressed {
			var names []string
			for _, c := range next {
				names = append(names, c.Name)
			}
			return &JunctionCycleError{Population: pop.Name, Junctions: names}
		}
		remaining = next
	}

	for _, c := range junctions {
		c.Vals[t] = 0
	}
	return nil
}

// distribute sends a junction's arrived mass across its outflows,
// proportionally to their driving parameter values (normalized to sum to
// 1), or to the pre-declared default outflow if all normalize to zero
// (spec.md §4.5).
func distribute(pop *Population, c *Compartment, t int, mass float64) error {
	if mass == 0 {
		return nil
	}
	if len(c.Outlinks) == 0 {
		return fmt.Errorf("graph: junction %q in population %q has no outflows to flush %.6g units of arrived mass", c.Name, pop.Name, mass)
	}

	weights := make([]float64, len(c.Outlinks))
	var total float64
	for i, l := range c.Outlinks {
		weights[i] = l.Parameter.Vals[t]
		total += weights[i]
	}

	if total == 0 {
		defaultIdx := 0
		if c.DefaultOutflow != "" {
			found := false
			for i, l := range c.Outlinks {
				if l.Name == c.DefaultOutflow || l.To.Name == c.DefaultOutflow {
					defaultIdx = i
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("graph: junction %q in population %q: default outflow %q not found among its outlinks", c.Name, pop.Name, c.DefaultOutflow)
			}
		}
		c.Outlinks[defaultIdx].Vals[t] += mass
		return nil
	}

	for i, l := range c.Outlinks {
		l.Vals[t] += mass * (weights[i] / total)
	}
	return nil
}
