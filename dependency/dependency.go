// Package dependency computes, for a set of named variables each with a
// reference set, which variables are "dependent" (must be recomputed every
// timestep) and in what order to evaluate them within one timestep
// (spec.md §4.2).
package dependency

import "fmt"

// Node is one parameter or characteristic entered into the dependency
// graph: its code name, the variables its expression/includes/denominator
// reference, whether it drives at least one link, whether it aggregates
// across populations (and so must be evaluated after its operands have
// settled in every source population, spec.md §4.6), and whether it is
// targetable by an active program.
type Node struct {
	Name          string
	References    []string
	DrivesLink    bool
	Aggregates    bool
	ProgramActive bool
}

// CycleError reports a dependency cycle detected outside of link-lag
// breaks (spec.md §4.2: "cycles in the dependency graph, other than
// through link flows... are errors").
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency: cycle detected: %v", e.Cycle)
}

// Closure computes the transitively-closed set of dependent variable names:
// a node is dependent if it drives a link, is program-targetable and
// active, or is referenced (directly or transitively) by another dependent
// node (spec.md §4.2 rule (a)-(c)).
func Closure(nodes []Node) map[string]bool {
	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}

	dependent := make(map[string]bool)
	for _, n := range nodes {
		if n.DrivesLink || n.ProgramActive {
			dependent[n.Name] = true
		}
	}

	// Reverse edges: who references whom, so we can propagate dependence
	// backwards from a dependent node to everything it reads.
	changed := true
	for changed {
		changed = false
		for _, n := range nodes {
			if !dependent[n.Name] {
				continue
			}
			for _, ref := range n.References {
				if _, known := byName[ref]; known && !dependent[ref] {
					dependent[ref] = true
					changed = true
				}
			}
		}
	}
	return dependent
}

// Order returns a topological ordering of the dependent subset of nodes
// such that every node appears after everything it references. The DFS
// starts from the non-aggregating nodes, in declaration order, and then
// from the aggregating ones, so an aggregating node that no
// non-aggregating node references comes after every non-aggregating node.
// An aggregating node that a non-aggregating node references is emitted
// when the DFS first reaches it from that node, which can place it before
// other, unrelated non-aggregating nodes.
//
// It reports a *CycleError if the dependent subgraph (excluding references
// that fall outside the dependent set, which are assumed already current)
// contains a cycle.
func Order(nodes []Node, dependent map[string]bool) ([]string, error) {
	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}

	const (
		white = iota
		gray
		black
	)
	state := make(map[string]int, len(nodes))
	var order []string
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case black:
			return nil
		case gray:
			// Build a readable cycle trace from the current DFS stack.
			start := 0
			for i, s := range stack {
				if s == name {
					start = i
					break
				}
			}
			cyc := append(append([]string{}, stack[start:]...), name)
			return &CycleError{Cycle: cyc}
		}
		state[name] = gray
		stack = append(stack, name)
		n, ok := byName[name]
		if ok {
			for _, ref := range n.References {
				if !dependent[ref] {
					continue // not in the dependent set: treated as already current
				}
				if err := visit(ref); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = black
		order = append(order, name)
		return nil
	}

	// Visit non-aggregating nodes first, in declaration order, then
	// aggregating nodes, so ties in the partial order resolve with
	// aggregators last (spec.md §4.6).
	var names []string
	for _, n := range nodes {
		if dependent[n.Name] && !n.Aggregates {
			names = append(names, n.Name)
		}
	}
	for _, n := range nodes {
		if dependent[n.Name] && n.Aggregates {
			names = append(names, n.Name)
		}
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
