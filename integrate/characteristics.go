package integrate

import (
	"fmt"

	"github.com/atomica-sim/atomica/graph"
)

// updateCharacteristics recomputes every characteristic's value at t
// (spec.md §4.5 "update_parameters" step, characteristics half): a
// characteristic's Includes sum, divided by its Denominator if any. Nested
// characteristics are resolved recursively rather than relying on
// evaluation order, so declaration order within a population never matters.
func (r *runner) updateCharacteristics(t int) error {
	for _, pop := range r.g.Populations {
		for _, c := range pop.Characteristics {
			v, err := r.evalCharacteristic(pop, c.Name, t, make(map[string]bool))
			if err != nil {
				return err
			}
			c.Vals[t] = v
		}
	}
	return nil
}

func (r *runner) evalCharacteristic(pop *graph.Population, name string, t int, visiting map[string]bool) (float64, error) {
	if visiting[name] {
		return 0, fmt.Errorf("integrate: characteristic cycle detected at %q in population %q", name, pop.Name)
	}
	c, ok := pop.GetCharac(name)
	if !ok {
		return 0, fmt.Errorf("integrate: unknown characteristic %q in population %q", name, pop.Name)
	}

	visiting[name] = true
	defer delete(visiting, name)

	var total float64
	for _, inc := range c.Includes {
		v, err := r.sumOf(pop, inc, t, visiting)
		if err != nil {
			return 0, err
		}
		total += v
	}

	if c.Denominator != "" {
		denom, err := r.sumOf(pop, c.Denominator, t, visiting)
		if err != nil {
			return 0, err
		}
		if denom == 0 {
			r.warn(pop.Name, name, t, "characteristic denominator is zero; value treated as 0")
			return 0, nil
		}
		total /= denom
	}
	return total, nil
}

// sumOf resolves a single Includes/Denominator reference: a compartment
// resolves to its current size, a characteristic recurses.
func (r *runner) sumOf(pop *graph.Population, name string, t int, visiting map[string]bool) (float64, error) {
	if c, ok := pop.GetComp(name); ok {
		return c.Vals[t], nil
	}
	if _, ok := pop.GetCharac(name); ok {
		return r.evalCharacteristic(pop, name, t, visiting)
	}
	return 0, fmt.Errorf("integrate: unknown compartment/characteristic %q in population %q", name, pop.Name)
}
