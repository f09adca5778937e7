package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// junctionCascade builds X -> J1 -> J2 -> Y (spec.md §8 scenario 5) with
// proportion-1 single outflows, three timesteps allocated.
func junctionCascade(t *testing.T) *Population {
	t.Helper()
	x := &Compartment{Name: "X", Vals: make([]float64, 3)}
	j1 := &Compartment{Name: "J1", IsJunction: true, Vals: make([]float64, 3)}
	j2 := &Compartment{Name: "J2", IsJunction: true, Vals: make([]float64, 3)}
	y := &Compartment{Name: "Y", Vals: make([]float64, 3)}

	propParam := func(name string) *Parameter {
		return &Parameter{Name: name, Vals: []float64{1, 1, 1}}
	}

	link := func(name string, from, to *Compartment, p *Parameter) *Link {
		l := &Link{Name: name, From: from, To: to, Parameter: p, Vals: make([]float64, 3)}
		from.Outlinks = append(from.Outlinks, l)
		to.Inlinks = append(to.Inlinks, l)
		return l
	}

	l1 := link("x->j1", x, j1, propParam("p1"))
	l2 := link("j1->j2", j1, j2, propParam("p2"))
	l3 := link("j2->y", j2, y, propParam("p3"))

	l1.Vals[0] = 10

	pop := &Population{
		Name:         "pop",
		Compartments: []*Compartment{x, j1, j2, y},
		compByName:   map[string]*Compartment{"X": x, "J1": j1, "J2": j2, "Y": y},
	}
	_ = l2
	_ = l3
	return pop
}

func TestJunctionCascadeDeliversFullMassDownstream(t *testing.T) {
	pop := junctionCascade(t)
	err := flushPopulationJunctions(pop, 0, false)
	require.NoError(t, err)

	j1, _ := pop.GetComp("J1")
	j2, _ := pop.GetComp("J2")
	y, _ := pop.GetComp("Y")
	assert.Equal(t, 0.0, j1.Vals[0])
	assert.Equal(t, 0.0, j2.Vals[0])
	require.Len(t, y.Inlinks, 1)
	assert.InDelta(t, 10.0, y.Inlinks[0].Vals[0], 1e-9)
}

func TestJunctionCycleIsDetected(t *testing.T) {
	a := &Compartment{Name: "A", IsJunction: true, Vals: make([]float64, 2)}
	b := &Compartment{Name: "B", IsJunction: true, Vals: make([]float64, 2)}
	pa := &Parameter{Name: "pa", Vals: []float64{1, 1}}
	pb := &Parameter{Name: "pb", Vals: []float64{1, 1}}

	link := func(name string, from, to *Compartment, p *Parameter) *Link {
		l := &Link{Name: name, From: from, To: to, Parameter: p, Vals: make([]float64, 2)}
		from.Outlinks = append(from.Outlinks, l)
		to.Inlinks = append(to.Inlinks, l)
		return l
	}
	link("a->b", a, b, pa)
	link("b->a", b, a, pb)
	a.Vals[0] = 0
	b.Vals[0] = 0

	pop := &Population{
		Name:         "pop",
		Compartments: []*Compartment{a, b},
	}
	// Force arrival so the flush has work to do.
	a.Initial = 5
	err := flushPopulationJunctions(pop, 0, true)
	require.Error(t, err)
	var cycleErr *JunctionCycleError
	assert.ErrorAs(t, err, &cycleErr)
}
