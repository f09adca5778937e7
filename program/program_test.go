package program

import (
	"testing"

	"github.com/atomica-sim/atomica/framework"
	"github.com/atomica-sim/atomica/units"
	"github.com/stretchr/testify/assert"
)

func validProgramFramework() *framework.Framework {
	return &framework.Framework{
		PopulationTypes: []framework.PopulationType{{Name: "human"}},
		Compartments:    []framework.Compartment{{Name: "inf", PopType: "human"}},
		Parameters:      []framework.Parameter{{Name: "recov_rate", PopType: "human", Units: units.Probability, Targetable: true}},
	}
}

func TestValidProgramSetHasNoErrors(t *testing.T) {
	ps := &ProgramSet{Programs: []Program{{
		Name:               "treat",
		TargetPopulations:  []string{"adults"},
		TargetCompartments: []string{"inf"},
		Effects:            []Effect{{Parameter: "recov_rate", Population: "adults", Baseline: 0, Value: 0.9}},
	}}}
	assert.Empty(t, ps.Validate(validProgramFramework()))
}

func TestProgramTargetingNonTargetableParameterErrors(t *testing.T) {
	fw := validProgramFramework()
	fw.Parameters[0].Targetable = false
	ps := &ProgramSet{Programs: []Program{{
		Name:               "treat",
		TargetPopulations:  []string{"adults"},
		TargetCompartments: []string{"inf"},
		Effects:            []Effect{{Parameter: "recov_rate", Population: "adults"}},
	}}}
	assert.NotEmpty(t, ps.Validate(fw))
}

func TestProgramMissingTargetsErrors(t *testing.T) {
	ps := &ProgramSet{Programs: []Program{{Name: "treat"}}}
	assert.NotEmpty(t, ps.Validate(validProgramFramework()))
}
