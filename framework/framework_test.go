package framework

import (
	"testing"

	"github.com/atomica-sim/atomica/units"
	"github.com/stretchr/testify/assert"
)

func validSIR() *Framework {
	return &Framework{
		PopulationTypes: []PopulationType{{Name: "human"}},
		Compartments: []Compartment{
			{Name: "sus", PopType: "human", IsSetup: true},
			{Name: "inf", PopType: "human", IsSetup: true},
			{Name: "rec", PopType: "human", IsSetup: true, Default: 0},
		},
		Characteristics: []Characteristic{
			{Name: "alive", PopType: "human", Includes: []string{"sus", "inf", "rec"}},
		},
		Parameters: []Parameter{
			{Name: "recov_rate", PopType: "human", Units: units.Probability, Targetable: true},
		},
		Transitions: []Transition{
			{PopType: "human", From: "inf", To: "rec", Parameters: []string{"recov_rate"}},
		},
	}
}

func TestValidFrameworkHasNoErrors(t *testing.T) {
	f := validSIR()
	assert.Empty(t, f.Validate())
}

func TestDuplicateNameAcrossKinds(t *testing.T) {
	f := validSIR()
	f.Parameters = append(f.Parameters, Parameter{Name: "sus", PopType: "human", Units: units.Number})
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestUnknownPopulationType(t *testing.T) {
	f := validSIR()
	f.Compartments[0].PopType = "ghost"
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestCharacteristicUnknownInclude(t *testing.T) {
	f := validSIR()
	f.Characteristics[0].Includes = append(f.Characteristics[0].Includes, "nonexistent")
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestTransitionIntoSourceIsInvalid(t *testing.T) {
	f := validSIR()
	f.Compartments = append(f.Compartments, Compartment{Name: "births", PopType: "human", IsSource: true})
	f.Transitions = append(f.Transitions, Transition{PopType: "human", From: "rec", To: "births", Parameters: []string{"recov_rate"}})
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestTransitionFromSinkIsInvalid(t *testing.T) {
	f := validSIR()
	f.Compartments = append(f.Compartments, Compartment{Name: "dead", PopType: "human", IsSink: true})
	f.Transitions = append(f.Transitions, Transition{PopType: "human", From: "dead", To: "rec", Parameters: []string{"recov_rate"}})
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestJunctionCannotBeSourceOrSink(t *testing.T) {
	f := validSIR()
	f.Compartments = append(f.Compartments, Compartment{Name: "j1", PopType: "human", IsJunction: true, IsSource: true})
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestUnknownModalityIsRejected(t *testing.T) {
	f := validSIR()
	f.Modalities = map[string]Modality{"recov_rate": "bogus"}
	errs := f.Validate()
	assert.NotEmpty(t, errs)
}

func TestPopulationTypeOf(t *testing.T) {
	f := validSIR()
	pt, ok := f.PopulationTypeOf("inf")
	assert.True(t, ok)
	assert.Equal(t, "human", pt)

	_, ok = f.PopulationTypeOf("missing")
	assert.False(t, ok)
}
