// Package program implements the program-overlay mechanism of spec.md
// §4.7: budget-to-coverage conversion and parameter-value substitution for
// intervention programs layered on top of a built graph.
package program

import (
	"fmt"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
)

// Effect declares one targeted parameter's baseline and per-population
// effect value for a program (spec.md §4.7).
type Effect struct {
	Parameter  string  `yaml:"parameter"`
	Population string  `yaml:"population"`
	Baseline   float64 `yaml:"baseline"`
	Value      float64 `yaml:"value"`
}

// Program is one intervention overlay (spec.md §4.7).
type Program struct {
	Name               string              `yaml:"name"`
	TargetPopulations  []string            `yaml:"target_populations"`
	TargetCompartments []string            `yaml:"target_compartments"`
	UnitCost           databook.TimeSeries `yaml:"unit_cost"`
	Spending           databook.TimeSeries `yaml:"spending"`
	// Continuous programs are expressed directly as current-coverage
	// proportions: reached = spending(t) / unit_cost(t), with no dt factor.
	Continuous bool     `yaml:"continuous"`
	Capacity   *float64 `yaml:"capacity"`   // absolute upper bound on reached
	Saturation *float64 `yaml:"saturation"` // upper bound on coverage
	Effects    []Effect `yaml:"effects"`
}

// ProgramSet is the full collection of programs declared by a program book
// (spec.md §6 "Program book").
type ProgramSet struct {
	Programs []Program `yaml:"programs"`
}

// Instructions is a program-set activation record (SPEC_FULL.md §3): when
// overlays begin, and optional per-run overrides for scenario/what-if runs.
type Instructions struct {
	ProgramStartYear float64 `yaml:"program_start_year"`
	// SpendingOverrides replaces a named program's Spending series for this
	// run only.
	SpendingOverrides map[string]databook.TimeSeries `yaml:"spending_overrides"`
	// AlternativeCoverage forces a named program's coverage directly,
	// bypassing the budget-to-people computation (a scenario "what-if").
	AlternativeCoverage map[string]float64 `yaml:"alternative_coverage"`
}

// Active reports whether program overlays apply at simulation time t.
func (in *Instructions) Active(t float64) bool {
	return in != nil && t >= in.ProgramStartYear
}

// Validate checks a program set against a framework: every targeted
// compartment must exist in some population type, and every targeted
// parameter must exist and be declared targetable. Targeted population
// names are only checked for being present, not for existing: a framework
// declares population types, not populations.
func (ps *ProgramSet) Validate(fw *framework.Framework) []error {
	var errs []error

	popTypeOf := make(map[string]string)
	compByPopType := make(map[string]map[string]bool)
	for _, c := range fw.Compartments {
		if compByPopType[c.PopType] == nil {
			compByPopType[c.PopType] = make(map[string]bool)
		}
		compByPopType[c.PopType][c.Name] = true
	}
	targetable := make(map[string]bool)
	for _, p := range fw.Parameters {
		if p.Targetable {
			targetable[p.Name] = true
		}
		popTypeOf[p.Name] = p.PopType
	}

	names := make(map[string]bool)
	for _, p := range ps.Programs {
		if names[p.Name] {
			errs = append(errs, fmt.Errorf("program: duplicate program name %q", p.Name))
		}
		names[p.Name] = true

		if len(p.TargetPopulations) == 0 {
			errs = append(errs, fmt.Errorf("program %q: must target at least one population", p.Name))
		}
		if len(p.TargetCompartments) == 0 {
			errs = append(errs, fmt.Errorf("program %q: must target at least one compartment", p.Name))
		}
		for _, cn := range p.TargetCompartments {
			found := false
			for _, comps := range compByPopType {
				if comps[cn] {
					found = true
					break
				}
			}
			if !found {
				errs = append(errs, fmt.Errorf("program %q: targets unknown compartment %q", p.Name, cn))
			}
		}
		if p.Capacity != nil && *p.Capacity < 0 {
			errs = append(errs, fmt.Errorf("program %q: capacity must be non-negative", p.Name))
		}
		if p.Saturation != nil && (*p.Saturation < 0 || *p.Saturation > 1) {
			errs = append(errs, fmt.Errorf("program %q: saturation must be in [0,1]", p.Name))
		}
		for _, e := range p.Effects {
			if !targetable[e.Parameter] {
				errs = append(errs, fmt.Errorf("program %q: targets parameter %q which is not declared targetable", p.Name, e.Parameter))
			}
		}
	}

	return errs
}
