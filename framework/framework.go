// Package framework holds the parsed, validated declarative structure of a
// model: population types, compartments, characteristics, parameters,
// transitions, and interactions (spec.md §3, §6 "Framework file").
package framework

import (
	"fmt"

	"github.com/atomica-sim/atomica/units"
)

// Modality is the way multiple active programs targeting the same
// parameter are blended (spec.md §4.7).
type Modality string

const (
	Additive       Modality = "additive"
	Multiplicative Modality = "multiplicative"
	Random         Modality = "random"
)

// PopulationType names a partition of the compartment/characteristic/
// parameter space that transfers must respect (spec.md §3).
type PopulationType struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
}

// Compartment declares a compartment template shared by every population of
// PopType.
type Compartment struct {
	Name       string `yaml:"name"`
	Label      string `yaml:"label"`
	PopType    string `yaml:"population_type"`
	IsSource   bool   `yaml:"is_source"`
	IsSink     bool   `yaml:"is_sink"`
	IsJunction bool   `yaml:"is_junction"`
	Default    float64 `yaml:"default_value"`
	// IsSetup marks a compartment the databook's Population definitions may
	// target directly when solving initial sizes (spec.md §4.3 step 6).
	IsSetup bool `yaml:"is_setup"`
	// DefaultOutflow names the outgoing link taken when a junction's
	// outflow proportions all normalize to zero (spec.md §4.5); empty means
	// the first declared outflow (Transitions sheet row order) is used.
	DefaultOutflow string `yaml:"default_outflow"`
}

// Characteristic declares a named aggregate: the sum of Includes, optionally
// divided by Denominator (spec.md §3).
type Characteristic struct {
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	PopType     string   `yaml:"population_type"`
	Includes    []string `yaml:"includes"`
	Denominator string   `yaml:"denominator"` // empty if this is a count, not a fraction
	IsSetup     bool     `yaml:"is_setup"`
}

// Parameter declares a named scalar time series (spec.md §3).
type Parameter struct {
	Name       string     `yaml:"name"`
	Label      string     `yaml:"label"`
	PopType    string     `yaml:"population_type"`
	Units      units.Kind `yaml:"units"`
	Expression string     `yaml:"expression"` // empty if purely data-driven
	Targetable bool       `yaml:"targetable"`
	Min        *float64   `yaml:"min_value"`
	Max        *float64   `yaml:"max_value"`
}

// Transition declares a directed edge under a driving parameter, spec.md
// §3/§6: one Transitions-sheet cell may list multiple parameters for a
// multi-parameter flow, in which case one link is created per parameter.
type Transition struct {
	PopType    string   `yaml:"population_type"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Parameters []string `yaml:"parameters"`
}

// Interaction declares a named weighted directed matrix between
// populations, possibly of different types (spec.md §3).
type Interaction struct {
	Name     string `yaml:"name"`
	FromType string `yaml:"from_type"`
	ToType   string `yaml:"to_type"`
}

// Framework is the fully parsed, not-yet-validated declarative model
// structure.
type Framework struct {
	PopulationTypes []PopulationType `yaml:"population_types"`
	Compartments    []Compartment    `yaml:"compartments"`
	Characteristics []Characteristic `yaml:"characteristics"`
	Parameters      []Parameter      `yaml:"parameters"`
	Transitions     []Transition     `yaml:"transitions"`
	Interactions    []Interaction    `yaml:"interactions"`
	// Modalities maps a targetable parameter's code name to the blending
	// rule used when more than one program targets it (spec.md §4.7).
	Modalities map[string]Modality `yaml:"modalities"`
}

// kindOf classifies a code name for the duck-typed lookup and uniqueness
// check described in spec.md §9 ("Duck-typed variable lookup").
type kind int

const (
	kindCompartment kind = iota
	kindCharacteristic
	kindParameter
)

// Validate checks the framework for configuration errors (spec.md §7):
// duplicate names across kinds, dangling population-type references,
// dangling includes/denominator/transition/interaction references, and
// invalid transition endpoints. It accumulates every problem it finds
// rather than stopping at the first, mirroring the teacher parser's
// Errors() accumulation.
func (f *Framework) Validate() []error {
	var errs []error

	popTypes := make(map[string]bool)
	for _, pt := range f.PopulationTypes {
		if popTypes[pt.Name] {
			errs = append(errs, fmt.Errorf("framework: duplicate population type %q", pt.Name))
		}
		popTypes[pt.Name] = true
	}
	if len(f.PopulationTypes) == 0 {
		popTypes["default"] = true
	}

	names := make(map[string]kind)
	checkUnique := func(name string, k kind) {
		if _, exists := names[name]; exists {
			errs = append(errs, fmt.Errorf("framework: variable name %q is declared more than once across compartments/characteristics/parameters", name))
			return
		}
		names[name] = k
	}

	byPopType := make(map[string]map[string]kind)
	noteInType := func(pt, name string, k kind) {
		if byPopType[pt] == nil {
			byPopType[pt] = make(map[string]kind)
		}
		byPopType[pt][name] = k
	}

	checkPopType := func(context, pt string) {
		if !popTypes[pt] {
			errs = append(errs, fmt.Errorf("framework: %s references unknown population type %q", context, pt))
		}
	}

	for _, c := range f.Compartments {
		checkUnique(c.Name, kindCompartment)
		checkPopType(fmt.Sprintf("compartment %q", c.Name), c.PopType)
		noteInType(c.PopType, c.Name, kindCompartment)
		if c.IsJunction && (c.IsSource || c.IsSink) {
			errs = append(errs, fmt.Errorf("framework: compartment %q cannot be both a junction and a source/sink", c.Name))
		}
	}
	for _, c := range f.Characteristics {
		checkUnique(c.Name, kindCharacteristic)
		checkPopType(fmt.Sprintf("characteristic %q", c.Name), c.PopType)
		noteInType(c.PopType, c.Name, kindCharacteristic)
	}
	for _, p := range f.Parameters {
		checkUnique(p.Name, kindParameter)
		checkPopType(fmt.Sprintf("parameter %q", p.Name), p.PopType)
		noteInType(p.PopType, p.Name, kindParameter)
	}

	// Characteristic includes/denominator must resolve within the same
	// population type, to a compartment or characteristic (not a
	// parameter).
	for _, c := range f.Characteristics {
		scope := byPopType[c.PopType]
		for _, inc := range c.Includes {
			k, ok := scope[inc]
			if !ok || k == kindParameter {
				errs = append(errs, fmt.Errorf("framework: characteristic %q includes unknown compartment/characteristic %q", c.Name, inc))
			}
		}
		if c.Denominator != "" {
			k, ok := scope[c.Denominator]
			if !ok || k == kindParameter {
				errs = append(errs, fmt.Errorf("framework: characteristic %q has unknown denominator %q", c.Name, c.Denominator))
			}
		}
	}

	compByName := make(map[string]Compartment)
	for _, c := range f.Compartments {
		compByName[c.Name] = c
	}

	for _, t := range f.Transitions {
		checkPopType(fmt.Sprintf("transition %s->%s", t.From, t.To), t.PopType)
		from, fromOK := compByName[t.From]
		to, toOK := compByName[t.To]
		if !fromOK {
			errs = append(errs, fmt.Errorf("framework: transition references unknown source compartment %q", t.From))
		}
		if !toOK {
			errs = append(errs, fmt.Errorf("framework: transition references unknown destination compartment %q", t.To))
		}
		if fromOK && from.PopType != t.PopType {
			errs = append(errs, fmt.Errorf("framework: transition source %q belongs to population type %q, not %q", t.From, from.PopType, t.PopType))
		}
		if toOK && to.PopType != t.PopType {
			errs = append(errs, fmt.Errorf("framework: transition destination %q belongs to population type %q, not %q", t.To, to.PopType, t.PopType))
		}
		if toOK && to.IsSource {
			errs = append(errs, fmt.Errorf("framework: transition %s->%s is invalid: a source compartment cannot be a transition destination", t.From, t.To))
		}
		if fromOK && from.IsSink {
			errs = append(errs, fmt.Errorf("framework: transition %s->%s is invalid: a sink compartment cannot be a transition source", t.From, t.To))
		}
		for _, pn := range t.Parameters {
			pk, ok := byPopType[t.PopType][pn]
			if !ok || pk != kindParameter {
				errs = append(errs, fmt.Errorf("framework: transition %s->%s references unknown parameter %q", t.From, t.To, pn))
			}
		}
	}

	for _, ia := range f.Interactions {
		checkPopType(fmt.Sprintf("interaction %q (from)", ia.Name), ia.FromType)
		checkPopType(fmt.Sprintf("interaction %q (to)", ia.Name), ia.ToType)
	}

	for pname, m := range f.Modalities {
		switch m {
		case Additive, Multiplicative, Random:
		default:
			errs = append(errs, fmt.Errorf("framework: parameter %q declares unknown program modality %q", pname, m))
		}
	}

	return errs
}

// PopulationTypeOf returns the population type a compartment, characteristic,
// or parameter with the given code name belongs to.
func (f *Framework) PopulationTypeOf(name string) (string, bool) {
	for _, c := range f.Compartments {
		if c.Name == name {
			return c.PopType, true
		}
	}
	for _, c := range f.Characteristics {
		if c.Name == name {
			return c.PopType, true
		}
	}
	for _, p := range f.Parameters {
		if p.Name == name {
			return p.PopType, true
		}
	}
	return "", false
}
