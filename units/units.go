// Package units defines the timebase and parameter unit kinds shared across
// the engine, and the per-step conversion semantics of spec.md §4.4.
package units

import "fmt"

// Kind is the unit of a parameter's value.
type Kind int

const (
	// Unknown is an arbitrary scalar used only as an intermediate value; it
	// never drives a link directly.
	Unknown Kind = iota
	// Number is a count flow rate, per year.
	Number
	// Probability is a per-year probability in [0,1].
	Probability
	// Duration is a mean residence time, in years.
	Duration
	// Proportion is a unitless fraction, used for junction outflows.
	Proportion
)

var names = map[Kind]string{
	Unknown:     "unknown",
	Number:      "number",
	Probability: "probability",
	Duration:    "duration",
	Proportion:  "proportion",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "invalid"
}

// ParseKind maps a framework column value to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range names {
		if name == s {
			return k, nil
		}
	}
	return Unknown, fmt.Errorf("units: unrecognized parameter unit %q", s)
}

// UnmarshalYAML lets a Kind be written as its string name ("probability",
// "duration", ...) in framework/databook YAML fixtures.
func (k *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML renders a Kind as its string name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// TimeGrid is the shared timebase for one run: a uniform step size over a
// fixed number of steps, expressed in years (spec.md §1 "Units and time
// grid").
type TimeGrid struct {
	// Start is the calendar year of the first timestep.
	Start float64
	// Dt is the step size, in years.
	Dt float64
	// Steps is the number of timesteps, T in spec.md §4.5 ("t_index ranges
	// from 0 to T-1 inclusive"); the grid therefore has Steps+1 points.
	Steps int
}

// NewTimeGrid builds a TimeGrid spanning [start, end] inclusive at step dt.
// (end-start)/dt is rounded to the nearest whole number of steps, with a
// minimum of one step.
func NewTimeGrid(start, end, dt float64) TimeGrid {
	if dt <= 0 {
		dt = 1
	}
	n := int((end-start)/dt + 0.5)
	if n < 1 {
		n = 1
	}
	return TimeGrid{Start: start, Dt: dt, Steps: n}
}

// Times returns the grid's time points, length Steps+1.
func (g TimeGrid) Times() []float64 {
	out := make([]float64, g.Steps+1)
	for i := range out {
		out[i] = g.Start + float64(i)*g.Dt
	}
	return out
}

// PerStepNumber converts an annualized parameter value to the number of
// entities moved over one timestep, given the source compartment's current
// size, per the table in spec.md §4.4. share distributes a `number`-unit
// parameter across the multiple links it may drive and must be 1 for a
// parameter that drives a single link.
func PerStepNumber(kind Kind, value, dt, size, share float64) float64 {
	switch kind {
	case Number:
		return value * dt * share
	case Probability:
		return value * dt * size
	case Duration:
		if value == 0 {
			return 0
		}
		return (dt / value) * size
	case Proportion:
		return value * size
	default:
		return 0
	}
}
