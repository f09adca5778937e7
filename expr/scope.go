package expr

// PopulationView is the read access a compiled expression needs into one
// population's current-timestep variable values (spec.md §4.1: "refers to
// other variables in the same population unless wrapped in a cross-
// population aggregator").
type PopulationView interface {
	Name() string
	Type() string
	// Value looks up a compartment, characteristic, or parameter by code
	// name at the current timestep.
	Value(name string) (float64, bool)
}

// Edge names one endpoint pair of a named interaction matrix.
type Edge struct {
	Interaction string
	From        string
	To          string
}

// Interactions is the read access a compiled expression needs into the
// named weighted interaction matrices of spec.md §3/§4.1/§4.6.
type Interactions interface {
	// Weight returns the interaction's weight from `from` to `to`, if any.
	Weight(interaction, from, to string) (float64, bool)
	// Edges returns every (interaction, from, to) edge with a declared,
	// non-zero weight across every interaction. The four aggregators filter
	// this single list: SRC_POP_SUM/TGT_POP_SUM ignore Interaction and match
	// on To/From respectively; SRC_POP_AVG/TGT_POP_AVG additionally match on
	// Interaction.
	Edges() []Edge
	// Endpoints returns the declared (fromType, toType) of a named
	// interaction, for the validation spec.md §4.1 and §9 require.
	Endpoints(interaction string) (fromType, toType string, ok bool)
}

// Scope is the full evaluation context for one compiled expression
// evaluated in one population at the current timestep.
type Scope struct {
	Pop          PopulationView
	Populations  map[string]PopulationView
	Interactions Interactions
	// Warn receives a message for every non-fatal anomaly encountered during
	// evaluation (division by zero, per spec.md §4.1 and §9). It may be nil.
	Warn func(msg string)
}

func (s Scope) warn(msg string) {
	if s.Warn != nil {
		s.Warn(msg)
	}
}
