package integrate

import (
	"github.com/atomica-sim/atomica/result"
)

// warn records a non-fatal anomaly on the run's Result and logs it
// structured, per spec.md §7's distinction between warnings (never stop a
// run) and errors (always do).
func (r *runner) warn(population, variable string, t int, msg string) {
	r.res.Warnings = append(r.res.Warnings, result.Warning{
		Kind:       "integration",
		Population: population,
		Variable:   variable,
		Timestep:   t,
		Message:    msg,
	})
	r.logger.Warn().
		Str("population", population).
		Str("variable", variable).
		Int("t", t).
		Msg(msg)
}

// toResultError classifies a fatal error returned by the loop into a
// result.Error. Errors originating inside the graph package (a junction
// cycle) or this package's own characteristic-cycle check already carry a
// readable message; this just gives it the "integration" kind spec.md §7
// expects on a Failed Result. A parameter dependency-order error is
// recorded by Run directly, with kind "config", and never reaches here.
func toResultError(err error) *result.Error {
	return &result.Error{Kind: "integration", Message: err.Error()}
}
