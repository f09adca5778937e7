package expr

import (
	"fmt"

	"github.com/atomica-sim/atomica/ast"
)

// compilePopSum compiles SRC_POP_SUM(var[, weight]) / TGT_POP_SUM(var[,
// weight]) (spec.md §4.1). transposed selects TGT direction.
func compilePopSum(n *ast.CallExpression, transposed bool) (Compiled, error) {
	if len(n.Arguments) < 1 || len(n.Arguments) > 2 {
		return nil, &CompileError{Msg: fmt.Sprintf("%s expects 1 or 2 arguments, got %d", n.Function, len(n.Arguments))}
	}
	varC, err := Compile(n.Arguments[0])
	if err != nil {
		return nil, err
	}
	var weightC Compiled
	if len(n.Arguments) == 2 {
		weightC, err = Compile(n.Arguments[1])
		if err != nil {
			return nil, err
		}
	}

	return func(s Scope) (float64, error) {
		pop := s.Pop.Name()
		total := 0.0
		for _, e := range s.Interactions.Edges() {
			var other string
			if transposed {
				if e.From != pop {
					continue
				}
				other = e.To
			} else {
				if e.To != pop {
					continue
				}
				other = e.From
			}
			v, w, err := evalVarAndWeight(s, other, varC, weightC)
			if err != nil {
				return 0, err
			}
			total += v * w
		}
		return total, nil
	}, nil
}

// compilePopAvg compiles SRC_POP_AVG(var, interaction[, weight]) /
// TGT_POP_AVG(var, interaction[, weight]) (spec.md §4.1). Weights are
// interaction_weight * (weight if supplied else 1), normalized to sum to 1
// within the evaluation; if all weights are zero the result is 0.
func compilePopAvg(n *ast.CallExpression, transposed bool) (Compiled, error) {
	if len(n.Arguments) < 2 || len(n.Arguments) > 3 {
		return nil, &CompileError{Msg: fmt.Sprintf("%s expects 2 or 3 arguments, got %d", n.Function, len(n.Arguments))}
	}
	varC, err := Compile(n.Arguments[0])
	if err != nil {
		return nil, err
	}
	interactionIdent, ok := n.Arguments[1].(*ast.Identifier)
	if !ok {
		return nil, &CompileError{Msg: n.Function + " expects its second argument to be a plain interaction name"}
	}
	interactionName := interactionIdent.Value

	var weightC Compiled
	if len(n.Arguments) == 3 {
		weightC, err = Compile(n.Arguments[2])
		if err != nil {
			return nil, err
		}
	}

	return func(s Scope) (float64, error) {
		fromType, toType, ok := s.Interactions.Endpoints(interactionName)
		if !ok {
			return 0, fmt.Errorf("expr: unknown interaction %q", interactionName)
		}
		// spec.md §9 open question: TGT_POP_AVG's transposed meaning over a
		// (from_type, to_type)-declared interaction is inferred, not
		// explicit; we validate that the current population's type matches
		// the endpoint it plays (to_type for SRC, from_type for TGT) so a
		// mismatched aggregator/interaction pairing is an error rather than
		// a silent misaggregation. The check runs here, each time the
		// expression is evaluated; graph.Build does not perform it.
		var expectType string
		if transposed {
			expectType = fromType
		} else {
			expectType = toType
		}
		if s.Pop.Type() != expectType {
			return 0, fmt.Errorf("expr: population %q (type %q) cannot use %s on interaction %q (expects type %q)",
				s.Pop.Name(), s.Pop.Type(), n.Function, interactionName, expectType)
		}

		pop := s.Pop.Name()
		type term struct {
			value, weight float64
		}
		var terms []term
		for _, e := range s.Interactions.Edges() {
			if e.Interaction != interactionName {
				continue
			}
			var other string
			var iw float64
			var found bool
			if transposed {
				if e.From != pop {
					continue
				}
				other = e.To
				iw, found = s.Interactions.Weight(interactionName, pop, other)
			} else {
				if e.To != pop {
					continue
				}
				other = e.From
				iw, found = s.Interactions.Weight(interactionName, other, pop)
			}
			if !found {
				continue
			}
			v, w, err := evalVarAndWeight(s, other, varC, weightC)
			if err != nil {
				return 0, err
			}
			terms = append(terms, term{value: v, weight: iw * w})
		}

		var totalWeight float64
		for _, t := range terms {
			totalWeight += t.weight
		}
		if totalWeight == 0 {
			return 0, nil
		}
		var sum float64
		for _, t := range terms {
			sum += t.value * (t.weight / totalWeight)
		}
		return sum, nil
	}, nil
}

// evalVarAndWeight evaluates var and the optional weight expression in the
// named population's scope, reusing the caller's Populations/Interactions
// tables so nested aggregation (rare, but not disallowed) still resolves.
func evalVarAndWeight(s Scope, popName string, varC, weightC Compiled) (value, weight float64, err error) {
	other, ok := s.Populations[popName]
	if !ok {
		return 0, 0, fmt.Errorf("expr: aggregator references unknown population %q", popName)
	}
	sub := Scope{Pop: other, Populations: s.Populations, Interactions: s.Interactions, Warn: s.Warn}
	value, err = varC(sub)
	if err != nil {
		return 0, 0, err
	}
	weight = 1
	if weightC != nil {
		weight, err = weightC(sub)
		if err != nil {
			return 0, 0, err
		}
	}
	return value, weight, nil
}
