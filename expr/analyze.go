package expr

import "github.com/atomica-sim/atomica/ast"

var aggregatorNames = map[string]bool{
	"SRC_POP_SUM": true, "TGT_POP_SUM": true,
	"SRC_POP_AVG": true, "TGT_POP_AVG": true,
}

// UsesAggregator reports whether an expression AST contains a SRC_POP_*/
// TGT_POP_* call anywhere in its tree, so the dependency analyzer (spec.md
// §4.2, §4.6) can mark the owning parameter as a late-stage aggregator.
func UsesAggregator(node ast.Expression) bool {
	switch n := node.(type) {
	case nil:
		return false
	case *ast.PrefixExpression:
		return UsesAggregator(n.Right)
	case *ast.InfixExpression:
		return UsesAggregator(n.Left) || UsesAggregator(n.Right)
	case *ast.CallExpression:
		if aggregatorNames[n.Function] {
			return true
		}
		for _, a := range n.Arguments {
			if UsesAggregator(a) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// References collects every plain identifier referenced by an expression
// AST, used by the dependency analyzer (spec.md §4.2) to build a node's
// reference set. Aggregator call arguments that name other populations'
// variables are intentionally included: they still count as references for
// ordering purposes even though they are resolved in a different
// population's scope at evaluation time.
func References(node ast.Expression) []string {
	var out []string
	var walk func(ast.Expression)
	walk = func(n ast.Expression) {
		switch v := n.(type) {
		case nil:
		case *ast.Identifier:
			out = append(out, v.Value)
		case *ast.NumberLiteral:
		case *ast.PrefixExpression:
			walk(v.Right)
		case *ast.InfixExpression:
			walk(v.Left)
			walk(v.Right)
		case *ast.CallExpression:
			for i, a := range v.Arguments {
				// Skip the literal interaction-name argument of
				// SRC_POP_AVG/TGT_POP_AVG (second argument): it is not a
				// variable reference.
				if (v.Function == "SRC_POP_AVG" || v.Function == "TGT_POP_AVG") && i == 1 {
					continue
				}
				walk(a)
			}
		}
	}
	walk(node)
	return out
}
