// Package expr compiles Atomica expression ASTs into closures that
// evaluate against a population Scope, per the "compile once" design note
// in spec.md §9 ("Expression dispatch"): expressions are parsed and
// compiled a single time at graph-construction time, then evaluated every
// timestep without re-parsing.
package expr

import (
	"fmt"
	"math"

	"github.com/atomica-sim/atomica/ast"
	"github.com/atomica-sim/atomica/lexer"
	"github.com/atomica-sim/atomica/parser"
)

// Compiled is a compiled expression, ready to evaluate against a Scope.
type Compiled func(Scope) (float64, error)

// CompileError reports a problem found while compiling an expression,
// i.e. a configuration error under spec.md §7: it is raised once at
// graph-construction time and never during integration.
type CompileError struct {
	Source string
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("expr: %s (in %q)", e.Msg, e.Source)
}

// Parse parses and compiles a source expression in one step.
func Parse(source string) (Compiled, error) {
	node, errs := parser.ParseExpression(source)
	if len(errs) > 0 {
		return nil, &CompileError{Source: source, Msg: errs[0]}
	}
	return Compile(node)
}

// Compile turns an AST node into a Compiled closure, validating arity of
// built-in functions and aggregators up front so that a bad call fails at
// build time, not mid-run.
func Compile(node ast.Expression) (Compiled, error) {
	switch n := node.(type) {
	case nil:
		return nil, &CompileError{Msg: "empty expression"}
	case *ast.NumberLiteral:
		v := n.Value
		return func(Scope) (float64, error) { return v, nil }, nil
	case *ast.Identifier:
		name := n.Value
		return func(s Scope) (float64, error) {
			if v, ok := s.Pop.Value(name); ok {
				return v, nil
			}
			return 0, fmt.Errorf("expr: unknown identifier %q in population %q", name, s.Pop.Name())
		}, nil
	case *ast.PrefixExpression:
		right, err := Compile(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return func(s Scope) (float64, error) {
				v, err := right(s)
				return -v, err
			}, nil
		case "+":
			return right, nil
		default:
			return nil, &CompileError{Msg: "unknown unary operator " + n.Operator}
		}
	case *ast.InfixExpression:
		return compileInfix(n)
	case *ast.CallExpression:
		return compileCall(n)
	default:
		return nil, &CompileError{Msg: fmt.Sprintf("unsupported expression node %T", node)}
	}
}

func compileInfix(n *ast.InfixExpression) (Compiled, error) {
	left, err := Compile(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Compile(n.Right)
	if err != nil {
		return nil, err
	}

	op := n.Operator
	return func(s Scope) (float64, error) {
		a, err := left(s)
		if err != nil {
			return 0, err
		}
		b, err := right(s)
		if err != nil {
			return 0, err
		}
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			if b == 0 {
				s.warn(fmt.Sprintf("expr: division by zero (%v / %v), returning 0", a, b))
				return 0, nil
			}
			return a / b, nil
		case "**":
			return math.Pow(a, b), nil
		case "==":
			return boolf(a == b), nil
		case "!=":
			return boolf(a != b), nil
		case "<":
			return boolf(a < b), nil
		case "<=":
			return boolf(a <= b), nil
		case ">":
			return boolf(a > b), nil
		case ">=":
			return boolf(a >= b), nil
		default:
			return 0, fmt.Errorf("expr: unknown operator %q", op)
		}
	}, nil
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// builtinArity maps each pure function spec.md §4.1 names to its expected
// argument count.
var builtinArity = map[string]int{
	"exp": 1, "log": 1, "sqrt": 1, "abs": 1, "floor": 1, "ceil": 1,
	"min": 2, "max": 2, "if": 3,
}

func compileCall(n *ast.CallExpression) (Compiled, error) {
	switch n.Function {
	case "exp", "log", "sqrt", "abs", "floor", "ceil", "min", "max", "if":
		return compileBuiltin(n)
	case "SRC_POP_SUM":
		return compilePopSum(n, false)
	case "TGT_POP_SUM":
		return compilePopSum(n, true)
	case "SRC_POP_AVG":
		return compilePopAvg(n, false)
	case "TGT_POP_AVG":
		return compilePopAvg(n, true)
	default:
		return nil, &CompileError{Msg: "unknown function " + n.Function}
	}
}

func compileBuiltin(n *ast.CallExpression) (Compiled, error) {
	want := builtinArity[n.Function]
	if len(n.Arguments) != want {
		return nil, &CompileError{Msg: fmt.Sprintf("%s expects %d argument(s), got %d", n.Function, want, len(n.Arguments))}
	}
	args := make([]Compiled, len(n.Arguments))
	for i, a := range n.Arguments {
		c, err := Compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	fn := n.Function
	return func(s Scope) (float64, error) {
		vals := make([]float64, len(args))
		for i, a := range args {
			v, err := a(s)
			if err != nil {
				return 0, err
			}
			vals[i] = v
		}
		switch fn {
		case "exp":
			return math.Exp(vals[0]), nil
		case "log":
			return math.Log(vals[0]), nil
		case "sqrt":
			return math.Sqrt(vals[0]), nil
		case "abs":
			return math.Abs(vals[0]), nil
		case "floor":
			return math.Floor(vals[0]), nil
		case "ceil":
			return math.Ceil(vals[0]), nil
		case "min":
			return math.Min(vals[0], vals[1]), nil
		case "max":
			return math.Max(vals[0], vals[1]), nil
		case "if":
			if vals[0] != 0 {
				return vals[1], nil
			}
			return vals[2], nil
		}
		return 0, fmt.Errorf("expr: unreachable builtin %s", fn)
	}, nil
}
