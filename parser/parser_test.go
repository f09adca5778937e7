package parser

import (
	"testing"

	"github.com/atomica-sim/atomica/ast"
	"github.com/atomica-sim/atomica/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, input string) ast.Expression {
	t.Helper()
	p := New(lexer.New(input))
	expr := p.parseExpression(LOWEST)
	require.Empty(t, p.Errors(), "input %q", input)
	return expr
}

func TestIdentifier(t *testing.T) {
	expr := parseOK(t, "infected")
	id, ok := expr.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "infected", id.Value)
}

func TestNumberLiteral(t *testing.T) {
	expr := parseOK(t, "3.5")
	lit, ok := expr.(*ast.NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, 3.5, lit.Value)
}

func TestArithmeticPrecedence(t *testing.T) {
	expr := parseOK(t, "a + b * c")
	assert.Equal(t, "(a + (b * c))", expr.String())
}

func TestPowerIsRightAssociative(t *testing.T) {
	expr := parseOK(t, "2 ** 3 ** 2")
	assert.Equal(t, "(2 ** (3 ** 2))", expr.String())
}

func TestUnaryMinusBindsLooserThanPower(t *testing.T) {
	expr := parseOK(t, "-2 ** 2")
	assert.Equal(t, "(-(2 ** 2))", expr.String())
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	expr := parseOK(t, "(a + b) * c")
	assert.Equal(t, "((a + b) * c)", expr.String())
}

func TestComparisonExpression(t *testing.T) {
	expr := parseOK(t, "a >= 0.5")
	assert.Equal(t, "(a >= 0.5)", expr.String())
}

func TestFunctionCall(t *testing.T) {
	expr := parseOK(t, "min(a, b)")
	call, ok := expr.(*ast.CallExpression)
	require.True(t, ok)
	assert.Equal(t, "min", call.Function)
	assert.Len(t, call.Arguments, 2)
}

func TestIfFunctionCall(t *testing.T) {
	expr := parseOK(t, "if(a > 0, 1, 0)")
	call, ok := expr.(*ast.CallExpression)
	require.True(t, ok)
	assert.Equal(t, "if", call.Function)
	assert.Len(t, call.Arguments, 3)
}

func TestAggregatorWithOptionalWeight(t *testing.T) {
	expr := parseOK(t, "SRC_POP_AVG(foi, contact, pop_size)")
	call, ok := expr.(*ast.CallExpression)
	require.True(t, ok)
	assert.Equal(t, "SRC_POP_AVG", call.Function)
	assert.Len(t, call.Arguments, 3)
}

func TestNestedFunctionCalls(t *testing.T) {
	expr := parseOK(t, "max(0, min(1, p * dt))")
	assert.Equal(t, "max(0, min(1, (p * dt)))", expr.String())
}

func TestSyntaxErrorsAccumulate(t *testing.T) {
	_, errs := ParseExpression("a +")
	assert.NotEmpty(t, errs)
}

func TestUnknownTokenErrors(t *testing.T) {
	_, errs := ParseExpression("a & b")
	assert.NotEmpty(t, errs)
}
