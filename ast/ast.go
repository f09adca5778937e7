// Package ast defines the Abstract Syntax Tree nodes for the Atomica
// expression language (spec.md §4.1).
package ast

import (
	"strings"

	"github.com/atomica-sim/atomica/token"
)

// Node represents a node in the AST.
type Node interface {
	TokenLiteral() string
	String() string
}

// Expression represents an expression node. The grammar has no statements;
// every parse produces a single Expression tree.
type Expression interface {
	Node
	expressionNode()
}

// Identifier represents a reference to a compartment, characteristic, or
// parameter code name in the current population scope.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// NumberLiteral represents a numeric literal (spec.md §4.1: negative
// literals are produced by PrefixExpression "-", not by the lexer).
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Token.Literal }

// PrefixExpression represents a unary operator applied to an operand: "-x".
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (p *PrefixExpression) expressionNode()      {}
func (p *PrefixExpression) TokenLiteral() string { return p.Token.Literal }
func (p *PrefixExpression) String() string {
	var out strings.Builder
	out.WriteString("(")
	out.WriteString(p.Operator)
	out.WriteString(p.Right.String())
	out.WriteString(")")
	return out.String()
}

// InfixExpression represents a binary operator: arithmetic (+ - * / **) or
// comparison (< <= > >= == !=).
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (i *InfixExpression) expressionNode()      {}
func (i *InfixExpression) TokenLiteral() string { return i.Token.Literal }
func (i *InfixExpression) String() string {
	var out strings.Builder
	out.WriteString("(")
	out.WriteString(i.Left.String())
	out.WriteString(" " + i.Operator + " ")
	out.WriteString(i.Right.String())
	out.WriteString(")")
	return out.String()
}

// CallExpression represents a pure-function call (exp, log, sqrt, min, max,
// abs, floor, ceil, if) or an aggregator call (SRC_POP_SUM, SRC_POP_AVG,
// TGT_POP_SUM, TGT_POP_AVG).
type CallExpression struct {
	Token     token.Token // the function/aggregator token
	Function  string
	Arguments []Expression
}

func (c *CallExpression) expressionNode()      {}
func (c *CallExpression) TokenLiteral() string { return c.Token.Literal }
func (c *CallExpression) String() string {
	var out strings.Builder
	args := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = a.String()
	}
	out.WriteString(c.Function)
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")
	return out.String()
}
