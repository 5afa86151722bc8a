// Package eql implements the Elements Query Language: a small typed
// expression language for selecting one member of a resolved collection by
// structural and metadata criteria instead of position.
//
// Grammar (informal):
//
//	expr       := and ('or' and)*
//	and        := comparison ('and' comparison)*
//	comparison := operand (op operand)+        // two ops = chained, expands to AND
//	operand    := path | literal
//	path       := segment ('.' segment)*
//	segment    := name | ('attribute'|'style') ':' name
//	op         := '==' | '!=' | '>' | '<' | '>=' | '<=' | '~='
//	literal    := string | number | bool | /regex/ | #color | rgb(r,g,b)
//
// 'and' binds tighter than 'or'. Every comparison pairs exactly one path
// with one literal; the literal's kind directs the comparison semantics.
package eql

import "regexp"

// Op is a comparison operator.
type Op string

// Comparison operators. OpApprox is valid only against regex and color
// literals; using it with any other literal kind is a static type error.
const (
	OpEq     Op = "=="
	OpNe     Op = "!="
	OpGt     Op = ">"
	OpLt     Op = "<"
	OpGe     Op = ">="
	OpLe     Op = "<="
	OpApprox Op = "~="
)

// Expr is a boolean expression node.
type Expr interface{ exprNode() }

// And is logical conjunction.
type And struct{ L, R Expr }

// Or is logical disjunction.
type Or struct{ L, R Expr }

// Comparison compares a path against a literal. Exactly one of L, R is a
// Path and the other a Literal; the operand order of the source is kept.
type Comparison struct {
	Op   Op
	L, R Operand
}

func (*And) exprNode()        {}
func (*Or) exprNode()         {}
func (*Comparison) exprNode() {}

// Operand is a comparison side: a path or a literal.
type Operand interface{ operandNode() }

// Namespace discriminates metadata segments from structural ones.
type Namespace int

// Path segment namespaces.
const (
	NSNone      Namespace = iota // structural traversal
	NSAttribute                  // attribute:name metadata read
	NSStyle                      // style:name metadata read
)

// Segment is one step of a path. A structural segment re-resolves a child
// element relative to the node the walk has reached; a namespaced segment
// reads metadata from it. The reserved structural name "text" reads the
// node's visible text and may only appear last.
type Segment struct {
	NS   Namespace
	Name string
}

// Path is a dotted access chain evaluated against a candidate.
type Path struct {
	Segments []Segment
}

// LiteralKind discriminates literal variants.
type LiteralKind int

// Literal kinds.
const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
	LitRegex
	LitColor
)

// String returns the kind name.
func (k LiteralKind) String() string {
	switch k {
	case LitString:
		return "string"
	case LitNumber:
		return "number"
	case LitBool:
		return "bool"
	case LitRegex:
		return "regex"
	case LitColor:
		return "color"
	default:
		return "unknown"
	}
}

// Literal is a typed constant operand.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Num   float64
	Bool  bool
	Re    *regexp.Regexp
	Color Color
}

func (*Path) operandNode()    {}
func (*Literal) operandNode() {}
