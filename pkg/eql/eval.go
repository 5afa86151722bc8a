package eql

import (
	"strconv"
	"strings"
)

// Binding gives the evaluator access to one candidate's structure and
// metadata. Field performs structural traversal (re-resolving a child
// element relative to the candidate); Text, Attribute, and Style read
// metadata from the node the walk has reached.
//
// Any error returned by a Binding method means "no match for this
// candidate": a child that does not resolve for one candidate disqualifies
// that candidate without failing the whole query.
type Binding interface {
	Field(name string) (Binding, error)
	Text() (string, error)
	Attribute(name string) (string, error)
	Style(name string) (string, error)
}

func nsName(ns Namespace) string {
	switch ns {
	case NSAttribute:
		return "attribute"
	case NSStyle:
		return "style"
	default:
		return ""
	}
}

// Eval evaluates a type-checked expression against one candidate.
func Eval(e Expr, b Binding) bool {
	switch n := e.(type) {
	case *And:
		return Eval(n.L, b) && Eval(n.R, b)
	case *Or:
		return Eval(n.L, b) || Eval(n.R, b)
	case *Comparison:
		return evalComparison(n, b)
	default:
		return false
	}
}

// First returns the index of the first candidate (in collection order) the
// expression evaluates true for, or -1 when no candidate matches.
func First(e Expr, candidates []Binding) int {
	for i, b := range candidates {
		if Eval(e, b) {
			return i
		}
	}
	return -1
}

func evalComparison(c *Comparison, b Binding) bool {
	path, _ := c.L.(*Path)
	litOnLeft := false
	if path == nil {
		path = c.R.(*Path)
		litOnLeft = true
	}
	lit := c.L
	if !litOnLeft {
		lit = c.R
	}

	value, ok := pathValue(path, b)
	if !ok {
		return false
	}
	return compare(c.Op, lit.(*Literal), value, litOnLeft)
}

// pathValue walks the path against the candidate and returns the final
// string value. The reserved final segment "text" and the namespaced
// segments read metadata; a final structural segment resolves the child and
// reads its text.
func pathValue(p *Path, b Binding) (string, bool) {
	cur := b
	for i, seg := range p.Segments {
		last := i == len(p.Segments)-1
		if !last {
			child, err := cur.Field(seg.Name)
			if err != nil {
				return "", false
			}
			cur = child
			continue
		}
		switch {
		case seg.NS == NSAttribute:
			v, err := cur.Attribute(seg.Name)
			return v, err == nil
		case seg.NS == NSStyle:
			v, err := cur.Style(seg.Name)
			return v, err == nil
		case seg.Name == "text":
			v, err := cur.Text()
			return v, err == nil
		default:
			child, err := cur.Field(seg.Name)
			if err != nil {
				return "", false
			}
			v, err := child.Text()
			return v, err == nil
		}
	}
	return "", false
}

// compare applies type-directed semantics: the literal kind decides how the
// runtime string value is interpreted. A value that cannot be parsed into
// the literal's domain is a per-candidate mismatch, not a query failure.
func compare(op Op, lit *Literal, value string, litOnLeft bool) bool {
	switch lit.Kind {
	case LitString:
		return compareOrdered(op, strings.Compare(orient(litOnLeft, lit.Str, value)))
	case LitNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		a, b := lit.Num, n
		if !litOnLeft {
			a, b = n, lit.Num
		}
		switch {
		case a < b:
			return compareOrdered(op, -1)
		case a > b:
			return compareOrdered(op, 1)
		default:
			return compareOrdered(op, 0)
		}
	case LitBool:
		v, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		if op == OpEq {
			return v == lit.Bool
		}
		return v != lit.Bool
	case LitRegex:
		match := lit.Re.MatchString(value)
		if op == OpNe {
			return !match
		}
		return match
	case LitColor:
		c, err := ParseColor(value)
		if err != nil {
			return false
		}
		switch op {
		case OpApprox:
			return c.Approx(lit.Color)
		case OpNe:
			return c != lit.Color
		default:
			return c == lit.Color
		}
	default:
		return false
	}
}

// orient returns the operands in source order for ordered comparison.
func orient(litOnLeft bool, lit, value string) (string, string) {
	if litOnLeft {
		return lit, value
	}
	return value, lit
}

func compareOrdered(op Op, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGe:
		return cmp >= 0
	case OpLe:
		return cmp <= 0
	default:
		return false
	}
}
