package eql

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
)

// Parse builds and type-checks the AST for one query string. Malformed
// syntax returns ErrQuerySyntax; a comparison that can never be valid for
// its operand kinds (such as ~= against a plain string) returns ErrQueryType.
// Both are authoring errors and are never retried.
func Parse(src string) (Expr, error) {
	toks, err := (&lexer{src: src}).lex()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tkEOF {
		return nil, syntaxErr(p.peek().pos, "unexpected %q after expression", p.peek().text)
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tkEOF {
		p.pos++
	}
	return t
}

// parseOr handles the loosest binding: and-groups joined by 'or'.
func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkAnd {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &And{L: left, R: right}
	}
	return left, nil
}

// parseComparison parses `operand (op operand)+`. A single operator yields
// one Comparison; a chain like `10 <= count <= 100` expands to the AND of
// its adjacent pairs.
func (p *parser) parseComparison() (Expr, error) {
	operands := []Operand{}
	ops := []Op{}

	first, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	operands = append(operands, first)

	for p.peek().kind == tkOp {
		op := Op(p.next().text)
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		operands = append(operands, operand)
	}

	if len(ops) == 0 {
		return nil, syntaxErr(p.peek().pos, "expected a comparison operator")
	}

	var expr Expr
	for i, op := range ops {
		cmp := &Comparison{Op: op, L: operands[i], R: operands[i+1]}
		if err := checkComparison(cmp); err != nil {
			return nil, err
		}
		if expr == nil {
			expr = cmp
		} else {
			expr = &And{L: expr, R: cmp}
		}
	}
	return expr, nil
}

func (p *parser) parseOperand() (Operand, error) {
	t := p.peek()
	switch t.kind {
	case tkString:
		p.next()
		return &Literal{Kind: LitString, Str: t.text}, nil
	case tkNumber:
		p.next()
		return &Literal{Kind: LitNumber, Num: t.num}, nil
	case tkTrue:
		p.next()
		return &Literal{Kind: LitBool, Bool: true}, nil
	case tkFalse:
		p.next()
		return &Literal{Kind: LitBool, Bool: false}, nil
	case tkRegex:
		p.next()
		return &Literal{Kind: LitRegex, Re: t.re, Str: t.text}, nil
	case tkColor:
		p.next()
		return &Literal{Kind: LitColor, Color: t.color, Str: t.text}, nil
	case tkIdent:
		return p.parsePath()
	default:
		return nil, syntaxErr(t.pos, "expected a path or literal, got %q", t.text)
	}
}

func (p *parser) parsePath() (Operand, error) {
	var segs []Segment
	for {
		seg, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		if p.peek().kind != tkDot {
			break
		}
		p.next()
	}
	for i, seg := range segs {
		last := i == len(segs)-1
		// metadata reads produce strings, they cannot be traversed through.
		if !last && seg.NS != NSNone {
			return nil, syntaxErr(0, "%s:%s may only be the final path segment", nsName(seg.NS), seg.Name)
		}
		if !last && seg.NS == NSNone && seg.Name == "text" {
			return nil, syntaxErr(0, "\"text\" may only be the final path segment")
		}
	}
	return &Path{Segments: segs}, nil
}

func (p *parser) parseSegment() (Segment, error) {
	t := p.next()
	if t.kind != tkIdent {
		return Segment{}, syntaxErr(t.pos, "expected a path segment, got %q", t.text)
	}
	if p.peek().kind != tkColon {
		return Segment{NS: NSNone, Name: t.text}, nil
	}
	p.next() // ':'
	name := p.next()
	if name.kind != tkIdent {
		return Segment{}, syntaxErr(name.pos, "expected a name after %q:", t.text)
	}
	switch t.text {
	case "attribute":
		return Segment{NS: NSAttribute, Name: name.text}, nil
	case "style":
		return Segment{NS: NSStyle, Name: name.text}, nil
	default:
		return Segment{}, syntaxErr(t.pos, "unknown namespace %q (want attribute or style)", t.text)
	}
}

// checkComparison enforces the static shape rules: exactly one path and one
// literal per comparison, and an operator the literal kind admits.
func checkComparison(c *Comparison) error {
	_, lPath := c.L.(*Path)
	_, rPath := c.R.(*Path)
	if lPath == rPath {
		return syntaxErr(0, "a comparison must pair one path with one literal")
	}

	lit := c.L
	if lPath {
		lit = c.R
	}
	l := lit.(*Literal)

	ok := false
	switch l.Kind {
	case LitString:
		ok = c.Op != OpApprox
	case LitNumber:
		ok = c.Op != OpApprox
	case LitBool:
		ok = c.Op == OpEq || c.Op == OpNe
	case LitRegex:
		ok = c.Op == OpEq || c.Op == OpNe || c.Op == OpApprox
	case LitColor:
		ok = c.Op == OpEq || c.Op == OpNe || c.Op == OpApprox
	}
	if !ok {
		return core.ErrQueryType.WithMessage(
			fmt.Sprintf("operator %s is not valid for a %s literal", c.Op, l.Kind))
	}
	return nil
}
