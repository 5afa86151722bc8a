package eql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devicelab-dev/locus/pkg/core"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkIdent
	tkString
	tkNumber
	tkRegex
	tkColor
	tkOp
	tkDot
	tkColon
	tkAnd
	tkOr
	tkTrue
	tkFalse
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	re    *regexp.Regexp
	color Color
	pos   int
}

type lexer struct {
	src string
	pos int
}

func syntaxErr(pos int, format string, args ...interface{}) error {
	return core.ErrQuerySyntax.
		WithMessage(fmt.Sprintf(format, args...)).
		WithDetails(map[string]interface{}{"position": pos})
}

func (l *lexer) lex() ([]token, error) {
	var toks []token
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			toks = append(toks, token{kind: tkEOF, pos: l.pos})
			return toks, nil
		}
		start := l.pos
		c := l.src[l.pos]

		switch {
		case isIdentStart(c):
			word := l.ident()
			switch word {
			case "and":
				toks = append(toks, token{kind: tkAnd, text: word, pos: start})
			case "or":
				toks = append(toks, token{kind: tkOr, text: word, pos: start})
			case "true":
				toks = append(toks, token{kind: tkTrue, text: word, pos: start})
			case "false":
				toks = append(toks, token{kind: tkFalse, text: word, pos: start})
			case "rgb", "rgba":
				tok, err := l.rgbColor(word, start)
				if err != nil {
					return nil, err
				}
				toks = append(toks, tok)
			default:
				toks = append(toks, token{kind: tkIdent, text: word, pos: start})
			}

		case c >= '0' && c <= '9':
			tok, err := l.number(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)

		case c == '-':
			l.pos++
			if l.pos >= len(l.src) || l.src[l.pos] < '0' || l.src[l.pos] > '9' {
				return nil, syntaxErr(start, "'-' must start a number")
			}
			tok, err := l.number(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)

		case c == '"' || c == '\'':
			tok, err := l.quoted(c, start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)

		case c == '/':
			tok, err := l.regex(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)

		case c == '#':
			tok, err := l.hexColor(start)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)

		case c == '.':
			l.pos++
			toks = append(toks, token{kind: tkDot, text: ".", pos: start})

		case c == ':':
			l.pos++
			toks = append(toks, token{kind: tkColon, text: ":", pos: start})

		default:
			op, ok := l.operator()
			if !ok {
				return nil, syntaxErr(start, "unexpected character %q", string(c))
			}
			toks = append(toks, token{kind: tkOp, text: op, pos: start})
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func (l *lexer) ident() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) number(start int) (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.') {
		l.pos++
	}
	text := l.src[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, syntaxErr(start, "invalid number %q", text)
	}
	return token{kind: tkNumber, text: text, num: n, pos: start}, nil
}

func (l *lexer) quoted(quote byte, start int) (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tkString, text: sb.String(), pos: start}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.src) {
				return token{}, syntaxErr(start, "unterminated string")
			}
			esc := l.src[l.pos]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
			l.pos++
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, syntaxErr(start, "unterminated string")
}

func (l *lexer) regex(start int) (token, error) {
	l.pos++ // opening slash
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			sb.WriteByte(c)
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if c == '/' {
			l.pos++
			re, err := regexp.Compile(sb.String())
			if err != nil {
				return token{}, syntaxErr(start, "invalid regex /%s/: %v", sb.String(), err)
			}
			return token{kind: tkRegex, text: sb.String(), re: re, pos: start}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, syntaxErr(start, "unterminated regex")
}

func (l *lexer) hexColor(start int) (token, error) {
	l.pos++ // '#'
	for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	c, err := ParseColor(text)
	if err != nil {
		return token{}, syntaxErr(start, "invalid color %q", text)
	}
	return token{kind: tkColor, text: text, color: c, pos: start}, nil
}

func (l *lexer) rgbColor(fn string, start int) (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) || l.src[l.pos] != '(' {
		return token{}, syntaxErr(start, "%s must be followed by '('", fn)
	}
	end := strings.IndexByte(l.src[l.pos:], ')')
	if end < 0 {
		return token{}, syntaxErr(start, "unterminated %s(...)", fn)
	}
	text := fn + l.src[l.pos:l.pos+end+1]
	l.pos += end + 1
	c, err := ParseColor(text)
	if err != nil {
		return token{}, syntaxErr(start, "invalid color %q", text)
	}
	return token{kind: tkColor, text: text, color: c, pos: start}, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) operator() (string, bool) {
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "==", "!=", ">=", "<=", "~=":
		l.pos += 2
		return two, true
	}
	switch l.src[l.pos] {
	case '>', '<':
		op := string(l.src[l.pos])
		l.pos++
		return op, true
	}
	return "", false
}
