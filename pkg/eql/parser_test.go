package eql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/locus/pkg/core"
)

func TestParse_SimpleComparison(t *testing.T) {
	expr, err := Parse(`text == "Sign in"`)
	require.NoError(t, err)

	cmp, ok := expr.(*Comparison)
	require.True(t, ok)
	assert.Equal(t, OpEq, cmp.Op)

	path, ok := cmp.L.(*Path)
	require.True(t, ok)
	require.Len(t, path.Segments, 1)
	assert.Equal(t, "text", path.Segments[0].Name)

	lit, ok := cmp.R.(*Literal)
	require.True(t, ok)
	assert.Equal(t, LitString, lit.Kind)
	assert.Equal(t, "Sign in", lit.Str)
}

func TestParse_LiteralKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind LiteralKind
	}{
		{"string", `text == "x"`, LitString},
		{"single quoted", `text == 'x'`, LitString},
		{"number", `attribute:value > 10`, LitNumber},
		{"negative number", `attribute:value > -1.5`, LitNumber},
		{"bool", `attribute:checked == true`, LitBool},
		{"regex", `text ~= /^Item \d+$/`, LitRegex},
		{"hex color", `style:color ~= #ff0000`, LitColor},
		{"short hex color", `style:color ~= #f00`, LitColor},
		{"rgb color", `style:color ~= rgb(255, 0, 0)`, LitColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.src)
			require.NoError(t, err)
			cmp := expr.(*Comparison)
			lit, ok := cmp.R.(*Literal)
			require.True(t, ok)
			assert.Equal(t, tt.kind, lit.Kind)
		})
	}
}

func TestParse_Paths(t *testing.T) {
	expr, err := Parse(`row.status.attribute:data-state == "busy"`)
	require.NoError(t, err)

	path := expr.(*Comparison).L.(*Path)
	require.Len(t, path.Segments, 3)
	assert.Equal(t, Segment{NS: NSNone, Name: "row"}, path.Segments[0])
	assert.Equal(t, Segment{NS: NSNone, Name: "status"}, path.Segments[1])
	assert.Equal(t, Segment{NS: NSAttribute, Name: "data-state"}, path.Segments[2])
}

func TestParse_AndBindsTighterThanOr(t *testing.T) {
	expr, err := Parse(`a == "1" or b == "2" and c == "3"`)
	require.NoError(t, err)

	or, ok := expr.(*Or)
	require.True(t, ok, "top node must be the or")
	_, ok = or.L.(*Comparison)
	assert.True(t, ok)
	_, ok = or.R.(*And)
	assert.True(t, ok, "and group must hang under the or")
}

func TestParse_ChainedComparisonExpandsToAnd(t *testing.T) {
	expr, err := Parse(`10 <= count <= 100`)
	require.NoError(t, err)

	and, ok := expr.(*And)
	require.True(t, ok)

	left := and.L.(*Comparison)
	right := and.R.(*Comparison)
	assert.Equal(t, OpLe, left.Op)
	assert.Equal(t, OpLe, right.Op)
	// the shared operand appears on both sides
	assert.IsType(t, &Literal{}, left.L)
	assert.IsType(t, &Path{}, left.R)
	assert.IsType(t, &Path{}, right.L)
	assert.IsType(t, &Literal{}, right.R)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"no operator", `text`},
		{"dangling op", `text ==`},
		{"unterminated string", `text == "x`},
		{"unterminated regex", `text ~= /abc`},
		{"bad namespace", `meta:thing == "x"`},
		{"text mid-path", `text.child == "x"`},
		{"attribute mid-path", `attribute:id.child == "x"`},
		{"two paths", `a == b`},
		{"two literals", `1 == 2`},
		{"trailing garbage", `text == "x" text`},
		{"lone and", `and`},
		{"bad char", `text == $x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrQuerySyntax), "got %v", err)
		})
	}
}

func TestParse_TypeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"approx string", `text ~= "x"`},
		{"approx number", `count ~= 10`},
		{"approx bool", `checked ~= true`},
		{"ordering on bool", `checked > true`},
		{"ordering on regex", `text > /x/`},
		{"ordering on color", `style:color < #fff`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrQueryType), "got %v", err)
		})
	}
}

func TestParse_ApproxAllowedForRegexAndColor(t *testing.T) {
	for _, src := range []string{
		`text ~= /pending|busy/`,
		`style:background-color ~= #336699`,
		`style:background-color ~= rgba(51, 102, 153, 0.5)`,
	} {
		_, err := Parse(src)
		assert.NoError(t, err, src)
	}
}
