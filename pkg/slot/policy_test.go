package slot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/locus/pkg/eql"
)

var (
	targetA = Target{Name: "A", New: func(e interface{}) interface{} { return "A:" + e.(string) }}
	targetB = Target{Name: "B", New: func(e interface{}) interface{} { return "B:" + e.(string) }}
	targetC = Target{Name: "C", New: func(e interface{}) interface{} { return "C:" + e.(string) }}
)

func TestPolicy_LastMatchWins(t *testing.T) {
	// [(ALL, A), (-1, B)] over 4 slots: 0-2 are A, 3 is B.
	policy := NewPolicy(All(targetA), AtIndex(-1, targetB))

	for i := 0; i < 3; i++ {
		got := policy.Resolve(i, 4, "", nil)
		assert.Equal(t, "A", got.Name, "slot %d", i)
	}
	assert.Equal(t, "B", policy.Resolve(3, 4, "", nil).Name)
}

func TestPolicy_NegativeIndexUsesCurrentLength(t *testing.T) {
	policy := NewPolicy(All(targetA), AtIndex(-1, targetB))

	// the same rule list against a grown collection moves the override
	assert.Equal(t, "B", policy.Resolve(3, 4, "", nil).Name)
	assert.Equal(t, "A", policy.Resolve(3, 6, "", nil).Name)
	assert.Equal(t, "B", policy.Resolve(5, 6, "", nil).Name)
}

func TestPolicy_FirstAndLast(t *testing.T) {
	policy := NewPolicy(All(targetA), First(targetB), Last(targetC))

	assert.Equal(t, "B", policy.Resolve(0, 3, "", nil).Name)
	assert.Equal(t, "A", policy.Resolve(1, 3, "", nil).Name)
	assert.Equal(t, "C", policy.Resolve(2, 3, "", nil).Name)
}

func TestPolicy_KeyMatching(t *testing.T) {
	policy := NewPolicy(All(targetA), ForKey("actions", targetB))

	assert.Equal(t, "B", policy.Resolve(2, 5, "actions", nil).Name)
	assert.Equal(t, "A", policy.Resolve(2, 5, "name", nil).Name)
	// a key rule never matches when no key was supplied
	assert.Equal(t, "A", policy.Resolve(2, 5, "", nil).Name)
}

type textNode string

func (n textNode) Field(string) (eql.Binding, error) { return nil, fmt.Errorf("no children") }
func (n textNode) Text() (string, error)             { return string(n), nil }
func (n textNode) Attribute(string) (string, error)  { return "", fmt.Errorf("no attributes") }
func (n textNode) Style(string) (string, error)      { return "", fmt.Errorf("no styles") }

func TestPolicy_ExplicitExpression(t *testing.T) {
	rule, err := When(`text == "Total"`, targetB)
	require.NoError(t, err)
	policy := NewPolicy(All(targetA), rule)

	assert.Equal(t, "B", policy.Resolve(1, 3, "", textNode("Total")).Name)
	assert.Equal(t, "A", policy.Resolve(1, 3, "", textNode("Subtotal")).Name)
	// no node supplied: the expression rule cannot match
	assert.Equal(t, "A", policy.Resolve(1, 3, "", nil).Name)
}

func TestWhen_RejectsBadExpressions(t *testing.T) {
	_, err := When(`text ==`, targetA)
	assert.Error(t, err)

	_, err = When(`text ~= "plain"`, targetA)
	assert.Error(t, err)
}

func TestPolicy_NoMatchYieldsDefault(t *testing.T) {
	policy := NewPolicy(AtIndex(7, targetA))

	got := policy.Resolve(0, 3, "", nil)
	assert.Equal(t, DefaultTarget.Name, got.Name)
	assert.Equal(t, "x", got.New("x"), "default target materializes the element unchanged")
}

func TestPolicy_NilPolicyYieldsDefault(t *testing.T) {
	var policy *Policy
	assert.Equal(t, DefaultTarget.Name, policy.Resolve(0, 1, "", nil).Name)
}

func TestCache(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Get(0)
	assert.False(t, ok)

	cache.Put(0, "wrapper-0")
	cache.Put(2, "wrapper-2")

	w, ok := cache.Get(0)
	require.True(t, ok)
	assert.Equal(t, "wrapper-0", w)

	cache.Refresh()
	_, ok = cache.Get(0)
	assert.False(t, ok, "refresh drops slot-to-index bindings")
}
