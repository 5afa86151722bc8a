// Package slot decides what concrete wrapper type a position in a
// structural collection (table cells, tab panels) materializes as.
//
// A policy is an ordered rule list evaluated front to back with the last
// matching rule winning. The layering model lets authors write "all cells
// are X, except the last which is Y" as two rules instead of per-position
// conditionals.
package slot

import (
	"github.com/devicelab-dev/locus/pkg/eql"
)

// Target names the wrapper type a slot materializes as and constructs it
// from the slot's resolved element. The element argument and result are
// opaque to this package.
type Target struct {
	Name string
	New  func(element interface{}) interface{}
}

// DefaultTarget is the plain-element materialization used when no rule
// matches. Its constructor returns the element unchanged.
var DefaultTarget = Target{
	Name: "element",
	New:  func(element interface{}) interface{} { return element },
}

type selectorKind int

const (
	selIndex selectorKind = iota
	selAll
	selFirst
	selLast
	selKey
	selExpr
)

// Rule maps a position selector to a materialization target.
type Rule struct {
	kind   selectorKind
	index  int
	key    string
	expr   eql.Expr
	target Target
}

// AtIndex matches one position. Negative indices count from the end and are
// resolved against the collection length at resolution time, not a cached
// length.
func AtIndex(index int, target Target) Rule {
	return Rule{kind: selIndex, index: index, target: target}
}

// All matches every position.
func All(target Target) Rule {
	return Rule{kind: selAll, target: target}
}

// First matches position 0.
func First(target Target) Rule {
	return Rule{kind: selFirst, target: target}
}

// Last matches the final position of the current collection.
func Last(target Target) Rule {
	return Rule{kind: selLast, target: target}
}

// ForKey matches a slot whose caller-supplied key (derived externally from
// header or label text) equals name.
func ForKey(name string, target Target) Rule {
	return Rule{kind: selKey, key: name, target: target}
}

// When matches a slot whose resolved node satisfies the EQL expression.
// The source is parsed eagerly so authoring errors surface at declaration.
func When(src string, target Target) (Rule, error) {
	expr, err := eql.Parse(src)
	if err != nil {
		return Rule{}, err
	}
	return Rule{kind: selExpr, expr: expr, target: target}, nil
}

func (r Rule) matches(index, length int, key string, node eql.Binding) bool {
	switch r.kind {
	case selIndex:
		i := r.index
		if i < 0 {
			i += length
		}
		return index == i
	case selAll:
		return true
	case selFirst:
		return index == 0
	case selLast:
		return index == length-1
	case selKey:
		return key != "" && key == r.key
	case selExpr:
		return node != nil && eql.Eval(r.expr, node)
	default:
		return false
	}
}

// Policy is an ordered, last-match-wins rule list.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from rules in declaration order.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Resolve picks the materialization target for one slot. Every rule is
// consulted in order and the last match wins; no match yields DefaultTarget.
func (p *Policy) Resolve(index, length int, key string, node eql.Binding) Target {
	target := DefaultTarget
	if p == nil {
		return target
	}
	for _, r := range p.rules {
		if r.matches(index, length, key, node) {
			target = r.target
		}
	}
	return target
}

// Cache reuses materialized wrapper instances per position until an
// explicit refresh. A structural change invalidates slot-to-index bindings,
// since positions may now refer to different underlying nodes.
type Cache struct {
	entries map[int]interface{}
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[int]interface{})}
}

// Get returns the cached wrapper for a position.
func (c *Cache) Get(index int) (interface{}, bool) {
	w, ok := c.entries[index]
	return w, ok
}

// Put stores the wrapper for a position.
func (c *Cache) Put(index int, wrapper interface{}) {
	c.entries[index] = wrapper
}

// Refresh drops every cached wrapper.
func (c *Cache) Refresh() {
	c.entries = make(map[int]interface{})
}
