package locator

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/locus/pkg/core"
)

// Kind discriminates the variants of a Tree node.
type Kind int

// Tree node kinds. A tree is either a single concrete selector (leaf) or a
// mapping keyed by exactly one dimension whose values are themselves trees.
const (
	KindLeaf Kind = iota
	KindPlatform
	KindOS
	KindViewport
	KindBackend
)

// String returns the dimension name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindPlatform:
		return "platform"
	case KindOS:
		return "os"
	case KindViewport:
		return "viewport"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// rank orders dimensions for nesting validation: a child layer must be a
// strictly deeper dimension than its parent.
func (k Kind) rank() int {
	switch k {
	case KindPlatform:
		return 1
	case KindOS:
		return 2
	case KindViewport:
		return 3
	case KindBackend:
		return 4
	default: // leaf terminates any path
		return 5
	}
}

// Tree is the declarative, dimension-keyed description of how to find an
// element. Pure data: construction via the builder functions or YAML, no
// behavior beyond validation. Resolution lives in Resolve.
type Tree struct {
	kind     Kind
	leaf     core.ConcreteSelector
	branches map[string]*Tree
	def      *Tree // viewport default branch, nil elsewhere
}

// Leaf builds a platform-agnostic single-selector tree.
func Leaf(strategy core.Strategy, value string) *Tree {
	return &Tree{kind: KindLeaf, leaf: core.ConcreteSelector{Strategy: strategy, Value: value}}
}

// CSS builds a css-strategy leaf.
func CSS(value string) *Tree { return Leaf(core.StrategyCSS, value) }

// XPath builds an xpath-strategy leaf.
func XPath(value string) *Tree { return Leaf(core.StrategyXPath, value) }

// ID builds an id-strategy leaf.
func ID(value string) *Tree { return Leaf(core.StrategyID, value) }

// Text builds a text-strategy leaf.
func Text(value string) *Tree { return Leaf(core.StrategyText, value) }

// AccessibilityID builds an accessibility-id-strategy leaf.
func AccessibilityID(value string) *Tree { return Leaf(core.StrategyAccessibilityID, value) }

// ByPlatform builds a platform-keyed tree. There is no default branch:
// a missing platform key is a resolution error.
func ByPlatform(branches map[Platform]*Tree) *Tree {
	t := &Tree{kind: KindPlatform, branches: make(map[string]*Tree, len(branches))}
	for k, v := range branches {
		t.branches[string(k)] = v
	}
	return t
}

// ByOS builds an OS-keyed tree. Declared branches are exhaustive: there is
// no default, so a missing OS key is a resolution error.
func ByOS(branches map[OS]*Tree) *Tree {
	t := &Tree{kind: KindOS, branches: make(map[string]*Tree, len(branches))}
	for k, v := range branches {
		t.branches[string(k)] = v
	}
	return t
}

// ByViewport builds a viewport-keyed tree. The ViewportDefault key, if
// present, covers every bucket without an exact branch. Viewport is the only
// dimension that admits a default.
func ByViewport(branches map[Viewport]*Tree) *Tree {
	t := &Tree{kind: KindViewport, branches: make(map[string]*Tree, len(branches))}
	for k, v := range branches {
		if k == ViewportDefault {
			t.def = v
			continue
		}
		t.branches[string(k)] = v
	}
	return t
}

// ByBackend builds an automation-backend-keyed tree, keyed by Driver.Name.
func ByBackend(branches map[string]*Tree) *Tree {
	t := &Tree{kind: KindBackend, branches: make(map[string]*Tree, len(branches))}
	for k, v := range branches {
		t.branches[k] = v
	}
	return t
}

// Kind returns the node's variant.
func (t *Tree) Kind() Kind { return t.kind }

// Selector returns the concrete selector of a leaf node.
func (t *Tree) Selector() (core.ConcreteSelector, bool) {
	if t.kind != KindLeaf {
		return core.ConcreteSelector{}, false
	}
	return t.leaf, true
}

// Branch returns the subtree for a dimension key.
func (t *Tree) Branch(key string) (*Tree, bool) {
	sub, ok := t.branches[key]
	return sub, ok
}

// Default returns the viewport default branch, or nil.
func (t *Tree) Default() *Tree { return t.def }

// BranchKeys returns the declared branch keys in sorted order.
func (t *Tree) BranchKeys() []string {
	keys := make([]string, 0, len(t.branches))
	for k := range t.branches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if t.def != nil {
		keys = append(keys, string(ViewportDefault))
	}
	return keys
}

// String returns a short description for diagnostics.
func (t *Tree) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.kind == KindLeaf {
		return t.leaf.String()
	}
	return fmt.Sprintf("by-%s%v", t.kind, t.BranchKeys())
}

// Validate checks structural invariants: non-empty leaves, known dimension
// keys, and strictly deepening dimension order along every path (platform >
// os > viewport > backend). Returns ErrIncorrectLocator on violation.
func (t *Tree) Validate() error {
	return t.validate(0)
}

func (t *Tree) validate(parentRank int) error {
	if t == nil {
		return core.ErrIncorrectLocator.WithMessage("locator tree branch is nil")
	}
	if t.kind.rank() <= parentRank {
		return core.ErrIncorrectLocator.WithMessage(
			fmt.Sprintf("dimension %q may not nest under a deeper or equal dimension", t.kind))
	}
	if t.kind == KindLeaf {
		if t.leaf.Strategy == "" || t.leaf.Value == "" {
			return core.ErrIncorrectLocator.WithMessage("leaf selector has empty strategy or value")
		}
		return nil
	}
	if len(t.branches) == 0 && t.def == nil {
		return core.ErrIncorrectLocator.WithMessage(
			fmt.Sprintf("dimension %q has no branches", t.kind))
	}
	for key, sub := range t.branches {
		if err := validKey(t.kind, key); err != nil {
			return err
		}
		if err := sub.validate(t.kind.rank()); err != nil {
			return err
		}
	}
	if t.def != nil {
		if err := t.def.validate(t.kind.rank()); err != nil {
			return err
		}
	}
	return nil
}

func validKey(kind Kind, key string) error {
	bad := func() error {
		return core.ErrIncorrectLocator.WithMessage(
			fmt.Sprintf("unknown %s key %q", kind, key))
	}
	switch kind {
	case KindPlatform:
		switch Platform(key) {
		case PlatformWeb, PlatformMobile, PlatformDesktop:
			return nil
		}
		return bad()
	case KindOS:
		switch OS(key) {
		case OSWindows, OSDarwin, OSLinux, OSAndroid, OSIOS:
			return nil
		}
		return bad()
	case KindViewport:
		for _, v := range Viewports {
			if Viewport(key) == v {
				return nil
			}
		}
		return bad()
	default: // backend tags are free-form (they match Driver.Name)
		return nil
	}
}

// knownStrategies is the set of strategy keys accepted in the YAML shorthand
// form (`css: "#login"`).
var knownStrategies = map[string]core.Strategy{
	"css":              core.StrategyCSS,
	"xpath":            core.StrategyXPath,
	"id":               core.StrategyID,
	"text":             core.StrategyText,
	"accessibility-id": core.StrategyAccessibilityID,
	"predicate":        core.StrategyPredicate,
	"uiautomator":      core.StrategyUIAutomator,
}

// dimension keys accepted in the YAML form.
var dimensionKinds = map[string]Kind{
	"platform": KindPlatform,
	"os":       KindOS,
	"viewport": KindViewport,
	"backend":  KindBackend,
}

// UnmarshalYAML decodes the YAML form of a locator tree:
//
//	css: "#login"                      # leaf shorthand
//	strategy: xpath                    # leaf, explicit
//	value: "//button"
//	platform:                          # dimension node
//	  web: {css: "#login"}
//	  mobile:
//	    os:
//	      Android: {id: "login"}
//	      iOS: {accessibility-id: "login"}
func (t *Tree) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("locator: expected a mapping, got %s", yamlKindName(node.Kind))
	}

	keys := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys[node.Content[i].Value] = node.Content[i+1]
	}

	// Explicit leaf form.
	if _, ok := keys["strategy"]; ok {
		var leaf core.ConcreteSelector
		if err := node.Decode(&leaf); err != nil {
			return err
		}
		t.kind = KindLeaf
		t.leaf = leaf
		return nil
	}

	if len(keys) != 1 {
		return fmt.Errorf("locator: a tree node must have exactly one strategy or dimension key, got %d", len(keys))
	}

	for key, val := range keys {
		if strategy, ok := knownStrategies[key]; ok {
			t.kind = KindLeaf
			t.leaf = core.ConcreteSelector{Strategy: strategy, Value: val.Value}
			return nil
		}
		kind, ok := dimensionKinds[key]
		if !ok {
			return fmt.Errorf("locator: unknown key %q (not a strategy or dimension)", key)
		}
		var branches map[string]*Tree
		if err := val.Decode(&branches); err != nil {
			return err
		}
		t.kind = kind
		t.branches = branches
		if kind == KindViewport {
			if def, ok := branches[string(ViewportDefault)]; ok {
				t.def = def
				delete(branches, string(ViewportDefault))
			}
		}
		return nil
	}
	return nil // unreachable
}

// MarshalYAML encodes the tree back into its YAML form.
func (t *Tree) MarshalYAML() (interface{}, error) {
	if t.kind == KindLeaf {
		return map[string]string{"strategy": string(t.leaf.Strategy), "value": t.leaf.Value}, nil
	}
	branches := make(map[string]*Tree, len(t.branches)+1)
	for k, v := range t.branches {
		branches[k] = v
	}
	if t.def != nil {
		branches[string(ViewportDefault)] = t.def
	}
	return map[string]map[string]*Tree{t.kind.String(): branches}, nil
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
