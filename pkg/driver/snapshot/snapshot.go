// Package snapshot implements a read-only backend over a captured UI
// hierarchy dump. The document is a JSON tree of nodes with attributes,
// styles, iframe content and webview contexts, the shape produced by the
// hierarchy capture tooling. It resolves and reads like a live backend but
// never mutates, which makes it the backend behind offline inspection
// commands.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/devicelab-dev/locus/pkg/core"
)

// node is a reference into the dump, addressed by its gjson path.
type node struct {
	path string
}

func (n node) Ref() string { return n.path }

type frameHandle struct {
	prev string
}

func (h frameHandle) Ref() string { return "frame:" + h.prev }

// Driver is a core.Driver over a parsed hierarchy dump.
type Driver struct {
	doc  gjson.Result
	name string

	current   string
	inWebView bool
	savedRoot string
}

// New parses a hierarchy dump. The document must carry a root node; window
// size, backend name and webview contexts are optional.
func New(data []byte) (*Driver, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("snapshot: invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.Get("root").Exists() {
		return nil, fmt.Errorf("snapshot: document has no root node")
	}
	name := doc.Get("backend").String()
	if name == "" {
		name = "snapshot"
	}
	return &Driver{doc: doc, name: name, current: "root"}, nil
}

// Name implements core.Driver.
func (d *Driver) Name() string { return d.name }

// Supports implements core.Driver. XPath and predicate strategies need a
// live DOM engine, which a dump does not have.
func (d *Driver) Supports(s core.Strategy) bool {
	switch s {
	case core.StrategyCSS, core.StrategyID, core.StrategyText, core.StrategyAccessibilityID:
		return true
	}
	return false
}

// Find implements core.Driver. CSS support covers the dump-resolvable
// subset: #id, .class and bare tag selectors.
func (d *Driver) Find(scope core.NodeRef, sel core.ConcreteSelector) ([]core.NodeRef, error) {
	start := d.current
	if scope != nil {
		n, ok := scope.(node)
		if !ok {
			return nil, fmt.Errorf("snapshot: foreign scope node %q", scope.Ref())
		}
		if !d.doc.Get(n.path).Exists() {
			return nil, fmt.Errorf("snapshot: scope node %q not in document", n.path)
		}
		start = n.path
	}

	match, err := matcher(sel)
	if err != nil {
		return nil, err
	}

	var found []core.NodeRef
	d.walk(start, func(path string, res gjson.Result) {
		if match(res) {
			found = append(found, node{path: path})
		}
	})
	return found, nil
}

// walk visits the subtree at path in document order. Iframe content is a
// separate document reached through EnterFrame, so it is not descended into.
func (d *Driver) walk(path string, visit func(string, gjson.Result)) {
	res := d.doc.Get(path)
	if !res.Exists() {
		return
	}
	visit(path, res)
	children := res.Get("children")
	for i := range children.Array() {
		d.walk(fmt.Sprintf("%s.children.%d", path, i), visit)
	}
}

func matcher(sel core.ConcreteSelector) (func(gjson.Result) bool, error) {
	switch sel.Strategy {
	case core.StrategyID:
		return func(r gjson.Result) bool {
			return r.Get("id").String() == sel.Value
		}, nil
	case core.StrategyText:
		return func(r gjson.Result) bool {
			return r.Get("text").String() == sel.Value
		}, nil
	case core.StrategyAccessibilityID:
		return func(r gjson.Result) bool {
			return r.Get("accessibilityId").String() == sel.Value
		}, nil
	case core.StrategyCSS:
		return cssMatcher(sel.Value)
	}
	return nil, fmt.Errorf("snapshot: unsupported strategy %q", sel.Strategy)
}

func cssMatcher(css string) (func(gjson.Result) bool, error) {
	switch {
	case strings.HasPrefix(css, "#"):
		id := css[1:]
		return func(r gjson.Result) bool {
			return r.Get("id").String() == id
		}, nil
	case strings.HasPrefix(css, "."):
		class := css[1:]
		return func(r gjson.Result) bool {
			for _, c := range strings.Fields(r.Get(`attributes.class`).String()) {
				if c == class {
					return true
				}
			}
			return false
		}, nil
	case css != "" && !strings.ContainsAny(css, " >+~[]:"):
		return func(r gjson.Result) bool {
			return r.Get("tag").String() == css
		}, nil
	}
	return nil, core.NewExecutionError(core.ErrCategoryLocator, "unsupported_selector",
		fmt.Sprintf("snapshot: css selector %q beyond the dump-resolvable subset", css))
}

// IsStale implements core.Driver. A node is stale when its path no longer
// resolves, which for a static dump only happens for foreign references.
func (d *Driver) IsStale(ref core.NodeRef) bool {
	n, ok := ref.(node)
	if !ok {
		return true
	}
	return !d.doc.Get(n.path).Exists()
}

// Text implements core.Driver.
func (d *Driver) Text(ref core.NodeRef) (string, error) {
	res, err := d.resolve(ref)
	if err != nil {
		return "", err
	}
	return res.Get("text").String(), nil
}

// Attribute implements core.Driver.
func (d *Driver) Attribute(ref core.NodeRef, name string) (string, error) {
	res, err := d.resolve(ref)
	if err != nil {
		return "", err
	}
	return res.Get("attributes").Get(escapePath(name)).String(), nil
}

// Style implements core.Driver.
func (d *Driver) Style(ref core.NodeRef, name string) (string, error) {
	res, err := d.resolve(ref)
	if err != nil {
		return "", err
	}
	return res.Get("styles").Get(escapePath(name)).String(), nil
}

// Bounds implements core.Driver, reading the geometry captured under the
// node's "bounds" key. Nodes captured without geometry report zero bounds.
func (d *Driver) Bounds(ref core.NodeRef) (core.Bounds, error) {
	res, err := d.resolve(ref)
	if err != nil {
		return core.Bounds{}, err
	}
	b := res.Get("bounds")
	return core.Bounds{
		X:      int(b.Get("x").Int()),
		Y:      int(b.Get("y").Int()),
		Width:  int(b.Get("width").Int()),
		Height: int(b.Get("height").Int()),
	}, nil
}

// EnterFrame implements core.Driver. The node must carry captured frame
// content under its "frame" key.
func (d *Driver) EnterFrame(ref core.NodeRef) (core.FrameHandle, error) {
	n, ok := ref.(node)
	if !ok {
		return nil, fmt.Errorf("snapshot: foreign frame node %q", ref.Ref())
	}
	content := n.path + ".frame"
	if !d.doc.Get(content).Exists() {
		return nil, fmt.Errorf("snapshot: node %q has no captured frame content", n.path)
	}
	h := frameHandle{prev: d.current}
	d.current = content
	return h, nil
}

// ExitFrame implements core.Driver.
func (d *Driver) ExitFrame(h core.FrameHandle) error {
	fh, ok := h.(frameHandle)
	if !ok {
		return fmt.Errorf("snapshot: foreign frame handle %q", h.Ref())
	}
	d.current = fh.prev
	return nil
}

// VisibleWebViews implements core.Driver.
func (d *Driver) VisibleWebViews() ([]core.WebViewID, error) {
	var ids []core.WebViewID
	for _, wv := range d.doc.Get("webviews").Array() {
		if wv.Get("visible").Bool() {
			ids = append(ids, core.WebViewID(wv.Get("id").String()))
		}
	}
	return ids, nil
}

// SwitchWebView implements core.Driver.
func (d *Driver) SwitchWebView(id core.WebViewID) error {
	for i, wv := range d.doc.Get("webviews").Array() {
		if core.WebViewID(wv.Get("id").String()) == id {
			if !d.inWebView {
				d.savedRoot = d.current
				d.inWebView = true
			}
			d.current = fmt.Sprintf("webviews.%d.root", i)
			return nil
		}
	}
	return fmt.Errorf("snapshot: no webview %q in document", id)
}

// ExitWebView implements core.Driver.
func (d *Driver) ExitWebView() error {
	if !d.inWebView {
		return fmt.Errorf("snapshot: not inside a webview")
	}
	d.current = d.savedRoot
	d.inWebView = false
	return nil
}

// WindowSize implements core.Driver.
func (d *Driver) WindowSize() (int, int, error) {
	w := d.doc.Get("window.width")
	h := d.doc.Get("window.height")
	if !w.Exists() || !h.Exists() {
		return 0, 0, fmt.Errorf("snapshot: document has no window size")
	}
	return int(w.Int()), int(h.Int()), nil
}

func (d *Driver) resolve(ref core.NodeRef) (gjson.Result, error) {
	n, ok := ref.(node)
	if !ok {
		return gjson.Result{}, fmt.Errorf("snapshot: foreign node %q", ref.Ref())
	}
	res := d.doc.Get(n.path)
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("snapshot: node %q not in document", n.path)
	}
	return res, nil
}

func escapePath(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(name)
}
