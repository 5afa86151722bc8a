// Package mock provides an in-memory driver adapter for testing without a
// real backend. The node tree, selector matches, staleness, and switch
// failures are all scriptable from tests.
package mock

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
)

// Node is an in-memory UI node.
type Node struct {
	ID         string
	Text       string
	Attributes map[string]string
	Styles     map[string]string
	Bounds     core.Bounds
	Children   []*Node

	// ContentRoot is the document root reachable through EnterFrame, for
	// nodes that represent iframes.
	ContentRoot *Node

	// matches holds the selector strings ("css=#login") this node answers to.
	matches map[string]bool

	stale bool
}

// NewNode creates a node with the given diagnostic id.
func NewNode(id string) *Node {
	return &Node{
		ID:         id,
		Attributes: map[string]string{},
		Styles:     map[string]string{},
		matches:    map[string]bool{},
	}
}

// Ref implements core.NodeRef.
func (n *Node) Ref() string { return n.ID }

// MatchedBy registers selectors this node is found by, e.g. "css=#login".
func (n *Node) MatchedBy(selectors ...string) *Node {
	for _, s := range selectors {
		n.matches[s] = true
	}
	return n
}

// WithText sets the node text.
func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

// WithAttr sets an attribute.
func (n *Node) WithAttr(name, value string) *Node {
	n.Attributes[name] = value
	return n
}

// WithStyle sets a computed style property.
func (n *Node) WithStyle(name, value string) *Node {
	n.Styles[name] = value
	return n
}

// WithBounds sets the node's position and size.
func (n *Node) WithBounds(x, y, width, height int) *Node {
	n.Bounds = core.Bounds{X: x, Y: y, Width: width, Height: height}
	return n
}

// Add appends children and returns the node.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Invalidate marks the node stale, simulating a re-render that detached it.
func (n *Node) Invalidate() { n.stale = true }

// frameHandle remembers the document that was active before EnterFrame.
type frameHandle struct {
	frame *Node
	prev  *Node
}

func (h *frameHandle) Ref() string { return "frame:" + h.frame.ID }

// Driver is a scriptable implementation of core.Driver.
type Driver struct {
	name      string
	supported map[core.Strategy]bool

	root    *Node
	current *Node

	width, height int

	webviews  map[core.WebViewID]*Node
	visible   []core.WebViewID
	inWebView bool
	nativeDoc *Node

	// FailFinds makes the next N Find calls return no matches.
	FailFinds int
	// FindErr, when set, is returned by every Find call.
	FindErr error
	// EnterFrameErr, when set, is returned by EnterFrame.
	EnterFrameErr error
	// SwitchWebViewErr, when set, is returned by SwitchWebView.
	SwitchWebViewErr error

	// Finds records every selector Find was called with, in order.
	Finds []string
	// EnterCount and ExitCount track frame enter/exit symmetry.
	EnterCount int
	ExitCount  int
}

// New creates a mock driver rooted at the given document.
func New(root *Node) *Driver {
	return &Driver{
		name: "mock",
		supported: map[core.Strategy]bool{
			core.StrategyCSS:             true,
			core.StrategyXPath:           true,
			core.StrategyID:              true,
			core.StrategyText:            true,
			core.StrategyAccessibilityID: true,
		},
		root:    root,
		current: root,
		width:   1280,
		height:  800,
	}
}

// SetName overrides the backend identifier.
func (d *Driver) SetName(name string) { d.name = name }

// SetSupported replaces the supported strategy set.
func (d *Driver) SetSupported(strategies ...core.Strategy) {
	d.supported = make(map[core.Strategy]bool, len(strategies))
	for _, s := range strategies {
		d.supported[s] = true
	}
}

// SetWindowSize sets the reported window size.
func (d *Driver) SetWindowSize(w, h int) { d.width, d.height = w, h }

// SetWebViews declares the webview contexts and which of them are visible.
func (d *Driver) SetWebViews(views map[core.WebViewID]*Node, visible ...core.WebViewID) {
	d.webviews = views
	d.visible = visible
}

// CurrentDoc returns the active document root, for symmetry assertions.
func (d *Driver) CurrentDoc() *Node { return d.current }

// Name implements core.Driver.
func (d *Driver) Name() string { return d.name }

// Supports implements core.Driver.
func (d *Driver) Supports(s core.Strategy) bool { return d.supported[s] }

// Find implements core.Driver.
func (d *Driver) Find(scope core.NodeRef, sel core.ConcreteSelector) ([]core.NodeRef, error) {
	d.Finds = append(d.Finds, sel.String())

	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if d.FailFinds > 0 {
		d.FailFinds--
		return nil, nil
	}

	start := d.current
	if scope != nil {
		node, ok := scope.(*Node)
		if !ok {
			return nil, fmt.Errorf("mock: foreign scope node %q", scope.Ref())
		}
		if node.stale {
			return nil, fmt.Errorf("mock: scope node %q is stale", node.ID)
		}
		start = node
	}

	var found []core.NodeRef
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.matches[sel.String()] && !n.stale {
			found = append(found, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(start)
	return found, nil
}

// IsStale implements core.Driver.
func (d *Driver) IsStale(node core.NodeRef) bool {
	n, ok := node.(*Node)
	return !ok || n.stale
}

// Text implements core.Driver.
func (d *Driver) Text(node core.NodeRef) (string, error) {
	n, err := d.live(node)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

// Attribute implements core.Driver.
func (d *Driver) Attribute(node core.NodeRef, name string) (string, error) {
	n, err := d.live(node)
	if err != nil {
		return "", err
	}
	return n.Attributes[name], nil
}

// Style implements core.Driver.
func (d *Driver) Style(node core.NodeRef, name string) (string, error) {
	n, err := d.live(node)
	if err != nil {
		return "", err
	}
	return n.Styles[name], nil
}

// Bounds implements core.Driver.
func (d *Driver) Bounds(node core.NodeRef) (core.Bounds, error) {
	n, err := d.live(node)
	if err != nil {
		return core.Bounds{}, err
	}
	return n.Bounds, nil
}

// EnterFrame implements core.Driver.
func (d *Driver) EnterFrame(node core.NodeRef) (core.FrameHandle, error) {
	if d.EnterFrameErr != nil {
		return nil, d.EnterFrameErr
	}
	n, err := d.live(node)
	if err != nil {
		return nil, err
	}
	if n.ContentRoot == nil {
		return nil, fmt.Errorf("mock: node %q is not a frame", n.ID)
	}
	h := &frameHandle{frame: n, prev: d.current}
	d.current = n.ContentRoot
	d.EnterCount++
	return h, nil
}

// ExitFrame implements core.Driver.
func (d *Driver) ExitFrame(h core.FrameHandle) error {
	fh, ok := h.(*frameHandle)
	if !ok {
		return fmt.Errorf("mock: foreign frame handle %q", h.Ref())
	}
	d.current = fh.prev
	d.ExitCount++
	return nil
}

// VisibleWebViews implements core.Driver.
func (d *Driver) VisibleWebViews() ([]core.WebViewID, error) {
	return d.visible, nil
}

// SwitchWebView implements core.Driver.
func (d *Driver) SwitchWebView(id core.WebViewID) error {
	if d.SwitchWebViewErr != nil {
		return d.SwitchWebViewErr
	}
	view, ok := d.webviews[id]
	if !ok {
		return fmt.Errorf("mock: no webview %q", id)
	}
	if !d.inWebView {
		d.nativeDoc = d.current
	}
	d.inWebView = true
	d.current = view
	return nil
}

// ExitWebView implements core.Driver.
func (d *Driver) ExitWebView() error {
	if !d.inWebView {
		return fmt.Errorf("mock: not inside a webview")
	}
	d.inWebView = false
	d.current = d.nativeDoc
	return nil
}

// WindowSize implements core.Driver.
func (d *Driver) WindowSize() (int, int, error) {
	return d.width, d.height, nil
}

func (d *Driver) live(node core.NodeRef) (*Node, error) {
	n, ok := node.(*Node)
	if !ok {
		return nil, fmt.Errorf("mock: foreign node %q", node.Ref())
	}
	if n.stale {
		return nil, fmt.Errorf("mock: stale element reference %q", n.ID)
	}
	return n, nil
}
