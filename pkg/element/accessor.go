// Package element exposes the author-facing surface of the core: accessors
// declared from locator trees, live element handles kept valid across UI
// mutations, and collections with EQL queries and slot materialization.
package element

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/logger"
	"github.com/devicelab-dev/locus/pkg/retry"
	"github.com/devicelab-dev/locus/pkg/session"
)

// Accessor is a declared element: a locator tree bound to a session, an
// optional parent (its resolution scope), and the context frames it lives
// inside. Resolution is lazy; the accessor owns at most one live handle and
// replaces its node on recovery so callers keep a stable identity.
type Accessor struct {
	sess   *session.Session
	engine *retry.Engine
	tree   *locator.Tree
	name   string

	parent *Accessor
	frames []session.Frame // frames this accessor adds below its parent's

	children map[string]Child

	handle *Handle
}

// Child declares a named sub-element used by EQL structural traversal.
type Child struct {
	Tree     *locator.Tree
	Children map[string]Child
}

// Option configures an accessor at declaration time.
type Option func(*Accessor)

// WithName sets a diagnostic name.
func WithName(name string) Option {
	return func(a *Accessor) { a.name = name }
}

// ChildOf scopes resolution to a parent accessor: the element is searched
// under the parent's node, and the parent joins the scope chain used for
// stale recovery.
func ChildOf(parent *Accessor) Option {
	return func(a *Accessor) { a.parent = parent }
}

// InsideFrame declares that the element lives inside the iframe located by
// the given accessor. May be given more than once for nested iframes,
// outermost first.
func InsideFrame(frame *Accessor) Option {
	return func(a *Accessor) { a.frames = append(a.frames, session.IFrame(frame)) }
}

// InsideWebView declares that the element lives inside the currently
// visible webview.
func InsideWebView() Option {
	return func(a *Accessor) { a.frames = append(a.frames, session.WebView()) }
}

// WithChildren declares the named sub-elements available to EQL paths.
func WithChildren(children map[string]Child) Option {
	return func(a *Accessor) { a.children = children }
}

// Declare validates the tree and binds it to the session. This is the
// declaration-layer entry point: page-object sugar reduces to calls of this
// function.
func Declare(sess *session.Session, tree *locator.Tree, opts ...Option) (*Accessor, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	a := &Accessor{
		sess:   sess,
		engine: retry.New(sess.Config()),
		tree:   tree,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.name == "" {
		a.name = tree.String()
	}
	return a, nil
}

// Name returns the diagnostic name.
func (a *Accessor) Name() string { return a.name }

// Tree returns the declared locator tree.
func (a *Accessor) Tree() *locator.Tree { return a.tree }

// depth is the ownership nesting depth, used to scale the retry window:
// deeper accessors re-resolve more ancestors per attempt.
func (a *Accessor) depth() int {
	d := 0
	for p := a.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// lineage returns the ownership chain root first, ending at a itself.
func (a *Accessor) lineage() []*Accessor {
	var chain []*Accessor
	for x := a; x != nil; x = x.parent {
		chain = append([]*Accessor{x}, chain...)
	}
	return chain
}

// frameChain returns the declared context frames from the root of the
// ownership chain down to this accessor.
func (a *Accessor) frameChain() []session.Frame {
	var frames []session.Frame
	for _, acc := range a.lineage() {
		frames = append(frames, acc.frames...)
	}
	return frames
}

// Resolve returns a live handle, performing bounded retries and scope-chain
// recovery as needed. The same *Handle is returned across recoveries; only
// its node reference changes.
func (a *Accessor) Resolve() (*Handle, error) {
	err := a.engine.Do(a.depth(), a.ensure, a.recoverChain)
	if err != nil {
		return nil, err
	}
	return a.handle, nil
}

// ResolveNode implements session.NodeSource, so an accessor can locate the
// iframe element a context frame is rooted at.
func (a *Accessor) ResolveNode() (core.NodeRef, error) {
	if err := a.ensure(); err != nil {
		return nil, err
	}
	return a.handle.node, nil
}

// ensure makes the accessor hold a live handle, resolving one single
// attempt if the current one is missing or stale.
func (a *Accessor) ensure() error {
	if a.handle != nil && a.handle.node != nil && !a.sess.Driver().IsStale(a.handle.node) {
		return nil
	}
	return a.attempt()
}

// attempt performs exactly one resolution: snapshot the dimensions, narrow
// the tree, ensure the parent scope, and search inside the declared context
// chain. Dimensions and selector are computed fresh every time.
func (a *Accessor) attempt() error {
	dims, err := a.sess.Snapshot()
	if err != nil {
		return err
	}
	res, err := locator.ResolveFor(a.tree, dims, a.sess.Driver())
	if err != nil {
		return err
	}

	var scope core.NodeRef
	if a.parent != nil {
		if err := a.parent.ensure(); err != nil {
			return err
		}
		scope = a.parent.handle.node
	}

	var nodes []core.NodeRef
	err = a.sess.Stack().Within(a.frameChain(), func() error {
		var ferr error
		nodes, ferr = a.sess.Driver().Find(scope, res.Selector)
		return ferr
	})
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return core.ErrNoSuchElement.
			WithMessage(fmt.Sprintf("%s: no node matched %s", a.name, res.Selector)).
			WithDetails(map[string]interface{}{
				"selector":   res.Selector.String(),
				"dimensions": res.Dims,
			})
	}

	if a.handle == nil {
		a.handle = &Handle{acc: a}
		a.handle.recoverFn = a.recoverChain
	}
	a.handle.node = nodes[0]
	a.handle.resolved = res
	logger.Debug("element: resolved %s to %s", a.name, nodes[0].Ref())
	return nil
}

// recoverChain re-resolves the ownership chain root to leaf. Every ancestor
// is re-attempted unconditionally: a re-render that staled this element has
// usually replaced some of its ancestors too, and descending from a fresh
// root is the only way to search in the correct context.
func (a *Accessor) recoverChain() error {
	logger.Debug("element: recovering %s through %d ancestors", a.name, a.depth())
	for _, acc := range a.lineage() {
		if err := acc.attempt(); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the cached node, forcing the next operation to
// re-resolve. The handle identity held by callers survives.
func (a *Accessor) Invalidate() {
	if a.handle != nil {
		a.handle.node = nil
	}
}
