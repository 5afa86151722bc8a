package element

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/eql"
	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/session"
	"github.com/devicelab-dev/locus/pkg/slot"
)

// Collection is an accessor whose selector is expected to match many nodes:
// a list, a table, a repeated card. It adds EQL queries over the members and
// slot materialization under an ordered policy. Materialized wrappers are
// cached per index until Refresh.
type Collection struct {
	acc    *Accessor
	policy *slot.Policy
	cache  *slot.Cache
}

// DeclareCollection declares a repeated element with an optional slot policy.
// A nil policy materializes every slot as the plain element target.
func DeclareCollection(sess *session.Session, tree *locator.Tree, policy *slot.Policy, opts ...Option) (*Collection, error) {
	acc, err := Declare(sess, tree, opts...)
	if err != nil {
		return nil, err
	}
	return &Collection{acc: acc, policy: policy, cache: slot.NewCache()}, nil
}

// Accessor returns the underlying accessor, for composing further scopes.
func (c *Collection) Accessor() *Accessor { return c.acc }

// Len returns the number of members currently present. Zero is a valid
// answer, not an error.
func (c *Collection) Len() (int, error) {
	nodes, _, err := c.nodes()
	return len(nodes), err
}

// Nodes resolves and returns all current member nodes.
func (c *Collection) Nodes() ([]core.NodeRef, error) {
	nodes, _, err := c.nodes()
	return nodes, err
}

// Query evaluates an EQL expression against each member in document order
// and returns a handle on the first match, or (nil, nil) when no member
// matches. Syntax and type errors in the expression surface immediately.
func (c *Collection) Query(src string) (*Handle, error) {
	expr, err := eql.Parse(src)
	if err != nil {
		return nil, err
	}
	nodes, res, err := c.nodes()
	if err != nil {
		return nil, err
	}
	idx := c.firstMatch(expr, nodes)
	if idx < 0 {
		return nil, nil
	}
	h := &Handle{acc: c.acc, node: nodes[idx], resolved: res}
	h.recoverFn = func() error {
		nodes, res, err := c.nodes()
		if err != nil {
			return err
		}
		i := c.firstMatch(expr, nodes)
		if i < 0 {
			return core.ErrNoSuchElement.
				WithMessage(fmt.Sprintf("%s: no member matches query anymore", c.acc.name)).
				WithDetails(map[string]interface{}{"query": src})
		}
		h.node = nodes[i]
		h.resolved = res
		return nil
	}
	return h, nil
}

// Slot materializes the member at index through the policy, returning the
// wrapper the winning rule's target builds around the member's handle. The
// wrapper is cached per index until Refresh.
func (c *Collection) Slot(index int, key string) (interface{}, error) {
	if w, ok := c.cache.Get(index); ok {
		return w, nil
	}
	nodes, res, err := c.nodes()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(nodes) {
		return nil, core.ErrNoSuchElement.
			WithMessage(fmt.Sprintf("%s: slot %d out of range (%d members)", c.acc.name, index, len(nodes))).
			WithDetails(map[string]interface{}{"index": index, "length": len(nodes)})
	}
	binding := newBinding(c.acc.sess, nodes[index], c.acc.children)
	target := c.policy.Resolve(index, len(nodes), key, binding)

	h := &Handle{acc: c.acc, node: nodes[index], resolved: res}
	h.recoverFn = func() error {
		nodes, res, err := c.nodes()
		if err != nil {
			return err
		}
		if index >= len(nodes) {
			return core.ErrNoSuchElement.
				WithMessage(fmt.Sprintf("%s: slot %d gone (%d members)", c.acc.name, index, len(nodes))).
				WithDetails(map[string]interface{}{"index": index, "length": len(nodes)})
		}
		h.node = nodes[index]
		h.resolved = res
		return nil
	}

	w := target.New(h)
	c.cache.Put(index, w)
	return w, nil
}

// Refresh drops all cached slot wrappers and the accessor's own node, so the
// next operation re-resolves against the current UI.
func (c *Collection) Refresh() {
	c.cache.Refresh()
	c.acc.Invalidate()
}

// nodes resolves all current members under the retry policy, inside the
// declared context chain. An empty result is returned as-is.
func (c *Collection) nodes() ([]core.NodeRef, locator.Resolved, error) {
	a := c.acc
	var out []core.NodeRef
	var res locator.Resolved
	err := a.engine.Do(a.depth(), func() error {
		dims, err := a.sess.Snapshot()
		if err != nil {
			return err
		}
		res, err = locator.ResolveFor(a.tree, dims, a.sess.Driver())
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
		return a.sess.Stack().Within(a.frameChain(), func() error {
			var ferr error
			out, ferr = a.sess.Driver().Find(scope, res.Selector)
			return ferr
		})
	}, a.recoverChain)
	if err != nil {
		return nil, locator.Resolved{}, err
	}
	return out, res, nil
}

// firstMatch evaluates expr against nodes in order inside the declared
// context chain, since reads behind the bindings go through the driver.
func (c *Collection) firstMatch(expr eql.Expr, nodes []core.NodeRef) int {
	idx := -1
	_ = c.acc.sess.Stack().Within(c.acc.frameChain(), func() error {
		bindings := make([]eql.Binding, len(nodes))
		for i, n := range nodes {
			bindings[i] = newBinding(c.acc.sess, n, c.acc.children)
		}
		idx = eql.First(expr, bindings)
		return nil
	})
	return idx
}
