package element

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/locator"
)

// Handle owns a live backend node together with the resolved selector and
// the accessor (scope chain) that produced it. It is created on first
// successful resolution and kept for the accessor's lifetime: recovery
// replaces the node inside the handle, never the handle itself, so callers
// may hold it indefinitely.
//
// Handles returned by collection queries and slots are pinned: their
// recovery re-runs the query or re-indexes the collection instead of taking
// the accessor's first match.
type Handle struct {
	acc       *Accessor
	node      core.NodeRef
	resolved  locator.Resolved
	recoverFn func() error
}

// Node returns the current backend node reference.
func (h *Handle) Node() core.NodeRef { return h.node }

// Resolved returns the selector and dimensions of the last resolution.
func (h *Handle) Resolved() locator.Resolved { return h.resolved }

// Text reads the element's visible text, recovering through the scope
// chain if the node went stale.
func (h *Handle) Text() (string, error) {
	return h.read("text", func(node core.NodeRef) (string, error) {
		return h.acc.sess.Driver().Text(node)
	})
}

// Attribute reads an attribute value.
func (h *Handle) Attribute(name string) (string, error) {
	return h.read("attribute:"+name, func(node core.NodeRef) (string, error) {
		return h.acc.sess.Driver().Attribute(node, name)
	})
}

// Style reads a computed style property.
func (h *Handle) Style(name string) (string, error) {
	return h.read("style:"+name, func(node core.NodeRef) (string, error) {
		return h.acc.sess.Driver().Style(node, name)
	})
}

// Bounds reads the element's position and size in window coordinates.
func (h *Handle) Bounds() (core.Bounds, error) {
	a := h.acc
	var out core.Bounds
	err := a.engine.Do(a.depth(), func() error {
		if h.node == nil || a.sess.Driver().IsStale(h.node) {
			return h.staleErr("bounds", nil)
		}
		return a.sess.Stack().Within(a.frameChain(), func() error {
			b, err := a.sess.Driver().Bounds(h.node)
			if err != nil {
				if a.sess.Driver().IsStale(h.node) {
					return h.staleErr("bounds", err)
				}
				return err
			}
			out = b
			return nil
		})
	}, h.recoverFn)
	return out, err
}

// read runs a metadata read under the retry policy, inside the declared
// context chain, classifying stale nodes so the engine can recover.
func (h *Handle) read(what string, fn func(core.NodeRef) (string, error)) (string, error) {
	a := h.acc
	var out string
	err := a.engine.Do(a.depth(), func() error {
		if h.node == nil || a.sess.Driver().IsStale(h.node) {
			return h.staleErr(what, nil)
		}
		return a.sess.Stack().Within(a.frameChain(), func() error {
			v, err := fn(h.node)
			if err != nil {
				if a.sess.Driver().IsStale(h.node) {
					return h.staleErr(what, err)
				}
				return err
			}
			out = v
			return nil
		})
	}, h.recoverFn)
	return out, err
}

func (h *Handle) staleErr(what string, cause error) error {
	err := core.ErrStaleElement.
		WithMessage(fmt.Sprintf("%s: node is stale (%s)", h.acc.name, what)).
		WithDetails(map[string]interface{}{
			"selector":   h.resolved.Selector.String(),
			"dimensions": h.resolved.Dims,
		})
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
