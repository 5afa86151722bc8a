package element

import (
	"errors"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/jsengine"
	"github.com/devicelab-dev/locus/pkg/locator"
)

// isTransient reports whether an error belongs to a retryable category.
func isTransient(err error) bool {
	var exec *core.ExecutionError
	return errors.As(err, &exec) && exec.Category.Retryable()
}

// WaitPresent polls until the element resolves, bounded by the positive
// wait budget (waitTimeout).
func (a *Accessor) WaitPresent() error {
	return a.engine.WaitUntil(func() (bool, error) {
		if err := a.ensure(); err != nil {
			return false, err
		}
		return true, nil
	}, a.name+" present")
}

// WaitMissing polls until the element is absent, bounded by the negative
// wait budget (missingTimeout). Waiting for something legitimately absent
// must not burn the full positive-wait window.
func (a *Accessor) WaitMissing() error {
	a.Invalidate()
	return a.engine.WaitMissing(a.absent, a.name+" missing")
}

// absent is one absence check: resolve the selector and check that nothing
// matches. An unresolvable parent scope counts as absent.
func (a *Accessor) absent() (bool, error) {
	dims, err := a.sess.Snapshot()
	if err != nil {
		return false, err
	}
	res, err := locator.ResolveFor(a.tree, dims, a.sess.Driver())
	if err != nil {
		return false, err
	}

	var scope core.NodeRef
	if a.parent != nil {
		if perr := a.parent.ensure(); perr != nil {
			if isTransient(perr) {
				return true, nil
			}
			return false, perr
		}
		scope = a.parent.handle.node
	}

	var count int
	err = a.sess.Stack().Within(a.frameChain(), func() error {
		nodes, ferr := a.sess.Driver().Find(scope, res.Selector)
		if ferr != nil {
			return ferr
		}
		count = len(nodes)
		return nil
	})
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// WaitUntil polls an arbitrary condition over the resolved handle, bounded
// by the positive wait budget.
func (a *Accessor) WaitUntil(cond func(*Handle) (bool, error), desc string) error {
	return a.engine.WaitUntil(func() (bool, error) {
		if err := a.ensure(); err != nil {
			return false, err
		}
		return cond(a.handle)
	}, desc)
}

// WaitUntilScript polls a JavaScript predicate over the live element, e.g.
// `element.attribute("aria-busy") == "false"`. The predicate is compiled
// once; a syntax error surfaces immediately, before any polling.
func (a *Accessor) WaitUntilScript(src string) error {
	pred, err := jsengine.New().Compile(src)
	if err != nil {
		return err
	}
	return a.engine.WaitUntil(func() (bool, error) {
		if err := a.ensure(); err != nil {
			return false, err
		}
		ok, err := pred.Eval(scriptElement{a})
		if err != nil {
			if a.sess.Driver().IsStale(a.handle.node) {
				a.Invalidate()
				return false, nil
			}
			return false, err
		}
		return ok, nil
	}, "script "+src)
}

// scriptElement adapts an accessor to the jsengine element surface with
// single-shot reads: the surrounding wait loop owns the retrying.
type scriptElement struct {
	acc *Accessor
}

func (s scriptElement) Text() (string, error) {
	return s.acc.sess.Driver().Text(s.acc.handle.node)
}

func (s scriptElement) Attribute(name string) (string, error) {
	return s.acc.sess.Driver().Attribute(s.acc.handle.node, name)
}

func (s scriptElement) Style(name string) (string, error) {
	return s.acc.sess.Driver().Style(s.acc.handle.node, name)
}

func (s scriptElement) Bounds() (core.Bounds, error) {
	return s.acc.sess.Driver().Bounds(s.acc.handle.node)
}
