package element

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/eql"
	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/session"
)

// nodeBinding adapts one candidate node to EQL evaluation. Reads are single
// shot: a candidate that fails to answer is treated by the evaluator as a
// non-match rather than retried, since the query as a whole runs under the
// caller's retry policy.
type nodeBinding struct {
	sess     *session.Session
	node     core.NodeRef
	children map[string]Child
}

func newBinding(sess *session.Session, node core.NodeRef, children map[string]Child) *nodeBinding {
	return &nodeBinding{sess: sess, node: node, children: children}
}

// Field resolves a declared child element scoped to this candidate.
func (b *nodeBinding) Field(name string) (eql.Binding, error) {
	child, ok := b.children[name]
	if !ok {
		return nil, fmt.Errorf("no child %q declared", name)
	}
	dims, err := b.sess.Snapshot()
	if err != nil {
		return nil, err
	}
	res, err := locator.ResolveFor(child.Tree, dims, b.sess.Driver())
	if err != nil {
		return nil, err
	}
	nodes, err := b.sess.Driver().Find(b.node, res.Selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("child %q (%s) not found", name, res.Selector)
	}
	return newBinding(b.sess, nodes[0], child.Children), nil
}

func (b *nodeBinding) Text() (string, error) {
	return b.sess.Driver().Text(b.node)
}

func (b *nodeBinding) Attribute(name string) (string, error) {
	return b.sess.Driver().Attribute(b.node, name)
}

func (b *nodeBinding) Style(name string) (string, error) {
	return b.sess.Driver().Style(b.node, name)
}
