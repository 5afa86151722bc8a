// Package jsengine provides JavaScript predicate evaluation for scripted
// wait conditions: a boolean expression evaluated against a live element,
// e.g. `element.attribute("aria-busy") == "false" && element.text() != ""`.
package jsengine

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/logger"
)

// Element is the surface a predicate sees as the `element` global. Reads go
// through to the live node each time the predicate is re-polled.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Style(name string) (string, error)
	Bounds() (core.Bounds, error)
}

// Engine wraps a goja runtime configured for predicate evaluation.
type Engine struct {
	runtime *goja.Runtime
}

// New creates a fresh engine. Engines are cheap enough to create per wait.
func New() *Engine {
	return &Engine{runtime: goja.New()}
}

// Predicate is a compiled boolean expression.
type Predicate struct {
	engine  *Engine
	program *goja.Program
	src     string
}

// Compile parses the predicate source once, so authoring errors surface
// before the first poll.
func (e *Engine) Compile(src string) (*Predicate, error) {
	program, err := goja.Compile("predicate", src, true)
	if err != nil {
		return nil, fmt.Errorf("jsengine: compile predicate: %w", err)
	}
	return &Predicate{engine: e, program: program, src: src}, nil
}

// Eval runs the predicate against the element and coerces the result to a
// boolean. Errors thrown by element reads propagate as evaluation errors.
func (p *Predicate) Eval(el Element) (bool, error) {
	rt := p.engine.runtime

	obj := rt.NewObject()
	if err := obj.Set("text", func() (string, error) { return el.Text() }); err != nil {
		return false, err
	}
	if err := obj.Set("attribute", func(name string) (string, error) { return el.Attribute(name) }); err != nil {
		return false, err
	}
	if err := obj.Set("style", func(name string) (string, error) { return el.Style(name) }); err != nil {
		return false, err
	}
	if err := obj.Set("bounds", func() (map[string]int, error) {
		b, err := el.Bounds()
		if err != nil {
			return nil, err
		}
		cx, cy := b.Center()
		return map[string]int{
			"x": b.X, "y": b.Y,
			"width": b.Width, "height": b.Height,
			"centerX": cx, "centerY": cy,
		}, nil
	}); err != nil {
		return false, err
	}
	if err := rt.Set("element", obj); err != nil {
		return false, err
	}

	console := rt.NewObject()
	if err := console.Set("log", func(args ...interface{}) {
		fmt.Fprintln(logger.GetWriter(), append([]interface{}{"predicate:"}, args...)...)
	}); err != nil {
		return false, err
	}
	if err := rt.Set("console", console); err != nil {
		return false, err
	}

	value, err := rt.RunProgram(p.program)
	if err != nil {
		return false, fmt.Errorf("jsengine: evaluate %q: %w", p.src, err)
	}
	return value.ToBoolean(), nil
}
