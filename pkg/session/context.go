// Package session holds per-session state: the active driver, the immutable
// configuration, runtime-dimension snapshotting, and the context stack that
// tracks nested browsing/native scopes.
package session

import (
	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/logger"
)

// FrameKind discriminates context frame variants.
type FrameKind int

// Context frame kinds.
const (
	FrameDefault FrameKind = iota
	FrameIFrame
	FrameWebView
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameDefault:
		return "default"
	case FrameIFrame:
		return "iframe"
	case FrameWebView:
		return "webview"
	default:
		return "unknown"
	}
}

// NodeSource supplies the live iframe node for a declared frame at the
// moment the frame is entered. Element accessors implement it, so a frame
// re-entered after recovery picks up the replacement node.
type NodeSource interface {
	ResolveNode() (core.NodeRef, error)
}

// Frame is one declared nested scope: an iframe (located via Source) or a
// webview. Webview frames carry no locator: when multiple webviews exist,
// the currently visible one is implicitly the target.
type Frame struct {
	Kind   FrameKind
	Source NodeSource
}

// IFrame declares an iframe frame rooted at the node the source resolves.
func IFrame(source NodeSource) Frame {
	return Frame{Kind: FrameIFrame, Source: source}
}

// WebView declares a webview frame.
func WebView() Frame {
	return Frame{Kind: FrameWebView}
}

func (f Frame) equal(o Frame) bool {
	return f.Kind == o.Kind && f.Source == o.Source
}

// activeFrame is a declared frame that has actually been entered.
type activeFrame struct {
	frame  Frame
	handle core.FrameHandle // iframe only
}

// ContextStack is the ordered sequence of frames from the root document/app
// to the active resolution scope. All mutations go through WithContext or
// Within, both of which restore the prior state on every exit path.
type ContextStack struct {
	drv    core.Driver
	active []activeFrame
}

// NewStack creates a context stack over the driver, starting at the root
// (default) frame.
func NewStack(drv core.Driver) *ContextStack {
	return &ContextStack{drv: drv}
}

// Depth returns the number of entered frames. Zero means the default frame.
func (s *ContextStack) Depth() int { return len(s.active) }

// Declared returns a copy of the declared frames currently active, root
// first.
func (s *ContextStack) Declared() []Frame {
	frames := make([]Frame, len(s.active))
	for i, a := range s.active {
		frames[i] = a.frame
	}
	return frames
}

// WithContext enters the frame, runs body, and restores the prior top of
// stack regardless of whether body succeeds or fails.
func (s *ContextStack) WithContext(f Frame, body func() error) (retErr error) {
	if err := s.push(f); err != nil {
		return err
	}
	defer func() {
		if err := s.pop(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return body()
}

// Within reconciles the stack to the declared ownership chain, runs body,
// and reconciles back to where the stack started. This is the guarantee
// that lets callers hold element handles indefinitely: an operation never
// moves the logical position in the hierarchy underneath its caller.
func (s *ContextStack) Within(chain []Frame, body func() error) (retErr error) {
	saved := s.Declared()
	if err := s.reconcile(chain); err != nil {
		return err
	}
	defer func() {
		if err := s.reconcile(saved); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return body()
}

// reconcile pops and pushes frames until the active stack equals target.
// The common prefix stays entered; everything past it is unwound in reverse
// order before the remainder of target is entered.
func (s *ContextStack) reconcile(target []Frame) error {
	common := 0
	for common < len(s.active) && common < len(target) && s.active[common].frame.equal(target[common]) {
		common++
	}
	for len(s.active) > common {
		if err := s.pop(); err != nil {
			return err
		}
	}
	for _, f := range target[len(s.active):] {
		if err := s.push(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContextStack) push(f Frame) error {
	switch f.Kind {
	case FrameIFrame:
		node, err := f.Source.ResolveNode()
		if err != nil {
			// Missing or stale iframe element, not a switch failure.
			return err
		}
		handle, err := s.drv.EnterFrame(node)
		if err != nil {
			return core.ErrContextSwitch.WithCause(err)
		}
		s.active = append(s.active, activeFrame{frame: f, handle: handle})
		logger.Debug("context: entered iframe %s (depth %d)", node.Ref(), len(s.active))
		return nil

	case FrameWebView:
		for _, a := range s.active {
			if a.frame.Kind == FrameWebView {
				return core.ErrContentSwitch.WithMessage("webview frames do not nest")
			}
		}
		views, err := s.drv.VisibleWebViews()
		if err != nil {
			return core.ErrContentSwitch.WithCause(err)
		}
		if len(views) == 0 {
			return core.ErrContentSwitch.WithMessage("no visible webview to switch to")
		}
		if err := s.drv.SwitchWebView(views[0]); err != nil {
			return core.ErrContentSwitch.WithCause(err)
		}
		s.active = append(s.active, activeFrame{frame: f})
		logger.Debug("context: switched to webview %s (depth %d)", views[0], len(s.active))
		return nil

	default:
		return core.ErrContextSwitch.WithMessage("the default frame cannot be entered explicitly")
	}
}

func (s *ContextStack) pop() error {
	if len(s.active) == 0 {
		return core.ErrContextSwitch.WithMessage("context stack is already at the root frame")
	}
	top := s.active[len(s.active)-1]
	switch top.frame.Kind {
	case FrameIFrame:
		if err := s.drv.ExitFrame(top.handle); err != nil {
			return core.ErrContextSwitch.WithCause(err)
		}
	case FrameWebView:
		if err := s.drv.ExitWebView(); err != nil {
			return core.ErrContentSwitch.WithCause(err)
		}
	}
	s.active = s.active[:len(s.active)-1]
	logger.Debug("context: left %s frame (depth %d)", top.frame.Kind, len(s.active))
	return nil
}
