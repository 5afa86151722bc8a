// Package core defines the shared vocabulary between the resolution engine
// and backend driver adapters: selector strategies, node references, the
// Driver interface, and the error taxonomy.
package core

// Strategy identifies how a selector value is interpreted by a backend.
type Strategy string

// Known selector strategies. Not every backend supports every strategy;
// Driver.Supports is consulted during resolution.
const (
	StrategyCSS             Strategy = "css"
	StrategyXPath           Strategy = "xpath"
	StrategyID              Strategy = "id"
	StrategyText            Strategy = "text"
	StrategyAccessibilityID Strategy = "accessibility-id"
	StrategyPredicate       Strategy = "predicate" // iOS NSPredicate
	StrategyUIAutomator     Strategy = "uiautomator"
)

// ConcreteSelector is a single backend-executable selector: one strategy
// plus its value. This is what resolution produces and drivers consume.
type ConcreteSelector struct {
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Value    string   `yaml:"value" json:"value"`
}

// String returns the selector in "strategy=value" form for diagnostics.
func (s ConcreteSelector) String() string {
	return string(s.Strategy) + "=" + s.Value
}

// NodeRef is an opaque reference to a live backend node. The backend-specific
// identifier is exposed for diagnostics only; the core never interprets it.
type NodeRef interface {
	Ref() string
}

// FrameHandle identifies an entered frame so it can be exited later.
type FrameHandle interface {
	Ref() string
}

// WebViewID identifies a webview context reported by the backend.
type WebViewID string

// Bounds represents element position and size.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Driver is the adapter interface a backend must implement. Implementations
// execute raw selector lookups and metadata reads; all retry, recovery, and
// context-stack policy lives above this interface.
//
// A nil scope passed to Find means the current document/app root.
type Driver interface {
	// Name returns the backend identifier (also used as the backend
	// dimension tag during resolution).
	Name() string

	// Supports reports whether the backend can execute the strategy.
	Supports(s Strategy) bool

	// Find returns all nodes matching the selector under scope.
	// An empty slice with a nil error means "searched, found nothing".
	Find(scope NodeRef, sel ConcreteSelector) ([]NodeRef, error)

	// IsStale reports whether the backend still considers the node attached.
	IsStale(node NodeRef) bool

	// Text returns the node's visible text.
	Text(node NodeRef) (string, error)

	// Attribute returns the value of a node attribute.
	Attribute(node NodeRef, name string) (string, error)

	// Style returns a computed style property of the node.
	Style(node NodeRef, name string) (string, error)

	// Bounds returns the node's position and size in window coordinates.
	Bounds(node NodeRef) (Bounds, error)

	// EnterFrame switches the active document into the frame rooted at node.
	EnterFrame(node NodeRef) (FrameHandle, error)

	// ExitFrame restores the document that was active before EnterFrame.
	ExitFrame(h FrameHandle) error

	// VisibleWebViews lists the currently visible webview contexts.
	VisibleWebViews() ([]WebViewID, error)

	// SwitchWebView activates the given webview context.
	SwitchWebView(id WebViewID) error

	// ExitWebView returns from a webview context to the native scope.
	ExitWebView() error

	// WindowSize returns the current window/screen size in pixels.
	WindowSize() (width, height int, err error)
}
