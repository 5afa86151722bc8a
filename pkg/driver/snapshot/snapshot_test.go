package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/locus/pkg/core"
)

const fixture = `{
  "backend": "chromium",
  "window": {"width": 1280, "height": 800},
  "root": {
    "tag": "body",
    "children": [
      {
        "tag": "form",
        "id": "login",
        "attributes": {"class": "form compact"},
        "children": [
          {"tag": "input", "id": "user", "attributes": {"class": "field", "placeholder": "Email"}},
          {
            "tag": "button",
            "id": "submit",
            "text": "Sign in",
            "accessibilityId": "login-submit",
            "attributes": {"class": "btn primary", "aria-disabled": "false"},
            "styles": {"background-color": "rgb(0, 120, 255)"},
            "bounds": {"x": 40, "y": 300, "width": 220, "height": 44}
          }
        ]
      },
      {
        "tag": "iframe",
        "id": "payframe",
        "frame": {
          "tag": "html",
          "children": [{"tag": "button", "id": "pay", "text": "Pay now"}]
        }
      }
    ]
  },
  "webviews": [
    {"id": "WEBVIEW_checkout", "visible": true, "root": {"tag": "div", "id": "checkout-root"}},
    {"id": "WEBVIEW_hidden", "visible": false, "root": {"tag": "div"}}
  ]
}`

func newDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New([]byte(fixture))
	require.NoError(t, err)
	return d
}

func TestNew_RejectsBadDocuments(t *testing.T) {
	_, err := New([]byte(`{"root": `))
	assert.Error(t, err)

	_, err = New([]byte(`{"window": {"width": 100}}`))
	assert.Error(t, err)
}

func TestDriver_Identity(t *testing.T) {
	d := newDriver(t)
	assert.Equal(t, "chromium", d.Name())

	w, h, err := d.WindowSize()
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 800, h)

	assert.True(t, d.Supports(core.StrategyCSS))
	assert.True(t, d.Supports(core.StrategyText))
	assert.False(t, d.Supports(core.StrategyXPath))
	assert.False(t, d.Supports(core.StrategyPredicate))
}

func TestFind_ByStrategies(t *testing.T) {
	d := newDriver(t)
	tests := []struct {
		name string
		sel  core.ConcreteSelector
		want int
	}{
		{"id", core.ConcreteSelector{Strategy: core.StrategyID, Value: "submit"}, 1},
		{"text", core.ConcreteSelector{Strategy: core.StrategyText, Value: "Sign in"}, 1},
		{"accessibility id", core.ConcreteSelector{Strategy: core.StrategyAccessibilityID, Value: "login-submit"}, 1},
		{"css id", core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#user"}, 1},
		{"css class", core.ConcreteSelector{Strategy: core.StrategyCSS, Value: ".btn"}, 1},
		{"css tag", core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "input"}, 1},
		{"no match", core.ConcreteSelector{Strategy: core.StrategyID, Value: "nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := d.Find(nil, tt.sel)
			require.NoError(t, err)
			assert.Len(t, nodes, tt.want)
		})
	}
}

func TestFind_CSSSubsetOnly(t *testing.T) {
	d := newDriver(t)
	_, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "form > input"})
	require.Error(t, err)

	// Combinator selectors are a locator defect, so retries must not be
	// spent on them.
	var exec *core.ExecutionError
	require.True(t, errors.As(err, &exec))
	assert.Equal(t, core.ErrCategoryLocator, exec.Category)
	assert.False(t, exec.Category.Retryable())
}

func TestFind_ScopedToNode(t *testing.T) {
	d := newDriver(t)
	forms, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#login"})
	require.NoError(t, err)
	require.Len(t, forms, 1)

	fields, err := d.Find(forms[0], core.ConcreteSelector{Strategy: core.StrategyCSS, Value: ".field"})
	require.NoError(t, err)
	assert.Len(t, fields, 1)

	frames, err := d.Find(forms[0], core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#payframe"})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestReads(t *testing.T) {
	d := newDriver(t)
	nodes, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#submit"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	btn := nodes[0]

	text, err := d.Text(btn)
	require.NoError(t, err)
	assert.Equal(t, "Sign in", text)

	disabled, err := d.Attribute(btn, "aria-disabled")
	require.NoError(t, err)
	assert.Equal(t, "false", disabled)

	bg, err := d.Style(btn, "background-color")
	require.NoError(t, err)
	assert.Equal(t, "rgb(0, 120, 255)", bg)

	b, err := d.Bounds(btn)
	require.NoError(t, err)
	assert.Equal(t, core.Bounds{X: 40, Y: 300, Width: 220, Height: 44}, b)

	assert.False(t, d.IsStale(btn))
}

func TestBounds_NodeWithoutGeometry(t *testing.T) {
	d := newDriver(t)
	nodes, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#user"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	b, err := d.Bounds(nodes[0])
	require.NoError(t, err)
	assert.Equal(t, core.Bounds{}, b)
}

func TestFrames_CapturedContent(t *testing.T) {
	d := newDriver(t)
	frames, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#payframe"})
	require.NoError(t, err)
	require.Len(t, frames, 1)

	// Frame content is invisible until entered.
	pay, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#pay"})
	require.NoError(t, err)
	assert.Empty(t, pay)

	h, err := d.EnterFrame(frames[0])
	require.NoError(t, err)

	pay, err = d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#pay"})
	require.NoError(t, err)
	require.Len(t, pay, 1)
	text, err := d.Text(pay[0])
	require.NoError(t, err)
	assert.Equal(t, "Pay now", text)

	require.NoError(t, d.ExitFrame(h))
	pay, err = d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#pay"})
	require.NoError(t, err)
	assert.Empty(t, pay)
}

func TestFrames_NodeWithoutContent(t *testing.T) {
	d := newDriver(t)
	nodes, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#submit"})
	require.NoError(t, err)
	_, err = d.EnterFrame(nodes[0])
	assert.Error(t, err)
}

func TestWebViews(t *testing.T) {
	d := newDriver(t)
	visible, err := d.VisibleWebViews()
	require.NoError(t, err)
	assert.Equal(t, []core.WebViewID{"WEBVIEW_checkout"}, visible)

	require.NoError(t, d.SwitchWebView("WEBVIEW_checkout"))
	nodes, err := d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#checkout-root"})
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	require.NoError(t, d.ExitWebView())
	nodes, err = d.Find(nil, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#checkout-root"})
	require.NoError(t, err)
	assert.Empty(t, nodes)

	assert.Error(t, d.SwitchWebView("WEBVIEW_unknown"))
	assert.Error(t, d.ExitWebView())
}
