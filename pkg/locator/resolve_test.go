package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/locus/pkg/core"
)

func webDims() Dimensions {
	return Dimensions{Platform: PlatformWeb, OS: OSLinux, Viewport: ViewportLG, Backend: "webdriver"}
}

func TestResolve_Leaf(t *testing.T) {
	res, err := Resolve(CSS("#login"), webDims())
	require.NoError(t, err)
	assert.Equal(t, core.ConcreteSelector{Strategy: core.StrategyCSS, Value: "#login"}, res.Selector)
}

func TestResolve_PlatformBranching(t *testing.T) {
	tree := ByPlatform(map[Platform]*Tree{
		PlatformWeb:    CSS("#login"),
		PlatformMobile: AccessibilityID("login"),
	})

	res, err := Resolve(tree, webDims())
	require.NoError(t, err)
	assert.Equal(t, core.StrategyCSS, res.Selector.Strategy)

	mobile := webDims()
	mobile.Platform = PlatformMobile
	res, err = Resolve(tree, mobile)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyAccessibilityID, res.Selector.Strategy)
}

func TestResolve_MissingPlatformFails(t *testing.T) {
	// tree {platform: web} resolved with platform=mobile must fail, never
	// fall back to the only declared branch.
	tree := ByPlatform(map[Platform]*Tree{PlatformWeb: CSS("#login")})

	dims := webDims()
	dims.Platform = PlatformMobile
	_, err := Resolve(tree, dims)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrIncorrectLocator))

	var exec *core.ExecutionError
	require.True(t, errors.As(err, &exec))
	assert.Equal(t, "platform", exec.Details["dimension"])
	assert.Equal(t, "mobile", exec.Details["wanted"])
}

func TestResolve_MissingOSFails(t *testing.T) {
	tree := ByPlatform(map[Platform]*Tree{
		PlatformMobile: ByOS(map[OS]*Tree{
			OSAndroid: ID("login"),
		}),
	})

	dims := Dimensions{Platform: PlatformMobile, OS: OSIOS, Viewport: ViewportMD, Backend: "appium"}
	_, err := Resolve(tree, dims)
	assert.True(t, errors.Is(err, core.ErrIncorrectLocator))
}

func TestResolve_ViewportExactBeatsDefault(t *testing.T) {
	tree := ByViewport(map[Viewport]*Tree{
		ViewportDefault: CSS("#wide"),
		ViewportXS:      CSS("#narrow"),
	})

	dims := webDims()
	dims.Viewport = ViewportXS
	res, err := Resolve(tree, dims)
	require.NoError(t, err)
	assert.Equal(t, "#narrow", res.Selector.Value)

	dims.Viewport = ViewportLG
	res, err = Resolve(tree, dims)
	require.NoError(t, err)
	assert.Equal(t, "#wide", res.Selector.Value)
}

func TestResolve_DefaultOnlyCoversEveryBucket(t *testing.T) {
	tree := ByViewport(map[Viewport]*Tree{ViewportDefault: CSS("#any")})

	for _, vp := range Viewports {
		dims := webDims()
		dims.Viewport = vp
		res, err := Resolve(tree, dims)
		require.NoError(t, err, "viewport %s", vp)
		assert.Equal(t, "#any", res.Selector.Value)
	}
}

func TestResolve_MissingViewportWithoutDefaultFails(t *testing.T) {
	tree := ByViewport(map[Viewport]*Tree{ViewportXS: CSS("#narrow")})

	dims := webDims()
	dims.Viewport = ViewportXL
	_, err := Resolve(tree, dims)
	assert.True(t, errors.Is(err, core.ErrIncorrectLocator))
}

func TestResolve_BackendLayer(t *testing.T) {
	tree := ByBackend(map[string]*Tree{
		"webdriver": CSS("#login"),
		"cdp":       XPath("//button[@id='login']"),
	})

	res, err := Resolve(tree, webDims())
	require.NoError(t, err)
	assert.Equal(t, core.StrategyCSS, res.Selector.Strategy)

	dims := webDims()
	dims.Backend = "detox"
	_, err = Resolve(tree, dims)
	assert.True(t, errors.Is(err, core.ErrIncorrectLocator), "no implicit default for backend")
}

func TestResolve_FullNesting(t *testing.T) {
	tree := ByPlatform(map[Platform]*Tree{
		PlatformWeb: ByViewport(map[Viewport]*Tree{
			ViewportDefault: CSS("#menu"),
			ViewportXS:      CSS("#burger"),
		}),
		PlatformMobile: ByOS(map[OS]*Tree{
			OSAndroid: ByBackend(map[string]*Tree{
				"uiautomator2": Leaf(core.StrategyUIAutomator, `new UiSelector().text("Menu")`),
				"appium":       ID("menu"),
			}),
			OSIOS: AccessibilityID("menu"),
		}),
	})

	dims := Dimensions{Platform: PlatformMobile, OS: OSAndroid, Viewport: ViewportSM, Backend: "uiautomator2"}
	res, err := Resolve(tree, dims)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyUIAutomator, res.Selector.Strategy)
}

func TestResolve_Idempotent(t *testing.T) {
	tree := ByPlatform(map[Platform]*Tree{
		PlatformWeb: ByViewport(map[Viewport]*Tree{ViewportDefault: CSS("#a")}),
	})

	first, err := Resolve(tree, webDims())
	require.NoError(t, err)
	second, err := Resolve(tree, webDims())
	require.NoError(t, err)
	assert.Equal(t, first.Selector, second.Selector)
}

func TestResolve_DimensionOrderEnforced(t *testing.T) {
	// os above platform is a declaration defect, not a resolvable tree.
	tree := ByOS(map[OS]*Tree{
		OSLinux: ByPlatform(map[Platform]*Tree{PlatformWeb: CSS("#a")}),
	})

	_, err := Resolve(tree, webDims())
	assert.True(t, errors.Is(err, core.ErrIncorrectLocator))
}

type strategyDriver struct {
	core.Driver
	name      string
	supported map[core.Strategy]bool
}

func (d strategyDriver) Name() string                 { return d.name }
func (d strategyDriver) Supports(s core.Strategy) bool { return d.supported[s] }

func TestResolveFor_UnsupportedStrategy(t *testing.T) {
	drv := strategyDriver{name: "uiautomator2", supported: map[core.Strategy]bool{
		core.StrategyID:          true,
		core.StrategyUIAutomator: true,
	}}

	_, err := ResolveFor(CSS("#login"), webDims(), drv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedLocator))

	res, err := ResolveFor(ID("login"), webDims(), drv)
	require.NoError(t, err)
	assert.Equal(t, "login", res.Selector.Value)
}
