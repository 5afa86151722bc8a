// Package locator defines the declarative LocatorTree, the runtime
// dimensions it is resolved against, and the resolution engine that turns
// both into one concrete backend selector.
package locator

import (
	"runtime"
	"strings"
)

// Platform is the top-level dimension of a locator tree.
type Platform string

// Supported platforms.
const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
)

// OS is the operating-system dimension of a locator tree.
type OS string

// Supported operating systems.
const (
	OSWindows OS = "Windows"
	OSDarwin  OS = "Darwin"
	OSLinux   OS = "Linux"
	OSAndroid OS = "Android"
	OSIOS     OS = "iOS"
)

// Viewport is a named width bucket computed from the live window size.
type Viewport string

// Viewport buckets, smallest to largest. ViewportDefault is not a bucket:
// it is the catch-all branch key allowed only at the viewport dimension.
const (
	ViewportXS      Viewport = "xs"
	ViewportSM      Viewport = "sm"
	ViewportMD      Viewport = "md"
	ViewportLG      Viewport = "lg"
	ViewportXL      Viewport = "xl"
	ViewportXXL     Viewport = "xxl"
	ViewportDefault Viewport = "default"
)

// Viewports lists the real buckets in ascending width order.
var Viewports = []Viewport{ViewportXS, ViewportSM, ViewportMD, ViewportLG, ViewportXL, ViewportXXL}

// ParsePlatform normalizes a user-supplied platform name.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range []Platform{PlatformWeb, PlatformMobile, PlatformDesktop} {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// ParseOS normalizes a user-supplied OS name to the canonical branch key,
// so "android" selects the Android branch.
func ParseOS(s string) (OS, bool) {
	for _, o := range []OS{OSWindows, OSDarwin, OSLinux, OSAndroid, OSIOS} {
		if strings.EqualFold(string(o), s) {
			return o, true
		}
	}
	return "", false
}

// Dimensions is the snapshot of the live session a tree is resolved against.
// It is computed once per resolution attempt, never cached across attempts.
type Dimensions struct {
	Platform Platform `yaml:"platform" json:"platform"`
	OS       OS       `yaml:"os" json:"os"`
	Viewport Viewport `yaml:"viewport" json:"viewport"`
	Backend  string   `yaml:"backend" json:"backend"`
}

// Breakpoints holds the minimum pixel width of each bucket above xs.
// A width below SM is xs.
type Breakpoints struct {
	SM  int `yaml:"sm"`
	MD  int `yaml:"md"`
	LG  int `yaml:"lg"`
	XL  int `yaml:"xl"`
	XXL int `yaml:"xxl"`
}

// DefaultBreakpoints returns the standard bootstrap-style thresholds.
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{SM: 576, MD: 768, LG: 992, XL: 1200, XXL: 1400}
}

// Bucket maps a window width in pixels to its viewport bucket.
func (b Breakpoints) Bucket(width int) Viewport {
	switch {
	case width >= b.XXL:
		return ViewportXXL
	case width >= b.XL:
		return ViewportXL
	case width >= b.LG:
		return ViewportLG
	case width >= b.MD:
		return ViewportMD
	case width >= b.SM:
		return ViewportSM
	default:
		return ViewportXS
	}
}

// HostOS returns the OS dimension value for the current host.
func HostOS() OS {
	switch runtime.GOOS {
	case "windows":
		return OSWindows
	case "darwin":
		return OSDarwin
	case "android":
		return OSAndroid
	case "ios":
		return OSIOS
	default:
		return OSLinux
	}
}
