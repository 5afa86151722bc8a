package eql

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Color is an sRGB triple used by color literals and by comparison against
// candidate style values.
type Color struct {
	R, G, B uint8
}

// approxColorThreshold is the redmean distance under which two colors are
// considered perceptually equal by the ~= operator. Antialiasing and
// rendering differences typically stay well below it.
const approxColorThreshold = 50.0

var rgbFuncRe = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)

// ParseColor parses "#rgb", "#rrggbb", "rgb(r, g, b)", or "rgba(r, g, b, a)"
// (the alpha channel is ignored). Computed-style reads commonly produce the
// rgb() form; locator authors commonly write hex.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}
	if m := rgbFuncRe.FindStringSubmatch(s); m != nil {
		r, err1 := strconv.Atoi(m[1])
		g, err2 := strconv.Atoi(m[2])
		b, err3 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil || err3 != nil || r > 255 || g > 255 || b > 255 {
			return Color{}, fmt.Errorf("invalid rgb() color %q", s)
		}
		return Color{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
	}
	return Color{}, fmt.Errorf("unrecognized color %q", s)
}

func parseHexColor(s string) (Color, error) {
	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Distance returns the redmean-weighted Euclidean distance between two
// colors, a cheap approximation of perceptual difference.
func (c Color) Distance(o Color) float64 {
	rMean := (float64(c.R) + float64(o.R)) / 2
	dR := float64(c.R) - float64(o.R)
	dG := float64(c.G) - float64(o.G)
	dB := float64(c.B) - float64(o.B)
	return math.Sqrt((2+rMean/256)*dR*dR + 4*dG*dG + (2+(255-rMean)/256)*dB*dB)
}

// Approx reports whether the colors are perceptually close.
func (c Color) Approx(o Color) bool {
	return c.Distance(o) <= approxColorThreshold
}

// String returns the color in #rrggbb form.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
