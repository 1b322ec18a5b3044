// Package color derives lighter and darker shades from hex colors.
// All functions are pure and safe for concurrent use.
package color

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{R: 0, G: 0, B: 0}
)

// Lighten blends each RGB channel of hex toward white by percent (0..1).
// Lighten(c, 0) returns c unchanged; Lighten(c, 1) returns white.
// A #rgb input stays #rgb when the result has doubled digits in every
// channel and widens to #rrggbb otherwise.
func Lighten(hex string, percent float64) string {
	return blend(hex, white, percent)
}

// Darken blends each RGB channel of hex toward black by percent (0..1).
// Darken(c, 0) returns c unchanged; Darken(c, 1) returns black.
func Darken(hex string, percent float64) string {
	return blend(hex, black, percent)
}

// Valid reports whether s is a #rgb or #rrggbb hex color.
func Valid(s string) bool {
	if (len(s) != 4 && len(s) != 7) || s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	_, err := colorful.Hex(s)
	return err == nil
}

func isHexDigit(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

func blend(hex string, target colorful.Color, percent float64) string {
	if percent <= 0 {
		return hex
	}
	if percent > 1 {
		percent = 1
	}
	if !Valid(hex) {
		// Malformed input is the caller's problem; hand it back untouched.
		return hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	out := c.BlendRgb(target, percent).Clamped().Hex()
	if len(hex) == 4 {
		out = shorten(out)
	}
	if hasUpperHex(hex) {
		out = strings.ToUpper(out)
	}
	return out
}

// shorten returns #rrggbb as #rgb when every channel repeats its digit.
func shorten(hex string) string {
	if hex[1] == hex[2] && hex[3] == hex[4] && hex[5] == hex[6] {
		return string([]byte{'#', hex[1], hex[3], hex[5]})
	}
	return hex
}

// hasUpperHex reports whether hex spells its letter digits in upper case,
// so blended output keeps the caller's casing.
func hasUpperHex(hex string) bool {
	for _, r := range hex {
		if r >= 'A' && r <= 'F' {
			return true
		}
	}
	return false
}
