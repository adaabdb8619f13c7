// Package palette maps color modes and character positions to colors.
package palette

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	ModeMono      = "mono"
	ModeMonoInv   = "mono-inv"
	ModeGreen     = "green"
	ModeGreenInv  = "green-inv"
	ModeViolet    = "violet"
	ModeVioletInv = "violet-inv"
)

// Modes lists every known color mode.
var Modes = []string{ModeMono, ModeMonoInv, ModeGreen, ModeGreenInv, ModeViolet, ModeVioletInv}

// Neon green tints, 900 to 50.
var Green = mustRamp("#009900", "#00d300", "#00ea00", "#00ff00", "#a3ff90", "#ccffbe", "#ebffe5")

// Electric violet tints, 600 to 50.
var Violet = mustRamp("#4d2eed", "#5c33f4", "#7952fe", "#9673ff", "#b69dfe", "#d4c4fe", "#efe7ff")

var (
	Natural = mustHex("#faf5f5")
	Dark    = mustHex("#141414")
)

// Ramp entries used when a theme is not animated.
const (
	greenStatic  = 3
	violetStatic = 2
)

// Ramp entry behind violet-inv text.
const violetBackground = 3

// Background returns the fill for the whole canvas. It depends on mode only.
func Background(mode string) color.RGBA {
	switch mode {
	case ModeMonoInv:
		return Natural
	case ModeGreenInv:
		return Green[greenStatic]
	case ModeVioletInv:
		return Violet[violetBackground]
	default:
		return Dark
	}
}

// CharColor returns the fill of one character. Ramp modes cycle through their
// tints over time when animated; every other mode is constant. The text
// length slot keeps the signature aligned with the weight functions and
// does not affect the color.
func CharColor(charIndex, lineIndex, _ int, time float64, mode string, animated bool, speed float64) color.RGBA {
	if !animated {
		time = 0
	}
	t := time * speed * 0.5

	switch mode {
	case ModeGreen:
		if !animated {
			return Green[greenStatic]
		}
		return Green[rampIndex(t, charIndex, lineIndex, len(Green))]
	case ModeViolet:
		if !animated {
			return Violet[violetStatic]
		}
		return Violet[rampIndex(t, charIndex, lineIndex, len(Violet))]
	case ModeGreenInv, ModeVioletInv, ModeMonoInv:
		return Dark
	default:
		return Natural
	}
}

func rampIndex(t float64, charIndex, lineIndex, n int) int {
	v := math.Mod(t*2+float64(charIndex)*0.5+float64(lineIndex)*0.3, float64(n))
	if v < 0 {
		v += float64(n)
	}
	i := int(math.Floor(v))
	if i >= n {
		i = n - 1
	}
	return i
}

func mustRamp(hexes ...string) []color.RGBA {
	out := make([]color.RGBA, len(hexes))
	for i, h := range hexes {
		out[i] = mustHex(h)
	}
	return out
}

func mustHex(h string) color.RGBA {
	c, err := colorful.Hex(h)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}
