package render

import (
	"image/color"

	"github.com/rook-computer/kinetype/internal/palette"
	"github.com/rook-computer/kinetype/internal/settings"
)

// Theme is one layout+animation algorithm. Draw is called after the
// background has been painted and only when there is text to draw.
type Theme interface {
	Draw(d Drawer, s settings.Settings)
}

// Drawer is the drawing surface themes paint on. Coordinates are pixels with
// the origin top-left; fractional values are allowed everywhere.
type Drawer interface {
	// Size returns the pixel size of the surface.
	Size() (width int, height int)

	FillBackground(c color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	FillPill(x, y, w, h float64, c color.Color)
	FillCircle(cx, cy, radius float64, c color.Color)

	// MeasureText reports the advance of text at style.Size and style.Weight.
	MeasureText(text string, style TextStyle) TextMetrics
	// DrawText paints text with its left edge at x; y is interpreted per style.Baseline.
	DrawText(text string, x, y float64, style TextStyle) TextMetrics

	// NewLayer returns a transparent off-screen surface sharing this surface's fonts.
	NewLayer(width, height int) Drawer
	// DrawLayer composites a layer with its top-left at (x,y), scaled by (scaleX, scaleY).
	DrawLayer(layer Drawer, x, y, scaleX, scaleY float64)
}

type Baseline int

const (
	BaselineTop Baseline = iota
	BaselineMiddle
	BaselineAlphabetic
)

// TextStyle describes how to render text.
type TextStyle struct {
	Color    color.Color
	Size     float64 // font size in pixels
	Weight   float64 // synthetic weight, see typeface.Stroke
	Baseline Baseline
}

type TextMetrics struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// ID identifies the renderer state a settings theme id selects.
type ID int

const (
	Lines ID = iota
	Toggle
	Toggle39C3
	CCC
)

var themes = map[ID]Theme{
	Lines:      LinesTheme{},
	Toggle:     ToggleTheme{},
	Toggle39C3: Toggle39C3Theme{},
	CCC:        CCCTheme{},
}

// ThemeID maps a preset id onto its renderer; unknown ids render as lines.
func ThemeID(theme string) ID {
	switch theme {
	case settings.ThemeToggle:
		return Toggle
	case settings.ThemeToggle39C3Animated, settings.ThemeToggle39C3Static:
		return Toggle39C3
	case settings.ThemeCCC:
		return CCC
	default:
		return Lines
	}
}

// Frame renders one complete frame of s onto d. It keeps no state between
// calls, so equal settings always produce equal pixels.
func Frame(d Drawer, s settings.Settings) {
	d.FillBackground(palette.Background(s.ColorMode))
	if s.Text == "" {
		return
	}
	themes[ThemeID(s.Theme)].Draw(d, s)
}

// charColor is palette.CharColor bound to the current settings.
func charColor(s settings.Settings, charIndex, lineIndex, textLength int) color.RGBA {
	return palette.CharColor(charIndex, lineIndex, textLength, s.Time, s.ColorMode, s.Capabilities.Animated, s.AnimationSpeed)
}

// measureRunes sums per-character advances, the same stepping themes use to paint.
func measureRunes(d Drawer, runes []rune, weight, size float64) float64 {
	total := 0.0
	for _, r := range runes {
		total += d.MeasureText(string(r), TextStyle{Size: size, Weight: weight}).Width
	}
	return total
}
