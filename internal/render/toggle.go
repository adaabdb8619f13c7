package render

import (
	"image/color"
	"math"

	"github.com/rook-computer/kinetype/internal/palette"
	"github.com/rook-computer/kinetype/internal/render/layout"
	"github.com/rook-computer/kinetype/internal/settings"
)

// DefaultToggleRatio is the track width of a toggle in multiples of its height.
const DefaultToggleRatio = 2.5

// ToggleGlyph is a switch drawn as a pill-shaped track with a round knob.
type ToggleGlyph struct {
	Height     float64
	Ratio      float64 // width / height; 0 means DefaultToggleRatio
	Color      color.Color
	Background color.Color
	// Filled paints a solid track with a cut-out knob; otherwise the track is
	// an outline and the knob is solid.
	Filled bool
	// Pinned holds the knob in the "on" position.
	Pinned bool
}

func (g ToggleGlyph) Width() float64 {
	ratio := g.Ratio
	if ratio <= 0 {
		ratio = DefaultToggleRatio
	}
	return g.Height * ratio
}

// KnobPosition returns the knob travel in [0,1] at time. The sine is
// sharpened so the knob rests at both ends before switching.
func KnobPosition(time, phaseOffset float64) float64 {
	p := (math.Sin(time+phaseOffset) + 1) / 2
	p = math.Max(0, math.Min(1, (p-0.25)*2))
	return p * p * (3 - 2*p)
}

// Draw paints the toggle with its top-left corner at (x,y).
func (g ToggleGlyph) Draw(d Drawer, x, y, time, phaseOffset float64) {
	h := g.Height
	w := g.Width()
	pos := 1.0
	if !g.Pinned {
		pos = KnobPosition(time, phaseOffset)
	}
	inset := h * 0.1
	radius := h/2 - inset
	cx := x + h/2 + pos*(w-h)
	cy := y + h/2

	if g.Filled {
		d.FillPill(x, y, w, h, g.Color)
		d.FillCircle(cx, cy, radius, g.Background)
		return
	}
	ring := h * 0.08
	d.FillPill(x, y, w, h, g.Color)
	d.FillPill(x+ring, y+ring, w-2*ring, h-2*ring, g.Background)
	d.FillCircle(cx, cy, radius, g.Color)
}

// ToggleTheme draws one animated toggle above a line of text whose
// characters pulse with the banner oscillator.
type ToggleTheme struct{}

// Text row spacing below the toggle, in multiples of the text size.
const toggleGap = 0.25

func (ToggleTheme) Draw(d Drawer, s settings.Settings) {
	text := []rune(s.Text)
	n := len(text)
	ref := s.ReferenceWeight()

	glyph := ToggleGlyph{
		Height:     ReferenceSize,
		Ratio:      1 + 2*s.WidthValue/100,
		Color:      charColor(s, 0, 0, 1),
		Background: palette.Background(s.ColorMode),
		Filled:     true,
		Pinned:     !s.Capabilities.Animated,
	}
	textWidth := measureRunes(d, text, ref, ReferenceSize)
	blockWidth := math.Max(glyph.Width(), textWidth)
	blockHeight := ReferenceSize * (2 + toggleGap)

	usable := layout.Inset(layout.Square(s.CanvasSize), s.Margin)
	scale := layout.FitScale(blockWidth, blockHeight, usable)

	glyph.Height *= scale
	size := ReferenceSize * scale
	top := (s.CanvasSize-blockHeight*scale)/2 + s.VerticalOffset
	canvas := layout.Square(s.CanvasSize)

	t := s.Time * s.AnimationSpeed
	glyph.Draw(d, canvas.CenterX(glyph.Width()), top, t, 0)

	y := top + glyph.Height + size*toggleGap
	x := canvas.CenterX(measureRunes(d, text, ref, size))
	for charIndex, r := range text {
		ch := string(r)
		weight := ref
		if s.Capabilities.Animated {
			weight = ToggleWeight(charIndex, s.Time, s.AnimationSpeed, s.MinWeight, s.MaxWeight)
		}
		d.DrawText(ch, x, y, TextStyle{
			Color:    charColor(s, charIndex, 0, n),
			Size:     size,
			Weight:   weight,
			Baseline: BaselineTop,
		})
		x += d.MeasureText(ch, TextStyle{Size: size, Weight: ref}).Width
	}
}
