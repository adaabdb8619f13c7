package render

import (
	"github.com/rook-computer/kinetype/internal/render/layout"
	"github.com/rook-computer/kinetype/internal/settings"
)

// LinesTheme stacks NumLines copies of the text with a weight gradient that
// reverses between neighbouring lines.
type LinesTheme struct{}

func (LinesTheme) Draw(d Drawer, s settings.Settings) {
	text := []rune(s.Text)
	n := len(text)
	ref := s.ReferenceWeight()

	// Layout is measured at the reference weight so pulsing never moves glyphs.
	measure := func(size float64) float64 { return measureRunes(d, text, ref, size) }
	fit := FitBlock(measure, s)
	lineWidth := measure(fit.Size)
	midIndex := float64(n-1) / 2
	wave := WaveFor(s)
	canvas := layout.Square(s.CanvasSize)

	for lineIndex := 0; lineIndex < s.NumLines; lineIndex++ {
		y := fit.LineY(lineIndex)
		x := canvas.CenterX(lineWidth)
		start, end := LineGradient(lineIndex, s.NumLines, s.MinWeight, s.MaxWeight)

		for charIndex, r := range text {
			ch := string(r)
			d.DrawText(ch, x, y, TextStyle{
				Color:    charColor(s, charIndex, lineIndex, n),
				Size:     fit.Size,
				Weight:   wave.CharWeight(charIndex, lineIndex, start, end, midIndex, n),
				Baseline: BaselineTop,
			})
			x += d.MeasureText(ch, TextStyle{Size: fit.Size, Weight: ref}).Width
		}
	}
}
