package render

import (
	"github.com/rook-computer/kinetype/internal/render/layout"
	"github.com/rook-computer/kinetype/internal/settings"
)

// CCCTheme repeats "<<CCC" + text across every line. The marker swings on a
// fixed-speed wave; the user text breathes with the configured speed.
type CCCTheme struct{}

const (
	markerUpper = "<<CCC"
	markerLower = "<<ccc"

	// Characters per line the repetition count aims for.
	patternTargetChars = 36
	patternMinParts    = 2
	patternMaxParts    = 5

	// The logo renders several glyphs wide.
	logoLogicalWidth = 5

	markerSpeed  = 1.0
	breatheSpeed = 0.8
)

// LogicalLength counts characters, with the logo counting as logoLogicalWidth.
func LogicalLength(text string) int {
	n := 0
	for _, r := range text {
		if r == settings.LogoRune {
			n += logoLogicalWidth
		} else {
			n++
		}
	}
	return n
}

// PatternParts returns how many marker+text units fit on one line.
func PatternParts(text string) int {
	unit := len(markerUpper) + LogicalLength(text)
	parts := patternTargetChars / unit
	if parts < patternMinParts {
		return patternMinParts
	}
	if parts > patternMaxParts {
		return patternMaxParts
	}
	return parts
}

func (CCCTheme) Draw(d Drawer, s settings.Settings) {
	text := []rune(s.Text)
	parts := PatternParts(s.Text)
	ref := s.ReferenceWeight()

	measure := func(size float64) float64 {
		marker := d.MeasureText(markerUpper, TextStyle{Size: size, Weight: ref}).Width
		return float64(parts) * (marker + measureRunes(d, text, ref, size))
	}

	fit := FitBlock(measure, s)
	lineWidth := measure(fit.Size)
	markerWidth := d.MeasureText(markerUpper, TextStyle{Size: fit.Size, Weight: ref}).Width

	canvas := layout.Square(s.CanvasSize)
	markerWeight := SineWeight(s.Time*markerSpeed, s.MinWeight, s.MaxWeight)
	breatheWeight := SineWeight(s.Time*s.AnimationSpeed*breatheSpeed, s.MinWeight, s.MaxWeight)

	for lineIndex := 0; lineIndex < s.NumLines; lineIndex++ {
		y := fit.LineY(lineIndex)
		x := canvas.CenterX(lineWidth)
		charIndex := 0

		drawMarker := func(marker string) {
			d.DrawText(marker, x, y, TextStyle{
				Color:    charColor(s, charIndex, lineIndex, len(text)),
				Size:     fit.Size,
				Weight:   markerWeight,
				Baseline: BaselineTop,
			})
			// Both cases advance by the uppercase width so columns line up.
			x += markerWidth
			charIndex += len(marker)
		}
		drawText := func() {
			for i, r := range text {
				ch := string(r)
				d.DrawText(ch, x, y, TextStyle{
					Color:    charColor(s, charIndex+i, lineIndex, len(text)),
					Size:     fit.Size,
					Weight:   breatheWeight,
					Baseline: BaselineTop,
				})
				x += d.MeasureText(ch, TextStyle{Size: fit.Size, Weight: ref}).Width
			}
			charIndex += len(text)
		}

		markerFirst := lineIndex%2 == 0
		for part := 0; part < parts; part++ {
			marker := markerUpper
			if part%2 == 1 {
				marker = markerLower
			}
			if markerFirst {
				drawMarker(marker)
				drawText()
			} else {
				drawText()
				drawMarker(marker)
			}
		}
	}
}
