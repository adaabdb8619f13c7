package render

import (
	"math"

	"github.com/rook-computer/kinetype/internal/palette"
	"github.com/rook-computer/kinetype/internal/render/layout"
	"github.com/rook-computer/kinetype/internal/settings"
)

// Toggle39C3Theme is the two-row banner: toggle + logo, then the user text
// condensed horizontally when it is too wide.
type Toggle39C3Theme struct{}

// Base sizes at a 1000px canvas.
const (
	bannerToggleHeight = 150.0
	bannerLogoSize     = 200.0
	bannerTextSize     = 200.0
	bannerRowSpacing   = 0.15
)

// BannerLayout is the measured geometry of the toggle39c3 banner.
type BannerLayout struct {
	ToggleHeight   float64
	ToggleWidth    float64
	LogoSize       float64
	LogoWidth      float64
	FirstRowWidth  float64
	TextSize       float64
	TextWidth      float64 // unscaled width of the user text at TextSize
	SecondRowWidth float64 // painted width, after condensation
	// Condense is the horizontal scale applied to the text row, never above 1.
	Condense float64
}

// LayoutBanner runs the three fitting passes. Everything is measured at
// maxWeight, the widest the text can get.
func LayoutBanner(d Drawer, s settings.Settings) BannerLayout {
	base := s.CanvasSize / 1000
	usable := s.UsableSize()
	text := []rune(s.Text)
	logo := []rune(settings.LogoText)

	l := BannerLayout{
		ToggleHeight: bannerToggleHeight * base,
		LogoSize:     bannerLogoSize * base,
		TextSize:     bannerTextSize * base,
		Condense:     1,
	}
	l.ToggleWidth = l.ToggleHeight * DefaultToggleRatio
	l.LogoWidth = measureRunes(d, logo, s.MaxWeight, l.LogoSize)
	l.FirstRowWidth = l.ToggleWidth + l.LogoWidth

	// Row 1 shrinks uniformly.
	if shrink := layout.ShrinkToFit(l.FirstRowWidth, usable); shrink < 1 {
		l.ToggleHeight *= shrink
		l.ToggleWidth = l.ToggleHeight * DefaultToggleRatio
		l.LogoSize *= shrink
		l.LogoWidth = measureRunes(d, logo, s.MaxWeight, l.LogoSize)
		l.FirstRowWidth = l.ToggleWidth + l.LogoWidth
	}

	// Row 2 condenses instead of shrinking so glyph weight is preserved.
	l.TextWidth = measureRunes(d, text, s.MaxWeight, l.TextSize)
	l.SecondRowWidth = l.TextWidth
	if condense := layout.ShrinkToFit(l.SecondRowWidth, usable); condense < 1 {
		l.Condense = condense
		l.SecondRowWidth = usable
	}

	if widest := math.Max(l.FirstRowWidth, l.SecondRowWidth); widest > usable {
		global := usable / widest
		l.ToggleHeight *= global
		l.ToggleWidth = l.ToggleHeight * DefaultToggleRatio
		l.LogoSize *= global
		l.LogoWidth = measureRunes(d, logo, s.MaxWeight, l.LogoSize)
		l.FirstRowWidth = l.ToggleWidth + l.LogoWidth

		l.TextSize *= global
		l.TextWidth = measureRunes(d, text, s.MaxWeight, l.TextSize)
		l.SecondRowWidth = l.TextWidth * l.Condense
	}
	return l
}

func (Toggle39C3Theme) Draw(d Drawer, s settings.Settings) {
	preset, _ := settings.LookupPreset(s.Theme)
	animated := s.Capabilities.Animated
	text := []rune(s.Text)
	n := len(text)

	l := LayoutBanner(d, s)
	fg := charColor(s, 0, 0, 1)

	rowSpacing := l.TextSize * bannerRowSpacing
	totalHeight := l.ToggleHeight + rowSpacing + l.TextSize
	canvas := layout.Square(s.CanvasSize)
	startY := canvas.CenterY(totalHeight)

	// Row 1: toggle, then the logo right after it.
	row1X := canvas.CenterX(l.FirstRowWidth)
	glyph := ToggleGlyph{
		Height:     l.ToggleHeight,
		Color:      fg,
		Background: palette.Background(s.ColorMode),
		Filled:     true,
		Pinned:     !animated,
	}
	glyph.Draw(d, row1X, startY, s.Time, 0)
	d.DrawText(settings.LogoText, row1X+l.ToggleWidth, startY+l.ToggleHeight/2, TextStyle{
		Color:    fg,
		Size:     l.LogoSize,
		Weight:   s.MaxWeight,
		Baseline: BaselineMiddle,
	})

	// Row 2 is painted unscaled into a layer and blitted once with the
	// condensation applied.
	pad := math.Ceil(l.TextSize * 0.25)
	layerW := int(math.Ceil(l.TextWidth + 2*pad))
	layerH := int(math.Ceil(l.TextSize*1.5 + 2*pad))
	layer := d.NewLayer(layerW, layerH)

	staticWeight := preset.StaticWeightOr(s.MaxWeight)
	x := pad
	for charIndex, r := range text {
		ch := string(r)
		weight := staticWeight
		if animated {
			weight = ToggleWeight(charIndex, s.Time, s.AnimationSpeed, s.MinWeight, s.MaxWeight)
		}
		layer.DrawText(ch, x, float64(layerH)/2, TextStyle{
			Color:    charColor(s, charIndex, 0, n),
			Size:     l.TextSize,
			Weight:   weight,
			Baseline: BaselineMiddle,
		})
		x += layer.MeasureText(ch, TextStyle{Size: l.TextSize, Weight: s.MaxWeight}).Width
	}

	row2Y := startY + l.ToggleHeight + rowSpacing + l.TextSize/2
	row2X := canvas.CenterX(l.SecondRowWidth)
	d.DrawLayer(layer, row2X-pad*l.Condense, row2Y-float64(layerH)/2, l.Condense, 1)
}
