package render

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/rook-computer/kinetype/internal/palette"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFont(t *testing.T) *typeface.Font {
	t.Helper()
	f, err := typeface.Default()
	require.NoError(t, err)
	return f
}

func newTestCanvas(t *testing.T, size int) *Canvas {
	t.Helper()
	c := NewCanvas(size, size, mustFont(t))
	t.Cleanup(c.Close)
	return c
}

func TestCanvasMeasureMatchesDraw(t *testing.T) {
	c := newTestCanvas(t, 400)
	style := TextStyle{Color: palette.Natural, Size: 48, Weight: 70, Baseline: BaselineTop}
	drawn := c.DrawText("KINETIC", 10, 10, style)
	measured := c.MeasureText("KINETIC", style)
	assert.InDelta(t, measured.Width, drawn.Width, 1e-9)
	assert.Greater(t, measured.Ascent, 0.0)
}

func TestCanvasWeightWidensText(t *testing.T) {
	c := newTestCanvas(t, 200)
	light := c.MeasureText("HELLO", TextStyle{Size: 100, Weight: 10})
	heavy := c.MeasureText("HELLO", TextStyle{Size: 100, Weight: 100})
	assert.InDelta(t, 5*(typeface.Stroke(100, 100)-typeface.Stroke(100, 10)), heavy.Width-light.Width, 1e-6)
}

func TestCanvasLogoFallsBackToSubstitute(t *testing.T) {
	c := newTestCanvas(t, 200)
	if mustFont(t).HasGlyph(settings.LogoRune) {
		t.Skip("font carries the logo glyph")
	}
	style := TextStyle{Size: 40, Weight: 50}
	assert.InDelta(t,
		c.MeasureText(logoSubstitute, style).Width,
		c.MeasureText(settings.LogoText, style).Width,
		1e-9)
}

func TestCanvasFrameIsIdempotent(t *testing.T) {
	s := settings.Default()
	s.CanvasSize = 256
	s.Margin = 12
	s.Time = 1.25

	for _, theme := range []string{settings.ThemeLines, settings.ThemeToggle, settings.ThemeToggle39C3Animated, settings.ThemeCCC} {
		t.Run(theme, func(t *testing.T) {
			s.Theme = theme
			c := newTestCanvas(t, 256)
			Frame(c, s)
			first := c.Snapshot()
			Frame(c, s)
			assert.Equal(t, first.Pix, c.Image().Pix)
		})
	}
}

func TestCanvasEmptyTextIsBackground(t *testing.T) {
	s := settings.Default()
	s.Text = ""
	s.CanvasSize = 64
	c := newTestCanvas(t, 64)
	Frame(c, s)

	want := palette.Background(s.ColorMode)
	img := c.Image()
	for _, p := range []image.Point{{0, 0}, {32, 32}, {63, 63}} {
		assert.Equal(t, want, img.RGBAAt(p.X, p.Y))
	}
}

func TestCanvasTextPaintsForeground(t *testing.T) {
	c := newTestCanvas(t, 200)
	c.FillBackground(color.RGBA{A: 0xFF})
	c.DrawText("M", 20, 20, TextStyle{Color: color.RGBA{R: 0xFF, A: 0xFF}, Size: 120, Weight: 100, Baseline: BaselineTop})

	painted := 0
	img := c.Image()
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			painted++
		}
	}
	assert.Greater(t, painted, 100)
}

func TestCanvasDrawLayerScales(t *testing.T) {
	c := newTestCanvas(t, 100)
	c.FillBackground(color.RGBA{A: 0xFF})
	layer := c.NewLayer(40, 10)
	layer.FillRect(0, 0, 40, 10, color.RGBA{G: 0xFF, A: 0xFF})

	c.DrawLayer(layer, 10, 10, 0.5, 1)

	img := c.Image()
	assert.Equal(t, uint8(0xFF), img.RGBAAt(15, 15).G)
	assert.Equal(t, uint8(0), img.RGBAAt(35, 15).G, "condensed layer stops at half its width")
	assert.Equal(t, uint8(0), img.RGBAAt(15, 25).G)
}

func TestCanvasShapesStayInBounds(t *testing.T) {
	c := newTestCanvas(t, 50)
	require.NotPanics(t, func() {
		c.FillPill(-20, -20, 200, 30, palette.Natural)
		c.FillCircle(60, 60, 30, palette.Natural)
		c.FillRect(-5, 40, 100, 100, palette.Natural)
		c.FillPill(0, 0, 0, 10, palette.Natural)
	})
}

func TestFitBlockOnCanvasStaysInsideMargins(t *testing.T) {
	cases := []struct {
		text           string
		canvas, margin float64
		lines          int
	}{
		{strings.Repeat("W", 40), 1000, 70, 1},
		{"AVAVAV TO", 64, 4.48, 1},
		{"AVAVAV TO", 64, 4.48, 3},
		{settings.DefaultText, 1000, 50, 11},
		{"HELLO", 333, 17.3, 2},
		{strings.Repeat("IW", 13), 517, 21.7, 1},
	}
	for _, tc := range cases {
		c := newTestCanvas(t, int(tc.canvas))
		s := settings.Default()
		s.Text = tc.text
		s.NumLines = tc.lines
		s.CanvasSize = tc.canvas
		s.Margin = tc.margin
		ref := s.ReferenceWeight()
		text := []rune(tc.text)
		measure := func(size float64) float64 { return measureRunes(c, text, ref, size) }

		fit := FitBlock(measure, s)
		usable := s.UsableSize()
		assert.LessOrEqual(t, measure(fit.Size), usable+1e-9, "%q at %v", tc.text, tc.canvas)
		assert.LessOrEqual(t, fit.BlockHeight, usable+1e-9, "%q at %v", tc.text, tc.canvas)
		if tc.lines == 1 {
			assert.Greater(t, measure(fit.Size), usable*0.9, "%q should still fill the width", tc.text)
		}
	}
}

// genericMask hides *image.Alpha so paintGlyph takes the image/draw path.
type genericMask struct{ *image.Alpha }

func glyphMask() *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, 12, 10))
	for y := 2; y < 8; y++ {
		for x := 3; x < 9; x++ {
			m.SetAlpha(x, y, color.Alpha{A: uint8(40 * (x - 2))})
		}
	}
	return m
}

func TestPaintGlyphDilationMatchesDraw(t *testing.T) {
	mask := glyphMask()
	src := &image.Uniform{C: color.RGBA{R: 0xFF, A: 0xFF}}
	dr := image.Rect(20, 20, 32, 30)

	for _, stroke := range []float64{0.2, 1, 2.5, 4.75} {
		fast := newTestCanvas(t, 64)
		slow := newTestCanvas(t, 64)
		fast.paintGlyph(dr, mask, image.Point{}, src, stroke)
		slow.paintGlyph(dr, genericMask{mask}, image.Point{}, src, stroke)

		for i := range fast.img.Pix {
			assert.InDelta(t, int(slow.img.Pix[i]), int(fast.img.Pix[i]), 2, "stroke %v byte %d", stroke, i)
		}
	}
}

func TestPaintGlyphReusesMask(t *testing.T) {
	c := newTestCanvas(t, 64)
	mask := glyphMask()
	src := &image.Uniform{C: color.RGBA{G: 0xFF, A: 0xFF}}
	dr := image.Rect(10, 10, 22, 20)
	c.paintGlyph(dr, mask, image.Point{}, src, 3.4)

	allocs := testing.AllocsPerRun(20, func() {
		c.paintGlyph(dr, mask, image.Point{}, src, 3.4)
	})
	assert.Zero(t, allocs)
}
