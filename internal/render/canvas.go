package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// logoSubstitute is drawn in place of the logo code point when the loaded
// font has no glyph for it.
const logoSubstitute = "39C3"

// Canvas is the raster Drawer backed by an RGBA image.
type Canvas struct {
	img   *image.RGBA
	faces *typeface.Cache
	ras   *vector.Rasterizer

	// scratch backs the emboldened glyph mask, reused across glyphs.
	scratch []uint8
	bold    image.Alpha
}

// NewCanvas allocates a transparent canvas of width x height pixels.
func NewCanvas(width, height int, f *typeface.Font) *Canvas {
	return newCanvas(width, height, typeface.NewCache(f))
}

func newCanvas(width, height int, faces *typeface.Cache) *Canvas {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		faces: faces,
		ras:   vector.NewRasterizer(width, height),
	}
}

// Image exposes the backing pixels. Callers must not keep it across frames
// if the canvas keeps being drawn on.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Snapshot returns a copy of the current pixels.
func (c *Canvas) Snapshot() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// Close releases cached font faces.
func (c *Canvas) Close() { c.faces.Close() }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) FillBackground(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) {
	rect := image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h)))
	draw.Draw(c.img, rect.Intersect(c.img.Bounds()), &image.Uniform{C: col}, image.Point{}, draw.Over)
}

func (c *Canvas) FillPill(x, y, w, h float64, col color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r := math.Min(w, h) / 2
	c.resetPath()
	c.ras.MoveTo(float32(x+r), float32(y))
	c.ras.LineTo(float32(x+w-r), float32(y))
	arcTo(c.ras, x+w-r, y+r, r, -math.Pi/2, math.Pi/2)
	c.ras.LineTo(float32(x+r), float32(y+h))
	arcTo(c.ras, x+r, y+r, r, math.Pi/2, 3*math.Pi/2)
	c.ras.ClosePath()
	c.fillPath(col)
}

func (c *Canvas) FillCircle(cx, cy, radius float64, col color.Color) {
	if radius <= 0 {
		return
	}
	c.resetPath()
	c.ras.MoveTo(float32(cx+radius), float32(cy))
	arcTo(c.ras, cx, cy, radius, 0, 2*math.Pi)
	c.ras.ClosePath()
	c.fillPath(col)
}

func (c *Canvas) MeasureText(text string, style TextStyle) TextMetrics {
	face, err := c.faces.Face(style.Size)
	if err != nil {
		return TextMetrics{}
	}
	stroke := typeface.Stroke(style.Size, style.Weight)
	width := 0.0
	prev := rune(-1)
	for _, r := range c.shape(text) {
		if prev >= 0 {
			width += unfix(face.Kern(prev, r))
		}
		adv, _ := face.GlyphAdvance(r)
		width += unfix(adv) + stroke
		prev = r
	}
	m := face.Metrics()
	return TextMetrics{Width: width, Ascent: unfix(m.Ascent), Descent: unfix(m.Descent)}
}

func (c *Canvas) DrawText(text string, x, y float64, style TextStyle) TextMetrics {
	face, err := c.faces.Face(style.Size)
	if err != nil {
		return TextMetrics{}
	}
	m := face.Metrics()
	ascent, descent := unfix(m.Ascent), unfix(m.Descent)
	baseline := y
	switch style.Baseline {
	case BaselineTop:
		baseline = y + ascent
	case BaselineMiddle:
		baseline = y + (ascent-descent)/2
	}

	src := &image.Uniform{C: style.Color}
	stroke := typeface.Stroke(style.Size, style.Weight)
	pen := x
	prev := rune(-1)
	for _, r := range c.shape(text) {
		if prev >= 0 {
			pen += unfix(face.Kern(prev, r))
		}
		dot := fixed.Point26_6{X: fix(pen), Y: fix(baseline)}
		dr, mask, maskp, adv, ok := face.Glyph(dot, r)
		if ok && !dr.Empty() {
			c.paintGlyph(dr, mask, maskp, src, stroke)
		}
		pen += unfix(adv) + stroke
		prev = r
	}
	return TextMetrics{Width: pen - x, Ascent: ascent, Descent: descent}
}

func (c *Canvas) NewLayer(width, height int) Drawer {
	return newCanvas(width, height, c.faces)
}

func (c *Canvas) DrawLayer(layer Drawer, x, y, scaleX, scaleY float64) {
	src, ok := layer.(*Canvas)
	if !ok || scaleX <= 0 || scaleY <= 0 {
		return
	}
	sb := src.img.Bounds()
	dst := image.Rect(
		int(math.Round(x)),
		int(math.Round(y)),
		int(math.Round(x+float64(sb.Dx())*scaleX)),
		int(math.Round(y+float64(sb.Dy())*scaleY)),
	)
	if dst.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(c.img, dst, src.img, sb, xdraw.Over, nil)
}

// shape maps text onto the runes actually drawn.
func (c *Canvas) shape(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if r == settings.LogoRune && !c.faces.Font().HasGlyph(r) {
			out = append(out, []rune(logoSubstitute)...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// paintGlyph composites a glyph mask, dilated horizontally by stroke pixels.
func (c *Canvas) paintGlyph(dr image.Rectangle, mask image.Image, maskp image.Point, src image.Image, stroke float64) {
	if stroke < 0.5 {
		draw.DrawMask(c.img, dr, src, image.Point{}, mask, maskp, draw.Over)
		return
	}
	whole := int(stroke)
	frac := stroke - float64(whole)
	bold := c.boldMask(image.Rect(dr.Min.X, dr.Min.Y, dr.Max.X+whole+1, dr.Max.Y))

	if a, ok := mask.(*image.Alpha); ok && (image.Rectangle{Min: maskp, Max: maskp.Add(dr.Size())}).In(a.Rect) {
		dilate(bold, dr, a, maskp, whole, frac)
	} else {
		for k := 0; k <= whole; k++ {
			draw.Draw(bold, dr.Add(image.Pt(k, 0)), mask, maskp, draw.Over)
		}
		if frac > 0 {
			partial := &image.Uniform{C: color.Alpha{A: uint8(frac * 0xFF)}}
			draw.DrawMask(bold, dr.Add(image.Pt(whole+1, 0)), mask, maskp, partial, image.Point{}, draw.Over)
		}
	}
	draw.DrawMask(c.img, bold.Rect, src, image.Point{}, bold, bold.Rect.Min, draw.Over)
}

// boldMask returns a cleared alpha mask covering r. It stays valid until the
// next call.
func (c *Canvas) boldMask(r image.Rectangle) *image.Alpha {
	n := r.Dx() * r.Dy()
	if cap(c.scratch) < n {
		c.scratch = make([]uint8, n)
	}
	pix := c.scratch[:n]
	clear(pix)
	c.bold = image.Alpha{Pix: pix, Stride: r.Dx(), Rect: r}
	return &c.bold
}

// dilate ORs the glyph mask into dst at offsets 0..whole, plus a partial
// copy at whole+1 scaled by frac.
func dilate(dst *image.Alpha, dr image.Rectangle, src *image.Alpha, sp image.Point, whole int, frac float64) {
	fa := uint32(frac*0xFF) * 0x101
	w, h := dr.Dx(), dr.Dy()
	for y := 0; y < h; y++ {
		srow := src.Pix[src.PixOffset(sp.X, sp.Y+y):]
		drow := dst.Pix[dst.PixOffset(dr.Min.X, dr.Min.Y+y):]
		for x := 0; x < w; x++ {
			a := uint32(srow[x]) * 0x101
			if a == 0 {
				continue
			}
			for k := 0; k <= whole; k++ {
				drow[x+k] = alphaOver(drow[x+k], a)
			}
			if fa > 0 {
				drow[x+whole+1] = alphaOver(drow[x+whole+1], a*fa/0xFFFF)
			}
		}
	}
}

// alphaOver composites 16-bit coverage a over dst with image/draw's rounding.
func alphaOver(dst uint8, a uint32) uint8 {
	da := uint32(dst) * 0x101
	return uint8((da*(0xFFFF-a)/0xFFFF + a) >> 8)
}

func (c *Canvas) resetPath() {
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
}

func (c *Canvas) fillPath(col color.Color) {
	c.ras.DrawOp = draw.Over
	c.ras.Draw(c.img, c.img.Bounds(), &image.Uniform{C: col}, image.Point{})
}

// arcTo appends a circular arc from angle a0 to a1 (radians, clockwise in
// screen space) as cubic segments of at most a quarter turn.
func arcTo(z *vector.Rasterizer, cx, cy, r, a0, a1 float64) {
	segments := int(math.Ceil(math.Abs(a1-a0) / (math.Pi / 2)))
	if segments < 1 {
		segments = 1
	}
	step := (a1 - a0) / float64(segments)
	k := 4.0 / 3.0 * math.Tan(step/4)
	for i := 0; i < segments; i++ {
		s := a0 + float64(i)*step
		e := s + step
		x0, y0 := cx+r*math.Cos(s), cy+r*math.Sin(s)
		x3, y3 := cx+r*math.Cos(e), cy+r*math.Sin(e)
		x1, y1 := x0-k*r*math.Sin(s), y0+k*r*math.Cos(s)
		x2, y2 := x3+k*r*math.Sin(e), y3-k*r*math.Cos(e)
		z.CubeTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x3), float32(y3))
	}
}

func fix(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func unfix(v fixed.Int26_6) float64 { return float64(v) / 64 }
