package render

import (
	"image/color"
	"unicode/utf8"

	"github.com/rook-computer/kinetype/internal/typeface"
)

// recorder is a Drawer with linear, font-free metrics that logs every call.
type recorder struct {
	width, height int
	background    color.Color
	texts         []textCall
	shapes        int
	layers        []*recorder
	blits         []blitCall
}

type textCall struct {
	text  string
	x, y  float64
	style TextStyle
}

type blitCall struct {
	layer          *recorder
	x, y           float64
	scaleX, scaleY float64
}

// advance per character in multiples of the font size.
const recorderAdvance = 0.6

func newRecorder(size int) *recorder { return &recorder{width: size, height: size} }

func (r *recorder) Size() (int, int)                         { return r.width, r.height }
func (r *recorder) FillBackground(c color.Color)             { r.background = c }
func (r *recorder) FillRect(x, y, w, h float64, c color.Color) { r.shapes++ }
func (r *recorder) FillPill(x, y, w, h float64, c color.Color) { r.shapes++ }
func (r *recorder) FillCircle(cx, cy, rad float64, c color.Color) {
	r.shapes++
}

func (r *recorder) MeasureText(text string, style TextStyle) TextMetrics {
	n := float64(utf8.RuneCountInString(text))
	return TextMetrics{
		Width:   n * (style.Size*recorderAdvance + typeface.Stroke(style.Size, style.Weight)),
		Ascent:  style.Size * 0.8,
		Descent: style.Size * 0.2,
	}
}

func (r *recorder) DrawText(text string, x, y float64, style TextStyle) TextMetrics {
	r.texts = append(r.texts, textCall{text: text, x: x, y: y, style: style})
	return r.MeasureText(text, style)
}

func (r *recorder) NewLayer(width, height int) Drawer {
	layer := &recorder{width: width, height: height}
	r.layers = append(r.layers, layer)
	return layer
}

func (r *recorder) DrawLayer(layer Drawer, x, y, scaleX, scaleY float64) {
	rec, _ := layer.(*recorder)
	r.blits = append(r.blits, blitCall{layer: rec, x: x, y: y, scaleX: scaleX, scaleY: scaleY})
}

// rows groups recorded text calls by their y coordinate, in call order.
func (r *recorder) rows() [][]textCall {
	var out [][]textCall
	index := map[float64]int{}
	for _, c := range r.texts {
		i, ok := index[c.y]
		if !ok {
			i = len(out)
			index[c.y] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], c)
	}
	return out
}
