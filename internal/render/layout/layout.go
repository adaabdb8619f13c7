// Package layout holds the box arithmetic shared by the themes.
package layout

import "math"

// Box is an axis-aligned rectangle in canvas pixels.
type Box struct {
	X, Y, W, H float64
}

// Square returns the box of a size x size canvas.
func Square(size float64) Box {
	return Box{W: size, H: size}
}

// Inset shrinks box by padding on all sides.
func Inset(box Box, padding float64) Box {
	if padding <= 0 {
		return box
	}
	return Normalize(Box{X: box.X + padding, Y: box.Y + padding, W: box.W - 2*padding, H: box.H - 2*padding})
}

// Normalize clamps negative extents to zero.
func Normalize(box Box) Box {
	if box.W < 0 {
		box.X += box.W / 2
		box.W = 0
	}
	if box.H < 0 {
		box.Y += box.H / 2
		box.H = 0
	}
	return box
}

// CenterX returns the left edge that centers width horizontally in box.
func (box Box) CenterX(width float64) float64 {
	return box.X + (box.W-width)/2
}

// CenterY returns the top edge that centers height vertically in box.
func (box Box) CenterY(height float64) float64 {
	return box.Y + (box.H-height)/2
}

// FitScale is the largest uniform scale that fits width x height into box.
// Zero-sized content only constrains on the other axis.
func FitScale(width, height float64, box Box) float64 {
	scale := math.Inf(1)
	if width > 0 {
		scale = box.W / width
	}
	if height > 0 {
		scale = math.Min(scale, box.H/height)
	}
	if math.IsInf(scale, 1) {
		return 1
	}
	return math.Max(scale, 0)
}

// ShrinkToFit returns 1 when width fits in limit, else limit/width.
func ShrinkToFit(width, limit float64) float64 {
	if width <= limit || width <= 0 {
		return 1
	}
	return limit / width
}
