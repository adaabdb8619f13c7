package render

import (
	"github.com/rook-computer/kinetype/internal/render/layout"
	"github.com/rook-computer/kinetype/internal/settings"
)

// ReferenceSize is the font size blocks are measured at before scaling.
const ReferenceSize = 1000.0

// BlockFit is the auto-fit result for a stack of equal-height lines.
type BlockFit struct {
	Size        float64 // final font size
	LineSpacing float64
	BlockHeight float64
	TopY        float64
	// StartY is the top of the last line; line i sits at StartY - i*LineSpacing.
	StartY float64
}

// LineY returns the top of line lineIndex.
func (f BlockFit) LineY(lineIndex int) float64 {
	return f.StartY - float64(lineIndex)*f.LineSpacing
}

// Refits after the first estimate. Glyph advances are rounded to 1/64 px, so
// width is only roughly linear in size.
const (
	maxRefits    = 8
	fitTolerance = 1e-9
)

// FitBlock sizes a block whose widest line is measured by measure so that it
// fits the canvas minus margins, then centers it vertically with the
// configured offset. The first size comes from a measurement at
// ReferenceSize; the block is then re-measured and shrunk until it fits.
func FitBlock(measure func(size float64) float64, s settings.Settings) BlockFit {
	lines := float64(s.NumLines - 1)
	heightAtRef := ReferenceSize + lines*ReferenceSize*s.LineSpacingFactor

	usable := layout.Inset(layout.Square(s.CanvasSize), s.Margin)
	scale := layout.FitScale(measure(ReferenceSize), heightAtRef, usable)
	fit := blockAt(ReferenceSize*scale, s)

	for i := 0; i < maxRefits; i++ {
		width := measure(fit.Size)
		if width <= usable.W+fitTolerance {
			break
		}
		fit = blockAt(fit.Size*usable.W/width, s)
	}
	return fit
}

func blockAt(size float64, s settings.Settings) BlockFit {
	lines := float64(s.NumLines - 1)
	spacing := size * s.LineSpacingFactor
	height := size + lines*spacing
	top := (s.CanvasSize-height)/2 + s.VerticalOffset
	return BlockFit{
		Size:        size,
		LineSpacing: spacing,
		BlockHeight: height,
		TopY:        top,
		StartY:      top + lines*spacing,
	}
}
