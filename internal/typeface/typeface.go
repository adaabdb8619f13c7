// Package typeface loads the font used by every theme and hands out sized faces.
//
// Weight is synthetic: faces are always the regular cut and the canvas widens
// each glyph by Stroke(size, weight) pixels when painting.
package typeface

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// StrokeFactor converts weight units into pixels of horizontal dilation per pixel of font size.
const StrokeFactor = 0.0008

// Stroke is the extra ink width, and extra advance, of one glyph at weight.
func Stroke(size, weight float64) float64 {
	if weight <= 0 || size <= 0 {
		return 0
	}
	return size * StrokeFactor * weight
}

// Font is a parsed font. TrueType outlines go through freetype; CFF-flavoured
// OpenType files, which freetype cannot read, go through x/image/font/opentype.
type Font struct {
	Name string
	tt   *truetype.Font
	ot   *opentype.Font

	mu  sync.Mutex
	buf sfnt.Buffer
}

// Parse reads TTF or OTF bytes.
func Parse(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, errors.New("empty font data")
	}
	tt, ttErr := truetype.Parse(data)
	if ttErr == nil {
		return &Font{Name: name, tt: tt}, nil
	}
	ot, otErr := opentype.Parse(data)
	if otErr != nil {
		return nil, fmt.Errorf("parse font %s: truetype: %v; opentype: %w", name, ttErr, otErr)
	}
	return &Font{Name: name, ot: ot}, nil
}

// Load parses a font file from disk.
func Load(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return Parse(path, data)
}

// Default returns the bundled Go Regular font.
func Default() (*Font, error) {
	return Parse("goregular", goregular.TTF)
}

// NewFace builds a face at size pixels (72 DPI, so points equal pixels).
func (f *Font) NewFace(size float64) (font.Face, error) {
	if f.tt != nil {
		return truetype.NewFace(f.tt, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone}), nil
	}
	return opentype.NewFace(f.ot, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// HasGlyph reports whether the font maps r to a real glyph.
func (f *Font) HasGlyph(r rune) bool {
	if f.tt != nil {
		return f.tt.Index(r) != 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.ot.GlyphIndex(&f.buf, r)
	return err == nil && idx != 0
}
