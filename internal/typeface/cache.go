package typeface

import (
	"math"

	"golang.org/x/image/font"
)

// maxFaces bounds the cache; auto-fit produces a handful of sizes per frame.
const maxFaces = 48

// Cache keeps faces per size for one drawing surface. It is not safe for
// concurrent use: faces carry glyph buffers.
type Cache struct {
	font  *Font
	faces map[int64]font.Face
}

func NewCache(f *Font) *Cache {
	return &Cache{font: f, faces: map[int64]font.Face{}}
}

func (c *Cache) Font() *Font { return c.font }

// Face returns a face for size, quantized to 1/64 px.
func (c *Cache) Face(size float64) (font.Face, error) {
	key := int64(math.Round(size * 64))
	if face, ok := c.faces[key]; ok {
		return face, nil
	}
	if len(c.faces) >= maxFaces {
		c.Close()
	}
	face, err := c.font.NewFace(float64(key) / 64)
	if err != nil {
		return nil, err
	}
	c.faces[key] = face
	return face, nil
}

// Close releases every cached face.
func (c *Cache) Close() {
	for key, face := range c.faces {
		_ = face.Close()
		delete(c.faces, key)
	}
}
