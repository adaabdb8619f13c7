package typeface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func TestDefaultFont(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	assert.True(t, f.HasGlyph('A'))
	assert.False(t, f.HasGlyph('\uE002'))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("junk", []byte("not a font"))
	assert.Error(t, err)
	_, err = Parse("empty", nil)
	assert.Error(t, err)
}

func TestStrokeIsLinear(t *testing.T) {
	assert.Equal(t, 0.0, Stroke(100, 0))
	assert.InDelta(t, 8.0, Stroke(100, 100), 1e-9)
	assert.InDelta(t, 2*Stroke(50, 40), Stroke(100, 40), 1e-9)
}

func TestCacheReusesFaces(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	c := NewCache(f)
	defer c.Close()

	a, err := c.Face(48)
	require.NoError(t, err)
	b, err := c.Face(48.001)
	require.NoError(t, err)
	assert.Same(t, a, b)

	wide := font.MeasureString(a, "HELLO")
	bigger, err := c.Face(96)
	require.NoError(t, err)
	assert.InDelta(t, 2*float64(wide)/64, float64(font.MeasureString(bigger, "HELLO"))/64, 0.5)
}

func TestCacheEvicts(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	c := NewCache(f)
	for i := 0; i < maxFaces+5; i++ {
		_, err := c.Face(float64(10 + i))
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, len(c.faces), maxFaces)
}
