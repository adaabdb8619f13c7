package export

import (
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// gifEncoder quantizes frames to a fixed palette and writes an animated GIF
// on Close.
type gifEncoder struct {
	mu     sync.Mutex
	out    io.Writer
	opts   EncodeOptions
	anim   gif.GIF
	fps    int
	closed bool
}

func newGIFEncoder(out io.Writer, opts EncodeOptions) *gifEncoder {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	return &gifEncoder{out: out, opts: opts, fps: fps}
}

// frameDelay is the delay of frame k in hundredths of a second. Delays
// follow the rounded frame timestamps so their sum tracks the real length.
func (g *gifEncoder) frameDelay(k int) int {
	at := func(i int) int { return (i*100 + g.fps/2) / g.fps }
	d := at(k+1) - at(k)
	if d < 2 {
		// Most viewers clamp anything faster to 10.
		d = 2
	}
	return d
}

func (g *gifEncoder) WriteFrame(frame *image.RGBA) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.New("encoder closed")
	}
	b := frame.Bounds()
	if b.Dx() != g.opts.Width || b.Dy() != g.opts.Height {
		return errors.Errorf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), g.opts.Width, g.opts.Height)
	}
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.Draw(p, p.Bounds(), frame, b.Min, draw.Src)
	g.anim.Image = append(g.anim.Image, p)
	g.anim.Delay = append(g.anim.Delay, g.frameDelay(len(g.anim.Delay)))
	return nil
}

func (g *gifEncoder) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if len(g.anim.Image) == 0 {
		return errors.New("no frames captured")
	}
	if err := gif.EncodeAll(g.out, &g.anim); err != nil {
		return errors.Wrap(err, "encode gif")
	}
	g.anim = gif.GIF{}
	return nil
}

func (g *gifEncoder) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.anim = gif.GIF{}
}
