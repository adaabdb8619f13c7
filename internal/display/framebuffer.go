package display

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Framebuffer presents square frames letterboxed onto a display surface.
type Framebuffer struct {
	Logger Logger

	target  draw.Image
	release func()
	staging *image.RGBA
	frames  uint64
}

// NewFramebuffer wraps any drawable surface. OpenFramebuffer opens a device.
func NewFramebuffer(target draw.Image) *Framebuffer {
	return &Framebuffer{Logger: noopLogger{}, target: target, release: func() {}}
}

// FitRect returns the largest rectangle with src's aspect ratio centered in dst.
func FitRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}
	w, h := dw, dw*sh/sw
	if h > dh {
		w, h = dh*sw/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// Present scales frame onto the surface. It implements animation.Sink.
func (f *Framebuffer) Present(frame *image.RGBA) error {
	bounds := f.target.Bounds()
	if f.staging == nil || f.staging.Bounds() != bounds {
		f.staging = image.NewRGBA(bounds)
		draw.Draw(f.staging, bounds, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
		if f.Logger != nil {
			f.Logger.Infof("fb", "staging %dx%d, frame %dx%d", bounds.Dx(), bounds.Dy(), frame.Bounds().Dx(), frame.Bounds().Dy())
		}
	}
	dst := FitRect(frame.Bounds(), bounds)
	if dst.Empty() {
		return nil
	}
	xdraw.ApproxBiLinear.Scale(f.staging, dst, frame, frame.Bounds(), xdraw.Src, nil)
	f.blit(dst)
	f.frames++
	return nil
}

// blit copies the letterboxed region of the staging image to the surface.
func (f *Framebuffer) blit(rect image.Rectangle) {
	if rgba, ok := f.target.(*image.RGBA); ok {
		draw.Draw(rgba, rect, f.staging, rect.Min, draw.Src)
		return
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			p := f.staging.RGBAAt(x, y)
			f.target.Set(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xFF})
		}
	}
}

// Frames reports how many frames have been presented.
func (f *Framebuffer) Frames() uint64 { return f.frames }

func (f *Framebuffer) Close() error {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	return nil
}
