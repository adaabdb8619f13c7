package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rook-computer/kinetype/internal/animation"
	"github.com/rook-computer/kinetype/internal/render"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
)

var (
	ErrExportInFlight = errors.New("an export is already running")
	ErrNotAnimated    = errors.New("theme is not animated")
	ErrCancelled      = errors.New("export cancelled")
)

const (
	MinResolution = 1
	MaxResolution = 8

	// DefaultMaxEdge bounds the pixel edge of any export.
	DefaultMaxEdge = 8192
)

// Result is a finished export.
type Result struct {
	Filename string
	MIMEType string
	Data     []byte
}

// FrameSource feeds the settings snapshot of every live frame to a tap.
type FrameSource interface {
	Attach(tap animation.Tap) (detach func())
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Exporter renders stills and timed captures. At most one export runs at a time.
type Exporter struct {
	Store  *settings.Store
	Source FrameSource
	Font   *typeface.Font

	Prober  Prober
	Encoder EncoderFunc
	Logger  Logger
	// MaxEdge caps the output edge in pixels; zero means DefaultMaxEdge.
	MaxEdge int
	// Now stamps filenames.
	Now func() time.Time

	busy atomic.Bool

	mu      sync.Mutex
	current *Capture
}

// New returns an Exporter that encodes video through the ffmpeg binary on PATH.
func New(store *settings.Store, source FrameSource, font *typeface.Font) *Exporter {
	return &Exporter{
		Store:   store,
		Source:  source,
		Font:    font,
		Prober:  &FFmpegProber{Path: "ffmpeg"},
		Encoder: NewEncoder("ffmpeg"),
		Logger:  noopLogger{},
		MaxEdge: DefaultMaxEdge,
		Now:     time.Now,
	}
}

// ClampResolution limits a resolution multiplier to [MinResolution, MaxResolution].
func ClampResolution(resolution float64) float64 {
	if math.IsNaN(resolution) {
		return MinResolution
	}
	return math.Max(MinResolution, math.Min(MaxResolution, resolution))
}

// FitResolution clamps resolution and lowers it further when canvasSize
// times resolution would exceed maxEdge pixels.
func FitResolution(resolution, canvasSize float64, maxEdge int) float64 {
	res := ClampResolution(resolution)
	if maxEdge > 0 && canvasSize > 0 && canvasSize*res > float64(maxEdge) {
		res = float64(maxEdge) / canvasSize
	}
	return res
}

// Filename builds kinetype-<theme>-<YYYYMMDD-HHMMSS>.<ext>.
func Filename(theme string, at time.Time, ext string) string {
	return fmt.Sprintf("kinetype-%s-%s.%s", theme, at.Format("20060102-150405"), ext)
}

// Busy reports whether an export is in flight.
func (e *Exporter) Busy() bool { return e.busy.Load() }

// Current returns the most recent timed capture, running or finished.
func (e *Exporter) Current() *Capture {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Still renders the current frame at resolution times the canvas size and
// encodes it as PNG. The live settings are not modified.
func (e *Exporter) Still(ctx context.Context, resolution float64) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, ErrExportInFlight
	}
	defer e.busy.Store(false)

	live := e.Store.Snapshot()
	res := e.resolution(resolution, live.CanvasSize)
	s := live.Scaled(res)
	size := int(math.Round(s.CanvasSize))

	canvas := render.NewCanvas(size, size, e.Font)
	defer canvas.Close()
	render.Frame(canvas, s)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.Image()); err != nil {
		return Result{}, errors.Wrap(err, "encode png")
	}
	e.logger().Infof("export", "still %dx%d, %d bytes", size, size, buf.Len())
	return Result{
		Filename: Filename(s.Theme, e.now(), "png"),
		MIMEType: "image/png",
		Data:     buf.Bytes(),
	}, nil
}

func (e *Exporter) resolution(resolution, canvasSize float64) float64 {
	maxEdge := e.MaxEdge
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	return FitResolution(resolution, canvasSize, maxEdge)
}

func (e *Exporter) logger() Logger {
	if e.Logger == nil {
		return noopLogger{}
	}
	return e.Logger
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
