package animation

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/rook-computer/kinetype/internal/render"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
)

const (
	TargetFPS     = 30
	FrameInterval = time.Second / TargetFPS

	// PollInterval is how often Run offers a tick; Tick throttles to FrameInterval.
	PollInterval = time.Second / 60
)

// ErrNoFrame is returned by Frame before the first tick has rendered.
var ErrNoFrame = errors.New("no frame rendered yet")

// Sink receives every rendered frame. The image is only valid for the
// duration of the call.
type Sink interface {
	Present(frame *image.RGBA) error
}

// Tap is fed the settings snapshot each rendered frame was drawn from.
// Taps run on the loop goroutine and must not block.
type Tap func(s settings.Settings)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Stats is the loop's frame counter state.
type Stats struct {
	FPS    float64 `json:"fps"`
	Frames uint64  `json:"frames"`
	Time   float64 `json:"time"`
}

// Loop paces rendering of the live canvas at TargetFPS.
type Loop struct {
	store  *settings.Store
	font   *typeface.Font
	Logger Logger

	// owned by the goroutine calling Tick
	canvas    *render.Canvas
	lastFrame time.Time
	fpsStart  time.Time
	fpsFrames int

	mu      sync.Mutex
	latest  *image.RGBA
	stats   Stats
	sinks   []Sink
	taps    map[int]Tap
	nextTap int
}

func New(store *settings.Store, font *typeface.Font) *Loop {
	return &Loop{store: store, font: font, Logger: noopLogger{}, taps: map[int]Tap{}}
}

// AddSink registers a sink. Sinks cannot be removed.
func (l *Loop) AddSink(s Sink) {
	l.mu.Lock()
	l.sinks = append(l.sinks, s)
	l.mu.Unlock()
}

// Attach registers a frame tap and returns the function that detaches it.
// Detaching twice is harmless.
func (l *Loop) Attach(tap Tap) (detach func()) {
	l.mu.Lock()
	id := l.nextTap
	l.nextTap++
	l.taps[id] = tap
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.taps, id)
			l.mu.Unlock()
		})
	}
}

// Taps reports the number of attached taps.
func (l *Loop) Taps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.taps)
}

// Tick renders one frame if at least FrameInterval has passed since the last
// one. It reports whether a frame was rendered.
func (l *Loop) Tick(now time.Time) bool {
	if !l.lastFrame.IsZero() {
		elapsed := now.Sub(l.lastFrame)
		if elapsed < FrameInterval {
			return false
		}
		// Keep the cadence aligned to the interval grid.
		l.lastFrame = now.Add(-(elapsed % FrameInterval))
	} else {
		l.lastFrame = now
		l.fpsStart = now
	}

	s := l.store.Advance(settings.TimeStep)
	l.draw(s)
	l.countFrame(now, s.Time)

	l.mu.Lock()
	sinks := append([]Sink(nil), l.sinks...)
	taps := make([]Tap, 0, len(l.taps))
	for _, tap := range l.taps {
		taps = append(taps, tap)
	}
	frame := l.latest
	l.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Present(frame); err != nil {
			l.Logger.Errorf("loop", "sink present failed: %v", err)
		}
	}
	for _, tap := range taps {
		tap(s)
	}
	return true
}

// Run drives Tick until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	lastLog := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Tick(now)
			if time.Since(lastLog) > 10*time.Second {
				st := l.Stats()
				l.Logger.Infof("loop", "heartbeat fps=%.0f frames=%d", st.FPS, st.Frames)
				lastLog = time.Now()
			}
		}
	}
}

// Frame returns a copy of the most recent live frame.
func (l *Loop) Frame() (*image.RGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return nil, ErrNoFrame
	}
	out := image.NewRGBA(l.latest.Bounds())
	copy(out.Pix, l.latest.Pix)
	return out, nil
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Close releases the live canvas.
func (l *Loop) Close() {
	if l.canvas != nil {
		l.canvas.Close()
		l.canvas = nil
	}
}

func (l *Loop) draw(s settings.Settings) {
	size := int(math.Round(s.CanvasSize))
	if l.canvas != nil {
		if w, h := l.canvas.Size(); w != size || h != size {
			l.canvas.Close()
			l.canvas = nil
		}
	}
	if l.canvas == nil {
		l.canvas = render.NewCanvas(size, size, l.font)
		l.Logger.Infof("loop", "live canvas %dx%d", size, size)
	}
	render.Frame(l.canvas, s)

	src := l.canvas.Image()
	l.mu.Lock()
	if l.latest == nil || l.latest.Bounds() != src.Bounds() {
		l.latest = image.NewRGBA(src.Bounds())
	}
	copy(l.latest.Pix, src.Pix)
	l.mu.Unlock()
}

// countFrame updates the rolling one-second FPS counter.
func (l *Loop) countFrame(now time.Time, t float64) {
	l.fpsFrames++
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.Frames++
	l.stats.Time = t
	if window := now.Sub(l.fpsStart); window >= time.Second {
		l.stats.FPS = math.Round(float64(l.fpsFrames) / window.Seconds())
		l.fpsFrames = 0
		l.fpsStart = now
	}
}
