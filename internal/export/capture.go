package export

import (
	"bytes"
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rook-computer/kinetype/internal/animation"
	"github.com/rook-computer/kinetype/internal/render"
	"github.com/rook-computer/kinetype/internal/settings"
	"golang.org/x/sync/errgroup"
)

// ProgressInterval is how often a running capture reports progress.
const ProgressInterval = 100 * time.Millisecond

// Frames queued between the pacer and the encoder.
const frameQueue = 2 * animation.TargetFPS

type State string

const (
	StateRecording State = "recording"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Event is one progress report. The last event of a capture has Done set
// and carries the outcome.
type Event struct {
	Elapsed  time.Duration
	Duration time.Duration
	Percent  float64

	Done   bool
	Result Result
	Err    error
}

// Status is a point-in-time view of a capture.
type Status struct {
	State    State   `json:"state"`
	Codec    string  `json:"codec"`
	Percent  float64 `json:"percent"`
	Elapsed  float64 `json:"elapsed"`
	Duration float64 `json:"duration"`
	Frames   int     `json:"frames"`
	Total    int     `json:"total"`
	Repeated int     `json:"repeated"`
	Filename string  `json:"filename,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Callbacks adapts a capture's events to plain functions. Nil fields are skipped.
type Callbacks struct {
	OnStart    func()
	OnProgress func(percent float64)
	OnComplete func(Result)
}

// Capture is a running timed export.
type Capture struct {
	Codec      Codec
	Duration   time.Duration
	Resolution float64

	exporter *Exporter
	base     settings.Settings
	started  time.Time
	cancel   context.CancelFunc
	detach   func()

	events chan Event
	done   chan struct{}

	stopOnce   sync.Once
	cancelOnce sync.Once

	mu        sync.Mutex
	frames    chan settings.Settings
	stopped   bool
	cancelled bool
	latest    settings.Settings
	fresh     bool
	written   int
	repeated  int
	elapsed   time.Duration
	percent   float64
	state     State
	result    Result
	err       error
}

// Timed starts capturing the live animation for duration at resolution
// times the canvas size. It returns once the encoder is running.
func (e *Exporter) Timed(ctx context.Context, duration time.Duration, resolution float64) (*Capture, error) {
	if duration <= 0 {
		return nil, errors.Errorf("invalid capture duration %s", duration)
	}
	base := e.Store.Snapshot()
	if !base.Capabilities.Animated {
		return nil, ErrNotAnimated
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrExportInFlight
	}

	res := e.resolution(resolution, base.CanvasSize)
	codec := SelectCodec(ctx, e.Prober)
	size := int(math.Round(base.CanvasSize * res))
	opts := EncodeOptions{Width: size, Height: size, FPS: animation.TargetFPS, Bitrate: Bitrate(res)}

	cctx, cancel := context.WithCancel(ctx)
	out := &bytes.Buffer{}
	newEncoder := e.Encoder
	if newEncoder == nil {
		newEncoder = NewEncoder("ffmpeg")
	}
	enc, err := newEncoder(cctx, codec, out, opts)
	if err != nil {
		cancel()
		e.busy.Store(false)
		return nil, errors.Wrapf(err, "start %s encoder", codec.Name)
	}

	c := &Capture{
		Codec:      codec,
		Duration:   duration,
		Resolution: res,
		exporter:   e,
		base:       base,
		started:    time.Now(),
		cancel:     cancel,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		frames:     make(chan settings.Settings, frameQueue),
		latest:     base,
		fresh:      true,
		state:      StateRecording,
	}
	c.detach = e.Source.Attach(c.push)

	e.mu.Lock()
	e.current = c
	e.mu.Unlock()

	e.logger().Infof("export", "capture started: %s %dx%d %s bitrate=%d", codec.Name, size, size, duration, opts.Bitrate)
	go c.run(cctx, enc, out)
	return c, nil
}

// push is the frame tap. It keeps the newest snapshot for the pacer and
// never blocks the loop.
func (c *Capture) push(s settings.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.latest = s
	c.fresh = true
}

// FrameCount is the number of frames a capture of duration encodes.
func FrameCount(duration time.Duration) int {
	n := int(math.Round(duration.Seconds() * animation.TargetFPS))
	if n < 1 {
		n = 1
	}
	return n
}

// stop detaches the tap and ends the frame stream. Safe to call repeatedly.
func (c *Capture) stop() {
	c.stopOnce.Do(func() {
		c.detach()
		c.mu.Lock()
		c.stopped = true
		close(c.frames)
		c.mu.Unlock()
	})
}

// Cancel ends the capture early and discards its output.
func (c *Capture) Cancel() {
	c.cancelOnce.Do(func() {
		c.mu.Lock()
		c.cancelled = true
		c.mu.Unlock()
		c.cancel()
	})
}

// Events yields progress events followed by one Done event, then closes.
// It is meant for a single consumer.
func (c *Capture) Events() <-chan Event { return c.events }

// Wait blocks until the capture has finished.
func (c *Capture) Wait() (Result, error) {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Follow consumes Events and forwards them to cb, then returns the outcome.
func (c *Capture) Follow(cb Callbacks) (Result, error) {
	if cb.OnStart != nil {
		cb.OnStart()
	}
	for ev := range c.events {
		if !ev.Done {
			if cb.OnProgress != nil {
				cb.OnProgress(ev.Percent)
			}
			continue
		}
		if ev.Err == nil && cb.OnComplete != nil {
			cb.OnComplete(ev.Result)
		}
	}
	return c.Wait()
}

func (c *Capture) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:    c.state,
		Codec:    c.Codec.Name,
		Percent:  c.percent,
		Elapsed:  c.elapsed.Seconds(),
		Duration: c.Duration.Seconds(),
		Frames:   c.written,
		Total:    FrameCount(c.Duration),
		Repeated: c.repeated,
		Filename: c.result.Filename,
	}
	if c.err != nil {
		st.Error = c.err.Error()
	}
	return st
}

func (c *Capture) run(ctx context.Context, enc Encoder, out *bytes.Buffer) {
	defer c.cancel()
	e := c.exporter

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.encodeFrames(gctx, enc) })
	g.Go(func() error { return c.pace(gctx) })
	err := g.Wait()
	c.stop()

	if err == nil {
		err = enc.Close()
	} else {
		enc.Abort()
	}

	c.mu.Lock()
	cancelled := c.cancelled
	c.mu.Unlock()

	var res Result
	switch {
	case cancelled:
		err = ErrCancelled
	case err != nil:
		err = errors.Wrap(err, "capture")
	default:
		res = Result{
			Filename: Filename(c.base.Theme, e.now(), c.Codec.Container),
			MIMEType: c.Codec.MIMEType,
			Data:     out.Bytes(),
		}
	}

	c.mu.Lock()
	c.result = res
	c.err = err
	switch {
	case cancelled:
		c.state = StateCancelled
	case err != nil:
		c.state = StateFailed
	default:
		c.state = StateDone
	}
	written, repeated := c.written, c.repeated
	c.mu.Unlock()

	e.busy.Store(false)
	if err != nil {
		e.logger().Errorf("export", "capture ended: %v", err)
	} else {
		e.logger().Infof("export", "capture done: %s, %d frames (%d repeated), %d bytes", res.Filename, written, repeated, len(res.Data))
	}

	c.events <- Event{Elapsed: c.elapsedNow(), Duration: c.Duration, Percent: c.percentNow(), Done: true, Result: res, Err: err}
	close(c.events)
	close(c.done)
}

// encodeFrames renders each paced snapshot at the capture size and feeds
// the encoder until the frame stream ends.
func (c *Capture) encodeFrames(ctx context.Context, enc Encoder) error {
	// Canvas size and margin are pinned to the values at start.
	pinned := func(s settings.Settings) settings.Settings {
		s.CanvasSize = c.base.CanvasSize
		s.Margin = c.base.Margin
		return s.Scaled(c.Resolution)
	}
	size := int(math.Round(c.base.CanvasSize * c.Resolution))
	canvas := render.NewCanvas(size, size, c.exporter.Font)
	defer canvas.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-c.frames:
			if !ok {
				return nil
			}
			render.Frame(canvas, pinned(s))
			if err := enc.WriteFrame(canvas.Image()); err != nil {
				return errors.Wrapf(err, "frame %d", c.framesWritten())
			}
			c.mu.Lock()
			c.written++
			c.mu.Unlock()
		}
	}
}

// pace emits FrameCount(Duration) frames on the FrameInterval grid and
// reports progress. A grid slot the loop has not refreshed repeats the
// previous snapshot, so the encoded length always matches Duration.
func (c *Capture) pace(ctx context.Context) error {
	defer c.stop()
	total := FrameCount(c.Duration)
	ticker := time.NewTicker(ProgressInterval)
	defer ticker.Stop()
	slot := time.NewTimer(0)
	defer slot.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.progress(min(time.Since(c.started), c.Duration))
		case <-slot.C:
			elapsed := time.Since(c.started)
			for next < total && time.Duration(next)*animation.FrameInterval <= elapsed {
				if err := c.emit(ctx); err != nil {
					return err
				}
				next++
			}
			if next < total {
				slot.Reset(time.Until(c.started.Add(time.Duration(next) * animation.FrameInterval)))
				continue
			}
			if elapsed < c.Duration {
				slot.Reset(time.Until(c.started.Add(c.Duration)))
				continue
			}
			c.progress(c.Duration)
			return nil
		}
	}
}

// emit queues the newest snapshot for one grid slot.
func (c *Capture) emit(ctx context.Context) error {
	c.mu.Lock()
	s := c.latest
	if !c.fresh {
		c.repeated++
	}
	c.fresh = false
	c.mu.Unlock()

	select {
	case c.frames <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Capture) progress(elapsed time.Duration) {
	c.mu.Lock()
	c.elapsed = elapsed
	pct := math.Min(100, float64(elapsed)/float64(c.Duration)*100)
	if pct > c.percent {
		c.percent = pct
	}
	ev := Event{Elapsed: elapsed, Duration: c.Duration, Percent: c.percent}
	c.mu.Unlock()

	// Keep one slot free for the final event.
	if len(c.events) < cap(c.events)-1 {
		c.events <- ev
	}
}

func (c *Capture) framesWritten() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *Capture) elapsedNow() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *Capture) percentNow() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.percent
}
