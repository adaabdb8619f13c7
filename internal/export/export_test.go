package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rook-computer/kinetype/internal/animation"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource stands in for the animation loop.
type fakeSource struct {
	mu   sync.Mutex
	taps map[int]animation.Tap
	next int
}

func newFakeSource() *fakeSource { return &fakeSource{taps: map[int]animation.Tap{}} }

func (f *fakeSource) Attach(tap animation.Tap) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.taps[id] = tap
	return func() {
		f.mu.Lock()
		delete(f.taps, id)
		f.mu.Unlock()
	}
}

func (f *fakeSource) attached() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.taps)
}

func (f *fakeSource) emit(s settings.Settings) {
	f.mu.Lock()
	taps := make([]animation.Tap, 0, len(f.taps))
	for _, t := range f.taps {
		taps = append(taps, t)
	}
	f.mu.Unlock()
	for _, t := range taps {
		t(s)
	}
}

// drive emits advancing snapshots until stop is closed.
func (f *fakeSource) drive(store *settings.Store, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.emit(store.Advance(settings.TimeStep))
		}
	}
}

type fakeProber map[string]bool

func (p fakeProber) Supports(_ context.Context, c Codec) bool { return p[c.Name] }

type fakeEncoder struct {
	mu      sync.Mutex
	out     io.Writer
	opts    EncodeOptions
	frames  int
	sizes   []image.Point
	failAt  int
	closed  bool
	aborted bool
}

func (f *fakeEncoder) WriteFrame(frame *image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	f.sizes = append(f.sizes, frame.Bounds().Size())
	if f.failAt > 0 && f.frames >= f.failAt {
		return errors.New("disk full")
	}
	return nil
}

func (f *fakeEncoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	_, err := io.WriteString(f.out, "video-bytes")
	return err
}

func (f *fakeEncoder) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
}

type harness struct {
	store    *settings.Store
	source   *fakeSource
	exporter *Exporter
	enc      *fakeEncoder
	codec    Codec
}

func newHarness(t *testing.T, probe fakeProber) *harness {
	t.Helper()
	s := settings.Default()
	s.CanvasSize = 64
	s.Margin = 4
	s.NumLines = 2
	h := &harness{store: settings.NewStore(s), source: newFakeSource()}
	h.exporter = New(h.store, h.source, mustFont(t))
	h.exporter.Prober = probe
	h.exporter.Now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	h.exporter.Encoder = func(_ context.Context, codec Codec, out io.Writer, opts EncodeOptions) (Encoder, error) {
		h.codec = codec
		h.enc = &fakeEncoder{out: out, opts: opts}
		return h.enc, nil
	}
	return h
}

func (h *harness) start(t *testing.T) func() {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		h.source.drive(h.store, stop)
		close(done)
	}()
	return func() {
		close(stop)
		<-done
	}
}

func TestSelectCodecOrder(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "vp9", SelectCodec(ctx, fakeProber{"vp9": true, "h264": true}).Name)
	assert.Equal(t, "vp8", SelectCodec(ctx, fakeProber{"vp8": true, "mpeg4": true}).Name)
	assert.Equal(t, "h264", SelectCodec(ctx, fakeProber{"h264": true}).Name)
	assert.Equal(t, "mpeg4", SelectCodec(ctx, fakeProber{"mpeg4": true}).Name)
	assert.Equal(t, GIF, SelectCodec(ctx, fakeProber{}))
	assert.Equal(t, GIF, SelectCodec(ctx, nil))
}

func TestBitrateScalesWithPixels(t *testing.T) {
	assert.Equal(t, 8_000_000, Bitrate(1))
	assert.Equal(t, 32_000_000, Bitrate(2))
	assert.Equal(t, 72_000_000, Bitrate(3))
	assert.Equal(t, 8_000_000, Bitrate(0))
	assert.Equal(t, 512_000_000, Bitrate(100))
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 12, 27, 18, 4, 5, 0, time.UTC)
	assert.Equal(t, "kinetype-lines-20261227-180405.webm", Filename("lines", at, "webm"))
}

func TestParseEncoders(t *testing.T) {
	out := []byte(`Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V..... libvpx-vp9           libvpx VP9 (codec vp9)
 A....D aac                  AAC (Advanced Audio Coding)
`)
	found := parseEncoders(out)
	assert.True(t, found["libx264"])
	assert.True(t, found["libvpx-vp9"])
	assert.False(t, found["aac"])
	assert.False(t, found["libvpx"])
}

func TestFFmpegArgs(t *testing.T) {
	opts := EncodeOptions{Width: 2000, Height: 2000, FPS: 30, Bitrate: Bitrate(2)}
	mp4 := strings.Join(ffmpegArgs(Preference[2], opts), " ")
	assert.Contains(t, mp4, "-s 2000x2000")
	assert.Contains(t, mp4, "-c:v libx264")
	assert.Contains(t, mp4, "-b:v 32000000")
	assert.Contains(t, mp4, "-movflags frag_keyframe+empty_moov")
	assert.True(t, strings.HasSuffix(mp4, "-f mp4 pipe:1"))

	webm := strings.Join(ffmpegArgs(Preference[0], opts), " ")
	assert.NotContains(t, webm, "movflags")
	assert.True(t, strings.HasSuffix(webm, "-f webm pipe:1"))
}

func TestRingBufferKeepsTail(t *testing.T) {
	r := &ringBuffer{max: 8}
	_, _ = r.Write([]byte("hello "))
	_, _ = r.Write([]byte("world"))
	assert.Equal(t, "lo world", r.String())
	_, _ = r.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", r.String())
}

func TestStillDoesNotTouchSettings(t *testing.T) {
	h := newHarness(t, fakeProber{})
	before := h.store.Snapshot()

	res, err := h.exporter.Still(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, before, h.store.Snapshot())
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, "kinetype-lines-20260304-050607.png", res.Filename)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	edge := int(before.CanvasSize) * 2
	assert.Equal(t, image.Pt(edge, edge), img.Bounds().Size())
	assert.False(t, h.exporter.Busy())
}

func TestStillClampsResolution(t *testing.T) {
	h := newHarness(t, fakeProber{})
	res, err := h.exporter.Still(context.Background(), 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	edge := int(h.store.Snapshot().CanvasSize)
	assert.Equal(t, image.Pt(edge, edge), img.Bounds().Size())
}

func TestStillCapsOutputEdge(t *testing.T) {
	h := newHarness(t, fakeProber{})
	h.exporter.MaxEdge = 96

	res, err := h.exporter.Still(context.Background(), 8)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(96, 96), img.Bounds().Size())
}

func TestFitResolution(t *testing.T) {
	assert.Equal(t, 8.0, FitResolution(8, 1000, DefaultMaxEdge))
	assert.Equal(t, 1.0, FitResolution(8, 8192, DefaultMaxEdge))
	assert.Equal(t, 2.0, FitResolution(8, 4096, DefaultMaxEdge))
	assert.Equal(t, 1.0, FitResolution(0, 1000, DefaultMaxEdge))
	assert.Equal(t, 1.5, FitResolution(3, 64, 96))
	assert.Equal(t, 8.0, FitResolution(20, 64, 0))
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 9, FrameCount(300*time.Millisecond))
	assert.Equal(t, 60, FrameCount(2*time.Second))
	assert.Equal(t, 1, FrameCount(time.Millisecond))
}

func TestTimedCapture(t *testing.T) {
	h := newHarness(t, fakeProber{"vp8": true})
	stop := h.start(t)
	defer stop()

	c, err := h.exporter.Timed(context.Background(), 300*time.Millisecond, 2)
	require.NoError(t, err)
	assert.True(t, h.exporter.Busy())
	assert.Equal(t, "vp8", h.codec.Name)
	assert.Equal(t, 32_000_000, h.enc.opts.Bitrate)

	var percents []float64
	var final Event
	for ev := range c.Events() {
		if ev.Done {
			final = ev
			continue
		}
		percents = append(percents, ev.Percent)
	}
	require.NoError(t, final.Err)
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100.0, percents[len(percents)-1])

	res, err := c.Wait()
	require.NoError(t, err)
	assert.Equal(t, "kinetype-lines-20260304-050607.webm", res.Filename)
	assert.Equal(t, "video/webm", res.MIMEType)
	assert.Equal(t, []byte("video-bytes"), res.Data)

	assert.True(t, h.enc.closed)
	assert.Equal(t, FrameCount(300*time.Millisecond), h.enc.frames)
	edge := int(h.store.Snapshot().CanvasSize) * 2
	for _, size := range h.enc.sizes {
		assert.Equal(t, image.Pt(edge, edge), size)
	}
	assert.Equal(t, 0, h.source.attached())
	assert.False(t, h.exporter.Busy())
	assert.Equal(t, StateDone, c.Status().State)
}

func TestTimedPinsCanvasSize(t *testing.T) {
	h := newHarness(t, fakeProber{})
	c, err := h.exporter.Timed(context.Background(), 150*time.Millisecond, 1)
	require.NoError(t, err)

	h.store.Update(func(s *settings.Settings) { s.CanvasSize = 200 })
	stop := h.start(t)
	defer stop()

	_, err = c.Wait()
	require.NoError(t, err)
	require.NotEmpty(t, h.enc.sizes)
	for _, size := range h.enc.sizes {
		assert.Equal(t, image.Pt(64, 64), size)
	}
}

func TestTimedRepeatsFramesWhenLoopStalls(t *testing.T) {
	h := newHarness(t, fakeProber{})

	c, err := h.exporter.Timed(context.Background(), 300*time.Millisecond, 1)
	require.NoError(t, err)
	_, err = c.Wait()
	require.NoError(t, err)

	st := c.Status()
	assert.Equal(t, 9, st.Total)
	assert.Equal(t, 9, st.Frames)
	assert.Equal(t, 8, st.Repeated)
	assert.Equal(t, 9, h.enc.frames)
	assert.Equal(t, 100.0, st.Percent)
}

func TestTimedCapsOutputEdge(t *testing.T) {
	h := newHarness(t, fakeProber{})
	h.exporter.MaxEdge = 96

	c, err := h.exporter.Timed(context.Background(), 100*time.Millisecond, 8)
	require.NoError(t, err)
	assert.Equal(t, 1.5, c.Resolution)
	assert.Equal(t, 96, h.enc.opts.Width)
	assert.Equal(t, Bitrate(1.5), h.enc.opts.Bitrate)

	_, err = c.Wait()
	require.NoError(t, err)
	for _, size := range h.enc.sizes {
		assert.Equal(t, image.Pt(96, 96), size)
	}
}

func TestSingleExportInFlight(t *testing.T) {
	h := newHarness(t, fakeProber{})
	c, err := h.exporter.Timed(context.Background(), time.Minute, 1)
	require.NoError(t, err)

	_, err = h.exporter.Timed(context.Background(), time.Second, 1)
	assert.ErrorIs(t, err, ErrExportInFlight)
	_, err = h.exporter.Still(context.Background(), 1)
	assert.ErrorIs(t, err, ErrExportInFlight)

	c.Cancel()
	_, err = c.Wait()
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = h.exporter.Still(context.Background(), 1)
	assert.NoError(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t, fakeProber{})
	stop := h.start(t)
	defer stop()

	c, err := h.exporter.Timed(context.Background(), time.Minute, 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Status().Frames > 0 }, 2*time.Second, 10*time.Millisecond)

	c.Cancel()
	c.Cancel()
	res, err := c.Wait()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, res.Data)
	assert.True(t, h.enc.aborted)
	assert.False(t, h.enc.closed)
	assert.Equal(t, 0, h.source.attached())
	assert.False(t, h.exporter.Busy())
	assert.Equal(t, StateCancelled, c.Status().State)
	c.Cancel()
}

func TestEncoderFailureCleansUp(t *testing.T) {
	h := newHarness(t, fakeProber{})
	inner := h.exporter.Encoder
	h.exporter.Encoder = func(ctx context.Context, codec Codec, out io.Writer, opts EncodeOptions) (Encoder, error) {
		enc, err := inner(ctx, codec, out, opts)
		h.enc.failAt = 2
		return enc, err
	}
	stop := h.start(t)
	defer stop()

	c, err := h.exporter.Timed(context.Background(), time.Minute, 1)
	require.NoError(t, err)
	_, err = c.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.True(t, h.enc.aborted)
	assert.Equal(t, 0, h.source.attached())
	assert.False(t, h.exporter.Busy())
	assert.Equal(t, StateFailed, c.Status().State)
}

func TestEncoderStartFailureReleasesSlot(t *testing.T) {
	h := newHarness(t, fakeProber{})
	h.exporter.Encoder = func(context.Context, Codec, io.Writer, EncodeOptions) (Encoder, error) {
		return nil, errors.New("no ffmpeg")
	}
	_, err := h.exporter.Timed(context.Background(), time.Second, 1)
	require.Error(t, err)
	assert.False(t, h.exporter.Busy())
	assert.Equal(t, 0, h.source.attached())
}

func TestTimedRejectsStaticTheme(t *testing.T) {
	h := newHarness(t, fakeProber{})
	_, err := h.store.ApplyTheme(settings.ThemeToggle39C3Static)
	require.NoError(t, err)
	_, err = h.exporter.Timed(context.Background(), time.Second, 1)
	assert.ErrorIs(t, err, ErrNotAnimated)
	assert.False(t, h.exporter.Busy())
}

func TestFollowCallbacks(t *testing.T) {
	h := newHarness(t, fakeProber{})
	stop := h.start(t)
	defer stop()

	c, err := h.exporter.Timed(context.Background(), 200*time.Millisecond, 1)
	require.NoError(t, err)

	var calls []string
	var last float64
	res, err := c.Follow(Callbacks{
		OnStart:    func() { calls = append(calls, "start") },
		OnProgress: func(p float64) { last = p },
		OnComplete: func(Result) { calls = append(calls, "complete") },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "complete"}, calls)
	assert.Equal(t, 100.0, last)
	assert.Equal(t, "gif", h.codec.Name)
	assert.True(t, strings.HasSuffix(res.Filename, ".gif"))
}

func TestGIFEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := newGIFEncoder(&buf, EncodeOptions{Width: 8, Height: 8, FPS: 30})
	for i := 0; i < 3; i++ {
		frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
		frame.Pix[0] = uint8(i * 100)
		require.NoError(t, enc.WriteFrame(frame))
	}
	assert.Error(t, enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, enc.Close())

	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 3)
	assert.Equal(t, []int{3, 4, 3}, anim.Delay)
	assert.Error(t, enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))))
}

func TestGIFDelaysAddUpToDuration(t *testing.T) {
	var buf bytes.Buffer
	enc := newGIFEncoder(&buf, EncodeOptions{Width: 4, Height: 4, FPS: 30})
	for i := 0; i < FrameCount(2*time.Second); i++ {
		require.NoError(t, enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))))
	}
	require.NoError(t, enc.Close())

	anim, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	total := 0
	for _, d := range anim.Delay {
		total += d
	}
	assert.Equal(t, 200, total)
}

func TestGIFEncoderNeedsFrames(t *testing.T) {
	enc := newGIFEncoder(io.Discard, EncodeOptions{Width: 8, Height: 8, FPS: 30})
	assert.Error(t, enc.Close())
}

func mustFont(t *testing.T) *typeface.Font {
	t.Helper()
	f, err := typeface.Default()
	require.NoError(t, err)
	return f
}
