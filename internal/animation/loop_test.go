package animation

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFont(t *testing.T) *typeface.Font {
	t.Helper()
	f, err := typeface.Default()
	require.NoError(t, err)
	return f
}

func newTestLoop(t *testing.T) (*Loop, *settings.Store) {
	t.Helper()
	s := settings.Default()
	s.CanvasSize = 64
	s.Margin = 4
	s.NumLines = 3
	store := settings.NewStore(s)
	l := New(store, mustFont(t))
	t.Cleanup(l.Close)
	return l, store
}

type countingSink struct {
	mu     sync.Mutex
	frames int
	size   image.Point
	err    error
}

func (c *countingSink) Present(frame *image.RGBA) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	c.size = frame.Bounds().Size()
	return c.err
}

func TestTickThrottles(t *testing.T) {
	l, store := newTestLoop(t)
	t0 := time.Unix(1000, 0)

	assert.True(t, l.Tick(t0), "first tick always renders")
	assert.False(t, l.Tick(t0.Add(10*time.Millisecond)))
	assert.False(t, l.Tick(t0.Add(FrameInterval-time.Nanosecond)))
	assert.True(t, l.Tick(t0.Add(FrameInterval)))

	assert.InDelta(t, 2*settings.TimeStep, store.Snapshot().Time, 1e-12)
	assert.Equal(t, uint64(2), l.Stats().Frames)
}

func TestTickKeepsIntervalGrid(t *testing.T) {
	l, _ := newTestLoop(t)
	t0 := time.Unix(1000, 0)
	require.True(t, l.Tick(t0))

	// A late tick still lines the next frame up on the interval grid.
	require.True(t, l.Tick(t0.Add(50*time.Millisecond)))
	assert.True(t, l.Tick(t0.Add(2*FrameInterval)))
}

func TestTimeAdvanceIgnoresSpeed(t *testing.T) {
	l, store := newTestLoop(t)
	store.Update(func(s *settings.Settings) { s.AnimationSpeed = 7 })
	t0 := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		require.True(t, l.Tick(t0.Add(time.Duration(i)*FrameInterval)))
	}
	assert.InDelta(t, 5*settings.TimeStep, store.Snapshot().Time, 1e-12)
}

func TestFPSCounter(t *testing.T) {
	l, _ := newTestLoop(t)
	t0 := time.Unix(1000, 0)
	for i := 0; i <= 31; i++ {
		l.Tick(t0.Add(time.Duration(i) * FrameInterval))
	}
	assert.InDelta(t, float64(TargetFPS), l.Stats().FPS, 1.5)
}

func TestFrameCopies(t *testing.T) {
	l, _ := newTestLoop(t)
	_, err := l.Frame()
	assert.ErrorIs(t, err, ErrNoFrame)

	l.Tick(time.Unix(1000, 0))
	a, err := l.Frame()
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 64), a.Bounds().Size())

	a.Pix[0] ^= 0xFF
	b, err := l.Frame()
	require.NoError(t, err)
	assert.NotEqual(t, a.Pix[0], b.Pix[0])
}

func TestCanvasFollowsSettingsSize(t *testing.T) {
	l, store := newTestLoop(t)
	t0 := time.Unix(1000, 0)
	l.Tick(t0)
	store.Update(func(s *settings.Settings) { s.CanvasSize = 96 })
	l.Tick(t0.Add(FrameInterval))

	frame, err := l.Frame()
	require.NoError(t, err)
	assert.Equal(t, image.Pt(96, 96), frame.Bounds().Size())
}

func TestSinksReceiveFrames(t *testing.T) {
	l, _ := newTestLoop(t)
	good := &countingSink{}
	bad := &countingSink{err: errors.New("display gone")}
	l.AddSink(bad)
	l.AddSink(good)

	t0 := time.Unix(1000, 0)
	l.Tick(t0)
	l.Tick(t0.Add(FrameInterval))
	l.Tick(t0.Add(FrameInterval + time.Millisecond))

	assert.Equal(t, 2, good.frames)
	assert.Equal(t, 2, bad.frames)
	assert.Equal(t, image.Pt(64, 64), good.size)
}

func TestAttachDetach(t *testing.T) {
	l, _ := newTestLoop(t)
	var seen []float64
	detach := l.Attach(func(s settings.Settings) { seen = append(seen, s.Time) })
	assert.Equal(t, 1, l.Taps())

	t0 := time.Unix(1000, 0)
	l.Tick(t0)
	l.Tick(t0.Add(FrameInterval))
	detach()
	detach()
	l.Tick(t0.Add(2 * FrameInterval))

	assert.Equal(t, 0, l.Taps())
	require.Len(t, seen, 2)
	assert.InDelta(t, settings.TimeStep, seen[0], 1e-12)
	assert.InDelta(t, 2*settings.TimeStep, seen[1], 1e-12)
}

func TestRunStopsOnCancel(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return l.Stats().Frames > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
