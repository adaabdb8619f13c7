package export

import (
	"context"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Encoder consumes equally sized RGBA frames and writes a finished stream on Close.
type Encoder interface {
	WriteFrame(frame *image.RGBA) error
	// Close flushes and finalizes the output.
	Close() error
	// Abort discards the output and releases resources.
	Abort()
}

type EncodeOptions struct {
	Width, Height int
	FPS           int
	Bitrate       int
}

// EncoderFunc starts an encoder for codec writing to out.
type EncoderFunc func(ctx context.Context, codec Codec, out io.Writer, opts EncodeOptions) (Encoder, error)

// NewEncoder returns the default EncoderFunc: the built-in GIF encoder for
// GIF and an ffmpeg process at ffmpegPath for everything else.
func NewEncoder(ffmpegPath string) EncoderFunc {
	return func(ctx context.Context, codec Codec, out io.Writer, opts EncodeOptions) (Encoder, error) {
		if codec.FFmpegEncoder == "" {
			return newGIFEncoder(out, opts), nil
		}
		enc, err := startFFmpeg(ctx, ffmpegPath, codec, out, opts)
		if err != nil {
			return nil, err
		}
		return enc, nil
	}
}

// ffmpegEncoder streams raw RGBA frames into ffmpeg's stdin; ffmpeg writes
// the container to out.
type ffmpegEncoder struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *ringBuffer
	frame  int // bytes per frame
	closed bool
}

func ffmpegArgs(codec Codec, opts EncodeOptions) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", strconv.Itoa(opts.Width) + "x" + strconv.Itoa(opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "pipe:0",
		"-c:v", codec.FFmpegEncoder,
		"-b:v", strconv.Itoa(opts.Bitrate),
		"-pix_fmt", "yuv420p",
	}
	if codec.Container == "mp4" {
		// mp4 needs a seekable output unless fragmented.
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	}
	return append(args, "-f", codec.Container, "pipe:1")
}

func startFFmpeg(ctx context.Context, path string, codec Codec, out io.Writer, opts EncodeOptions) (*ffmpegEncoder, error) {
	if path == "" {
		path = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, path, ffmpegArgs(codec, opts)...)
	cmd.Stdout = out
	stderr := &ringBuffer{max: 4096}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "ffmpeg stdin")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start ffmpeg")
	}
	return &ffmpegEncoder{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		frame:  opts.Width * opts.Height * 4,
	}, nil
}

func (f *ffmpegEncoder) WriteFrame(frame *image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("encoder closed")
	}
	if len(frame.Pix) != f.frame {
		return errors.Errorf("frame is %d bytes, want %d", len(frame.Pix), f.frame)
	}
	if _, err := f.stdin.Write(frame.Pix); err != nil {
		return f.failure(errors.Wrap(err, "write frame"))
	}
	return nil
}

func (f *ffmpegEncoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	_ = f.stdin.Close()
	if err := f.cmd.Wait(); err != nil {
		return f.failure(errors.Wrap(err, "ffmpeg"))
	}
	return nil
}

func (f *ffmpegEncoder) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	_ = f.stdin.Close()
	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	_ = f.cmd.Wait()
}

// failure attaches the tail of ffmpeg's stderr to err.
func (f *ffmpegEncoder) failure(err error) error {
	if s := f.stderr.String(); s != "" {
		return errors.Wrap(err, s)
	}
	return err
}

// ringBuffer keeps the last max bytes written to it.
type ringBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (r *ringBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max <= 0 {
		return len(p), nil
	}

	if len(p) >= r.max {
		r.buf = append(r.buf[:0], p[len(p)-r.max:]...)
		return len(p), nil
	}

	if len(r.buf)+len(p) > r.max {
		drop := len(r.buf) + len(p) - r.max
		r.buf = append(r.buf[drop:], p...)
		return len(p), nil
	}

	r.buf = append(r.buf, p...)
	return len(p), nil
}

func (r *ringBuffer) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.buf)
}
