package export

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Codec is one video encoding target.
type Codec struct {
	Name string
	// FFmpegEncoder is the ffmpeg encoder name; empty for built-in encoders.
	FFmpegEncoder string
	Container     string
	MIMEType      string
}

// Preference is the order codecs are tried in.
var Preference = []Codec{
	{Name: "vp9", FFmpegEncoder: "libvpx-vp9", Container: "webm", MIMEType: "video/webm"},
	{Name: "vp8", FFmpegEncoder: "libvpx", Container: "webm", MIMEType: "video/webm"},
	{Name: "h264", FFmpegEncoder: "libx264", Container: "mp4", MIMEType: "video/mp4"},
	{Name: "mpeg4", FFmpegEncoder: "mpeg4", Container: "mp4", MIMEType: "video/mp4"},
}

// GIF is the built-in last resort. It is always available.
var GIF = Codec{Name: "gif", Container: "gif", MIMEType: "image/gif"}

// BaseBitrate is the target bitrate at resolution 1.
const BaseBitrate = 8_000_000

// Bitrate scales BaseBitrate by pixel count.
func Bitrate(resolution float64) int {
	res := ClampResolution(resolution)
	return int(BaseBitrate * res * res)
}

// Prober reports whether a codec can be encoded on this host.
type Prober interface {
	Supports(ctx context.Context, c Codec) bool
}

// SelectCodec returns the first supported codec of Preference, or GIF.
func SelectCodec(ctx context.Context, p Prober) Codec {
	if p != nil {
		for _, c := range Preference {
			if p.Supports(ctx, c) {
				return c
			}
		}
	}
	return GIF
}

// FFmpegProber asks an ffmpeg binary for its encoder list once and answers
// from the cached list afterwards.
type FFmpegProber struct {
	Path string

	once     sync.Once
	encoders map[string]bool
}

func (p *FFmpegProber) Supports(ctx context.Context, c Codec) bool {
	if c.FFmpegEncoder == "" {
		return c == GIF
	}
	p.once.Do(func() {
		path := p.Path
		if path == "" {
			path = "ffmpeg"
		}
		out, err := exec.CommandContext(ctx, path, "-hide_banner", "-encoders").Output()
		if err != nil {
			p.encoders = map[string]bool{}
			return
		}
		p.encoders = parseEncoders(out)
	})
	return p.encoders[c.FFmpegEncoder]
}

// parseEncoders reads the table printed by `ffmpeg -encoders`. Video encoder
// rows start with a capability column beginning with 'V'.
func parseEncoders(out []byte) map[string]bool {
	found := map[string]bool{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	header := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if header {
			if strings.HasPrefix(line, "------") {
				header = false
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "V") {
			continue
		}
		found[fields[1]] = true
	}
	return found
}
