//go:build linux

package display

import (
	fb "github.com/gonutz/framebuffer"
)

// DefaultDevice is the primary Linux framebuffer.
const DefaultDevice = "/dev/fb0"

// OpenFramebuffer opens a framebuffer device such as /dev/fb0.
func OpenFramebuffer(path string, logger Logger) (*Framebuffer, error) {
	if path == "" {
		path = DefaultDevice
	}
	dev, err := fb.Open(path)
	if err != nil {
		return nil, err
	}
	f := NewFramebuffer(dev)
	f.release = func() { dev.Close() }
	if logger != nil {
		f.Logger = logger
		bounds := dev.Bounds()
		logger.Infof("fb", "framebuffer %s open, bounds=%dx%d", path, bounds.Dx(), bounds.Dy())
	}
	return f, nil
}
