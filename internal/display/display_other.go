//go:build !linux

package display

import (
	"context"
	"errors"
)

const DefaultDevice = "/dev/fb0"

var errUnsupported = errors.New("framebuffer output requires linux")

func OpenFramebuffer(path string, logger Logger) (*Framebuffer, error) {
	return nil, errUnsupported
}

// Console is a no-op outside linux.
type Console struct {
	Logger Logger
}

func (Console) Enter() error   { return errUnsupported }
func (Console) Restore() error { return nil }

func WatchExitKeys(ctx context.Context, logger Logger, onExit func()) {}
