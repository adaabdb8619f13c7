//go:build linux

package display

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// WatchExitKeys watches evdev devices under /dev/input/event* and calls
// onExit once when Esc, Q or F4 is pressed. Without input devices it logs
// and returns.
func WatchExitKeys(ctx context.Context, logger Logger, onExit func()) {
	if onExit == nil {
		return
	}
	tvSize := binary.Size(unix.Timeval{})

	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if logger != nil {
			logger.Infof("input", "no evdev devices found for exit keys")
		}
		return
	}

	var once sync.Once
	trigger := func() {
		once.Do(func() {
			if logger != nil {
				logger.Infof("input", "exit key pressed")
			}
			onExit()
		})
	}

	for _, path := range paths {
		go watchDevice(ctx, path, tvSize, trigger)
	}
}

func watchDevice(ctx context.Context, path string, tvSize int, trigger func()) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer f.Close()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		if exitPressed(buf[:n], tvSize) {
			trigger()
			return
		}
	}
}
