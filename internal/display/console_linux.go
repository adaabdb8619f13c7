//go:build linux

package display

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

var vtPaths = []string{"/dev/tty", "/dev/tty0"}

// Console switches the active virtual terminal between text and graphics
// mode so the kernel console does not draw over the framebuffer.
type Console struct {
	Logger Logger
}

// Enter sets KD_GRAPHICS and hides the cursor.
func (c Console) Enter() error {
	if err := setMode(kdGraphics); err != nil {
		c.errorf("KD_GRAPHICS failed: %v", err)
		return err
	}
	c.infof("KD_GRAPHICS set")
	if err := writeVT("\x1b[?25l"); err != nil {
		c.errorf("hide cursor failed: %v", err)
	}
	return nil
}

// Restore shows the cursor and returns to KD_TEXT.
func (c Console) Restore() error {
	if err := writeVT("\x1b[?25h"); err != nil {
		c.errorf("show cursor failed: %v", err)
	}
	if err := setMode(kdText); err != nil {
		c.errorf("KD_TEXT failed: %v", err)
		return err
	}
	c.infof("KD_TEXT set")
	return nil
}

func (c Console) infof(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Infof("tty", format, args...)
	}
}

func (c Console) errorf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Errorf("tty", format, args...)
	}
}

func setMode(mode int) error {
	var lastErr error
	for _, p := range vtPaths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	return lastErr
}

func writeVT(s string) error {
	var lastErr error
	for _, p := range vtPaths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("write VT failed: %w", lastErr)
}
