package web

import (
	"context"
	"image"
	"time"

	"github.com/rook-computer/kinetype/internal/animation"
	"github.com/rook-computer/kinetype/internal/export"
	"github.com/rook-computer/kinetype/internal/settings"
)

// SettingsStore is the part of settings.Store the API mutates.
type SettingsStore interface {
	Snapshot() settings.Settings
	Update(fn func(*settings.Settings)) settings.Settings
	ApplyTheme(id string) (settings.Settings, error)
}

// FrameSource exposes the live animation.
type FrameSource interface {
	Frame() (*image.RGBA, error)
	Stats() animation.Stats
}

// Exporter runs still and video exports.
type Exporter interface {
	Still(ctx context.Context, resolution float64) (export.Result, error)
	Timed(ctx context.Context, duration time.Duration, resolution float64) (*export.Capture, error)
	Current() *export.Capture
	Busy() bool
}

// apiLogger matches the logger used across the app.
type apiLogger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

type APIV1Deps struct {
	Settings SettingsStore
	Frames   FrameSource
	Exporter Exporter
	Logger   apiLogger

	// MaxVideoDuration bounds POST /export/video; zero means DefaultMaxVideoDuration.
	MaxVideoDuration time.Duration
}

const DefaultMaxVideoDuration = 2 * time.Minute

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Logger == nil {
		out.Logger = noopLogger{}
	}
	if out.MaxVideoDuration <= 0 {
		out.MaxVideoDuration = DefaultMaxVideoDuration
	}
	return out
}
