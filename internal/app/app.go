package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/kinetype/internal/animation"
	"github.com/rook-computer/kinetype/internal/display"
	"github.com/rook-computer/kinetype/internal/export"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/typeface"
	"github.com/rook-computer/kinetype/internal/web"
)

// Options configures New. Zero values give a headless renderer with the
// built-in font and ffmpeg from PATH.
type Options struct {
	Settings settings.Settings
	// FontPath selects a TTF/OTF file; empty uses the built-in font.
	FontPath string
	// FFmpegPath is the ffmpeg binary used for video export.
	FFmpegPath string

	// Web enables the HTTP API when set.
	Web              *web.ServerConfig
	MaxVideoDuration time.Duration

	// Framebuffer is the kiosk output device. Empty disables it.
	Framebuffer string
}

type App struct {
	Store    *settings.Store
	Font     *typeface.Font
	Loop     *animation.Loop
	Exporter *export.Exporter
	Web      web.Server
	Logger   Logger

	framebuffer string

	exitOnce atomic.Bool
	exitCh   chan error
}

// New loads the font and wires the store, loop, exporter and web server.
// A font that fails to parse is fatal.
func New(opts Options, logger Logger) (*App, error) {
	if logger == nil {
		logger = NoopLogger{}
	}

	font, err := loadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}
	logger.Infof("app", "font %s loaded", font.Name)

	store := settings.NewStore(opts.Settings)

	loop := animation.New(store, font)
	loop.Logger = logger

	exp := export.New(store, loop, font)
	exp.Logger = logger
	if opts.FFmpegPath != "" {
		exp.Prober = &export.FFmpegProber{Path: opts.FFmpegPath}
		exp.Encoder = export.NewEncoder(opts.FFmpegPath)
	}

	app := &App{
		Store:       store,
		Font:        font,
		Loop:        loop,
		Exporter:    exp,
		Web:         web.NoopServer{},
		Logger:      logger,
		framebuffer: opts.Framebuffer,
		exitCh:      make(chan error, 1),
	}

	if opts.Web != nil {
		srv := web.NewHTTPServer(*opts.Web, web.APIV1Deps{
			Settings:         store,
			Frames:           loop,
			Exporter:         exp,
			Logger:           logger,
			MaxVideoDuration: opts.MaxVideoDuration,
		})
		srv.Logger = logger
		app.Web = srv
	}
	return app, nil
}

func loadFont(path string) (*typeface.Font, error) {
	if path == "" {
		return typeface.Default()
	}
	font, err := typeface.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return font, nil
}

// Exit requests the app to stop running.
// Key watchers and signal handlers call this to end Start via the generic codepath.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs the animation loop, the web server and, when configured, the
// framebuffer output until ctx is done or Exit is called.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.framebuffer != "" {
		fb, err := display.OpenFramebuffer(app.framebuffer, app.Logger)
		if err != nil {
			app.Logger.Errorf("app", "framebuffer open error: %v", err)
			return fmt.Errorf("open framebuffer %s: %w", app.framebuffer, err)
		}
		defer fb.Close()
		app.Loop.AddSink(fb)

		// Switch console to KD_GRAPHICS so the kernel console stays off the framebuffer.
		console := display.Console{Logger: app.Logger}
		if err := console.Enter(); err != nil {
			app.Logger.Errorf("tty", "set graphics mode failed: %v", err)
		}
		defer func() { _ = console.Restore() }()

		display.WatchExitKeys(ctx, app.Logger, func() { app.Exit(nil) })
	}

	if err := app.Web.Start(ctx); err != nil {
		app.Logger.Errorf("app", "web start error: %v", err)
		return err
	}
	defer func() { _ = app.Web.Stop() }()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Loop.Run(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	if c := app.Exporter.Current(); c != nil {
		c.Cancel()
	}
	cancel()
	wg.Wait()
	app.Logger.Infof("app", "stopped after %d frames", app.Loop.Stats().Frames)
	return err
}

// RecordVideo drives the loop headless for the length of a timed capture and
// returns the encoded result.
func (app *App) RecordVideo(ctx context.Context, duration time.Duration, resolution float64, cb export.Callbacks) (export.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Loop.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	capture, err := app.Exporter.Timed(ctx, duration, resolution)
	if err != nil {
		return export.Result{}, err
	}
	return capture.Follow(cb)
}

// SaveResult writes r to out. An empty out or an existing directory
// receives the generated filename.
func SaveResult(out string, r export.Result) (string, error) {
	path := out
	if path == "" {
		path = r.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, r.Filename)
	} else if strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		path = filepath.Join(path, r.Filename)
	}
	if err := os.WriteFile(path, r.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
