package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rook-computer/kinetype/internal/app"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/spf13/cobra"
)

const envStdioLog = "KINETYPE_STDIO_LOG"

var (
	debug        bool
	stdioLog     string
	settingsFile string
	fontFile     string
	theme        string
	text         string
	ffmpegPath   string

	logger app.Logger = app.NoopLogger{}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kinetype",
		Short:         "kinetic typography renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debug, "debug", false, "enable debug logging to ./kinetype-debug.log")
	flags.StringVar(&stdioLog, "stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+envStdioLog)
	flags.StringVar(&settingsFile, "settings", "", "settings file (.yaml, .yml or .toml)")
	flags.StringVar(&fontFile, "font", "", "variable TTF/OTF font; defaults to the built-in font")
	flags.StringVar(&theme, "theme", "", "theme id to apply on start (see `kinetype themes`)")
	flags.StringVar(&text, "text", "", "text to render")
	flags.StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg binary used for video export")

	rootCmd.AddCommand(
		newServeCmd(),
		newKioskCmd(),
		newStillCmd(),
		newVideoCmd(),
		newThemesCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func setupLogging() {
	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	logPath := stdioLog
	if logPath == "" {
		logPath = os.Getenv(envStdioLog)
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	if debug {
		f, err := os.OpenFile("./kinetype-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			logger = app.NewFileLogger(f)
			logger.Infof("main", "debug logging enabled")
		} else {
			fmt.Println("debug log open error:", err)
		}
	}
}

// loadSettings resolves the start-up settings from the settings file and
// the --theme and --text flags.
func loadSettings() (settings.Settings, error) {
	s := settings.Default()
	if settingsFile != "" {
		loaded, err := settings.Load(settingsFile)
		if err != nil {
			return settings.Settings{}, err
		}
		s = loaded
	}

	store := settings.NewStore(s)
	if theme != "" {
		if _, err := store.ApplyTheme(theme); err != nil {
			return settings.Settings{}, err
		}
	}
	if text != "" {
		store.SetText(text)
	}
	return store.Snapshot(), nil
}

func newApp(opts app.Options) (*app.App, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	opts.Settings = s
	opts.FontPath = fontFile
	opts.FFmpegPath = ffmpegPath
	return app.New(opts, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runUntilStopped treats a signal as a clean shutdown.
func runUntilStopped(a *app.App) error {
	ctx, cancel := signalContext()
	defer cancel()
	err := a.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
