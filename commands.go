package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rook-computer/kinetype/internal/app"
	"github.com/rook-computer/kinetype/internal/display"
	"github.com/rook-computer/kinetype/internal/export"
	"github.com/rook-computer/kinetype/internal/settings"
	"github.com/rook-computer/kinetype/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		listen    string
		staticDir string
		maxVideo  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the live animation with the web UI and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := serverConfig(cmd, listen, staticDir)
			if err != nil {
				return err
			}
			a, err := newApp(app.Options{Web: &cfg, MaxVideoDuration: maxVideo})
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render("kinetype"), dimStyle.Render("serving on "+cfg.ListenAddr))
			return runUntilStopped(a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", web.DefaultListenAddr, "HTTP listen address; also configurable via "+web.EnvListenAddr)
	cmd.Flags().StringVar(&staticDir, "static", "", "serve the UI from this directory instead of the embedded page")
	cmd.Flags().DurationVar(&maxVideo, "max-video", web.DefaultMaxVideoDuration, "longest video export accepted over HTTP")
	return cmd
}

func newKioskCmd() *cobra.Command {
	var (
		device    string
		listen    string
		staticDir string
		noWeb     bool
	)
	cmd := &cobra.Command{
		Use:   "kiosk",
		Short: "show the live animation fullscreen on the Linux framebuffer",
		Long:  "Renders to the framebuffer with the console in graphics mode. Esc, Q or F4 exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Framebuffer: device}
			if !noWeb {
				cfg, err := serverConfig(cmd, listen, staticDir)
				if err != nil {
					return err
				}
				opts.Web = &cfg
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return runUntilStopped(a)
		},
	}
	cmd.Flags().StringVar(&device, "device", display.DefaultDevice, "framebuffer device")
	cmd.Flags().StringVar(&listen, "listen", web.DefaultListenAddr, "HTTP listen address; also configurable via "+web.EnvListenAddr)
	cmd.Flags().StringVar(&staticDir, "static", "", "serve the UI from this directory instead of the embedded page")
	cmd.Flags().BoolVar(&noWeb, "no-web", false, "do not start the HTTP API")
	return cmd
}

// serverConfig reads KINETYPE_* and lets explicit flags win.
func serverConfig(cmd *cobra.Command, listen, staticDir string) (web.ServerConfig, error) {
	cfg, err := web.DefaultServerConfigFromEnv(listen)
	if err != nil {
		return web.ServerConfig{}, err
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = listen
	}
	cfg.StaticDir = staticDir
	return cfg, nil
}

func newStillCmd() *cobra.Command {
	var (
		resolution float64
		out        string
	)
	cmd := &cobra.Command{
		Use:   "still",
		Short: "render the current frame to a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(app.Options{})
			if err != nil {
				return err
			}
			res, err := a.Exporter.Still(cmd.Context(), resolution)
			if err != nil {
				return err
			}
			path, err := app.SaveResult(out, res)
			if err != nil {
				return err
			}
			fmt.Println(doneStyle.Render("saved"), path, dimStyle.Render(formatBytes(len(res.Data))))
			return nil
		},
	}
	cmd.Flags().Float64VarP(&resolution, "resolution", "r", 1, "output size as a multiple of the canvas size (1-8)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	return cmd
}

func newVideoCmd() *cobra.Command {
	var (
		duration   time.Duration
		resolution float64
		out        string
	)
	cmd := &cobra.Command{
		Use:   "video",
		Short: "record the animation to a video file",
		Long:  "Records with the best codec ffmpeg offers (vp9, vp8, h264, mpeg4) and falls back to GIF.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(app.Options{})
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			bar := newProgressBar(os.Stdout, 30)
			res, err := a.RecordVideo(ctx, duration, resolution, export.Callbacks{
				OnStart: func() {
					fmt.Println(titleStyle.Render("recording"), dimStyle.Render(fmt.Sprintf("%s at %gx", duration, export.ClampResolution(resolution))))
				},
				OnProgress: bar.Update,
			})
			bar.Finish()
			if err != nil {
				return err
			}
			path, err := app.SaveResult(out, res)
			if err != nil {
				return err
			}
			fmt.Println(doneStyle.Render("saved"), path, dimStyle.Render(res.MIMEType+", "+formatBytes(len(res.Data))))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "recording length")
	cmd.Flags().Float64VarP(&resolution, "resolution", "r", 1, "output size as a multiple of the canvas size (1-8)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	return cmd
}

func newThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "list the built-in themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderThemes(settings.Presets()))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "write the effective settings to a YAML or TOML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if err := settings.Save(out, s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doneStyle.Render("saved"), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "kinetype.yaml", "settings file to write (.yaml, .yml or .toml)")
	return cmd
}
