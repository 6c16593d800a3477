package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	imagetoolkit "github.com/Skryldev/image-toolkit"
	"github.com/Skryldev/image-toolkit/adapters/storage"
	"github.com/Skryldev/image-toolkit/adapters/vips"
	"github.com/Skryldev/image-toolkit/config"
	"github.com/Skryldev/image-toolkit/hooks"
)

// v collects flag bindings from every subcommand; config.LoadWith reads it.
var v = viper.New()

// app is the state shared by subcommands, built in PersistentPreRunE.
var app struct {
	cfg     config.Config
	log     *slog.Logger
	tk      *imagetoolkit.Toolkit
	store   *storage.Local
	metrics *hooks.Metrics
	backend *vips.Backend
	ctx     context.Context
	cancel  context.CancelFunc
}

var rootCmd = &cobra.Command{
	Use:           "imgkit",
	Short:         "Resize, filter, convert and compress images to a target size",
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default ./imgkit.yaml)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "Log as JSON")
	pf.String("output-dir", ".", "Directory for relative output paths")
	pf.Bool("no-sidecar", false, "Do not write a .meta.json file next to the output")
	pf.Bool("force", false, "Overwrite existing output files")
	pf.Bool("vips", false, "Use the libvips backend for JPEG, PNG and WebP")

	v.BindPFlag("logging.level", pf.Lookup("log-level"))
	v.BindPFlag("logging.json_format", pf.Lookup("log-json"))
	v.BindPFlag("output.dir", pf.Lookup("output-dir"))
}

func setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWith(v, path)
	if err != nil {
		return err
	}
	if noSidecar, _ := cmd.Flags().GetBool("no-sidecar"); noSidecar {
		cfg.Output.Sidecar = false
	}
	app.cfg = cfg
	app.log = newLogger(cfg.Logging)
	slog.SetDefault(app.log)

	app.tk = imagetoolkit.New(cfg)
	app.tk.SetLogger(hooks.NewSlogLogger(app.log))
	app.tk.AddHook(hooks.NewLoggingHook(app.tk.Logger()))
	app.metrics = hooks.NewMetrics(nil)
	app.tk.SetMetrics(app.metrics)

	if useVips, _ := cmd.Flags().GetBool("vips"); useVips {
		app.backend = vips.NewBackend(vips.BackendConfig{AutoRotate: true})
		vips.RegisterBackend(app.tk.Registry(), app.backend)
	}

	app.store, err = storage.NewLocalFromConfig(cfg.Output)
	if err != nil {
		return err
	}
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	return nil
}

// teardown releases what setup acquired.  It runs after every command,
// including failed ones.
func teardown() {
	if app.cancel != nil {
		app.cancel()
	}
	if app.backend != nil {
		app.backend.Shutdown()
		app.backend = nil
	}
	if app.metrics != nil && app.log != nil {
		app.log.Debug("metrics", "summary", app.metrics.Snapshot().String())
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
