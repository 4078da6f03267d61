package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tobert/opsview/internal/control"
	"github.com/tobert/opsview/internal/detail"
	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/panel"
	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/tracefeed"
	"github.com/tobert/opsview/internal/webui"
)

// ServeCommand returns the CLI command definition for the 'serve' subcommand.
// This command starts the dashboard web UI and the refresh controller.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard web UI",
		Description: `Loads every configured panel, serves the page at /ui/ and pushes
re-rendered panels over /ws. With auto_refresh set, panels reload on that
interval. With otlp.addr set, an OTLP gRPC logs receiver feeds /api/trace.`,
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP bind address",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Page title",
			},
			&cli.IntFlag{
				Name:  "auto-refresh",
				Usage: "Reload every panel this many seconds (0 disables)",
			},
			&cli.StringFlag{
				Name:  "shell",
				Usage: "Modal shell: inline or bootstrap",
			},
			&cli.StringFlag{
				Name:  "otlp-addr",
				Usage: "Local OTLP gRPC logs receiver address (e.g. 127.0.0.1:4317)",
			},
			&cli.StringFlag{
				Name:  "trace-file",
				Usage: "Tail an OTLP logs JSONL file into the local trace feed",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload panels when the config file changes",
			},
		),
		Action: runServe,
	}
}

// applyServeFlags lets explicit flags override the loaded config.
func applyServeFlags(cmd *cli.Command, cfg *Config) error {
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("title") {
		cfg.Title = cmd.String("title")
	}
	if cmd.IsSet("auto-refresh") {
		cfg.AutoRefresh = int(cmd.Int("auto-refresh"))
	}
	if cmd.IsSet("shell") {
		cfg.Shell = cmd.String("shell")
	}
	if cmd.IsSet("otlp-addr") {
		cfg.OTLP.Addr = cmd.String("otlp-addr")
	}
	if cmd.IsSet("trace-file") {
		cfg.OTLP.File = cmd.String("trace-file")
	}
	return cfg.Validate()
}

// runServe is the action handler for the serve command.
func runServe(cliCtx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cliCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := NewDashboard(cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.UI.ListenAndServe(gctx, cfg.Listen)
	})

	if d.Receiver != nil {
		g.Go(func() error {
			return d.Receiver.Serve(gctx)
		})
	}

	if d.File != nil {
		if err := d.File.Start(gctx); err != nil {
			return fmt.Errorf("failed to start trace file tail: %w", err)
		}
		defer d.File.Stop()
	}

	if cmd.Bool("watch") {
		path, err := watchedConfigPath(cmd.String("config"))
		if err != nil {
			return err
		}
		w := NewConfigWatcher(path, nil)
		g.Go(func() error {
			return w.Watch(gctx, func(next *Config) {
				d.Controller.SetTargets(next.RefreshTargets())
				if err := d.Controller.LoadAll(gctx); err != nil {
					slog.Warn("reload after config change failed", "error", err)
				}
			})
		})
	}

	g.Go(func() error {
		if err := d.Controller.LoadAll(gctx); err != nil {
			slog.Warn("initial load incomplete", "error", err)
		}
		return d.Controller.Start(gctx)
	})

	success(os.Stderr, "opsview serving %d panels on http://%s/ui/", len(cfg.Targets), cfg.Listen)

	err = g.Wait()
	d.Controller.Stop()
	return err
}

// watchedConfigPath resolves which file --watch follows.
func watchedConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := FindProjectConfig()
	if err != nil {
		return "", fmt.Errorf("--watch needs --config or a %s in the project", ProjectConfigName)
	}
	return path, nil
}

// Dashboard is the wired set of components behind serve.
type Dashboard struct {
	Registry   *prometheus.Registry
	Fetcher    *fetch.Client
	Controller *refresh.Controller
	Feed       *tracefeed.Store
	Receiver   *tracefeed.Receiver
	File       *tracefeed.FileSource
	UI         *webui.Server
}

// NewDashboard wires components from cfg. The OTLP receiver, when
// configured, is listening on return but not yet serving.
func NewDashboard(cfg *Config) (*Dashboard, error) {
	shell, err := detail.Shell(cfg.Shell)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d := &Dashboard{
		Registry: reg,
		Fetcher:  fetch.New(),
	}

	d.Controller = refresh.New(d.Fetcher, panel.NewBoard(), cfg.RefreshTargets(), refresh.Options{
		Interval:   cfg.RefreshInterval(),
		Registerer: reg,
	})

	if cfg.OTLP.Addr != "" || cfg.OTLP.File != "" {
		capacity := cfg.OTLP.Capacity
		if capacity == 0 {
			capacity = tracefeed.DefaultCapacity
		}
		d.Feed = tracefeed.NewStore(capacity)
	}
	if cfg.OTLP.Addr != "" {
		if d.Receiver, err = tracefeed.NewReceiver(cfg.OTLP.Addr, d.Feed); err != nil {
			return nil, fmt.Errorf("failed to create OTLP receiver: %w", err)
		}
	}
	if cfg.OTLP.File != "" {
		if d.File, err = tracefeed.NewFileSource(cfg.OTLP.File, d.Feed); err != nil {
			return nil, fmt.Errorf("failed to create trace file tail: %w", err)
		}
	}

	opts := webui.Options{
		Title:       cfg.Title,
		AutoRefresh: cfg.RefreshInterval(),
		Shell:       shell,
		Feed:        d.Feed,
		Gatherer:    reg,
	}
	if cfg.Detail.Job != "" || cfg.Detail.Webhook != "" {
		opts.Details = detail.NewLoader(d.Fetcher, cfg.DetailURLs())
	}
	if len(cfg.Control.Actions) > 0 {
		opts.Control = control.New(cfg.Control.Actions, cfg.Control.Token, nil)
	}
	d.UI = webui.New(d.Controller, opts)

	return d, nil
}
