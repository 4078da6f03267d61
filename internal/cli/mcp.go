package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/mcpserver"
	"github.com/tobert/opsview/internal/panel"
	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/tracefeed"
)

// MCPCommand serves the rendering tools over MCP stdio.
func MCPCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve render_endpoint, redact_payload and trace_histogram over MCP stdio",
		Description: `Runs an MCP server on stdin/stdout. Configured panels are loaded once
and exposed as opsview://panels resources. With otlp.addr set, an OTLP gRPC
logs receiver feeds trace_histogram when it is called without a url.`,
		Flags:  configFlags(),
		Action: runMCP,
	}
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetcher := fetch.New()
	ctrl := refresh.New(fetcher, panel.NewBoard(), cfg.RefreshTargets(), refresh.Options{})
	go func() {
		if err := ctrl.LoadAll(ctx); err != nil {
			slog.Warn("initial panel load incomplete", "error", err)
		}
	}()

	opts := mcpserver.Options{Controller: ctrl}
	if cfg.OTLP.Addr != "" {
		capacity := cfg.OTLP.Capacity
		if capacity == 0 {
			capacity = tracefeed.DefaultCapacity
		}
		opts.Feed = tracefeed.NewStore(capacity)

		receiver, err := tracefeed.NewReceiver(cfg.OTLP.Addr, opts.Feed)
		if err != nil {
			return fmt.Errorf("failed to create OTLP receiver: %w", err)
		}
		defer receiver.Stop()
		go func() {
			if err := receiver.Serve(ctx); err != nil {
				slog.Error("OTLP receiver stopped", "error", err)
			}
		}()
	}

	server, err := mcpserver.NewServer(fetcher, opts)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	slog.Info("MCP server ready on stdio")
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
