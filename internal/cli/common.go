package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/logger"
)

// configFlags are shared by every command that reads the layered config.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default: .opsview.yaml in the project, then ~/.config/opsview/config.yaml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "log-json",
			Usage: "Write logs as JSON",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

// loadConfig loads the effective config and applies the logging flags.
func loadConfig(cmd *cli.Command) (*Config, error) {
	cfg, err := LoadEffectiveConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.Bool("log-json") {
		cfg.LogJSON = true
	}
	if err := setupLogging(os.Stderr, cfg, cmd.Bool("no-color")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(w io.Writer, cfg *Config, noColor bool) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Initialize(w, logger.Options{Level: level, JSON: cfg.LogJSON, NoColor: noColor})
	return nil
}

// readInput returns the contents of the single argument: "-" or no
// argument reads stdin, an http(s) URL is fetched, anything else is a file.
func readInput(ctx context.Context, cmd *cli.Command, stdin io.Reader) ([]byte, error) {
	arg := cmd.Args().First()
	switch {
	case arg == "" || arg == "-":
		data, err := io.ReadAll(io.LimitReader(stdin, fetch.MaxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case isURL(arg):
		res := fetch.New().Fetch(ctx, arg)
		if res.Err != nil {
			return nil, fmt.Errorf("%s", fetch.Message(res.Err))
		}
		return res.Body, nil
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return data, nil
	}
}

func isURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}
