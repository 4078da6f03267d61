package main

import (
	"context"
	"fmt"
	"os"

	cliframework "github.com/urfave/cli/v3"

	"github.com/tobert/opsview/internal/cli"
)

const version = "0.3.0"

func main() {
	app := &cliframework.Command{
		Name:    "opsview",
		Usage:   "Operational dashboard for JSON monitoring endpoints",
		Version: version,
		Commands: []*cliframework.Command{
			cli.ServeCommand(),
			cli.RenderCommand(),
			cli.RedactCommand(),
			cli.TraceCommand(),
			cli.MCPCommand(),
			cli.DoctorCommand(version),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ error: %v\n", err)
		os.Exit(1)
	}
}
