package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tobert/opsview/internal/display"
	"github.com/tobert/opsview/internal/filter"
	"github.com/tobert/opsview/internal/redact"
	"github.com/tobert/opsview/internal/render"
	"github.com/tobert/opsview/internal/tracefeed"
	"github.com/tobert/opsview/internal/viz"
)

// RenderCommand renders a JSON body to an HTML fragment on stdout.
func RenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a JSON document as a dashboard fragment",
		ArgsUsage: "[URL|FILE|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "detail-kind", Usage: "Mark rows as opening job or webhook details"},
			&cli.StringFlag{Name: "id-field", Usage: "Record key holding the row id"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Hide rows not containing this text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runRender(ctx, cmd, os.Stdin, os.Stdout)
		},
	}
}

func runRender(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout io.Writer) error {
	data, err := readInput(ctx, cmd, stdin)
	if err != nil {
		return err
	}

	res := render.Render(redact.Deep(display.Classify(data)), render.Options{
		DetailKind: cmd.String("detail-kind"),
		IDField:    cmd.String("id-field"),
	})
	out := res.HTML
	if res.Table != nil && cmd.String("query") != "" {
		out = filter.Apply(*res.Table, cmd.String("query")).HTML()
	}

	_, err = fmt.Fprintln(stdout, out)
	return err
}

// RedactCommand prints a payload with sensitive values masked.
func RedactCommand() *cli.Command {
	return &cli.Command{
		Name:      "redact",
		Usage:     "Mask secrets, tokens and authorization values in a payload",
		ArgsUsage: "[URL|FILE|-]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runRedact(ctx, cmd, os.Stdin, os.Stdout)
		},
	}
}

func runRedact(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout io.Writer) error {
	data, err := readInput(ctx, cmd, stdin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, redact.DeepString(string(data)))
	return err
}

// TraceCommand prints the activity histogram and stage breakdown of a trace
// payload.
func TraceCommand() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "Summarize a trace payload as a 4h histogram",
		ArgsUsage: "[URL|FILE|-]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "recent", Value: 10, Usage: "Recent events to list (0 for none)"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTrace(ctx, cmd, os.Stdin, os.Stdout, time.Now())
		},
	}
}

func runTrace(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout io.Writer, now time.Time) error {
	if cmd.Bool("no-color") {
		bold.DisableColor()
		cyan.DisableColor()
	}

	data, err := readInput(ctx, cmd, stdin)
	if err != nil {
		return err
	}
	events, err := tracefeed.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode trace: %w", err)
	}

	buckets := viz.Bucketize(events, now, viz.DefaultWindow, viz.DefaultBuckets)
	fmt.Fprintf(stdout, "%s %s\n\n", bold.Sprint("Activity"), cyan.Sprint(viz.TextSparkline(buckets)))
	fmt.Fprint(stdout, viz.TraceSummary(events, now))

	if n := int(cmd.Int("recent")); n > 0 {
		if recent := viz.RecentEvents(events, n); recent != "" {
			fmt.Fprintf(stdout, "\n%s", recent)
		}
	}
	return nil
}
