package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/tracefeed"
)

// DoctorCommand returns the CLI command definition for the 'doctor' subcommand.
// It loads the effective config and probes every configured endpoint.
func DoctorCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the config and probe every configured endpoint",
		Description: `Loads the effective config the way serve does and checks:
  - config validity
  - each panel endpoint answers 2xx with a body its panel kind can use
  - detail endpoints are configured for panels that open details
  - a control token is present when control actions are configured

Exit codes:
  0 - All critical checks passed
  1 - One or more issues found`,
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				failure(os.Stdout, "Config invalid: %v", err)
				return err
			}
			return runDoctor(ctx, os.Stdout, version, cfg, fetch.New())
		},
	}
}

type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

type checkResult struct {
	Status     checkStatus
	Message    string
	Suggestion string
}

type resultSummary struct {
	PassCount int
	WarnCount int
	FailCount int
}

func runDoctor(ctx context.Context, w io.Writer, version string, cfg *Config, fetcher refresh.Fetcher) error {
	fmt.Fprintf(w, "%s opsview doctor v%s\n\n", bold.Sprint("🔍"), version)

	results := []checkResult{{Status: statusPass, Message: fmt.Sprintf("Config valid (%d panels)", len(cfg.Targets))}}
	for _, t := range cfg.RefreshTargets() {
		results = append(results, checkTarget(ctx, fetcher, t))
	}
	results = append(results, checkDetail(cfg), checkControl(cfg))

	var summary resultSummary
	for _, r := range results {
		printCheckResult(w, r)
		switch r.Status {
		case statusPass:
			summary.PassCount++
		case statusWarn:
			summary.WarnCount++
		case statusFail:
			summary.FailCount++
		}
	}

	fmt.Fprintln(w)
	printSummary(w, summary)

	if summary.FailCount > 0 {
		return fmt.Errorf("found %d issues that need attention", summary.FailCount)
	}
	return nil
}

func printCheckResult(w io.Writer, r checkResult) {
	switch r.Status {
	case statusPass:
		success(w, "%s", r.Message)
	case statusWarn:
		warning(w, "%s", r.Message)
	case statusFail:
		failure(w, "%s", r.Message)
	}
	if r.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", r.Suggestion)
	}
}

func printSummary(w io.Writer, s resultSummary) {
	switch {
	case s.FailCount > 0:
		failure(w, "Found %d issue(s) that need attention", s.FailCount)
		if s.WarnCount > 0 {
			warning(w, "%d warning(s)", s.WarnCount)
		}
	case s.WarnCount > 0:
		success(w, "All critical checks passed!")
		warning(w, "%d optional warning(s)", s.WarnCount)
		info(w, "Run 'opsview serve' to start the dashboard")
	default:
		success(w, "All checks passed!")
		info(w, "Run 'opsview serve' to start the dashboard")
	}
}

func checkTarget(ctx context.Context, fetcher refresh.Fetcher, t refresh.Target) checkResult {
	res := fetcher.Fetch(ctx, t.URL)
	if res.Err != nil {
		return checkResult{
			Status:     statusFail,
			Message:    fmt.Sprintf("Panel %s: %s", t.ID, fetch.Message(res.Err)),
			Suggestion: "URL: " + t.URL,
		}
	}

	switch t.Kind {
	case refresh.KindTrace:
		events, err := tracefeed.Decode(res.Body)
		if errors.Is(err, tracefeed.ErrNotOK) {
			return checkResult{Status: statusWarn, Message: fmt.Sprintf("Panel %s: trace endpoint reported an error", t.ID), Suggestion: err.Error()}
		}
		if err != nil {
			return checkResult{Status: statusFail, Message: fmt.Sprintf("Panel %s: not a trace payload", t.ID), Suggestion: err.Error()}
		}
		return checkResult{Status: statusPass, Message: fmt.Sprintf("Panel %s: %d trace events in %s", t.ID, len(events), res.Duration.Round(1e6))}
	case refresh.KindSeries:
		if len(refresh.SeriesValues(res.Value, t.Field)) == 0 {
			return checkResult{Status: statusWarn, Message: fmt.Sprintf("Panel %s: no numeric values found", t.ID), Suggestion: "Check the field setting"}
		}
	}

	return checkResult{Status: statusPass, Message: fmt.Sprintf("Panel %s: %s in %s", t.ID, res.Value.Kind(), res.Duration.Round(1e6))}
}

func checkDetail(cfg *Config) checkResult {
	for _, t := range cfg.Targets {
		switch {
		case t.DetailKind == "job" && cfg.Detail.Job == "":
			return checkResult{Status: statusFail, Message: fmt.Sprintf("Panel %s opens job details but detail.job is not set", t.ID)}
		case t.DetailKind == "webhook" && cfg.Detail.Webhook == "":
			return checkResult{Status: statusFail, Message: fmt.Sprintf("Panel %s opens webhook details but detail.webhook is not set", t.ID)}
		}
	}
	return checkResult{Status: statusPass, Message: "Detail endpoints configured for every panel that needs them"}
}

func checkControl(cfg *Config) checkResult {
	if len(cfg.Control.Actions) == 0 {
		return checkResult{Status: statusPass, Message: "No control actions configured"}
	}
	if cfg.Control.Token == "" {
		return checkResult{
			Status:     statusWarn,
			Message:    fmt.Sprintf("%d control actions configured without a token", len(cfg.Control.Actions)),
			Suggestion: "Set control.token or " + TokenEnv,
		}
	}
	return checkResult{Status: statusPass, Message: fmt.Sprintf("%d control actions with bearer token", len(cfg.Control.Actions))}
}
