package viz

import (
	"fmt"
	"strings"
)

// RecentEvents renders the last n events as a compact text table.
func RecentEvents(events []TraceEvent, n int) string {
	if len(events) == 0 {
		return ""
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent Events (%d)\n", len(events))

	for _, ev := range events {
		ts := "--:--:--"
		if !ev.Time.IsZero() {
			ts = ev.Time.Local().Format("15:04:05")
		}

		stage := ev.Stage
		if len(stage) > 20 {
			stage = stage[:19] + "…"
		}

		source := ev.Source
		if len(source) > 16 {
			source = source[:15] + "…"
		}

		msg := strings.ReplaceAll(ev.Message, "\n", " ")
		if len(msg) > 60 {
			msg = msg[:59] + "…"
		}

		fmt.Fprintf(&b, "  %s %s %-20s  %-16s  %s\n", ts, stageIcon(ev.Stage), stage, source, msg)
	}

	return b.String()
}

func stageIcon(stage string) string {
	lower := strings.ToLower(stage)
	switch {
	case strings.Contains(lower, "fail"), strings.Contains(lower, "error"):
		return "✗"
	case strings.Contains(lower, "done"), strings.Contains(lower, "complete"), strings.Contains(lower, "success"):
		return "✓"
	default:
		return "·"
	}
}
