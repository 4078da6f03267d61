package viz

import (
	"strings"
	"testing"
	"time"
)

func TestRecentEvents_Empty(t *testing.T) {
	if result := RecentEvents(nil, 10); result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestRecentEvents(t *testing.T) {
	ts := time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)
	events := []TraceEvent{
		{Time: ts, Stage: "webhook.received", Source: "github", Message: "push to main"},
		{Time: ts.Add(time.Second), Stage: "job.failed", Source: "worker-2", Message: "timeout\nafter 30s"},
		{Time: ts.Add(2 * time.Second), Stage: "job.done", Source: "worker-1", Message: "ok"},
	}

	result := RecentEvents(events, 2)

	if !strings.Contains(result, "Recent Events (2)") {
		t.Errorf("expected header, got:\n%s", result)
	}
	if strings.Contains(result, "push to main") {
		t.Errorf("expected only the last two events, got:\n%s", result)
	}
	if !strings.Contains(result, "timeout after 30s") {
		t.Errorf("expected newline folded message, got:\n%s", result)
	}
	if !strings.Contains(result, "✗") || !strings.Contains(result, "✓") {
		t.Errorf("expected stage icons, got:\n%s", result)
	}
	if !strings.Contains(result, "09:30:01") {
		t.Errorf("expected local timestamps, got:\n%s", result)
	}
}

func TestRecentEvents_LongMessage(t *testing.T) {
	events := []TraceEvent{{Stage: "queued", Message: strings.Repeat("x", 100)}}
	result := RecentEvents(events, 0)
	if !strings.Contains(result, "…") {
		t.Errorf("expected truncation for long message, got:\n%s", result)
	}
	if !strings.Contains(result, "--:--:--") {
		t.Errorf("expected placeholder time, got:\n%s", result)
	}
}
