package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var blocks = []rune("▁▂▃▄▅▆▇█")

// TextSparkline renders counts as a row of block glyphs scaled to the peak.
func TextSparkline(counts []int) string {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}

	var b strings.Builder
	for _, c := range counts {
		if peak == 0 || c == 0 {
			b.WriteRune(' ')
			continue
		}
		idx := c * (len(blocks) - 1) / peak
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// StageCounts tallies events per stage, busiest first, ties by name.
func StageCounts(events []TraceEvent) []StageCount {
	byStage := make(map[string]int)
	for _, ev := range events {
		stage := ev.Stage
		if stage == "" {
			stage = "(none)"
		}
		byStage[stage]++
	}

	out := make([]StageCount, 0, len(byStage))
	for stage, n := range byStage {
		out = append(out, StageCount{Stage: stage, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// TraceSummary renders the trace histogram and a per-stage bar chart as text
// for terminals and agents.
func TraceSummary(events []TraceEvent, now time.Time) string {
	var b strings.Builder

	counts := Bucketize(events, now, DefaultWindow, DefaultBuckets)
	fmt.Fprintf(&b, "Trace Activity (%s events, last %s)\n", formatCount(len(events)), formatWindow(DefaultWindow))
	fmt.Fprintf(&b, "  [%s]\n", TextSparkline(counts))

	stages := StageCounts(events)
	if len(stages) == 0 {
		return b.String()
	}

	maxNameLen := 0
	for _, s := range stages {
		maxNameLen = max(maxNameLen, len(s.Stage))
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}

	b.WriteString("Stages\n")
	for _, s := range stages {
		writeBar(&b, s.Stage, maxNameLen, s.Count, stages[0].Count)
	}

	return b.String()
}

func writeBar(b *strings.Builder, label string, width, count, peak int) {
	const barWidth = 20

	if len(label) > width {
		label = label[:width-1] + "…"
	}

	filled := 0
	if peak > 0 {
		filled = count * barWidth / peak
	}
	if filled < 1 && count > 0 {
		filled = 1
	}

	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	fmt.Fprintf(b, "  %-*s [%s]  %s\n", width, label, bar, formatCount(count))
}

func formatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1_000_000, (n%1_000_000)/1000, n%1000)
}
