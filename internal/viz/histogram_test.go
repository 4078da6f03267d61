package viz

import (
	"math"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestBucketIndex(t *testing.T) {
	step := DefaultWindow / DefaultBuckets // 7.5 minutes

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"now is last bucket", 0, 31},
		{"future clamps to last bucket", -time.Hour, 31},
		{"just inside first slot", step - time.Nanosecond, 31},
		{"tie goes to older bucket", step, 30},
		{"two steps", 2 * step, 29},
		{"just before window", DefaultWindow - time.Nanosecond, 0},
		{"exactly window", DefaultWindow, 0},
		{"far past", 1000 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BucketIndex(now.Add(-tt.elapsed), now, DefaultWindow, DefaultBuckets)
			if got != tt.want {
				t.Errorf("elapsed %v: got bucket %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestBucketIndex_LargeWindow(t *testing.T) {
	window := time.Duration(math.MaxInt64)
	buckets := 1 << 20

	// window is odd, so half of it falls just short of the middle slot
	if got := BucketIndex(now.Add(-window/2), now, window, buckets); got != buckets/2 {
		t.Errorf("half window: got %d, want %d", got, buckets/2)
	}
	if got := BucketIndex(now.Add(-(window - 1)), now, window, buckets); got != 0 {
		t.Errorf("end of window: got %d, want 0", got)
	}
	if got := BucketIndex(now, now, window, buckets); got != buckets-1 {
		t.Errorf("now: got %d, want %d", got, buckets-1)
	}
}

func TestBucketIndex_ZeroTime(t *testing.T) {
	if got := BucketIndex(time.Time{}, now, DefaultWindow, DefaultBuckets); got != 0 {
		t.Errorf("zero time should land in the oldest bucket, got %d", got)
	}
}

func TestBucketize_SumsToEventCount(t *testing.T) {
	var events []TraceEvent
	for i := 0; i < 500; i++ {
		events = append(events, TraceEvent{
			Time:  now.Add(-time.Duration(i*37) * time.Second),
			Stage: "dispatch",
		})
	}
	events = append(events, TraceEvent{Time: now.Add(time.Minute)}, TraceEvent{})

	counts := Bucketize(events, now, DefaultWindow, DefaultBuckets)
	if len(counts) != DefaultBuckets {
		t.Fatalf("expected %d buckets, got %d", DefaultBuckets, len(counts))
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != len(events) {
		t.Errorf("bucket counts sum to %d, want %d", sum, len(events))
	}
}

func TestHistogramPoints_AllZero(t *testing.T) {
	s := Surface{Width: 100, Height: 20, Margin: 2}
	points := HistogramPoints(make([]int, 4), s)
	for _, p := range points {
		if p.Y != 18 {
			t.Errorf("all-zero histogram should sit on the baseline, got y=%v", p.Y)
		}
	}
}

func TestHistogramPoints_NormalizedToPeak(t *testing.T) {
	s := Surface{Width: 100, Height: 20, Margin: 2}
	points := HistogramPoints([]int{0, 4, 2}, s)

	if points[1].Y != 2 {
		t.Errorf("peak should touch the top margin, got y=%v", points[1].Y)
	}
	if points[2].Y != 10 {
		t.Errorf("half peak should sit mid-way, got y=%v", points[2].Y)
	}
}

func TestTraceHistogram(t *testing.T) {
	events := []TraceEvent{
		{Time: now, Stage: "received"},
		{Time: now.Add(-5 * time.Hour), Stage: "queued"},
	}
	out := TraceHistogram(events, now, DefaultSurface)

	if !strings.Contains(out, `class="trace-histogram"`) {
		t.Errorf("expected histogram class, got:\n%s", out)
	}
	if !strings.Contains(out, "2 events in the last 4h") {
		t.Errorf("expected title with event count, got:\n%s", out)
	}
	if strings.Count(out, "<polyline") != 1 {
		t.Errorf("expected one polyline, got:\n%s", out)
	}
}
