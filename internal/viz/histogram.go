package viz

import (
	"fmt"
	"math/bits"
	"time"
)

const (
	// DefaultWindow is the trailing time span the trace histogram covers.
	DefaultWindow = 240 * time.Minute
	// DefaultBuckets is the number of histogram buckets.
	DefaultBuckets = 32
)

// BucketIndex assigns an event time to a histogram index. Elapsed time from
// now is clamped to be non-negative and floor-divided into slots, so a tie
// lands in the older slot. Slot 0 (most recent) maps to the last index.
func BucketIndex(t, now time.Time, window time.Duration, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	if window <= 0 {
		window = DefaultWindow
	}

	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}

	slot := buckets - 1
	if elapsed < window {
		// 128-bit product; elapsed < window keeps the quotient below buckets.
		hi, lo := bits.Mul64(uint64(elapsed), uint64(buckets))
		q, _ := bits.Div64(hi, lo, uint64(window))
		slot = int(q)
	}
	if slot > buckets-1 {
		slot = buckets - 1
	}

	return buckets - 1 - slot
}

// Bucketize counts events per bucket. The counts always sum to len(events).
func Bucketize(events []TraceEvent, now time.Time, window time.Duration, buckets int) []int {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	counts := make([]int, buckets)
	for _, ev := range events {
		counts[BucketIndex(ev.Time, now, window, buckets)]++
	}
	return counts
}

// HistogramPoints lays bucket counts out on s, normalized to the largest
// count (or 1 when every bucket is empty).
func HistogramPoints(counts []int, s Surface) []Point {
	if len(counts) == 0 {
		return nil
	}

	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	if peak == 0 {
		peak = 1
	}

	left, right := s.Margin, s.Width-s.Margin
	top, bottom := s.Margin, s.Height-s.Margin

	points := make([]Point, len(counts))
	for i, c := range counts {
		points[i] = Point{
			X: xAt(i, len(counts), left, right),
			Y: bottom - float64(c)/float64(peak)*(bottom-top),
		}
	}
	return points
}

// TraceHistogram renders the default 240 minute, 32 bucket activity line for
// events. It is always drawn from scratch.
func TraceHistogram(events []TraceEvent, now time.Time, s Surface) string {
	counts := Bucketize(events, now, DefaultWindow, DefaultBuckets)
	title := fmt.Sprintf("%d events in the last %s", len(events), formatWindow(DefaultWindow))
	return svg("trace-histogram", s, HistogramPoints(counts, s), title)
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}
