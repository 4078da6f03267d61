package viz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParsePoints parses a comma-separated points attribute. Entries that are not
// finite numbers become 0.
func ParsePoints(attr string) []float64 {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return nil
	}

	parts := strings.Split(attr, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		values[i] = f
	}
	return values
}

// SparklinePoints lays values out on s: index maps linearly to x between the
// margins and value maps to y inverted across [min, max]. A series with no
// range draws a flat line at mid-height.
func SparklinePoints(values []float64, s Surface) []Point {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	left, right := s.Margin, s.Width-s.Margin
	top, bottom := s.Margin, s.Height-s.Margin

	if hi == lo {
		mid := s.Height / 2
		if len(values) == 1 {
			return []Point{{X: left, Y: mid}, {X: right, Y: mid}}
		}
		points := make([]Point, len(values))
		for i := range values {
			points[i] = Point{X: xAt(i, len(values), left, right), Y: mid}
		}
		return points
	}

	points := make([]Point, len(values))
	for i, v := range values {
		frac := (v - lo) / (hi - lo)
		points[i] = Point{
			X: xAt(i, len(values), left, right),
			Y: bottom - frac*(bottom-top),
		}
	}
	return points
}

// Sparkline renders values as an SVG polyline with a baseline guide.
func Sparkline(values []float64, s Surface) string {
	return svg("sparkline", s, SparklinePoints(values, s), "")
}

func xAt(i, n int, left, right float64) float64 {
	if n <= 1 {
		return left
	}
	return left + float64(i)*(right-left)/float64(n-1)
}

// svg wraps a polyline and baseline in an svg element. title is written
// unescaped and must never carry data-derived text.
func svg(class string, s Surface, points []Point, title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg class="%s" xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		class, num(s.Width), num(s.Height), num(s.Width), num(s.Height))
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", title)
	}

	base := s.Height - s.Margin
	fmt.Fprintf(&b, `<line class="baseline" x1="%s" y1="%s" x2="%s" y2="%s" stroke="currentColor" stroke-opacity="0.25"/>`,
		num(s.Margin), num(base), num(s.Width-s.Margin), num(base))

	if len(points) > 0 {
		coords := make([]string, len(points))
		for i, p := range points {
			coords[i] = num(p.X) + "," + num(p.Y)
		}
		fmt.Fprintf(&b, `<polyline fill="none" stroke="currentColor" stroke-width="1.5" points="%s"/>`,
			strings.Join(coords, " "))
	}

	b.WriteString("</svg>")
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
