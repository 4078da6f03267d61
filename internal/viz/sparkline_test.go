package viz

import (
	"reflect"
	"strings"
	"testing"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		attr string
		want []float64
	}{
		{"", nil},
		{"1,2,3", []float64{1, 2, 3}},
		{" 1.5 , -2 ,3e2", []float64{1.5, -2, 300}},
		{"4,abc,,NaN,Inf,5", []float64{4, 0, 0, 0, 0, 5}},
	}

	for _, tt := range tests {
		got := ParsePoints(tt.attr)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePoints(%q) = %v, want %v", tt.attr, got, tt.want)
		}
	}
}

func TestSparklinePoints_FlatSeries(t *testing.T) {
	s := Surface{Width: 100, Height: 20, Margin: 2}

	for _, values := range [][]float64{{5, 5, 5}, {7}, {0, 0}} {
		points := SparklinePoints(values, s)
		if len(points) < 2 {
			t.Fatalf("expected a drawable line for %v, got %d points", values, len(points))
		}
		for _, p := range points {
			if p.Y != 10 {
				t.Errorf("flat series %v: expected constant y=10, got %v", values, p.Y)
			}
		}
		if points[0].X != 2 || points[len(points)-1].X != 98 {
			t.Errorf("flat series %v should span the margins, got %v..%v", values, points[0].X, points[len(points)-1].X)
		}
	}
}

func TestSparklinePoints_Mapping(t *testing.T) {
	s := Surface{Width: 104, Height: 24, Margin: 2}
	points := SparklinePoints([]float64{0, 10, 5}, s)

	want := []Point{{X: 2, Y: 22}, {X: 52, Y: 2}, {X: 102, Y: 12}}
	if !reflect.DeepEqual(points, want) {
		t.Errorf("got %v, want %v", points, want)
	}
}

func TestSparklinePoints_LargerValueIsHigher(t *testing.T) {
	points := SparklinePoints([]float64{1, 3, 2, 9}, DefaultSurface)
	for i := range points {
		for j := range points {
			if i == j {
				continue
			}
			vi, vj := []float64{1, 3, 2, 9}[i], []float64{1, 3, 2, 9}[j]
			if vi > vj && points[i].Y >= points[j].Y {
				t.Errorf("value %v should be drawn above %v", vi, vj)
			}
		}
	}
}

func TestSparkline_SVG(t *testing.T) {
	out := Sparkline([]float64{5, 5, 5}, Surface{Width: 60, Height: 20, Margin: 2})

	if !strings.HasPrefix(out, `<svg class="sparkline"`) {
		t.Errorf("expected svg root, got %s", out)
	}
	if strings.Count(out, "<polyline") != 1 {
		t.Errorf("expected exactly one polyline, got:\n%s", out)
	}
	if !strings.Contains(out, `class="baseline"`) {
		t.Errorf("expected baseline guide, got:\n%s", out)
	}
	if !strings.Contains(out, `points="2,10 30,10 58,10"`) {
		t.Errorf("expected flat mid-line, got:\n%s", out)
	}
}

func TestSparkline_Empty(t *testing.T) {
	out := Sparkline(nil, DefaultSurface)
	if strings.Contains(out, "<polyline") {
		t.Errorf("empty series should only draw the baseline, got:\n%s", out)
	}
}
