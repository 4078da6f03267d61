package viz

import "time"

// TraceEvent is one entry from a trace endpoint. Sequences are kept in the
// order the server delivered them.
type TraceEvent struct {
	Time    time.Time `json:"time"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Source  string    `json:"source"`
}

// Surface is the drawing area a chart is laid out on.
type Surface struct {
	Width  float64
	Height float64
	Margin float64 // kept clear on every side
}

// DefaultSurface matches the inline sparkline size used by the panels.
var DefaultSurface = Surface{Width: 160, Height: 32, Margin: 2}

// Point is a vertex of a polyline in surface coordinates (y grows downward).
type Point struct {
	X float64
	Y float64
}

// StageCount is one row of the per-stage breakdown.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}
