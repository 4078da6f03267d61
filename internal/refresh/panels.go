package refresh

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tobert/opsview/internal/display"
	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/panel"
	"github.com/tobert/opsview/internal/redact"
	"github.com/tobert/opsview/internal/render"
	"github.com/tobert/opsview/internal/safehtml"
	"github.com/tobert/opsview/internal/tracefeed"
	"github.com/tobert/opsview/internal/viz"
)

// Kind selects how a target's body is turned into a panel.
type Kind string

const (
	KindTable  Kind = "table"
	KindTrace  Kind = "trace"
	KindSeries Kind = "series"
)

// Target is one panel's endpoint binding.
type Target struct {
	ID    string
	Title string
	URL   string
	Kind  Kind

	// Table panels: rows open a detail view of DetailKind keyed by IDField.
	DetailKind string
	IDField    string

	// Series panels: record field holding the numeric value.
	Field string
}

// Build renders a fetch result for t.
func Build(t Target, res fetch.Result, now time.Time) panel.Content {
	content := panel.Content{Title: t.Title}

	if res.Err != nil {
		content.Error = fetch.Message(res.Err)
		content.HTML = render.Alert(content.Error)
		return content
	}

	value := redact.Deep(res.Value)

	switch t.Kind {
	case KindTrace:
		events, err := tracefeed.Decode(res.Body)
		switch {
		case errors.Is(err, tracefeed.ErrNotOK):
			content.Error = "Failed to load: " + err.Error()
			content.HTML = render.Alert(content.Error)
		case err != nil:
			content.HTML = render.Pre(redact.DeepString(string(res.Body)))
		default:
			tp := TracePanel(events, now)
			content.HTML, content.Header, content.Table = tp.HTML, tp.Header, tp.Table
		}

	case KindSeries:
		content.HTML = SeriesPanel(SeriesValues(value, t.Field))

	default:
		r := render.Render(value, render.Options{DetailKind: t.DetailKind, IDField: t.IDField})
		content.HTML, content.Table = r.HTML, r.Table
	}

	return content
}

// TracePanel renders the bucketed histogram followed by a table of the most
// recent events in delivered order. The histogram is the content's Header so
// filtering the table keeps it.
func TracePanel(events []viz.TraceEvent, now time.Time) panel.Content {
	header := viz.TraceHistogram(events, now, viz.DefaultSurface)
	if len(events) == 0 {
		return panel.Content{HTML: header + render.NoData(), Header: header}
	}

	recent := events
	if len(recent) > render.MaxRows {
		recent = recent[len(recent)-render.MaxRows:]
	}

	items := make([]display.Value, 0, len(recent))
	for _, ev := range recent {
		rec := display.NewRecord()
		ts := ""
		if !ev.Time.IsZero() {
			ts = ev.Time.Local().Format("2006-01-02 15:04:05")
		}
		rec.Set("time", display.Scalar(ts))
		rec.Set("stage", display.Scalar(ev.Stage))
		rec.Set("message", display.Scalar(ev.Message))
		rec.Set("source", display.Scalar(ev.Source))
		items = append(items, redact.Deep(display.RecordValue(rec)))
	}

	table := render.BuildTable(items, render.Options{})
	table.Total = len(events)

	return panel.Content{HTML: header + table.HTML(), Header: header, Table: &table}
}

// SeriesValues extracts a numeric series. Sequences contribute one value per
// element (a record's field, or the element itself); a record holding an
// items sequence or a sequence under field is unwrapped; raw text is read as
// a comma-separated list. Non-numeric entries count as 0.
func SeriesValues(v display.Value, field string) []float64 {
	switch v.Kind() {
	case display.KindSequence:
		items := v.Items()
		out := make([]float64, 0, len(items))
		for _, item := range items {
			if item.Kind() == display.KindRecord && field != "" {
				f, _ := item.Field(field)
				out = append(out, toFloat(f))
				continue
			}
			out = append(out, toFloat(item))
		}
		return out

	case display.KindRecord:
		if field != "" {
			if f, ok := v.Field(field); ok && f.Kind() == display.KindSequence {
				return SeriesValues(f, "")
			}
		}
		if items, ok := v.Field(render.ItemsField); ok && items.Kind() == display.KindSequence {
			return SeriesValues(items, field)
		}
		return nil

	case display.KindRawText:
		return viz.ParsePoints(v.Raw())

	case display.KindScalar:
		return []float64{toFloat(v)}
	}
	return nil
}

func toFloat(v display.Value) float64 {
	if v.Kind() != display.KindScalar {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(safehtml.Stringify(v.ScalarValue())), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SeriesPanel renders a sparkline with the latest value beside it.
func SeriesPanel(values []float64) string {
	var b strings.Builder
	b.WriteString(`<div class="series-panel">`)
	b.WriteString(viz.Sparkline(values, viz.DefaultSurface))
	if len(values) > 0 {
		fmt.Fprintf(&b, `<span class="series-last">%s</span>`,
			safehtml.Text(strconv.FormatFloat(values[len(values)-1], 'f', -1, 64)))
	}
	b.WriteString(`</div>`)
	return b.String()
}
