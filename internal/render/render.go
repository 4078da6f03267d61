// Package render turns classified display values into HTML fragments.
//
// Every data-derived string goes through safehtml before it reaches markup,
// and Render never panics: a shape it cannot handle degrades to escaped
// preformatted text.
package render

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tobert/opsview/internal/display"
	"github.com/tobert/opsview/internal/safehtml"
)

// MaxRows caps the number of rendered table rows.
const MaxRows = 50

// ItemsField is the wrapper convention: an object whose items field is a
// sequence of records renders as that sequence.
const ItemsField = "items"

// Options tune table rendering for panels whose rows open a detail view.
type Options struct {
	DetailKind string // "job" or "webhook"; empty disables row activation
	IDField    string // record key holding the row identifier
}

// Result is a rendered fragment plus its table model when one was built.
type Result struct {
	HTML  string
	Table *Table
}

// Render converts v into a fragment.
func Render(v display.Value, opts Options) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("render fell back to raw text", "kind", v.Kind().String(), "panic", r)
			res = Result{HTML: Pre(v.String())}
		}
	}()

	switch v.Kind() {
	case display.KindSequence:
		return sequence(v.Items(), opts)

	case display.KindRecord:
		if items, ok := v.Field(ItemsField); ok && isRecordSequence(items) {
			return sequence(items.Items(), opts)
		}
		return Result{HTML: KeyValue(v.Record())}

	case display.KindScalar:
		return Result{HTML: Pre(v.String())}

	case display.KindRawText:
		return Result{HTML: Pre(v.Raw())}
	}

	return Result{HTML: Pre(v.String())}
}

// HTML is Render without options, returning only the markup.
func HTML(v display.Value) string {
	return Render(v, Options{}).HTML
}

func isRecordSequence(v display.Value) bool {
	return v.Kind() == display.KindSequence && (len(v.Items()) == 0 || v.HasRecords())
}

func sequence(items []display.Value, opts Options) Result {
	if len(items) == 0 {
		return Result{HTML: NoData()}
	}
	if !display.Sequence(items).HasRecords() {
		return Result{HTML: Pre(display.Sequence(items).Indent("  "))}
	}

	t := BuildTable(items, opts)
	return Result{HTML: t.HTML(), Table: &t}
}

// BuildTable builds the bounded table model for a sequence of records.
// Elements that are not records render as rows of empty cells.
func BuildTable(items []display.Value, opts Options) Table {
	cols := display.Columns(items, display.ColumnSample, display.MaxColumns)

	n := len(items)
	if n > MaxRows {
		n = MaxRows
	}

	t := Table{
		Columns:    cols,
		Rows:       make([]Row, 0, n),
		Total:      len(items),
		DetailKind: opts.DetailKind,
	}

	for _, item := range items[:n] {
		row := Row{Cells: make([]string, len(cols))}
		texts := make([]string, 0, len(cols))

		rec := item.Record()
		for i, col := range cols {
			field, ok := rec.Get(col)
			if !ok {
				continue
			}
			text := safehtml.Truncate(field.String(), safehtml.DefaultMax)
			row.Cells[i] = safehtml.Escape(text)
			texts = append(texts, text)
		}
		row.Text = strings.Join(texts, "")

		if opts.DetailKind != "" && opts.IDField != "" {
			if id, ok := rec.Get(opts.IDField); ok && !id.IsNested() {
				row.DetailID = id.String()
			}
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}

// KeyValue renders a record as a definition list. Nested values are
// stringified as compact JSON before truncation.
func KeyValue(rec *display.Record) string {
	if rec.Len() == 0 {
		return NoData()
	}

	var b strings.Builder
	b.WriteString(`<dl class="kv">`)
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>", safehtml.Text(k), safehtml.Text(v.String()))
	}
	b.WriteString("</dl>")
	return b.String()
}

// Pre renders text as escaped preformatted content.
func Pre(text string) string {
	return `<pre class="raw">` + safehtml.Escape(text) + "</pre>"
}

// Alert renders a visible inline failure.
func Alert(msg string) string {
	return `<div class="alert alert-danger" role="alert">` + safehtml.Escape(msg) + "</div>"
}

// NoData renders the neutral empty placeholder.
func NoData() string {
	return `<div class="no-data text-muted">No data</div>`
}

// Notice renders a small informational line.
func Notice(msg string) string {
	return `<div class="notice text-muted small">` + safehtml.Escape(msg) + "</div>"
}
