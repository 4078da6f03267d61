package render

import (
	"fmt"
	"strings"

	"github.com/tobert/opsview/internal/safehtml"
)

// Table is the row model behind a rendered sequence. It is kept alongside the
// markup so the row filter can re-render without refetching.
type Table struct {
	Columns []string
	Rows    []Row
	// Total is the length of the source sequence, which may exceed len(Rows).
	Total      int
	DetailKind string
}

// Row is one rendered table row.
type Row struct {
	// Cells hold escaped, truncated cell text, one per column.
	Cells []string
	// Text is the unescaped displayed cell text concatenated without
	// separators, as the browser reports a row's textContent.
	Text     string
	DetailID string
	Hidden   bool
}

// HTML renders the table and, when rows were capped, the "showing N of M" notice.
func (t Table) HTML() string {
	var b strings.Builder

	b.WriteString(`<table class="table table-sm table-striped"><thead><tr>`)
	for _, col := range t.Columns {
		fmt.Fprintf(&b, "<th>%s</th>", safehtml.Text(col))
	}
	b.WriteString("</tr></thead><tbody>")

	for _, row := range t.Rows {
		b.WriteString("<tr")
		if row.DetailID != "" && t.DetailKind != "" {
			fmt.Fprintf(&b, ` data-detail-kind="%s" data-detail-id="%s"`,
				safehtml.Escape(t.DetailKind), safehtml.Escape(row.DetailID))
		}
		if row.Hidden {
			b.WriteString(` hidden`)
		}
		b.WriteString(">")
		for _, cell := range row.Cells {
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")

	if t.Total > len(t.Rows) {
		b.WriteString(Notice(fmt.Sprintf("showing %d of %d", len(t.Rows), t.Total)))
	}

	return b.String()
}

// Visible returns the number of rows not hidden by a filter.
func (t Table) Visible() int {
	n := 0
	for _, r := range t.Rows {
		if !r.Hidden {
			n++
		}
	}
	return n
}
