// Package filter hides table rows whose text does not contain a query.
package filter

import (
	"strings"

	"github.com/tobert/opsview/internal/render"
)

// Match reports whether text contains query, ignoring case. A query that is
// empty after trimming matches everything.
func Match(text, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(q))
}

// Apply returns a copy of t with Hidden set on every row that does not match.
// The input table is left untouched.
func Apply(t render.Table, query string) render.Table {
	out := t
	out.Rows = make([]render.Row, len(t.Rows))
	for i, row := range t.Rows {
		row.Hidden = !Match(row.Text, query)
		out.Rows[i] = row
	}
	return out
}
