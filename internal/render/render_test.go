package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/opsview/internal/display"
)

func mustDecode(t *testing.T, body string) display.Value {
	t.Helper()
	v, err := display.Decode([]byte(body))
	require.NoError(t, err)
	return v
}

func records(n int) string {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":%d,"name":"job-%d"}`, i, i)
	}
	b.WriteString("]")
	return b.String()
}

func TestRender_ItemsWrapper(t *testing.T) {
	v := mustDecode(t, `{"items":[{"id":1,"name":"a"},{"id":2,"name":"b"}]}`)
	res := Render(v, Options{})

	require.NotNil(t, res.Table)
	assert.Equal(t, []string{"id", "name"}, res.Table.Columns)
	assert.Len(t, res.Table.Rows, 2)
	assert.Equal(t, 2, strings.Count(res.HTML, "<tr>")-1, "one header row plus two body rows")
	assert.Contains(t, res.HTML, "<th>id</th><th>name</th>")
	assert.Contains(t, res.HTML, "<td>1</td><td>a</td>")
}

func TestRender_RowCap(t *testing.T) {
	for _, n := range []int{51, 120, 1000} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			res := Render(mustDecode(t, records(n)), Options{})
			require.NotNil(t, res.Table)
			assert.Len(t, res.Table.Rows, MaxRows)
			assert.Equal(t, n, res.Table.Total)
			assert.Contains(t, res.HTML, fmt.Sprintf("showing 50 of %d", n))
		})
	}
}

func TestRender_NoNoticeUnderCap(t *testing.T) {
	res := Render(mustDecode(t, records(50)), Options{})
	assert.NotContains(t, res.HTML, "showing")
}

func TestRender_EmptySequence(t *testing.T) {
	assert.Equal(t, NoData(), HTML(mustDecode(t, `[]`)))
	assert.Equal(t, NoData(), HTML(mustDecode(t, `{"items":[]}`)))
	assert.NotContains(t, HTML(mustDecode(t, `[]`)), "<table")
}

func TestRender_MissingKeysAreEmptyCells(t *testing.T) {
	res := Render(mustDecode(t, `[{"a":1},{"b":2},"stray"]`), Options{})
	require.NotNil(t, res.Table)
	assert.Equal(t, []string{"a", "b"}, res.Table.Columns)
	assert.Equal(t, []string{"1", ""}, res.Table.Rows[0].Cells)
	assert.Equal(t, []string{"", "2"}, res.Table.Rows[1].Cells)
	assert.Equal(t, []string{"", ""}, res.Table.Rows[2].Cells)
}

func TestRender_ScalarSequenceIsPreformatted(t *testing.T) {
	got := HTML(mustDecode(t, `[1,2,3]`))
	assert.True(t, strings.HasPrefix(got, `<pre class="raw">`))
	assert.Contains(t, got, "1,\n  2")
}

func TestRender_Record(t *testing.T) {
	got := HTML(mustDecode(t, `{"queue":"default","depth":3,"workers":{"busy":1},"tags":["x"],"paused":null}`))
	assert.Contains(t, got, "<dt>queue</dt><dd>default</dd>")
	assert.Contains(t, got, "<dt>depth</dt><dd>3</dd>")
	assert.Contains(t, got, `<dt>workers</dt><dd>{&#34;busy&#34;:1}</dd>`)
	assert.Contains(t, got, `<dt>tags</dt><dd>[&#34;x&#34;]</dd>`)
	assert.Contains(t, got, "<dt>paused</dt><dd></dd>")
}

func TestRender_ItemsNotRecordsFallsBackToKeyValue(t *testing.T) {
	got := HTML(mustDecode(t, `{"items":[1,2],"count":2}`))
	assert.Contains(t, got, `<dl class="kv">`)
	assert.Contains(t, got, "<dt>count</dt>")
}

func TestRender_RawAndScalar(t *testing.T) {
	assert.Equal(t, `<pre class="raw">down for &lt;maintenance&gt;</pre>`, HTML(display.Classify([]byte("down for <maintenance>"))))
	assert.Equal(t, `<pre class="raw">ok</pre>`, HTML(mustDecode(t, `"ok"`)))
}

func TestRender_NeverEmitsDataMarkup(t *testing.T) {
	payloads := []string{
		`[{"<script>alert(1)</script>":"<img src=x onerror=alert(1)>"}]`,
		`{"name":"<script>alert(1)</script>","nested":{"x":"</pre><script>"}}`,
		`{"items":[{"msg":"<b>bold</b>"}]}`,
		`"<iframe>"`,
		`<svg onload=alert(1)>`,
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			res := Render(display.Classify([]byte(p)), Options{})
			stripped := stripTags(res.HTML)
			assert.NotContains(t, stripped, "<")
			assert.NotContains(t, stripped, ">")
		})
	}
}

func TestRender_DetailAttributes(t *testing.T) {
	res := Render(mustDecode(t, `[{"id":"j-1\"x","state":"done"}]`), Options{DetailKind: "job", IDField: "id"})
	require.NotNil(t, res.Table)
	assert.Equal(t, `j-1"x`, res.Table.Rows[0].DetailID)
	assert.Contains(t, res.HTML, `data-detail-kind="job" data-detail-id="j-1&#34;x"`)
}

func TestRender_RowText(t *testing.T) {
	res := Render(mustDecode(t, `[{"id":7,"state":"Failed"}]`), Options{})
	require.NotNil(t, res.Table)
	assert.Equal(t, "7Failed", res.Table.Rows[0].Text)
}

func TestRender_RowTextSpansCells(t *testing.T) {
	res := Render(mustDecode(t, `[{"a":"ab","b":"cd","c":"ef"}]`), Options{})
	require.NotNil(t, res.Table)
	assert.Equal(t, "abcdef", res.Table.Rows[0].Text)
	assert.NotContains(t, res.Table.Rows[0].Text, "b c")
}

func TestAlert(t *testing.T) {
	got := Alert("Failed to load: <500>")
	assert.Contains(t, got, `role="alert"`)
	assert.Contains(t, got, "Failed to load: &lt;500&gt;")
}

// stripTags removes the renderer's own known tags so only data-derived text
// remains.
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
