// Package detail loads single job and webhook records for the detail modal.
//
// A detail body is never empty: every failure (transport, HTTP status, a
// false success flag, a malformed envelope) renders as an inline alert.
// Payload and header blobs are redacted before they reach markup.
package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tobert/opsview/internal/display"
	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/redact"
	"github.com/tobert/opsview/internal/render"
	"github.com/tobert/opsview/internal/safehtml"
)

// ErrUnknownKind is returned for a detail kind other than job or webhook.
var ErrUnknownKind = errors.New("unknown detail kind")

const (
	KindJob     = "job"
	KindWebhook = "webhook"

	// IDPlaceholder is replaced by the query-escaped record id in URL templates.
	IDPlaceholder = "{id}"

	// MaxEntries bounds the log/event sub-list; the most recent are kept.
	MaxEntries = 50
	// MaxMessage bounds each log/event message.
	MaxMessage = 300
)

// WebhookFields is the allow-list of webhook keys shown in the summary.
var WebhookFields = []string{
	"id", "source", "event", "status", "attempts",
	"signature_valid", "received_at", "processed_at", "last_error",
}

// Panel is a rendered detail view.
type Panel struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Fetcher performs one endpoint fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// URLs are the detail endpoint templates.
type URLs struct {
	Job     string
	Webhook string
}

// Loader fetches and renders detail panels.
type Loader struct {
	fetcher Fetcher
	urls    URLs
	logger  *slog.Logger
}

// NewLoader creates a loader for the given endpoint templates.
func NewLoader(f Fetcher, urls URLs) *Loader {
	return &Loader{
		fetcher: f,
		urls:    urls,
		logger:  slog.Default().With("component", "detail"),
	}
}

// Load dispatches on kind.
func (l *Loader) Load(ctx context.Context, kind, id string) (Panel, error) {
	switch kind {
	case KindJob:
		return l.Job(ctx, id), nil
	case KindWebhook:
		return l.Webhook(ctx, id), nil
	}
	return Panel{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Job renders every key of the job record after redacting it.
func (l *Loader) Job(ctx context.Context, id string) Panel {
	p := Panel{Title: "Job " + id}

	rec, data, msg := l.load(ctx, l.urls.Job, id, KindJob)
	if msg != "" {
		p.Body = render.Alert(msg)
		return p
	}

	var b strings.Builder
	b.WriteString(render.KeyValue(redact.Deep(rec).Record()))
	writeEntries(&b, data)
	p.Body = b.String()
	return p
}

// Webhook renders the allow-listed fields plus redacted payload and headers.
func (l *Loader) Webhook(ctx context.Context, id string) Panel {
	p := Panel{Title: "Webhook " + id}

	rec, data, msg := l.load(ctx, l.urls.Webhook, id, KindWebhook)
	if msg != "" {
		p.Body = render.Alert(msg)
		return p
	}
	redacted := redact.Deep(rec)

	summary := display.NewRecord()
	for _, key := range WebhookFields {
		if v, ok := redacted.Field(key); ok {
			summary.Set(key, v)
		}
	}

	var b strings.Builder
	b.WriteString(render.KeyValue(summary))
	for _, blob := range []struct{ key, label string }{
		{"payload", "Payload"},
		{"headers", "Headers"},
	} {
		if v, ok := rec.Field(blob.key); ok {
			fmt.Fprintf(&b, `<h6 class="detail-section">%s</h6>`, blob.label)
			b.WriteString(render.Pre(redactBlob(v)))
		}
	}
	writeEntries(&b, data)
	p.Body = b.String()
	return p
}

// redactBlob redacts a payload that may arrive serialized or already decoded,
// including documents serialized into its string fields.
func redactBlob(v display.Value) string {
	if v.Kind() == display.KindScalar {
		if s, ok := v.ScalarValue().(string); ok {
			return redact.DeepString(s)
		}
	}
	return redact.Deep(v).Indent("  ")
}

// load fetches the envelope for id and returns the record under key along
// with the envelope's data member. A non-empty message means failure.
func (l *Loader) load(ctx context.Context, tmpl, id, key string) (display.Value, display.Value, string) {
	if tmpl == "" {
		return display.Value{}, display.Value{}, fmt.Sprintf("No %s detail endpoint configured", key)
	}

	res := l.fetcher.Fetch(ctx, Expand(tmpl, id))
	if res.Err != nil {
		return display.Value{}, display.Value{}, fetch.Message(res.Err)
	}

	rec, data, err := unwrap(res.Value, key)
	if err != nil {
		l.logger.Warn("detail load failed", "kind", key, "id", id, "error", err)
		return display.Value{}, display.Value{}, "Failed to load: " + err.Error()
	}
	return rec, data, ""
}

// unwrap validates {success, data:{<key>:{...}}}.
func unwrap(env display.Value, key string) (display.Value, display.Value, error) {
	if env.Kind() != display.KindRecord {
		return display.Value{}, display.Value{}, errors.New("malformed response")
	}

	success, _ := env.Field("success")
	if ok, _ := success.ScalarValue().(bool); !ok || success.Kind() != display.KindScalar {
		if msg := envelopeMessage(env); msg != "" {
			return display.Value{}, display.Value{}, errors.New(msg)
		}
		return display.Value{}, display.Value{}, errors.New("request was not successful")
	}

	data, ok := env.Field("data")
	if !ok || data.Kind() != display.KindRecord {
		return display.Value{}, display.Value{}, errors.New("malformed response: missing data")
	}
	rec, ok := data.Field(key)
	if !ok || rec.Kind() != display.KindRecord {
		return display.Value{}, display.Value{}, fmt.Errorf("malformed response: missing %s", key)
	}
	return rec, data, nil
}

// envelopeMessage extracts an error or message member, if any.
func envelopeMessage(env display.Value) string {
	for _, key := range []string{"error", "message"} {
		v, ok := env.Field(key)
		if !ok {
			continue
		}
		if v.Kind() == display.KindRecord {
			if m, ok := v.Field("message"); ok {
				return m.String()
			}
			continue
		}
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

// Expand substitutes the query-escaped id into tmpl.
func Expand(tmpl, id string) string {
	return strings.ReplaceAll(tmpl, IDPlaceholder, url.QueryEscape(id))
}

// writeEntries renders the logs or events sub-list of data, if present.
func writeEntries(b *strings.Builder, data display.Value) {
	for _, key := range []string{"logs", "events"} {
		v, ok := data.Field(key)
		if !ok {
			continue
		}
		fmt.Fprintf(b, `<h6 class="detail-section">%s</h6>`, strings.ToUpper(key[:1])+key[1:])

		items := v.Items()
		if v.Kind() != display.KindSequence || len(items) == 0 {
			b.WriteString(render.NoData())
			continue
		}
		if len(items) > MaxEntries {
			items = items[len(items)-MaxEntries:]
		}

		b.WriteString(`<ul class="detail-entries list-unstyled">`)
		for _, item := range items {
			writeEntry(b, redact.Deep(item))
		}
		b.WriteString(`</ul>`)
		if n := len(v.Items()); n > MaxEntries {
			b.WriteString(render.Notice(fmt.Sprintf("showing last %d of %d", MaxEntries, n)))
		}
	}
}

func writeEntry(b *strings.Builder, item display.Value) {
	b.WriteString("<li>")
	if item.Kind() != display.KindRecord {
		b.WriteString(safehtml.Escape(safehtml.Truncate(item.String(), MaxMessage)))
		b.WriteString("</li>")
		return
	}

	if ts := firstField(item, "created_at", "time", "timestamp"); ts != "" {
		fmt.Fprintf(b, `<span class="entry-time">%s</span> `, safehtml.Text(ts))
	}
	if lvl := firstField(item, "level", "stage", "status"); lvl != "" {
		fmt.Fprintf(b, `<span class="entry-level">%s</span> `, safehtml.Text(lvl))
	}
	msg := firstField(item, "message", "msg", "text")
	if msg == "" {
		msg = item.Compact()
	}
	b.WriteString(safehtml.Escape(safehtml.Truncate(msg, MaxMessage)))
	b.WriteString("</li>")
}

func firstField(rec display.Value, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec.Field(k); ok {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}
