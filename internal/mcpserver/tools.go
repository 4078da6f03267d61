package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/filter"
	"github.com/tobert/opsview/internal/redact"
	"github.com/tobert/opsview/internal/render"
	"github.com/tobert/opsview/internal/tracefeed"
	"github.com/tobert/opsview/internal/viz"
)

// Tool 1: render_endpoint

type RenderEndpointInput struct {
	URL        string `json:"url" jsonschema:"Monitoring endpoint returning JSON"`
	DetailKind string `json:"detail_kind,omitempty" jsonschema:"Mark rows as opening job or webhook details"`
	IDField    string `json:"id_field,omitempty" jsonschema:"Record key holding the row id when detail_kind is set"`
	Query      string `json:"query,omitempty" jsonschema:"Case-insensitive row filter"`
}

type RenderEndpointOutput struct {
	HTML    string   `json:"html" jsonschema:"Rendered, escaped HTML fragment"`
	Kind    string   `json:"kind" jsonschema:"Classified body shape: record, sequence, scalar or raw"`
	Columns []string `json:"columns,omitempty" jsonschema:"Table columns when a table was rendered"`
	Rows    int      `json:"rows" jsonschema:"Rendered rows (capped at 50)"`
	Visible int      `json:"visible" jsonschema:"Rows matching query"`
	Total   int      `json:"total" jsonschema:"Rows in the source sequence"`
	Error   string   `json:"error,omitempty" jsonschema:"Load failure shown as an inline alert"`
}

func (s *Server) handleRenderEndpoint(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RenderEndpointInput,
) (*mcp.CallToolResult, RenderEndpointOutput, error) {
	if input.URL == "" {
		return nil, RenderEndpointOutput{}, errors.New("url is required")
	}

	res := s.fetcher.Fetch(ctx, input.URL)
	if res.Err != nil {
		msg := fetch.Message(res.Err)
		return &mcp.CallToolResult{}, RenderEndpointOutput{HTML: render.Alert(msg), Error: msg}, nil
	}

	r := render.Render(redact.Deep(res.Value), render.Options{DetailKind: input.DetailKind, IDField: input.IDField})
	out := RenderEndpointOutput{HTML: r.HTML, Kind: res.Value.Kind().String()}

	if r.Table != nil {
		t := filter.Apply(*r.Table, input.Query)
		out.HTML = t.HTML()
		out.Columns = t.Columns
		out.Rows = len(t.Rows)
		out.Visible = t.Visible()
		out.Total = t.Total
	}

	return &mcp.CallToolResult{}, out, nil
}

// Tool 2: redact_payload

type RedactPayloadInput struct {
	Payload string `json:"payload" jsonschema:"Serialized JSON (or raw text) to redact"`
}

type RedactPayloadOutput struct {
	Redacted string `json:"redacted" jsonschema:"Payload with sensitive values replaced by [REDACTED]"`
	Changed  bool   `json:"changed" jsonschema:"Whether anything was masked or reformatted"`
}

func (s *Server) handleRedactPayload(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RedactPayloadInput,
) (*mcp.CallToolResult, RedactPayloadOutput, error) {
	out := redact.DeepString(input.Payload)
	return &mcp.CallToolResult{}, RedactPayloadOutput{Redacted: out, Changed: out != input.Payload}, nil
}

// Tool 3: trace_histogram

type TraceHistogramInput struct {
	URL string `json:"url,omitempty" jsonschema:"Trace endpoint; omit to use the local OTLP feed"`
}

type TraceHistogramOutput struct {
	Events    int              `json:"events" jsonschema:"Events considered"`
	Buckets   []int            `json:"buckets" jsonschema:"32 counts over the last 4 hours, oldest first"`
	Sparkline string           `json:"sparkline" jsonschema:"Block-glyph rendering of buckets"`
	Stages    []viz.StageCount `json:"stages" jsonschema:"Events per stage, busiest first"`
	Summary   string           `json:"summary" jsonschema:"Human-readable summary"`
	SVG       string           `json:"svg" jsonschema:"SVG polyline histogram"`
}

func (s *Server) handleTraceHistogram(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input TraceHistogramInput,
) (*mcp.CallToolResult, TraceHistogramOutput, error) {
	var events []viz.TraceEvent

	switch {
	case input.URL != "":
		res := s.fetcher.Fetch(ctx, input.URL)
		if res.Err != nil {
			return nil, TraceHistogramOutput{}, errors.New(fetch.Message(res.Err))
		}
		decoded, err := tracefeed.Decode(res.Body)
		if err != nil {
			return nil, TraceHistogramOutput{}, fmt.Errorf("failed to decode trace: %w", err)
		}
		events = decoded
	case s.feed != nil:
		events = s.feed.Events()
	default:
		return nil, TraceHistogramOutput{}, errors.New("url is required when no local trace feed is running")
	}

	now := s.now()
	buckets := viz.Bucketize(events, now, viz.DefaultWindow, viz.DefaultBuckets)

	return &mcp.CallToolResult{}, TraceHistogramOutput{
		Events:    len(events),
		Buckets:   buckets,
		Sparkline: viz.TextSparkline(buckets),
		Stages:    viz.StageCounts(events),
		Summary:   viz.TraceSummary(events, now),
		SVG:       viz.TraceHistogram(events, now, viz.DefaultSurface),
	}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "render_endpoint",
		Description: "Fetch a JSON monitoring endpoint and render it exactly as the dashboard would: arrays of records (or {items:[...]}) become an escaped HTML table capped at 50 rows, objects become key/value lists, anything else is shown preformatted. Failures come back as an inline alert with the HTTP status. Optional query hides non-matching rows.",
	}, s.handleRenderEndpoint)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "redact_payload",
		Description: "Mask sensitive values in a payload before showing it. Any key containing secret, token or authorization (case-insensitive) has its whole value replaced with [REDACTED] at every depth; the result is re-indented JSON with key order kept. Non-JSON text gets a key=value / key: value masking pass.",
	}, s.handleRedactPayload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "trace_histogram",
		Description: "Bucket trace events into 32 slots over the last 4 hours (most recent last) and summarize them by stage. Reads {ok, events:[{time,stage,message,source}]} or OTLP/JSON logs from url, or the local OTLP feed when url is omitted.",
	}, s.handleTraceHistogram)
}
