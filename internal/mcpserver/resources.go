package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/opsview/internal/viz"
)

// registerResources registers all MCP resources and resource templates.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "opsview://panels",
		Name:        "panels",
		Description: "Configured panels with their endpoint, kind and last load status.",
		MIMEType:    "text/plain",
	}, s.handlePanelsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "opsview://trace",
		Name:        "trace",
		Description: "Summary of the local OTLP trace feed: 4h activity sparkline and per-stage counts.",
		MIMEType:    "text/plain",
	}, s.handleTraceResource)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "opsview://panels/{id}",
		Name:        "panel-detail",
		Description: "Current rendered HTML of one panel.",
		MIMEType:    "text/html",
	}, s.handlePanelResource)
}

func (s *Server) handlePanelsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var b strings.Builder
	if s.ctrl == nil {
		b.WriteString("Panels (0)\n═══════════\n  (none: not attached to a dashboard)\n")
		return textResult(req.Params.URI, b.String()), nil
	}

	targets := s.ctrl.Targets()
	board := s.ctrl.Board()

	fmt.Fprintf(&b, "Panels (%d)\n", len(targets))
	b.WriteString("═══════════\n")
	if len(targets) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, t := range targets {
		status := "pending"
		if c, ok := board.Get(t.ID); ok {
			status = "ok " + c.At.Format("15:04:05")
			if c.Error != "" {
				status = c.Error
			}
		}
		kind := string(t.Kind)
		if kind == "" {
			kind = "table"
		}
		fmt.Fprintf(&b, "  • %-16s %-7s %s\n      %s\n", t.ID, kind, status, t.URL)
	}

	return textResult(req.Params.URI, b.String()), nil
}

func (s *Server) handleTraceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.feed == nil {
		return textResult(req.Params.URI, "Trace feed not running\n"), nil
	}
	events := s.feed.Events()
	text := viz.TraceSummary(events, s.now())
	if recent := viz.RecentEvents(events, 10); recent != "" {
		text += "\n" + recent
	}
	return textResult(req.Params.URI, text), nil
}

func (s *Server) handlePanelResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, "opsview://panels/")
	if s.ctrl == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	c, ok := s.ctrl.Board().Get(id)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/html",
			Text:     c.HTML,
		}},
	}, nil
}

func textResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:  uri,
			Text: text,
		}},
	}
}
