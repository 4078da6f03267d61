package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/tracefeed"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Fetcher performs one endpoint fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Options wire the optional collaborators.
type Options struct {
	// Controller exposes configured panels as resources.
	Controller *refresh.Controller
	// Feed is the local trace feed used when trace_histogram gets no url.
	Feed *tracefeed.Store
	// Now overrides the clock for tests.
	Now func() time.Time
}

// Server exposes the rendering, redaction and trace tools over MCP.
type Server struct {
	mcpServer *mcp.Server
	fetcher   Fetcher
	ctrl      *refresh.Controller
	feed      *tracefeed.Store
	now       func() time.Time
}

// NewServer creates an MCP server backed by fetcher.
func NewServer(fetcher Fetcher, opts Options) (*Server, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}

	s := &Server{
		fetcher: fetcher,
		ctrl:    opts.Controller,
		feed:    opts.Feed,
		now:     opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "opsview",
		Title:   "Operational dashboard renderer",
		Version: Version,
	}, &mcp.ServerOptions{
		Instructions: `Renders monitoring endpoints the way the opsview dashboard does.

Tools: render_endpoint (JSON endpoint -> HTML table or key/value panel), redact_payload (mask secrets/tokens/authorization values), trace_histogram (4h event histogram and stage breakdown).
Resources: opsview://panels, opsview://panels/{id}, opsview://trace.`,
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP on stdio until ctx is canceled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for use with other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
