// Package fetch retrieves monitoring endpoints and classifies their bodies.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tobert/opsview/internal/display"
)

// MaxBodyBytes bounds how much of a response body is read.
const MaxBodyBytes = 16 << 20

// StatusError is returned for a completed response outside 2xx.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, e.Status)
}

// Result is the outcome of one fetch. Err is set for transport failures and
// non-2xx responses; a successful body that is not JSON is RawText, not an error.
type Result struct {
	ID       string
	URL      string
	Status   int
	Body     []byte
	Value    display.Value
	Err      error
	Duration time.Duration
}

// Client issues uncached GET requests for JSON endpoints.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-fetch records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client with a 30 second timeout unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "fetch")
	return c
}

// Fetch performs one GET against url. It always returns a Result; callers
// inspect Result.Err.
func (c *Client) Fetch(ctx context.Context, url string) Result {
	res := Result{ID: uuid.NewString(), URL: url}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		attrs := []any{"fetch_id", res.ID, "url", url, "status", res.Status, "duration", res.Duration}
		if res.Err != nil {
			c.logger.Warn("fetch failed", append(attrs, "error", res.Err)...)
		} else {
			c.logger.Debug("fetch complete", append(attrs, "bytes", len(res.Body))...)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = fmt.Errorf("failed to build request: %w", err)
		return res
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		res.Err = &StatusError{Code: resp.StatusCode, Status: statusText(resp)}
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		res.Err = fmt.Errorf("failed to read body: %w", err)
		return res
	}
	res.Body = body
	res.Value = display.Classify(body)
	return res
}

// statusText returns the reason phrase, falling back to the standard one.
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// Message formats err for an inline alert.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return "Failed to load: " + se.Error()
	}
	return "Failed to load: " + err.Error()
}
