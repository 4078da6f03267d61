// Package control posts JSON commands to control endpoints.
//
// A control endpoint accepts a JSON body, optionally guarded by a bearer
// token, and answers {"data": ...} on success or {"error": {"message": ...}}
// on failure.
package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"github.com/tobert/opsview/internal/display"
)

// ErrUnknownAction is returned for an action with no configured endpoint.
var ErrUnknownAction = errors.New("unknown control action")

const maxResponseBytes = 4 << 20

// Error is a failure reported by a control endpoint.
type Error struct {
	Action  string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 && (e.Status < 200 || e.Status > 299) {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Action, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// Client invokes named control actions.
type Client struct {
	actions map[string]string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the given action → URL map. A non-empty token is
// sent as a bearer Authorization header on every call. base may be nil.
func New(actions map[string]string, token string, base http.RoundTripper) *Client {
	if base == nil {
		base = http.DefaultTransport
	}
	transport := base
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		}
	}

	copied := make(map[string]string, len(actions))
	for k, v := range actions {
		copied[k] = v
	}

	return &Client{
		actions: copied,
		http:    &http.Client{Transport: transport, Timeout: 30 * time.Second},
		logger:  slog.Default().With("component", "control"),
	}
}

// Actions returns the configured action names, sorted.
func (c *Client) Actions() []string {
	names := make([]string, 0, len(c.actions))
	for name := range c.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke posts body as JSON to the action's endpoint and returns the data
// member of a successful response.
func (c *Client) Invoke(ctx context.Context, action string, body any) (display.Value, error) {
	url, ok := c.actions[action]
	if !ok {
		return display.Value{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if body == nil {
		body = map[string]any{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return display.Value{}, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return display.Value{}, fmt.Errorf("failed to build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return display.Value{}, fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return display.Value{}, fmt.Errorf("failed to read %s response: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return display.Value{}, &Error{Action: action, Status: resp.StatusCode, Message: "unexpected response: " + http.StatusText(resp.StatusCode)}
	}

	if env.Error != nil {
		msg := env.Error.Message
		if msg == "" {
			msg = "request failed"
		}
		c.logger.Warn("control action failed", "action", action, "status", resp.StatusCode, "message", msg)
		return display.Value{}, &Error{Action: action, Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return display.Value{}, &Error{Action: action, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	c.logger.Info("control action succeeded", "action", action)

	if len(env.Data) == 0 {
		return display.Scalar(nil), nil
	}
	v, err := display.Decode(env.Data)
	if err != nil {
		return display.Value{}, fmt.Errorf("failed to decode %s data: %w", action, err)
	}
	return v, nil
}
