package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/opsview/internal/fetch"
)

func init() {
	color.NoColor = true
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1}]`))
	})
	mux.HandleFunc("/trace", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"events":[{"time":"2026-10-17T10:00:00Z","stage":"done"}]}`))
	})
	mux.HandleFunc("/depth", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"n":1},{"n":4}]`))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDoctor_AllPass(t *testing.T) {
	srv := upstream(t)
	cfg := &Config{
		Targets: []TargetConfig{
			{ID: "jobs", URL: srv.URL + "/jobs", DetailKind: "job", IDField: "id"},
			{ID: "trace", URL: srv.URL + "/trace", Kind: "trace"},
			{ID: "depth", URL: srv.URL + "/depth", Kind: "series", Field: "n"},
		},
		Detail: DetailConfig{Job: srv.URL + "/jobs/{id}"},
	}

	var out bytes.Buffer
	err := runDoctor(context.Background(), &out, "test-version", cfg, fetch.New())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "opsview doctor vtest-version")
	assert.Contains(t, out.String(), "✓ Panel jobs: sequence")
	assert.Contains(t, out.String(), "✓ Panel trace: 1 trace events")
	assert.Contains(t, out.String(), "✓ All checks passed!")
}

func TestDoctor_Failures(t *testing.T) {
	srv := upstream(t)
	cfg := &Config{
		Targets: []TargetConfig{
			{ID: "down", URL: srv.URL + "/down"},
			{ID: "hooks", URL: srv.URL + "/jobs", DetailKind: "webhook", IDField: "id"},
		},
		Control: ControlConfig{Actions: map[string]string{"pause": srv.URL + "/pause"}},
	}

	var out bytes.Buffer
	err := runDoctor(context.Background(), &out, "v", cfg, fetch.New())

	assert.Error(t, err)
	assert.Contains(t, out.String(), "✗ Panel down: Failed to load: HTTP 503")
	assert.Contains(t, out.String(), "detail.webhook is not set")
	assert.Contains(t, out.String(), "⚠ 1 control actions configured without a token")
	assert.Contains(t, out.String(), "Found 2 issue(s)")
}
