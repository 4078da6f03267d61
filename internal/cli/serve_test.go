package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDashboard(t *testing.T) {
	srv := upstream(t)
	cfg := DefaultConfig()
	cfg.Targets = []TargetConfig{{ID: "jobs", URL: srv.URL + "/jobs"}}
	cfg.Control.Actions = map[string]string{"pause": srv.URL + "/pause"}
	cfg.OTLP.Addr = "127.0.0.1:0"
	require.NoError(t, cfg.Validate())

	d, err := NewDashboard(cfg)
	require.NoError(t, err)
	defer d.Receiver.Stop()

	require.NotNil(t, d.Feed)
	require.NotNil(t, d.Receiver)
	assert.Nil(t, d.File)

	require.NoError(t, d.Controller.LoadAll(context.Background()))

	ui := httptest.NewServer(d.UI.Handler())
	defer ui.Close()

	for _, path := range []string{"/ui/", "/api/panels/jobs", "/api/trace", "/metrics"} {
		resp, err := http.Get(ui.URL + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		if path == "/metrics" {
			assert.Contains(t, string(body), "opsview_fetch_total")
		}
	}
}

func TestNewDashboard_BadShell(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shell = "drawer"
	_, err := NewDashboard(cfg)
	assert.Error(t, err)
}

func TestWatchedConfigPath(t *testing.T) {
	path, err := watchedConfigPath("/etc/opsview.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/opsview.yaml", path)
}
