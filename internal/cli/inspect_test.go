package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runWith runs one of the inspect commands with the given stdin.
func runWith(t *testing.T, base *cli.Command, run func(context.Context, *cli.Command, *bytes.Buffer) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cli.Command{
		Name:  base.Name,
		Flags: base.Flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, c, &out)
		},
	}
	err := cmd.Run(context.Background(), append([]string{base.Name}, args...))
	return out.String(), err
}

func TestRender_Stdin(t *testing.T) {
	in := `{"items":[{"id":"a","name":"<b>"},{"id":"b","name":"keep"}]}`
	out, err := runWith(t, RenderCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runRender(ctx, c, strings.NewReader(in), w)
	}, "--query", "keep", "-")

	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;")
	assert.Contains(t, out, "keep")
	assert.Contains(t, out, "hidden")
}

func TestRender_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	writeFile(t, path, `{"depth":3}`)

	out, err := runWith(t, RenderCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runRender(ctx, c, strings.NewReader(""), w)
	}, path)

	require.NoError(t, err)
	assert.Contains(t, out, "depth")
}

func TestRedact_Stdin(t *testing.T) {
	in := `{"name":"x","client_secret":"s3cr3t"}`
	out, err := runWith(t, RedactCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runRedact(ctx, c, strings.NewReader(in), w)
	})

	require.NoError(t, err)
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, `"client_secret": "[REDACTED]"`)
}

func TestTrace_Stdin(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	in := `{"ok":true,"events":[
		{"time":"2026-10-17T11:59:00Z","stage":"job.failed","message":"boom","source":"w1"},
		{"time":"2026-10-17T11:58:00Z","stage":"job.done","message":"ok","source":"w2"}]}`

	out, err := runWith(t, TraceCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runTrace(ctx, c, strings.NewReader(in), w, now)
	}, "--no-color")

	require.NoError(t, err)
	assert.Contains(t, out, "Activity")
	assert.Contains(t, out, "Trace Activity (2 events")
	assert.Contains(t, out, "Recent Events (2)")
	assert.Contains(t, out, "✗")
}

func TestTrace_NotOK(t *testing.T) {
	_, err := runWith(t, TraceCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runTrace(ctx, c, strings.NewReader(`{"ok":false,"error":"db down"}`), w, time.Now())
	})
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("http://x"))
	assert.True(t, isURL("https://x"))
	assert.False(t, isURL("./http.json"))
	assert.False(t, isURL("-"))
}

func TestRender_RedactsSecrets(t *testing.T) {
	in := `[{"id":1,"access_token":"SUPERSECRET1","headers":{"Authorization":"Bearer SUPERSECRET2"}}]`
	out, err := runWith(t, RenderCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runRender(ctx, c, strings.NewReader(in), w)
	})

	require.NoError(t, err)
	assert.NotContains(t, out, "SUPERSECRET")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRedact_EmbeddedDocument(t *testing.T) {
	in := `{"body":"{\"token\":\"LEAKME\"}"}`
	out, err := runWith(t, RedactCommand(), func(ctx context.Context, c *cli.Command, w *bytes.Buffer) error {
		return runRedact(ctx, c, strings.NewReader(in), w)
	})

	require.NoError(t, err)
	assert.NotContains(t, out, "LEAKME")
}
