package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/opsview/internal/refresh"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const sampleYAML = `
title: Queue ops
listen: 127.0.0.1:9000
auto_refresh: 15
shell: bootstrap
targets:
  - id: jobs
    url: http://queue.local/api/jobs
    detail_kind: job
    id_field: id
  - id: trace
    title: Trace
    url: http://queue.local/api/trace
    kind: trace
detail:
  job: http://queue.local/api/jobs/{id}
control:
  actions:
    pause: http://queue.local/api/pause
`

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsview.yaml")
	writeFile(t, path, sampleYAML)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Queue ops", cfg.Title)
	assert.Equal(t, 15, cfg.AutoRefresh)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "trace", cfg.Targets[1].Kind)
	assert.Equal(t, "http://queue.local/api/pause", cfg.Control.Actions["pause"])
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "targets: [unclosed")
	_, err = LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad shell", func(c *Config) { c.Shell = "drawer" }, "Shell"},
		{"missing url", func(c *Config) { c.Targets = []TargetConfig{{ID: "a"}} }, "Targets[0].URL"},
		{"bad kind", func(c *Config) {
			c.Targets = []TargetConfig{{ID: "a", URL: "http://x/a", Kind: "pie"}}
		}, "Kind"},
		{"duplicate ids", func(c *Config) {
			c.Targets = []TargetConfig{{ID: "a", URL: "http://x/a"}, {ID: "a", URL: "http://x/b"}}
		}, "unique"},
		{"detail without id field", func(c *Config) {
			c.Targets = []TargetConfig{{ID: "a", URL: "http://x/a", DetailKind: "job"}}
		}, "IDField"},
		{"template without placeholder", func(c *Config) { c.Detail.Job = "http://x/jobs" }, "Detail.Job"},
		{"bad action url", func(c *Config) { c.Control.Actions = map[string]string{"pause": "nope"} }, "Actions"},
		{"negative refresh", func(c *Config) { c.AutoRefresh = -1 }, "AutoRefresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeConfigs(t *testing.T) {
	base := DefaultConfig()
	base.Control.Actions = map[string]string{"pause": "http://a/pause"}
	base.Targets = []TargetConfig{{ID: "old", URL: "http://a/old"}}

	overlay := &Config{
		Title:   "Override",
		Control: ControlConfig{Actions: map[string]string{"resume": "http://a/resume"}},
		OTLP:    OTLPConfig{Addr: "127.0.0.1:4317"},
	}

	merged := MergeConfigs(base, overlay)

	assert.Equal(t, "Override", merged.Title)
	assert.Equal(t, base.Listen, merged.Listen)
	assert.Len(t, merged.Control.Actions, 2)
	assert.Len(t, base.Control.Actions, 1, "base must not be mutated")
	assert.Equal(t, "old", merged.Targets[0].ID)
	assert.Equal(t, "127.0.0.1:4317", merged.OTLP.Addr)

	merged = MergeConfigs(merged, &Config{Targets: []TargetConfig{{ID: "new", URL: "http://a/new"}}})
	require.Len(t, merged.Targets, 1)
	assert.Equal(t, "new", merged.Targets[0].ID)

	assert.Same(t, base, MergeConfigs(base, nil))
}

func TestFindProjectConfigFrom(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, err := findProjectConfigFrom(nested)
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, filepath.Join(root, ProjectConfigName), "title: x\n")
	found, err := findProjectConfigFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ProjectConfigName), found)
}

func TestLoadEffectiveConfig_TokenEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(TokenEnv, "from-env")

	path := filepath.Join(t.TempDir(), "opsview.yaml")
	writeFile(t, path, sampleYAML+"  token: from-file\n")

	cfg, err := LoadEffectiveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Control.Token)
	assert.Equal(t, "bootstrap", cfg.Shell)
}

func TestLoadEffectiveConfig_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "opsview.yaml")
	writeFile(t, path, "shell: drawer\n")

	_, err := LoadEffectiveConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRefreshTargets(t *testing.T) {
	cfg := &Config{Targets: []TargetConfig{
		{ID: "jobs", URL: "http://a/jobs"},
		{ID: "depth", Title: "Depth", URL: "http://a/depth", Kind: "series", Field: "n"},
	}}

	targets := cfg.RefreshTargets()
	require.Len(t, targets, 2)
	assert.Equal(t, refresh.KindTable, targets[0].Kind)
	assert.Equal(t, "jobs", targets[0].Title)
	assert.Equal(t, refresh.KindSeries, targets[1].Kind)
	assert.Equal(t, "n", targets[1].Field)
}
