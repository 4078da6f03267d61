package tracefeed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
)

func logsLine(t *testing.T, service, body string) []byte {
	t.Helper()
	line, err := protojson.Marshal(&logspb.LogsData{ResourceLogs: sampleResourceLogs(service, body)})
	require.NoError(t, err)
	return append(line, '\n')
}

func TestNewFileSource_Validation(t *testing.T) {
	_, err := NewFileSource("", NewStore(1))
	assert.Error(t, err)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "logs.jsonl"), nil)
	assert.Error(t, err)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing", "logs.jsonl"), NewStore(1))
	assert.Error(t, err)
}

func TestFileSource_ReadNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	data := append(logsLine(t, "api", "first"), []byte("not json\n\n")...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store := NewStore(10)
	fs, err := NewFileSource(path, store)
	require.NoError(t, err)
	defer fs.Stop()

	n, err := fs.ReadNew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())

	// nothing new
	n, err = fs.ReadNew(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write(logsLine(t, "worker", "second"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	n, err = fs.ReadNew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[1].Message)
	assert.Equal(t, "worker", events[1].Source)
}

func TestFileSource_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	require.NoError(t, os.WriteFile(path, append(logsLine(t, "a", "one"), logsLine(t, "a", "two")...), 0o644))

	store := NewStore(10)
	fs, err := NewFileSource(path, store)
	require.NoError(t, err)
	defer fs.Stop()

	_, err = fs.ReadNew(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, logsLine(t, "a", "3"), 0o644))
	n, err := fs.ReadNew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, store.Len())
}

func TestFileSource_FollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")

	store := NewStore(10)
	fs, err := NewFileSource(path, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fs.Start(ctx))
	defer fs.Stop()

	require.NoError(t, os.WriteFile(path, logsLine(t, "api", "late"), 0o644))

	assert.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 20*time.Millisecond)
}
