package tracefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/opsview/internal/viz"
)

func stages(events []viz.TraceEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Stage
	}
	return out
}

func TestStore_Wraps(t *testing.T) {
	s := NewStore(3)
	for i := 1; i <= 4; i++ {
		s.Add(viz.TraceEvent{Stage: fmt.Sprint(i)})
	}

	assert.Equal(t, []string{"2", "3", "4"}, stages(s.Events()))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, uint64(4), s.Total())
	assert.Equal(t, []string{"3", "4"}, stages(s.Recent(2)))
	assert.Equal(t, []string{"2", "3", "4"}, stages(s.Recent(10)))
}

func TestStore_Empty(t *testing.T) {
	s := NewStore(0)
	assert.Nil(t, s.Events())
	assert.Equal(t, DefaultCapacity, s.Capacity())
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Add(viz.TraceEvent{Stage: "x"})
				_ = s.Events()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
	assert.Equal(t, uint64(500), s.Total())
}

func TestStore_Handler(t *testing.T) {
	s := NewStore(10)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json",
		strings.NewReader(`{"ok":true,"events":[{"time":"2026-10-17T09:00:00Z","stage":"received"},{"stage":"queued"}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, s.Len())

	resp, err = http.Get(srv.URL + "?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		OK     bool             `json:"ok"`
		Events []viz.TraceEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.OK)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "queued", out.Events[0].Stage)

	// the feed decodes as a trace payload
	resp2, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp2.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&raw))
	events, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"received", "queued"}, stages(events))
}

func TestStore_HandlerRejectsBadBody(t *testing.T) {
	s := NewStore(10)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/trace", strings.NewReader("nope")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/trace", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStore_ReceiveLogs(t *testing.T) {
	s := NewStore(10)
	require.NoError(t, s.ReceiveLogs(context.Background(), sampleResourceLogs("api", "hello")))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "api", s.Events()[0].Source)
}
