package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/tobert/opsview/internal/panel"
)

// wsFilter is the client-sent message: a row filter for one panel, or a
// pause toggle.
type wsFilter struct {
	Panel  string `json:"panel"`
	Query  string `json:"query"`
	Paused bool   `json:"paused"`
}

// wsUpdate is the server-sent message carrying re-rendered panels.
type wsUpdate struct {
	Generation uint64    `json:"generation"`
	Panels     []wsPanel `json:"panels"`
}

type wsPanel struct {
	Target    string `json:"target"`
	Title     string `json:"title,omitempty"`
	HTML      string `json:"html"`
	Error     string `json:"error,omitempty"`
	Seq       uint64 `json:"seq"`
	UpdatedAt string `json:"updated_at"`
}

// handleWebSocket upgrades the connection and pushes whole panels whenever
// the board changes, applying this connection's row filters.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // any origin, for local dashboards
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	board := s.ctrl.Board()

	notifyCh, unsubscribe := board.Subscribe()
	defer unsubscribe()

	queries := make(map[string]string)
	paused := false

	filterCh := make(chan wsFilter, 4)
	go func() {
		defer close(filterCh)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var f wsFilter
			if json.Unmarshal(data, &f) == nil {
				select {
				case filterCh <- f:
				default:
				}
			}
		}
	}()

	lastGen := s.sendPanels(ctx, conn, board, queries, "")

	// Keepalive so the client can tell a quiet board from a dead socket
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return

		case f, ok := <-filterCh:
			if !ok {
				return
			}
			paused = f.Paused
			if f.Panel == "" {
				continue
			}
			queries[f.Panel] = f.Query
			if !paused {
				s.sendPanels(ctx, conn, board, queries, f.Panel)
			}

		case <-notifyCh:
			if paused {
				continue
			}
			lastGen = s.sendPanels(ctx, conn, board, queries, "")

		case <-keepalive.C:
			if paused || board.Generation() != lastGen {
				continue
			}
			s.sendPanels(ctx, conn, board, nil, "-")
		}
	}
}

// sendPanels writes one update. only restricts it to a single panel; "-"
// sends an empty keepalive.
func (s *Server) sendPanels(ctx context.Context, conn *websocket.Conn, board *panel.Board, queries map[string]string, only string) uint64 {
	gen := board.Generation()
	update := wsUpdate{Generation: gen, Panels: []wsPanel{}}

	if only != "-" {
		for _, c := range board.Snapshot() {
			if only != "" && c.Target != only {
				continue
			}
			update.Panels = append(update.Panels, wsPanel{
				Target:    c.Target,
				Title:     c.Title,
				HTML:      c.Filtered(queries[c.Target]),
				Error:     c.Error,
				Seq:       c.Seq,
				UpdatedAt: c.At.Format(time.RFC3339),
			})
		}
	}

	data, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("failed to marshal update", "error", err)
		return gen
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		// Connection closed; the main loop will handle cleanup.
		s.logger.Debug("websocket write failed", "error", err)
	}
	return gen
}
