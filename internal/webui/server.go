// Package webui serves the dashboard page, its HTML fragments and a
// WebSocket that pushes re-rendered panels as the refresh controller
// applies them.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tobert/opsview/internal/control"
	"github.com/tobert/opsview/internal/detail"
	"github.com/tobert/opsview/internal/redact"
	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/render"
	"github.com/tobert/opsview/internal/tracefeed"
	"github.com/tobert/opsview/internal/viz"
)

// Options wire the optional collaborators. Nil members disable their routes.
type Options struct {
	Title       string
	AutoRefresh time.Duration
	Shell       detail.ModalShell
	Details     *detail.Loader
	Control     *control.Client
	Feed        *tracefeed.Store
	Gatherer    prometheus.Gatherer
}

// Server serves the web UI for one refresh controller.
type Server struct {
	ctrl   *refresh.Controller
	opts   Options
	logger *slog.Logger
}

// New creates a web UI server.
func New(ctrl *refresh.Controller, opts Options) *Server {
	if opts.Title == "" {
		opts.Title = "opsview"
	}
	if opts.Shell == nil {
		opts.Shell = detail.InlineShell{}
	}
	return &Server{
		ctrl:   ctrl,
		opts:   opts,
		logger: slog.Default().With("component", "webui"),
	}
}

// RegisterRoutes attaches web UI routes to an existing ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleUIRedirect)
	mux.HandleFunc("GET /ui", s.handleUIRedirect)
	mux.HandleFunc("GET /ui/", s.handleUI)
	mux.HandleFunc("GET /api/panels", s.handlePanels)
	mux.HandleFunc("GET /api/panels/{id}", s.handlePanel)
	mux.HandleFunc("POST /api/panels/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/detail/{kind}/{id}", s.handleDetail)
	mux.HandleFunc("GET /api/sparkline", s.handleSparkline)
	mux.HandleFunc("POST /api/control/{action}", s.handleControl)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	if s.opts.Feed != nil {
		mux.Handle("/api/trace", s.opts.Feed.Handler())
	}
	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ListenAndServe starts a standalone HTTP server and shuts it down when ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("web UI listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleUIRedirect redirects to /ui/ for consistent routing.
func (s *Server) handleUIRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
}

// handleUI renders the page shell with the current panel contents.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderPage(w); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// handlePanels returns every applied panel as JSON.
func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Board().Snapshot())
}

// handlePanel returns one panel's fragment, filtered by ?q=.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.ctrl.Board().Has(id) {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}
	writeFragment(w, s.fragment(id, r.URL.Query().Get("q")))
}

// handleRefresh reloads one target and returns its new fragment.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ctrl.Reload(r.Context(), id); err != nil {
		if errors.Is(err, refresh.ErrUnknownTarget) {
			http.Error(w, "unknown panel", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeFragment(w, s.fragment(id, r.URL.Query().Get("q")))
}

// fragment returns the panel's current markup, or a placeholder before its
// first load completes.
func (s *Server) fragment(id, query string) string {
	c, ok := s.ctrl.Board().Get(id)
	if !ok {
		return render.Notice("Loading…")
	}
	return c.Filtered(query)
}

// handleDetail loads a job or webhook detail. ?format=html returns the
// filled modal markup instead of JSON.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	if s.opts.Details == nil {
		http.Error(w, "detail views not configured", http.StatusNotFound)
		return
	}

	p, err := s.opts.Details.Load(r.Context(), r.PathValue("kind"), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		writeFragment(w, s.opts.Shell.Render(p))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSparkline renders ?points= as an SVG sparkline of ?w= by ?h=.
func (s *Server) handleSparkline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	surface := viz.DefaultSurface
	if n, err := strconv.Atoi(q.Get("w")); err == nil && n > 2*int(surface.Margin) && n <= 4096 {
		surface.Width = float64(n)
	}
	if n, err := strconv.Atoi(q.Get("h")); err == nil && n > 2*int(surface.Margin) && n <= 4096 {
		surface.Height = float64(n)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, viz.Sparkline(viz.ParsePoints(q.Get("points")), surface))
}

// handleControl forwards a JSON body to a control endpoint and relays its
// {data} or {error:{message}} envelope.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if s.opts.Control == nil {
		writeControlError(w, http.StatusServiceUnavailable, "control endpoints not configured")
		return
	}

	var body any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeControlError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}

	action := r.PathValue("action")
	data, err := s.opts.Control.Invoke(r.Context(), action, body)
	if err != nil {
		var ce *control.Error
		switch {
		case errors.Is(err, control.ErrUnknownAction):
			writeControlError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &ce):
			status := ce.Status
			if status < 400 {
				status = http.StatusBadGateway
			}
			writeControlError(w, status, ce.Message)
		default:
			writeControlError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": redact.Deep(data)})
}

func writeControlError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": msg}})
}

func writeFragment(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, html)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("webui: failed to write JSON", "error", err)
	}
}
