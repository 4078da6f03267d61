// Package refresh drives repeated endpoint fetches into a panel board.
//
// A Controller owns its targets, its schedule and its per-target sequence
// counters. Fetches are never canceled or coalesced; each takes a sequence
// number when issued and the board drops any result older than the last one
// it applied.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tobert/opsview/internal/fetch"
	"github.com/tobert/opsview/internal/panel"
)

// ErrUnknownTarget is returned by Reload for an id with no target.
var ErrUnknownTarget = errors.New("unknown refresh target")

// Fetcher performs one endpoint fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// Options configure a Controller.
type Options struct {
	// Interval between unconditional reloads of every target; 0 disables.
	Interval   time.Duration
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Controller coordinates fetches for a set of targets.
type Controller struct {
	fetcher  Fetcher
	board    *panel.Board
	metrics  *Metrics
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	targets map[string]Target
	order   []string
	seqs    map[string]uint64

	cronMu  sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a controller rendering into board.
func New(fetcher Fetcher, board *panel.Board, targets []Target, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		fetcher:  fetcher,
		board:    board,
		metrics:  NewMetrics(opts.Registerer),
		logger:   logger.With("component", "refresh"),
		interval: opts.Interval,
		now:      now,
		seqs:     make(map[string]uint64),
	}
	board.OnStale(func(target string) {
		c.metrics.recordStale(target)
		c.logger.Debug("dropped stale result", "target", target)
	})
	c.SetTargets(targets)
	return c
}

// SetTargets replaces the target set. Results still in flight for removed
// targets are discarded by the board.
func (c *Controller) SetTargets(targets []Target) {
	c.mu.Lock()
	c.targets = make(map[string]Target, len(targets))
	c.order = c.order[:0]
	for _, t := range targets {
		if _, dup := c.targets[t.ID]; dup {
			continue
		}
		c.targets[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	ids := append([]string(nil), c.order...)
	c.mu.Unlock()

	c.board.SetTargets(ids)
	c.logger.Info("targets updated", "count", len(ids))
}

// Targets returns the current targets in order.
func (c *Controller) Targets() []Target {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Target, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.targets[id])
	}
	return out
}

// Target returns the target with the given id.
func (c *Controller) Target(id string) (Target, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.targets[id]
	return t, ok
}

// Board returns the board the controller renders into.
func (c *Controller) Board() *panel.Board {
	return c.board
}

// Metrics returns the controller's collectors.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// LoadAll fetches every target once, concurrently, and waits for all of them.
func (c *Controller) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	for _, t := range c.Targets() {
		g.Go(func() error {
			c.load(ctx, t)
			return nil
		})
	}
	return g.Wait()
}

// Reload fetches one target and waits for its result to be applied or dropped.
func (c *Controller) Reload(ctx context.Context, id string) error {
	t, ok := c.Target(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	c.load(ctx, t)
	return nil
}

// load issues one fetch for t and applies its rendering.
func (c *Controller) load(ctx context.Context, t Target) {
	seq := c.nextSeq(t.ID)

	res := c.fetcher.Fetch(ctx, t.URL)

	outcome := "ok"
	if res.Err != nil {
		outcome = "error"
	}
	c.metrics.recordFetch(t.ID, outcome, res.Duration.Seconds())

	content := Build(t, res, c.now())
	if c.board.Apply(t.ID, seq, content) {
		c.logger.Debug("panel updated", "target", t.ID, "seq", seq, "fetch_id", res.ID)
	}
}

func (c *Controller) nextSeq(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs[id]++
	return c.seqs[id]
}

// Start schedules a reload of every target each Interval. Overlapping runs
// are allowed. It is a no-op when Interval is zero. Scheduled reloads stop
// when ctx is canceled or Stop is called.
func (c *Controller) Start(ctx context.Context) error {
	c.cronMu.Lock()
	defer c.cronMu.Unlock()

	if c.interval <= 0 {
		c.logger.Info("auto refresh disabled")
		return nil
	}
	if c.running {
		return nil
	}

	c.cron = cron.New()
	spec := fmt.Sprintf("@every %s", c.interval)
	if _, err := c.cron.AddFunc(spec, func() {
		if err := c.LoadAll(ctx); err != nil {
			c.logger.Error("scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh %q: %w", spec, err)
	}

	c.cron.Start()
	c.running = true
	c.logger.Info("auto refresh started", "interval", c.interval)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for running reloads to finish.
func (c *Controller) Stop() {
	c.cronMu.Lock()
	defer c.cronMu.Unlock()

	if c.cron != nil && c.running {
		done := c.cron.Stop()
		<-done.Done()
		c.running = false
		c.logger.Info("auto refresh stopped")
	}
}

// Running reports whether the schedule is active.
func (c *Controller) Running() bool {
	c.cronMu.Lock()
	defer c.cronMu.Unlock()
	return c.running
}
