// Package panel holds the rendered content of every refresh target.
//
// A Board is the server-side stand-in for the page's panel subtrees: each
// target owns one Content that is replaced whole on every applied fetch.
// Results carry the sequence number taken when their fetch was issued and a
// result older than the last applied one for its target is dropped.
package panel

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tobert/opsview/internal/filter"
	"github.com/tobert/opsview/internal/render"
)

// Content is one target's rendered panel.
type Content struct {
	Target string    `json:"target"`
	Title  string    `json:"title"`
	HTML   string    `json:"html"`
	Error  string    `json:"error,omitempty"`
	Seq    uint64    `json:"seq"`
	At     time.Time `json:"updated_at"`

	// Table is the row model when the panel rendered a table, and Header is
	// any markup rendered ahead of it.
	Table  *render.Table `json:"-"`
	Header string        `json:"-"`
}

// Filtered returns the panel markup with rows not matching query hidden.
// Panels without a table, and empty queries, return HTML unchanged.
func (c Content) Filtered(query string) string {
	if c.Table == nil || strings.TrimSpace(query) == "" {
		return c.HTML
	}
	return c.Header + filter.Apply(*c.Table, query).HTML()
}

// Board stores per-target content and notifies subscribers of changes.
type Board struct {
	mu      sync.RWMutex
	order   []string
	panels  map[string]Content
	applied map[string]uint64

	// Incremented on every applied change
	generation atomic.Uint64

	subscriberMu     sync.Mutex
	subscribers      map[uint64]chan struct{}
	nextSubscriberID uint64

	onStale func(target string)
}

// NewBoard creates a board for the given target ids.
func NewBoard(targets ...string) *Board {
	b := &Board{
		panels:      make(map[string]Content),
		applied:     make(map[string]uint64),
		subscribers: make(map[uint64]chan struct{}),
	}
	b.SetTargets(targets)
	return b
}

// OnStale registers a callback invoked for every dropped stale result.
func (b *Board) OnStale(fn func(target string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStale = fn
}

// SetTargets replaces the set of known targets. Content for targets that
// remain is kept; removed targets are forgotten and later results for them
// are discarded.
func (b *Board) SetTargets(ids []string) {
	b.mu.Lock()

	keep := make(map[string]bool, len(ids))
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		if keep[id] {
			continue
		}
		keep[id] = true
		order = append(order, id)
	}

	for id := range b.panels {
		if !keep[id] {
			delete(b.panels, id)
		}
	}
	for id := range b.applied {
		if !keep[id] {
			delete(b.applied, id)
		}
	}
	b.order = order
	b.mu.Unlock()

	b.generation.Add(1)
	b.notifySubscribers()
}

// Has reports whether id is a known target.
func (b *Board) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.known(id)
}

func (b *Board) known(id string) bool {
	for _, t := range b.order {
		if t == id {
			return true
		}
	}
	return false
}

// Apply replaces the content of target id with c if seq is newer than the
// last applied sequence for that target. It reports whether c was applied.
func (b *Board) Apply(id string, seq uint64, c Content) bool {
	b.mu.Lock()
	if !b.known(id) {
		b.mu.Unlock()
		return false
	}
	if seq <= b.applied[id] {
		onStale := b.onStale
		b.mu.Unlock()
		if onStale != nil {
			onStale(id)
		}
		return false
	}

	c.Target = id
	c.Seq = seq
	if c.At.IsZero() {
		c.At = time.Now()
	}
	b.applied[id] = seq
	b.panels[id] = c
	b.mu.Unlock()

	b.generation.Add(1)
	b.notifySubscribers()
	return true
}

// Get returns the current content for id.
func (b *Board) Get(id string) (Content, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.panels[id]
	return c, ok
}

// Snapshot returns the content of every target that has been applied at
// least once, in target order.
func (b *Board) Snapshot() []Content {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Content, 0, len(b.panels))
	for _, id := range b.order {
		if c, ok := b.panels[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Targets returns the known target ids in order.
func (b *Board) Targets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Generation returns a counter that changes whenever the board changes.
func (b *Board) Generation() uint64 {
	return b.generation.Load()
}

// Subscribe returns a notification channel and an unsubscribe function.
// The channel is buffered with capacity 1 so bursts of applies coalesce into
// a single wakeup.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()

	id := b.nextSubscriberID
	b.nextSubscriberID++

	ch := make(chan struct{}, 1)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.subscriberMu.Lock()
		defer b.subscriberMu.Unlock()
		delete(b.subscribers, id)
	}

	return ch, unsubscribe
}

func (b *Board) notifySubscribers() {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
