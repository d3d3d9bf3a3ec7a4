package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ecotrack/go-bridge/internal/mailbox"
	"ecotrack/go-bridge/pkg/models"
)

// Outcome is the single result delivered to a waiter. Reply and Err are
// mutually exclusive.
type Outcome struct {
	Reply models.Co2Reply
	Err   error
}

// Handle is a single-assignment completion handle. It is completed exactly
// once; duplicate completions are ignored.
type Handle struct {
	ch      chan struct{}
	once    sync.Once
	mu      sync.Mutex
	outcome Outcome
}

func newHandle() *Handle {
	return &Handle{ch: make(chan struct{})}
}

func (h *Handle) complete(o Outcome) {
	h.once.Do(func() {
		h.mu.Lock()
		h.outcome = o
		h.mu.Unlock()
		close(h.ch)
	})
}

// Wait blocks until the handle is completed or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.ch:
		h.mu.Lock()
		o := h.outcome
		h.mu.Unlock()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Table tracks in-flight requests between enqueue and resolution. It is the
// only shared mutable state between HTTP callers and the dispatch worker.
type Table struct {
	mu      sync.Mutex
	entries map[string]*tableEntry
}

type tableEntry struct {
	handle     *Handle
	enqueuedAt time.Time
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*tableEntry)}
}

// Register creates a fresh request identifier and an unset handle.
func (t *Table) Register() (string, *Handle) {
	id := mailbox.NewEnvelopeID()
	h := newHandle()
	t.mu.Lock()
	t.entries[id] = &tableEntry{handle: h, enqueuedAt: time.Now()}
	t.mu.Unlock()
	return id, h
}

// Resolve delivers the outcome for id and removes the entry. Resolving an
// absent or already-resolved entry is a no-op; late duplicate replies land
// here after the waiter evicted its entry.
func (t *Table) Resolve(id string, o Outcome) {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		slog.Warn("resolution for unknown or already-resolved request", "request_id", id)
		return
	}
	entry.handle.complete(o)
}

// Evict removes an entry without completing its handle. Used by a waiter
// that gave up; a reply arriving afterwards is discarded by Resolve.
func (t *Table) Evict(id string) {
	t.mu.Lock()
	_, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if ok {
		slog.Debug("evicted pending request", "request_id", id)
	}
}

// EvictExpired times out entries older than maxAge so the table cannot grow
// without bound when waiters disappear. Returns the number evicted.
func (t *Table) EvictExpired(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)

	t.mu.Lock()
	var expired []*tableEntry
	for id, entry := range t.entries {
		if entry.enqueuedAt.Before(cutoff) {
			expired = append(expired, entry)
			delete(t.entries, id)
			slog.Warn("evicting expired pending request", "request_id", id)
		}
	}
	t.mu.Unlock()

	for _, entry := range expired {
		entry.handle.complete(Outcome{Err: ErrAgentTimeout})
	}
	return len(expired)
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
