// Package bridge turns synchronous HTTP calls into correlated asynchronous
// exchanges with a remote compute agent. All CO₂ figures come from the remote
// side; a failure surfaces as a typed error, never as a fabricated result.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"ecotrack/go-bridge/pkg/models"
)

type Config struct {
	// Destination is the remote agent's mailbox address.
	Destination string
	// QueueCapacity bounds the submit queue; a full queue is backpressure,
	// not a wait.
	QueueCapacity int
	// ChannelTimeout bounds a single send-and-wait by the dispatch worker.
	ChannelTimeout time.Duration
	// SubmitTimeout bounds the caller-visible wait. It is clamped to at
	// least ChannelTimeout so a legitimate late reply is not pre-empted.
	SubmitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	if c.ChannelTimeout <= 0 {
		c.ChannelTimeout = 25 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.SubmitTimeout < c.ChannelTimeout {
		c.SubmitTimeout = c.ChannelTimeout
	}
	return c
}

type Bridge struct {
	cfg     Config
	send    Sender
	table   *Table
	queue   chan queueItem
	metrics *Metrics
	ready   atomic.Bool
}

func New(send Sender, cfg Config, metrics *Metrics) (*Bridge, error) {
	if send == nil {
		return nil, errors.New("bridge: nil sender")
	}
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.Destination) == "" {
		return nil, errors.New("bridge: destination agent address is required")
	}
	return &Bridge{
		cfg:     cfg,
		send:    send,
		table:   NewTable(),
		queue:   make(chan queueItem, cfg.QueueCapacity),
		metrics: metrics,
	}, nil
}

// Start launches the dispatch worker and the table janitor, then marks the
// bridge ready. Submit fails with ErrNotReady until Start has run.
func (b *Bridge) Start(ctx context.Context) {
	go b.run(ctx)
	go b.janitor(ctx)
	b.ready.Store(true)
}

func (b *Bridge) Ready() bool { return b.ready.Load() }

// QueueDepth reports how many accepted requests await dispatch.
func (b *Bridge) QueueDepth() int { return len(b.queue) }

// PendingCount reports in-flight requests between enqueue and resolution.
func (b *Bridge) PendingCount() int { return b.table.Len() }

// Submit validates req, enqueues it, and blocks until its correlated reply
// arrives or the submit timeout elapses. Every failure is one of the package
// sentinels.
func (b *Bridge) Submit(ctx context.Context, req models.Co2Request) (models.Co2Reply, error) {
	req.Action = models.NormalizeAction(req.Action)
	if err := validate(req); err != nil {
		return models.Co2Reply{}, err
	}
	if !b.ready.Load() {
		return models.Co2Reply{}, ErrNotReady
	}

	id, handle := b.table.Register()
	select {
	case b.queue <- queueItem{id: id, req: req}:
		b.metrics.recordSubmitted()
		b.metrics.setQueueDepth(len(b.queue))
	default:
		b.table.Evict(id)
		b.metrics.recordOutcome(ErrBusy)
		return models.Co2Reply{}, ErrBusy
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.SubmitTimeout)
	defer cancel()

	outcome, err := handle.Wait(waitCtx)
	if err != nil {
		// Waiter gave up; a reply landing later finds no entry and is dropped.
		b.table.Evict(id)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: no reply within %s", ErrAgentTimeout, b.cfg.SubmitTimeout)
		}
		b.metrics.recordOutcome(err)
		return models.Co2Reply{}, err
	}
	b.metrics.recordOutcome(outcome.Err)
	return outcome.Reply, outcome.Err
}

func validate(req models.Co2Request) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: user_id", ErrMissingField)
	}
	if req.Action == "" {
		return fmt.Errorf("%w: action", ErrMissingField)
	}
	if !models.IsKnownAction(req.Action) {
		return fmt.Errorf("%w: %q is not one of %s", ErrInvalidAction, req.Action, strings.Join(models.KnownActions(), ", "))
	}
	if models.RequiresDistance(req.Action) {
		if req.DistanceKm == nil || *req.DistanceKm <= 0 {
			return fmt.Errorf("%w: %s needs distance_km > 0", ErrInvalidDistance, req.Action)
		}
	}
	return nil
}

// janitor evicts entries whose waiters vanished without resolving, so the
// table cannot grow under sustained timeouts.
func (b *Bridge) janitor(ctx context.Context) {
	maxAge := b.cfg.SubmitTimeout * 2
	ticker := time.NewTicker(b.cfg.SubmitTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			b.table.EvictExpired(now, maxAge)
		}
	}
}
