package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ecotrack/go-bridge/internal/identity"
)

// ErrSendTimeout is returned when the remote agent does not reply within the
// transport-level window of a single send attempt.
var ErrSendTimeout = errors.New("mailbox send timed out waiting for reply")

// Exchanger implements correlated request/reply on top of the fire-and-forget
// envelope transport. Replies are matched to waiters by CorrelationID; an
// envelope with no registered waiter is dropped.
type Exchanger struct {
	node *Node
	id   *identity.Identity

	mu      sync.Mutex
	waiters map[string]chan Envelope
}

func NewExchanger(node *Node, id *identity.Identity) *Exchanger {
	return &Exchanger{
		node:    node,
		id:      id,
		waiters: make(map[string]chan Envelope),
	}
}

// Start registers the reply subscription. The node must be connected and
// carry the exchanger's identity.
func (e *Exchanger) Start() error {
	return e.node.Subscribe(e.route)
}

// SendAndReceive publishes a signed request envelope to destination and
// blocks until the correlated reply arrives, timeout elapses, or ctx is done.
// It returns the reply payload exactly as the remote sent it.
func (e *Exchanger) SendAndReceive(ctx context.Context, destination string, payload json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	env := Envelope{
		ID:              NewEnvelopeID(),
		Sender:          e.id.Address,
		SenderPublicKey: e.id.PublicKey,
		Recipient:       destination,
		Kind:            KindCo2Request,
		Payload:         payload,
		Timestamp:       time.Now().Unix(),
	}
	env.Signature = e.id.Sign(env.SigningBytes())

	ch := make(chan Envelope, 1)
	e.mu.Lock()
	e.waiters[env.ID] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.waiters, env.ID)
		e.mu.Unlock()
	}()

	if err := e.node.Publish(ctx, env); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply.Payload, nil
	case <-timer.C:
		return nil, ErrSendTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Exchanger) route(env Envelope) {
	if env.Kind != KindCo2Reply {
		return
	}
	if !verifySender(env) {
		slog.Warn("dropping mailbox envelope with bad signature",
			"envelope_id", env.ID, "sender", env.Sender)
		return
	}

	e.mu.Lock()
	ch, ok := e.waiters[env.CorrelationID]
	e.mu.Unlock()
	if !ok {
		slog.Warn("dropping uncorrelated mailbox reply",
			"envelope_id", env.ID, "correlation_id", env.CorrelationID)
		return
	}
	select {
	case ch <- env:
	default:
		// Waiter already has a reply; duplicates are dropped.
		slog.Warn("dropping duplicate mailbox reply", "correlation_id", env.CorrelationID)
	}
}

// verifySender accepts unsigned envelopes only when no key material is
// attached at all; a claimed key must check out against sender and body.
func verifySender(env Envelope) bool {
	if len(env.SenderPublicKey) == 0 && len(env.Signature) == 0 {
		return true
	}
	expected, err := identity.BuildAgentAddress(env.SenderPublicKey)
	if err != nil || expected != env.Sender {
		return false
	}
	return identity.Verify(env.SenderPublicKey, env.SigningBytes(), env.Signature)
}
