package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ecotrack/go-bridge/internal/mailbox"
	"ecotrack/go-bridge/pkg/models"
)

// Sender is the channel adapter boundary. The mailbox Exchanger satisfies it.
type Sender interface {
	SendAndReceive(ctx context.Context, destination string, payload json.RawMessage, timeout time.Duration) (json.RawMessage, error)
}

type queueItem struct {
	id  string
	req models.Co2Request
}

// run is the dispatch worker: a single goroutine consuming the queue in FIFO
// order. One request's failure only ever resolves that request.
func (b *Bridge) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-b.queue:
			b.metrics.setQueueDepth(len(b.queue))
			b.dispatch(ctx, item)
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, item queueItem) {
	payload, err := json.Marshal(item.req)
	if err != nil {
		b.table.Resolve(item.id, Outcome{Err: fmt.Errorf("%w: encoding request: %v", ErrAgentCompute, err)})
		return
	}

	slog.Info("dispatching request to remote agent",
		"request_id", item.id, "destination", b.cfg.Destination, "action", item.req.Action)

	started := time.Now()
	raw, err := b.send.SendAndReceive(ctx, b.cfg.Destination, payload, b.cfg.ChannelTimeout)
	b.metrics.observeDispatch(time.Since(started))

	if err != nil {
		b.table.Resolve(item.id, Outcome{Err: classifySendError(err)})
		slog.Warn("remote agent send failed", "request_id", item.id, "reason", err.Error())
		return
	}

	reply, err := NormalizeReply(raw)
	if err != nil {
		b.table.Resolve(item.id, Outcome{Err: err})
		slog.Warn("remote agent reply rejected", "request_id", item.id, "reason", err.Error())
		return
	}

	b.table.Resolve(item.id, Outcome{Reply: reply})
	slog.Info("remote agent reply resolved",
		"request_id", item.id, "co2_saved_kg", reply.Co2SavedKg, "engine", reply.Engine)
}

func classifySendError(err error) error {
	switch {
	case errors.Is(err, mailbox.ErrSendTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrAgentTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrAgentCompute, err)
	}
}
