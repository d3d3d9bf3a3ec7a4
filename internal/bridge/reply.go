package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ecotrack/go-bridge/pkg/models"
)

// NormalizeReply collapses the raw reply encodings seen across remote agent
// versions into one canonical Co2Reply:
//
//   - a bare reply object
//   - an object wrapping the reply ({"sender":...,"reply":...} or
//     {"status":...,"reply":...})
//   - a two-element array pairing the reply with a sender or status, in
//     either order
//   - a bare delivery status, which is an agent-side failure
//
// Anything else is ErrInvalidResponse. The canonical numeric field is
// co2_saved_kg.
func NormalizeReply(raw json.RawMessage) (models.Co2Reply, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return models.Co2Reply{}, fmt.Errorf("%w: empty payload", ErrInvalidResponse)
	}

	switch trimmed[0] {
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil || len(parts) != 2 {
			return models.Co2Reply{}, fmt.Errorf("%w: unsupported array shape", ErrInvalidResponse)
		}
		for _, part := range parts {
			if reply, ok := tryReply(part); ok {
				return reply, nil
			}
		}
		return models.Co2Reply{}, fmt.Errorf("%w: neither array element is a reply", ErrInvalidResponse)
	case '{':
		return normalizeObject(trimmed)
	default:
		return models.Co2Reply{}, fmt.Errorf("%w: payload is not an object or pair", ErrInvalidResponse)
	}
}

func normalizeObject(raw []byte) (models.Co2Reply, error) {
	if reply, ok := tryReply(raw); ok {
		return reply, nil
	}

	var probe struct {
		Reply  json.RawMessage `json:"reply"`
		Status json.RawMessage `json:"status"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.Co2Reply{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(probe.Reply) > 0 {
		if reply, ok := tryReply(probe.Reply); ok {
			return reply, nil
		}
		return models.Co2Reply{}, fmt.Errorf("%w: wrapped reply is malformed", ErrInvalidResponse)
	}
	if len(probe.Status) > 0 {
		// The remote reported a delivery status instead of a reply.
		if probe.Detail != "" {
			return models.Co2Reply{}, fmt.Errorf("%w: agent status %s: %s", ErrAgentCompute, probe.Status, probe.Detail)
		}
		return models.Co2Reply{}, fmt.Errorf("%w: agent status %s", ErrAgentCompute, probe.Status)
	}
	return models.Co2Reply{}, fmt.Errorf("%w: object carries no reply", ErrInvalidResponse)
}

// tryReply reports whether raw is a well-formed reply object. Co2SavedKg and
// Message are required; Engine falls back to the remote's historical default.
func tryReply(raw json.RawMessage) (models.Co2Reply, bool) {
	var candidate struct {
		Co2SavedKg *float64 `json:"co2_saved_kg"`
		Message    *string  `json:"message"`
		Engine     string   `json:"engine"`
	}
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return models.Co2Reply{}, false
	}
	if candidate.Co2SavedKg == nil || candidate.Message == nil {
		return models.Co2Reply{}, false
	}
	engine := candidate.Engine
	if engine == "" {
		engine = "asi_one"
	}
	return models.Co2Reply{
		Co2SavedKg: *candidate.Co2SavedKg,
		Message:    *candidate.Message,
		Engine:     engine,
	}, true
}
