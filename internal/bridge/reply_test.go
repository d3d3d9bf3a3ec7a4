package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"ecotrack/go-bridge/pkg/models"
)

const replyBody = `{"co2_saved_kg":1.2,"message":"Saved 1.2kg","engine":"asi_one"}`

func wantReply() models.Co2Reply {
	return models.Co2Reply{Co2SavedKg: 1.2, Message: "Saved 1.2kg", Engine: "asi_one"}
}

func TestNormalizeReplyAllShapesAgree(t *testing.T) {
	shapes := map[string]string{
		"bare":        replyBody,
		"sender_pair": `{"sender":"agent1remote","reply":` + replyBody + `}`,
		"status_pair": `{"status":"delivered","reply":` + replyBody + `}`,
		"array_tail":  `["agent1remote",` + replyBody + `]`,
		"array_head":  `[` + replyBody + `,{"status":"delivered"}]`,
	}
	for name, raw := range shapes {
		got, err := NormalizeReply(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("%s: normalization failed: %v", name, err)
		}
		if got != wantReply() {
			t.Fatalf("%s: got %+v, want %+v", name, got, wantReply())
		}
	}
}

func TestNormalizeReplyBareStatusIsAgentFailure(t *testing.T) {
	_, err := NormalizeReply(json.RawMessage(`{"status":"error","detail":"unreachable"}`))
	if !errors.Is(err, ErrAgentCompute) {
		t.Fatalf("expected ErrAgentCompute, got %v", err)
	}
}

func TestNormalizeReplyMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"scalar":         `42`,
		"missing_value":  `{"message":"hi"}`,
		"missing_msg":    `{"co2_saved_kg":1.2}`,
		"non_numeric":    `{"co2_saved_kg":"plenty","message":"hi"}`,
		"triple_array":   `[1,2,3]`,
		"wrapped_bad":    `{"reply":{"message":"no number"}}`,
		"unrelated_keys": `{"foo":"bar"}`,
	}
	for name, raw := range cases {
		_, err := NormalizeReply(json.RawMessage(raw))
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("%s: expected ErrInvalidResponse, got %v", name, err)
		}
	}
}

func TestNormalizeReplyDefaultsEngine(t *testing.T) {
	got, err := NormalizeReply(json.RawMessage(`{"co2_saved_kg":0.5,"message":"ok"}`))
	if err != nil {
		t.Fatalf("normalization failed: %v", err)
	}
	if got.Engine != "asi_one" {
		t.Fatalf("expected default engine asi_one, got %q", got.Engine)
	}
}
