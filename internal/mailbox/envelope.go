package mailbox

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
)

const (
	KindCo2Request = "co2_request"
	KindCo2Reply   = "co2_reply"
)

// Envelope is the unit exchanged over the mailbox transport. Replies carry
// the originating request's ID in CorrelationID.
type Envelope struct {
	ID              string          `json:"id"`
	CorrelationID   string          `json:"correlation_id,omitempty"`
	Sender          string          `json:"sender"`
	SenderPublicKey []byte          `json:"sender_public_key,omitempty"`
	Recipient       string          `json:"recipient"`
	Kind            string          `json:"kind"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Signature       []byte          `json:"signature,omitempty"`
	Timestamp       int64           `json:"timestamp,omitempty"`
}

func NewEnvelopeID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("mailbox: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// SigningBytes is the canonical byte string covered by the envelope
// signature. Sender identity is bound via the public key hash in Sender.
func (e Envelope) SigningBytes() []byte {
	out := make([]byte, 0, len(e.ID)+len(e.CorrelationID)+len(e.Recipient)+len(e.Kind)+len(e.Payload)+4)
	for _, part := range [][]byte{[]byte(e.ID), []byte(e.CorrelationID), []byte(e.Recipient), []byte(e.Kind), e.Payload} {
		out = append(out, part...)
		out = append(out, 0)
	}
	return out
}
