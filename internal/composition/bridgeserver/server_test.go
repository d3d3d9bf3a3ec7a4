package bridgeserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ecotrack/go-bridge/internal/bootstrap/bridgeconfig"
	"ecotrack/go-bridge/internal/identity"
	"ecotrack/go-bridge/internal/mailbox"
	"ecotrack/go-bridge/pkg/models"
)

func TestNewRejectsIncompleteConfig(t *testing.T) {
	if _, err := New(bridgeconfig.Default()); err == nil {
		t.Fatal("config without seed phrase and remote address must be rejected")
	}
}

func TestNewDerivesStableAddress(t *testing.T) {
	cfg := bridgeconfig.Default()
	cfg.SeedPhrase = "composition stable address"
	cfg.RemoteAgentAddress = "agent1remote"

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if a.BridgeAddress() != b.BridgeAddress() {
		t.Fatal("same seed phrase must derive the same bridge address")
	}
}

func TestWiredSubmitRoundTrip(t *testing.T) {
	remoteID, err := identity.FromSeedPhrase("composition remote agent")
	if err != nil {
		t.Fatalf("remote identity: %v", err)
	}
	remoteNode := mailbox.NewNode(mailbox.DefaultConfig())
	if err := remoteNode.Start(context.Background()); err != nil {
		t.Fatalf("remote node start: %v", err)
	}
	t.Cleanup(func() { _ = remoteNode.Stop(context.Background()) })
	remoteNode.SetIdentity(remoteID.Address)
	err = remoteNode.Subscribe(func(req mailbox.Envelope) {
		reply := mailbox.Envelope{
			ID:              mailbox.NewEnvelopeID(),
			CorrelationID:   req.ID,
			Sender:          remoteID.Address,
			SenderPublicKey: remoteID.PublicKey,
			Recipient:       req.Sender,
			Kind:            mailbox.KindCo2Reply,
			Payload:         json.RawMessage(`{"co2_saved_kg":0.7,"message":"Saved 0.7kg","engine":"asi_one"}`),
		}
		reply.Signature = remoteID.Sign(reply.SigningBytes())
		_ = remoteNode.Publish(context.Background(), reply)
	})
	if err != nil {
		t.Fatalf("remote subscribe: %v", err)
	}

	cfg := bridgeconfig.Default()
	cfg.SeedPhrase = "composition bridge side"
	cfg.RemoteAgentAddress = remoteID.Address
	cfg.Timeout = 5 * time.Second
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.node.Start(ctx); err != nil {
		t.Fatalf("bridge node start: %v", err)
	}
	t.Cleanup(func() { _ = srv.node.Stop(context.Background()) })
	if err := srv.exch.Start(); err != nil {
		t.Fatalf("exchanger start: %v", err)
	}
	srv.core.Start(ctx)

	reply, err := srv.core.Submit(ctx, models.Co2Request{UserID: "u1", Action: "recycled"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if reply.Co2SavedKg != 0.7 {
		t.Fatalf("expected 0.7, got %v", reply.Co2SavedKg)
	}
}
