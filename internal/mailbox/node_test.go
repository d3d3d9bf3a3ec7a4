package mailbox

import (
	"context"
	"testing"
	"time"
)

func TestNodeLifecycle(t *testing.T) {
	n := NewNode(DefaultConfig())
	if got := n.Status().State; got != StateDisconnected {
		t.Fatalf("expected disconnected initially, got %s", got)
	}

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := n.Status().State; got != StateConnected {
		t.Fatalf("expected connected after start, got %s", got)
	}

	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if got := n.Status().State; got != StateDisconnected {
		t.Fatalf("expected disconnected after stop, got %s", got)
	}
}

func TestNodePublishRequiresConnection(t *testing.T) {
	n := NewNode(DefaultConfig())
	err := n.Publish(context.Background(), Envelope{Recipient: "agent1somewhere"})
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestNodeSubscribeRequiresIdentity(t *testing.T) {
	n := NewNode(DefaultConfig())
	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer n.Stop(context.Background())

	if err := n.Subscribe(func(Envelope) {}); err == nil {
		t.Fatal("expected error subscribing without identity")
	}
}

func TestMockBusDeliversByRecipient(t *testing.T) {
	a := NewNode(DefaultConfig())
	b := NewNode(DefaultConfig())
	for _, n := range []*Node{a, b} {
		if err := n.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer n.Stop(context.Background())
	}
	a.SetIdentity("agent1-busdelivery-a")
	b.SetIdentity("agent1-busdelivery-b")

	got := make(chan Envelope, 1)
	if err := b.Subscribe(func(env Envelope) { got <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	env := Envelope{ID: NewEnvelopeID(), Sender: "agent1-busdelivery-a", Recipient: "agent1-busdelivery-b", Kind: KindCo2Request}
	if err := a.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case received := <-got:
		if received.ID != env.ID {
			t.Fatalf("expected envelope %s, got %s", env.ID, received.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("envelope was not delivered")
	}
}

func TestMockBusBuffersForLateSubscriber(t *testing.T) {
	a := NewNode(DefaultConfig())
	b := NewNode(DefaultConfig())
	for _, n := range []*Node{a, b} {
		if err := n.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer n.Stop(context.Background())
	}
	a.SetIdentity("agent1-latesub-a")
	b.SetIdentity("agent1-latesub-b")

	env := Envelope{ID: NewEnvelopeID(), Sender: "agent1-latesub-a", Recipient: "agent1-latesub-b", Kind: KindCo2Request}
	if err := a.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	got := make(chan Envelope, 1)
	if err := b.Subscribe(func(e Envelope) { got <- e }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	select {
	case received := <-got:
		if received.ID != env.ID {
			t.Fatalf("expected buffered envelope %s, got %s", env.ID, received.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("buffered envelope was not replayed on subscribe")
	}
}
