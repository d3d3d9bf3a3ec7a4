package mailbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	TransportMock   = "mock"
	TransportGoWaku = "go-waku"

	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDegraded     = "degraded"
)

var ErrNotConnected = errors.New("mailbox transport is not connected")

type Config struct {
	Transport      string   `yaml:"transport"`
	Port           int      `yaml:"port"`
	BootstrapNodes []string `yaml:"bootstrapNodes"`
	MinPeers       int      `yaml:"minPeers"`
}

type Status struct {
	State     string
	PeerCount int
	LastSync  time.Time
}

// Node wraps the mailbox transport. The mock transport delivers through an
// in-process bus; the go-waku transport is available in builds with the
// real_waku tag.
type Node struct {
	mu      sync.RWMutex
	cfg     Config
	status  Status
	selfID  string
	handler func(Envelope)
	gw      goWakuBackend
}

type goWakuBackend interface {
	Start(ctx context.Context, cfg Config) error
	Stop()
	PeerCount() int
	SetIdentity(identityID string)
	ListenAddresses() []string
	Subscribe(handler func(Envelope)) error
	Publish(ctx context.Context, env Envelope) error
}

func DefaultConfig() Config {
	return Config{
		Transport: TransportMock,
		Port:      8020,
		MinPeers:  1,
	}
}

func NewNode(cfg Config) *Node {
	if cfg.Transport == "" {
		cfg.Transport = TransportMock
	}
	return &Node{
		cfg:    cfg,
		status: Status{State: StateDisconnected},
	}
}

func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	n.status.State = StateConnecting
	n.status.LastSync = time.Now()
	n.mu.Unlock()

	if n.cfg.Transport == TransportGoWaku {
		backend := newGoWakuBackend()
		if backend == nil {
			n.setDisconnected()
			return errors.New("go-waku backend is not available in this build")
		}
		if err := backend.Start(ctx, n.cfg); err != nil {
			n.setDisconnected()
			return err
		}
		peerCount := backend.PeerCount()
		state := StateConnected
		if peerCount < n.cfg.MinPeers {
			state = StateDegraded
		}
		n.mu.Lock()
		n.gw = backend
		n.status.State = state
		n.status.PeerCount = peerCount
		n.status.LastSync = time.Now()
		n.mu.Unlock()
		return nil
	}

	select {
	case <-ctx.Done():
		n.setDisconnected()
		return ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}

	n.mu.Lock()
	n.status.State = StateConnected
	n.status.PeerCount = 1
	n.status.LastSync = time.Now()
	n.mu.Unlock()
	return nil
}

func (n *Node) Stop(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.gw != nil {
		n.gw.Stop()
		n.gw = nil
	}
	if n.selfID != "" {
		globalBus.unsubscribe(n.selfID)
	}
	n.status.State = StateDisconnected
	n.status.PeerCount = 0
	n.status.LastSync = time.Now()
	return nil
}

func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s := n.status
	if n.gw != nil {
		s.PeerCount = n.gw.PeerCount()
	}
	return s
}

func (n *Node) SetIdentity(identityID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selfID = identityID
	if n.gw != nil {
		n.gw.SetIdentity(identityID)
	}
}

func (n *Node) ListenAddresses() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.gw == nil {
		return nil
	}
	return append([]string(nil), n.gw.ListenAddresses()...)
}

func (n *Node) Subscribe(handler func(Envelope)) error {
	n.mu.Lock()
	n.handler = handler
	state := n.status.State
	selfID := n.selfID
	gw := n.gw
	n.mu.Unlock()

	if state != StateConnected && state != StateDegraded {
		return ErrNotConnected
	}
	if selfID == "" {
		return errors.New("identity is not set")
	}
	if gw != nil {
		return gw.Subscribe(handler)
	}
	globalBus.subscribe(selfID, handler)
	return nil
}

func (n *Node) Publish(ctx context.Context, env Envelope) error {
	n.mu.RLock()
	state := n.status.State
	gw := n.gw
	n.mu.RUnlock()
	if state != StateConnected && state != StateDegraded {
		return ErrNotConnected
	}
	if env.Recipient == "" {
		return errors.New("recipient is required")
	}
	if gw != nil {
		return gw.Publish(ctx, env)
	}
	globalBus.publish(env)
	return nil
}

func (n *Node) setDisconnected() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status.State = StateDisconnected
	n.status.PeerCount = 0
	n.status.LastSync = time.Now()
}
