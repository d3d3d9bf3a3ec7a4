// Package bridgeserver wires configuration, identity, the mailbox transport,
// the bridge core, and the HTTP front door into one runnable server.
package bridgeserver

import (
	"context"
	"fmt"
	"log/slog"

	"ecotrack/go-bridge/internal/adapters/httpapi"
	"ecotrack/go-bridge/internal/bootstrap/bridgeconfig"
	"ecotrack/go-bridge/internal/bridge"
	"ecotrack/go-bridge/internal/identity"
	"ecotrack/go-bridge/internal/mailbox"
	"ecotrack/go-bridge/internal/platform/ratelimiter"
)

type Server struct {
	cfg  bridgeconfig.Config
	id   *identity.Identity
	node *mailbox.Node
	exch *mailbox.Exchanger
	core *bridge.Bridge
	http *httpapi.Server
}

// New builds the full bridge from config. It fails fast on invalid config or
// identity derivation; nothing is started yet.
func New(cfg bridgeconfig.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bridge config: %w", err)
	}

	id, err := identity.FromSeedPhrase(cfg.SeedPhrase)
	if err != nil {
		return nil, fmt.Errorf("bridge identity: %w", err)
	}

	node := mailbox.NewNode(mailbox.Config{
		Transport:      cfg.Transport,
		Port:           cfg.MailboxPort,
		BootstrapNodes: cfg.BootstrapNodes,
	})
	node.SetIdentity(id.Address)

	exchanger := mailbox.NewExchanger(node, id)
	core, err := bridge.New(exchanger, bridge.Config{
		Destination:    cfg.RemoteAgentAddress,
		QueueCapacity:  cfg.QueueCapacity,
		ChannelTimeout: cfg.Timeout,
		SubmitTimeout:  cfg.Timeout + cfg.Timeout/5,
	}, bridge.NewMetrics(nil))
	if err != nil {
		return nil, err
	}

	info := httpapi.BridgeInfo{
		BridgeAddress: id.Address,
		TargetAgent:   cfg.RemoteAgentAddress,
		MailboxPort:   cfg.MailboxPort,
		Transport:     cfg.Transport,
	}
	limiter := ratelimiter.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 0)

	return &Server{
		cfg:  cfg,
		id:   id,
		node: node,
		exch: exchanger,
		core: core,
		http: httpapi.NewServer(cfg.HTTPAddr, core, info, limiter),
	}, nil
}

func (s *Server) BridgeAddress() string { return s.id.Address }

// Run connects the mailbox transport, starts the dispatch worker, and serves
// HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.node.Start(ctx); err != nil {
		return fmt.Errorf("mailbox transport: %w", err)
	}
	defer func() { _ = s.node.Stop(context.Background()) }()

	if err := s.exch.Start(); err != nil {
		return fmt.Errorf("mailbox subscription: %w", err)
	}

	slog.Info("bridge starting",
		"bridge_address", s.id.Address,
		"target_agent", s.cfg.RemoteAgentAddress,
		"transport", s.cfg.Transport,
		"http_addr", s.cfg.HTTPAddr,
		"mailbox_port", s.cfg.MailboxPort,
		"timeout", s.cfg.Timeout)

	s.core.Start(ctx)
	return s.http.Run(ctx)
}
