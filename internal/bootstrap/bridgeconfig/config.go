// Package bridgeconfig loads bridge configuration from an optional yaml file
// merged with environment overrides. Missing required values are a startup
// error, never a runtime one.
package bridgeconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ecotrack/go-bridge/internal/mailbox"
)

type Config struct {
	// SeedPhrase is the identity seed material for the bridge's stable
	// mailbox address.
	SeedPhrase string `yaml:"seedPhrase"`
	// RemoteAgentAddress is the hosted compute agent's mailbox address.
	RemoteAgentAddress string `yaml:"remoteAgentAddress"`
	HTTPAddr           string `yaml:"httpAddr"`
	MailboxPort        int    `yaml:"mailboxPort"`
	Transport          string `yaml:"transport"`
	// Timeout bounds a single send-and-wait against the channel; the
	// caller-visible wait is derived from it.
	Timeout        time.Duration `yaml:"timeout"`
	QueueCapacity  int           `yaml:"queueCapacity"`
	BootstrapNodes []string      `yaml:"bootstrapNodes"`
	RateLimitRPS   float64       `yaml:"rateLimitRps"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`
}

func Default() Config {
	return Config{
		HTTPAddr:       "0.0.0.0:8000",
		MailboxPort:    8020,
		Transport:      mailbox.TransportMock,
		Timeout:        30 * time.Second,
		QueueCapacity:  1024,
		RateLimitRPS:   25,
		RateLimitBurst: 50,
	}
}

// LoadFromPath reads configPath if given, otherwise probes the default
// locations; a missing or unparsable file falls back to defaults. Environment
// overrides always apply last.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/bridge.yaml",
			"bridge.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merge(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func merge(dst *Config, src Config) {
	if src.SeedPhrase != "" {
		dst.SeedPhrase = src.SeedPhrase
	}
	if src.RemoteAgentAddress != "" {
		dst.RemoteAgentAddress = src.RemoteAgentAddress
	}
	if src.HTTPAddr != "" {
		dst.HTTPAddr = src.HTTPAddr
	}
	if src.MailboxPort != 0 {
		dst.MailboxPort = src.MailboxPort
	}
	if src.Transport != "" {
		dst.Transport = src.Transport
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.QueueCapacity != 0 {
		dst.QueueCapacity = src.QueueCapacity
	}
	if src.BootstrapNodes != nil {
		dst.BootstrapNodes = src.BootstrapNodes
	}
	if src.RateLimitRPS != 0 {
		dst.RateLimitRPS = src.RateLimitRPS
	}
	if src.RateLimitBurst != 0 {
		dst.RateLimitBurst = src.RateLimitBurst
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_SEED_PHRASE")); v != "" {
		cfg.SeedPhrase = v
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_REMOTE_AGENT_ADDRESS")); v != "" {
		cfg.RemoteAgentAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_MAILBOX_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.MailboxPort = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_TRANSPORT")); v != "" {
		cfg.Transport = v
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_TIMEOUT_SECONDS")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_QUEUE_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ECOTRACK_BOOTSTRAP_NODES")); v != "" {
		parts := strings.Split(v, ",")
		nodes := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				nodes = append(nodes, p)
			}
		}
		cfg.BootstrapNodes = nodes
	}
}

// Validate reports every missing required value at once so an operator fixes
// the environment in one pass.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SeedPhrase) == "" {
		problems = append(problems, "seed phrase is required (set ECOTRACK_SEED_PHRASE)")
	}
	if strings.TrimSpace(c.RemoteAgentAddress) == "" {
		problems = append(problems, "remote agent address is required (set ECOTRACK_REMOTE_AGENT_ADDRESS)")
	}
	switch c.Transport {
	case mailbox.TransportMock, mailbox.TransportGoWaku:
	default:
		problems = append(problems, fmt.Sprintf("unknown transport %q", c.Transport))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}
