package bridgeconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %s", cfg.Timeout)
	}
	if cfg.Transport != "mock" {
		t.Fatalf("expected default mock transport, got %q", cfg.Transport)
	}
	if cfg.QueueCapacity != 1024 {
		t.Fatalf("expected default queue capacity 1024, got %d", cfg.QueueCapacity)
	}
}

func TestLoadFromPathFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := "seedPhrase: from file\nremoteAgentAddress: agent1fromfile\nmailboxPort: 9020\ntimeout: 10s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ECOTRACK_REMOTE_AGENT_ADDRESS", "agent1fromenv")
	t.Setenv("ECOTRACK_TIMEOUT_SECONDS", "45")

	cfg := LoadFromPath(path)
	if cfg.SeedPhrase != "from file" {
		t.Fatalf("expected file seed phrase, got %q", cfg.SeedPhrase)
	}
	if cfg.MailboxPort != 9020 {
		t.Fatalf("expected file mailbox port, got %d", cfg.MailboxPort)
	}
	if cfg.RemoteAgentAddress != "agent1fromenv" {
		t.Fatalf("env must override file, got %q", cfg.RemoteAgentAddress)
	}
	if cfg.Timeout != 45*time.Second {
		t.Fatalf("env must override file timeout, got %s", cfg.Timeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty required fields must fail validation")
	}

	cfg.SeedPhrase = "some seed phrase"
	cfg.RemoteAgentAddress = "agent1remote"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete config must validate: %v", err)
	}

	cfg.Transport = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown transport must fail validation")
	}
}
