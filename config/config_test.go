package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BroadcastBufferSize != 64 {
		t.Fatalf("expected default broadcast_buffer_size 64, got %d", cfg.BroadcastBufferSize)
	}
	if !cfg.Admin.Enabled {
		t.Fatalf("expected admin to default to enabled")
	}
	if cfg.AMQP.Enabled {
		t.Fatalf("expected amqp to default to disabled")
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("EEE_BROADCAST_BUFFER_SIZE", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BroadcastBufferSize != 8 {
		t.Fatalf("expected env override 8, got %d", cfg.BroadcastBufferSize)
	}
}

func TestLoadRejectsUndersizedBroadcastBuffer(t *testing.T) {
	t.Setenv("EEE_BROADCAST_BUFFER_SIZE", "1")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected an undersized broadcast_buffer_size to be rejected")
	}
}

func TestLoadIgnoresMissingConfigFile(t *testing.T) {
	if _, err := os.Stat("/nonexistent/eee-config.yaml"); err == nil {
		t.Fatalf("test assumption broken: file exists")
	}

	if _, err := Load("/nonexistent/eee-config.yaml"); err != nil {
		t.Fatalf("expected a missing config file to be tolerated, got %v", err)
	}
}
