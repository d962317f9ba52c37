package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.Voice != "es-MX-DaliaNeural" {
		t.Fatalf("expected default voice, got %q", cfg.Synthesis.Voice)
	}
	if cfg.Synthesis.Rate != "-15%" || cfg.Synthesis.Volume != "+0%" || cfg.Synthesis.Pitch != "+0Hz" {
		t.Fatalf("unexpected default prosody: %+v", cfg.Synthesis)
	}
	if cfg.ConnectTimeout() != 10*time.Second || cfg.ReceiveTimeout() != 60*time.Second {
		t.Fatalf("unexpected default timeouts: %v / %v", cfg.ConnectTimeout(), cfg.ReceiveTimeout())
	}
	if cfg.Voices.LocalePrefix != "es-" {
		t.Fatalf("expected default locale prefix es-, got %q", cfg.Voices.LocalePrefix)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAPERVOICE_VOICE", "en-US-GuyNeural")
	t.Setenv("PAPERVOICE_RATE", "+5%")
	t.Setenv("PAPERVOICE_CONNECT_TIMEOUT_S", "3")
	t.Setenv("PAPERVOICE_HISTORY_ENABLED", "false")
	t.Setenv("PAPERVOICE_LOCALE_PREFIX", "en-")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.Voice != "en-US-GuyNeural" {
		t.Fatalf("expected voice override, got %q", cfg.Synthesis.Voice)
	}
	if cfg.Synthesis.Rate != "+5%" {
		t.Fatalf("expected rate override, got %q", cfg.Synthesis.Rate)
	}
	if cfg.Synthesis.ConnectTimeoutS != 3 {
		t.Fatalf("expected timeout override, got %d", cfg.Synthesis.ConnectTimeoutS)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled")
	}
	if cfg.Voices.LocalePrefix != "en-" {
		t.Fatalf("expected locale prefix override, got %q", cfg.Voices.LocalePrefix)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papervoice.yaml")
	yaml := `
synthesis:
  voice: es-ES-AlvaroNeural
  rate: "+10%"
  receive_timeout_s: 120
history:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.Voice != "es-ES-AlvaroNeural" {
		t.Fatalf("expected file voice, got %q", cfg.Synthesis.Voice)
	}
	if cfg.Synthesis.ReceiveTimeoutS != 120 {
		t.Fatalf("expected receive timeout 120, got %d", cfg.Synthesis.ReceiveTimeoutS)
	}
	// Untouched keys keep their defaults.
	if cfg.Synthesis.Volume != "+0%" {
		t.Fatalf("expected default volume, got %q", cfg.Synthesis.Volume)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("PAPERVOICE_SYNTHESIS_MODE", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown synthesis mode")
	}
}

func TestValidateExecRequiresCommand(t *testing.T) {
	t.Setenv("PAPERVOICE_SYNTHESIS_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when exec mode has no command")
	}
}
