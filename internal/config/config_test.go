package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	def := NewDefaultConfig()
	if cfg.EngineURL != def.EngineURL || cfg.SettingsDB != def.SettingsDB {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine-url: ws://example:9000/engine\ndebug: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.EngineURL != "ws://example:9000/engine" {
		t.Errorf("EngineURL = %q", cfg.EngineURL)
	}
	if !cfg.Debug {
		t.Error("Debug not applied")
	}
	// Keys the file omits keep their defaults.
	if cfg.SettingsDB != NewDefaultConfig().SettingsDB {
		t.Errorf("SettingsDB = %q, default lost", cfg.SettingsDB)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := NewDefaultConfig()
	cfg.EngineURL = "ws://saved:1234/engine"
	cfg.WatchFiles = false

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.EngineURL != cfg.EngineURL || loaded.WatchFiles != cfg.WatchFiles {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
