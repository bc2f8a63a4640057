// Package config loads the modelgate configuration file and resolves the
// default data directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration persisted as YAML.
type Config struct {
	// EngineURL is the websocket endpoint of the remote engine bus.
	EngineURL string `yaml:"engine-url"`

	// SettingsDB is the path of the sqlite settings database.
	SettingsDB string `yaml:"settings-db"`

	// CustomModelsFile is the path of the custom model JSON document.
	CustomModelsFile string `yaml:"custom-models-file"`

	// AuthDir holds per-provider OAuth token files (<provider>.json).
	AuthDir string `yaml:"auth-dir"`

	// LogFile enables rotated file logging when non-empty.
	LogFile string `yaml:"log-file"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	// WatchFiles enables fsnotify-driven auto refresh on credential changes.
	WatchFiles bool `yaml:"watch-files"`
}

// DataDir returns the modelgate data directory following the XDG spec:
// $XDG_CONFIG_HOME/modelgate if set, otherwise ~/.config/modelgate.
func DataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "modelgate")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "modelgate")
	}
	return ""
}

// NewDefaultConfig returns a configuration rooted in DataDir.
func NewDefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		EngineURL:        "ws://127.0.0.1:8790/engine",
		SettingsDB:       filepath.Join(dir, "settings.db"),
		CustomModelsFile: filepath.Join(dir, "custom-models.json"),
		AuthDir:          filepath.Join(dir, "auth"),
		WatchFiles:       true,
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration back to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
