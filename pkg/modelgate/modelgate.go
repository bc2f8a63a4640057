// Package modelgate provides the public API for embedding modelgate as a
// library. It wraps the internal packages with a stable, minimal surface:
// configuration, the gateway lifecycle, and the streaming request types.
package modelgate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/bus"
	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/config"
	"github.com/talkcody/modelgate/internal/credential"
	"github.com/talkcody/modelgate/internal/gateway"
	"github.com/talkcody/modelgate/internal/store"
	"github.com/talkcody/modelgate/internal/stream"
)

// Config is the application configuration.
type Config = config.Config

// Request is one streaming text-generation request.
type Request = stream.Request

// Message is one conversation turn.
type Message = stream.Message

// Tool declares a callable tool schema.
type Tool = stream.Tool

// Message roles.
const (
	RoleSystem    = stream.RoleSystem
	RoleUser      = stream.RoleUser
	RoleAssistant = stream.RoleAssistant
	RoleTool      = stream.RoleTool
)

// Stream is the consumable side of an in-flight request.
type Stream = stream.Stream

// Event is one normalized stream event.
type Event = stream.Event

// TextResult is the outcome of a fully drained stream.
type TextResult = stream.TextResult

// AvailableModel is one queryable (model, provider) pairing.
type AvailableModel = gateway.AvailableModel

// CallableModel is a resolved per-request handle.
type CallableModel = gateway.CallableModel

// ModelDescriptor describes a logical model and its providers.
type ModelDescriptor = catalog.ModelDescriptor

// CustomProvider is a user-defined provider definition.
type CustomProvider = catalog.CustomProvider

// NewConfig returns the default configuration rooted in the XDG data
// directory.
func NewConfig() *Config {
	return config.NewDefaultConfig()
}

// LoadConfig reads a configuration file, falling back to the defaults when
// the file does not exist.
func LoadConfig(path string) (*Config, error) {
	return config.LoadConfig(path)
}

// Gateway is an opened modelgate instance: a connected engine bus, the
// credential persistence behind it, and the availability store on top.
type Gateway struct {
	*store.Store

	settings *credential.SQLiteSettings
	engine   *bus.WSBus
}

// Open connects to the engine, opens the persistence layer described by cfg,
// and performs the initial credential load. The returned Gateway must be
// closed.
func Open(ctx context.Context, cfg *Config) (*Gateway, error) {
	if cfg.LogFile != "" {
		if err := log.ConfigureFileOutput(cfg.LogFile); err != nil {
			return nil, fmt.Errorf("modelgate: log file: %w", err)
		}
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SettingsDB), 0o700); err != nil {
		return nil, fmt.Errorf("modelgate: data dir: %w", err)
	}

	settings, err := credential.OpenSQLiteSettings(cfg.SettingsDB)
	if err != nil {
		return nil, err
	}

	engine, err := bus.Dial(ctx, cfg.EngineURL)
	if err != nil {
		settings.Close()
		return nil, err
	}

	oauthStores := make(map[string]credential.OAuthStore)
	for id, def := range catalog.Build(nil) {
		if def.OAuthCapable {
			oauthStores[id] = credential.NewFileOAuthStore(id, cfg.AuthDir, def.OAuthTokenURL, def.OAuthClientID)
		}
	}

	var watch []string
	if cfg.WatchFiles {
		watch = append(watch, cfg.CustomModelsFile)
		for id := range oauthStores {
			watch = append(watch, filepath.Join(cfg.AuthDir, id+".json"))
		}
	}

	s := store.New(store.Options{
		Bus:          engine,
		Settings:     settings,
		CustomModels: credential.NewCustomModelStore(cfg.CustomModelsFile),
		OAuth:        oauthStores,
		WatchPaths:   watch,
	})
	if err := s.Initialize(ctx); err != nil {
		engine.Close()
		settings.Close()
		return nil, err
	}

	return &Gateway{Store: s, settings: settings, engine: engine}, nil
}

// Close releases the bus connection, the watcher, and the settings database.
func (g *Gateway) Close() error {
	g.Store.Close()
	err := g.engine.Close()
	if cerr := g.settings.Close(); err == nil {
		err = cerr
	}
	return err
}
