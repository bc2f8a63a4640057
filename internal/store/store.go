// Package store is the long-lived orchestrator tying persistence, the
// provider catalog, and the streaming client together. It holds one immutable
// availability snapshot at a time; every reload builds a complete replacement
// and swaps it in atomically, so readers never observe a half-updated view.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/bus"
	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/credential"
	"github.com/talkcody/modelgate/internal/gateway"
	"github.com/talkcody/modelgate/internal/json"
	"github.com/talkcody/modelgate/internal/stream"
)

// Options wires a Store from its collaborators. Bus and Settings are
// required; the rest degrade to empty data when absent.
type Options struct {
	Bus          bus.Bus
	Settings     credential.Settings
	CustomModels *credential.CustomModelStore
	OAuth        map[string]credential.OAuthStore

	// WatchPaths lists files whose changes trigger an automatic refresh.
	WatchPaths []string
}

// snapshot is one immutable availability view. All fields are derived
// together from a single credential load; partial mutation never happens.
type snapshot struct {
	creds     credential.Set
	registry  catalog.Registry
	models    []catalog.ModelDescriptor
	factories map[string]gateway.ResolveFn
	available []gateway.AvailableModel
}

// Store owns the credential snapshot and answers model-availability queries.
// Reads are lock-cheap; reloads are coalesced so a burst of refresh triggers
// performs one load.
type Store struct {
	loader   *credential.Loader
	settings credential.Settings
	custom   *credential.CustomModelStore
	client   *stream.Client

	group singleflight.Group

	mu   sync.RWMutex
	snap *snapshot

	watcher *credential.Watcher
}

// New assembles a Store. Call Initialize before querying availability.
func New(opts Options) *Store {
	s := &Store{
		loader: &credential.Loader{
			Settings:     opts.Settings,
			CustomModels: opts.CustomModels,
			OAuth:        opts.OAuth,
		},
		settings: opts.Settings,
		custom:   opts.CustomModels,
		client:   stream.NewClient(opts.Bus),
		snap: &snapshot{
			creds:     credential.NewSet(),
			registry:  catalog.Registry{},
			factories: map[string]gateway.ResolveFn{},
		},
	}
	if len(opts.WatchPaths) > 0 {
		s.watcher = credential.NewWatcher(func() {
			if err := s.Refresh(context.Background()); err != nil {
				log.WithError(err).Warn("store: watch-triggered refresh failed")
			}
		}, opts.WatchPaths...)
	}
	return s
}

// Initialize performs the first credential load and, when watch paths were
// given, starts the file watcher. Concurrent calls share one load.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			log.WithError(err).Warn("store: file watching unavailable")
			s.watcher = nil
		}
	}
	return nil
}

// Refresh rebuilds the snapshot from all persistence sources and swaps it in
// atomically. Concurrent callers are coalesced into a single load; each
// individual source that fails degrades to empty data rather than failing
// the refresh.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("reload", func() (any, error) {
		res, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}

		next := &snapshot{
			creds:     res.Credentials,
			registry:  res.Registry,
			models:    res.Models,
			factories: gateway.CreateProviders(res.Credentials, res.Registry, res.Models),
			available: gateway.ComputeAvailableModels(res.Credentials, res.Registry, res.Models),
		}

		s.mu.Lock()
		s.snap = next
		s.mu.Unlock()

		log.WithFields(log.Fields{
			"providers": len(next.factories),
			"models":    len(next.available),
		}).Debug("store: snapshot refreshed")
		return nil, nil
	})
	return err
}

// Close stops background work. The settings database is owned by the caller
// and stays open.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// AvailableModels returns the current (model, provider) pairings in their
// deterministic computed order. The returned slice is the caller's to keep.
func (s *Store) AvailableModels() []gateway.AvailableModel {
	snap := s.snapshot()
	out := make([]gateway.AvailableModel, len(snap.available))
	copy(out, snap.available)
	return out
}

// IsModelAvailable reports whether the identifier (optionally
// "key@provider") resolves to at least one usable provider right now.
func (s *Store) IsModelAvailable(identifier string) bool {
	return s.GetBestProviderForModel(identifier) != ""
}

// GetBestProviderForModel returns the provider that would serve the
// identifier, or "" when none is usable.
func (s *Store) GetBestProviderForModel(identifier string) string {
	snap := s.snapshot()
	return gateway.BestProviderFor(identifier, snap.creds, snap.registry, snap.models)
}

// GetAvailableModel returns the pairing that would serve the identifier.
// With an empty identifier, or one that resolves to nothing, it falls back
// to the cheapest available model by input price, so callers always get a
// sensible default when anything at all is usable.
func (s *Store) GetAvailableModel(identifier string) (gateway.AvailableModel, bool) {
	snap := s.snapshot()

	if identifier != "" {
		key, _ := gateway.SplitModelKey(identifier)
		provider := gateway.BestProviderFor(identifier, snap.creds, snap.registry, snap.models)
		if provider != "" {
			for _, am := range snap.available {
				if am.Key == key && am.ProviderID == provider {
					return am, true
				}
			}
		}
	}

	if len(snap.available) == 0 {
		return gateway.AvailableModel{}, false
	}
	cheapest := snap.available[0]
	for _, am := range snap.available[1:] {
		if am.Pricing.Input < cheapest.Pricing.Input {
			cheapest = am
		}
	}
	return cheapest, true
}

// GetProviderModel resolves an identifier into a callable handle. A missing
// usable provider is a configuration error; a usable provider without a
// constructed factory is an internal invariant violation, reported
// distinctly.
func (s *Store) GetProviderModel(identifier string) (gateway.CallableModel, error) {
	snap := s.snapshot()

	key, _ := gateway.SplitModelKey(identifier)
	provider := gateway.BestProviderFor(identifier, snap.creds, snap.registry, snap.models)
	if provider == "" {
		return gateway.CallableModel{}, fmt.Errorf("%w: %s", gateway.ErrNoProvider, identifier)
	}

	resolve, ok := snap.factories[provider]
	if !ok {
		return gateway.CallableModel{}, fmt.Errorf("%w: %s", gateway.ErrProviderNotConstructed, provider)
	}
	return resolve(key), nil
}

// StreamText resolves the request's model and opens the event stream for it.
func (s *Store) StreamText(ctx context.Context, req stream.Request) (*stream.Stream, error) {
	model, err := s.GetProviderModel(req.Model)
	if err != nil {
		return nil, err
	}
	return s.client.StreamText(ctx, req, model)
}

// CollectText resolves the request's model and drains the full response.
func (s *Store) CollectText(ctx context.Context, req stream.Request) (*stream.TextResult, error) {
	model, err := s.GetProviderModel(req.Model)
	if err != nil {
		return nil, err
	}
	return s.client.CollectText(ctx, req, model)
}

// SetAPIKey stores or, with an empty key, removes a provider's API key, then
// refreshes. Use credential.EnabledSentinel for providers that need no real
// secret.
func (s *Store) SetAPIKey(ctx context.Context, providerID, key string) error {
	if err := s.setOrDelete(ctx, credential.APIKeyKey(providerID), key); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SetBaseURL stores or clears a provider's base URL override, then
// refreshes.
func (s *Store) SetBaseURL(ctx context.Context, providerID, baseURL string) error {
	if err := s.setOrDelete(ctx, credential.BaseURLKey(providerID), baseURL); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SetAltBilling toggles a provider onto its subscription billing endpoint.
func (s *Store) SetAltBilling(ctx context.Context, providerID string, enabled bool) error {
	if err := s.setFlag(ctx, credential.AltBillingKey(providerID), enabled); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SetIntlEndpoint pins a provider to its international endpoint.
func (s *Store) SetIntlEndpoint(ctx context.Context, providerID string, enabled bool) error {
	if err := s.setFlag(ctx, credential.IntlKey(providerID), enabled); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *Store) setOrDelete(ctx context.Context, key, value string) error {
	if value == "" {
		return s.settings.Delete(ctx, key)
	}
	return s.settings.Set(ctx, key, value)
}

func (s *Store) setFlag(ctx context.Context, key string, enabled bool) error {
	if !enabled {
		return s.settings.Delete(ctx, key)
	}
	return s.settings.Set(ctx, key, "true")
}

// AddCustomProvider appends a provider definition to the stored custom
// provider document. Duplicate ids are rejected.
func (s *Store) AddCustomProvider(ctx context.Context, p catalog.CustomProvider) error {
	return s.mutateCustomProviders(ctx, func(list []catalog.CustomProvider) ([]catalog.CustomProvider, error) {
		for _, existing := range list {
			if existing.ID == p.ID {
				return nil, fmt.Errorf("store: custom provider %q already exists", p.ID)
			}
		}
		return append(list, p), nil
	})
}

// UpdateCustomProvider replaces the stored definition with the same id.
func (s *Store) UpdateCustomProvider(ctx context.Context, p catalog.CustomProvider) error {
	return s.mutateCustomProviders(ctx, func(list []catalog.CustomProvider) ([]catalog.CustomProvider, error) {
		for i, existing := range list {
			if existing.ID == p.ID {
				list[i] = p
				return list, nil
			}
		}
		return nil, fmt.Errorf("store: custom provider %q not found", p.ID)
	})
}

// RemoveCustomProvider deletes the stored definition. Removing an id that is
// not present is a no-op.
func (s *Store) RemoveCustomProvider(ctx context.Context, id string) error {
	return s.mutateCustomProviders(ctx, func(list []catalog.CustomProvider) ([]catalog.CustomProvider, error) {
		out := list[:0]
		for _, existing := range list {
			if existing.ID != id {
				out = append(out, existing)
			}
		}
		return out, nil
	})
}

func (s *Store) mutateCustomProviders(ctx context.Context, mutate func([]catalog.CustomProvider) ([]catalog.CustomProvider, error)) error {
	raw, ok, err := s.settings.Get(ctx, credential.KeyCustomProviders)
	if err != nil {
		return fmt.Errorf("store: read custom providers: %w", err)
	}

	var list []catalog.CustomProvider
	if ok && raw != "" {
		list, err = catalog.ParseCustomProviders([]byte(raw))
		if err != nil {
			// A corrupt document is replaced rather than blocking every
			// future edit.
			log.WithError(err).Warn("store: discarding unparseable custom provider document")
			list = nil
		}
	}

	list, err = mutate(list)
	if err != nil {
		return err
	}

	// Stable order keeps the stored document diffable.
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	encoded, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("store: encode custom providers: %w", err)
	}
	if err := s.settings.Set(ctx, credential.KeyCustomProviders, string(encoded)); err != nil {
		return fmt.Errorf("store: write custom providers: %w", err)
	}
	return s.Refresh(ctx)
}

// AddCustomModel writes a model descriptor to the custom model file,
// replacing any existing descriptor with the same key, then refreshes.
func (s *Store) AddCustomModel(ctx context.Context, model catalog.ModelDescriptor) error {
	if s.custom == nil {
		return fmt.Errorf("store: no custom model file configured")
	}
	if err := s.custom.Add(model); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// RemoveCustomModel deletes a descriptor from the custom model file, then
// refreshes.
func (s *Store) RemoveCustomModel(ctx context.Context, key string) error {
	if s.custom == nil {
		return fmt.Errorf("store: no custom model file configured")
	}
	if err := s.custom.Remove(key); err != nil {
		return err
	}
	return s.Refresh(ctx)
}
