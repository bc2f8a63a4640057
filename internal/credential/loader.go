package credential

import (
	"context"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/catalog"
)

// Loader assembles a credential Set plus the custom catalog entries from the
// injected persistence collaborators. Every source degrades independently: a
// failing source logs a warning and contributes empty data instead of
// failing the whole load.
type Loader struct {
	Settings     Settings
	CustomModels *CustomModelStore
	OAuth        map[string]OAuthStore
}

// LoadResult is one consistent snapshot of everything the availability
// computation consumes.
type LoadResult struct {
	Credentials     Set
	CustomProviders []catalog.CustomProvider
	CustomModels    []catalog.ModelDescriptor
	Registry        catalog.Registry
	Models          []catalog.ModelDescriptor
}

// Load reads all sources. The returned error is always nil today; it is kept
// in the signature so callers treat loading as fallible I/O.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	res := &LoadResult{Credentials: NewSet()}

	res.CustomProviders = l.loadCustomProviders(ctx)
	res.Registry = catalog.Build(res.CustomProviders)

	res.CustomModels = l.loadCustomModels()
	res.Models = catalog.MergeModels(res.CustomModels)

	l.loadSecrets(ctx, res)
	l.loadOAuth(ctx, res)

	return res, nil
}

func (l *Loader) loadCustomProviders(ctx context.Context) []catalog.CustomProvider {
	raw, ok, err := l.Settings.Get(ctx, KeyCustomProviders)
	if err != nil {
		log.WithError(err).Warn("loader: reading custom providers failed, continuing without them")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	providers, err := catalog.ParseCustomProviders([]byte(raw))
	if err != nil {
		log.WithError(err).Warn("loader: custom provider document is malformed, continuing without it")
		return nil
	}
	return providers
}

func (l *Loader) loadCustomModels() []catalog.ModelDescriptor {
	if l.CustomModels == nil {
		return nil
	}
	models, err := l.CustomModels.Load()
	if err != nil {
		log.WithError(err).Warn("loader: reading custom models failed, continuing without them")
		return nil
	}
	return models
}

// loadSecrets batch-reads the per-provider keys for every registry entry.
func (l *Loader) loadSecrets(ctx context.Context, res *LoadResult) {
	keys := make([]string, 0, len(res.Registry)*4)
	for id := range res.Registry {
		keys = append(keys,
			APIKeyKey(id),
			BaseURLKey(id),
			AltBillingKey(id),
			IntlKey(id),
		)
	}

	values, err := l.Settings.GetMany(ctx, keys)
	if err != nil {
		log.WithError(err).Warn("loader: batched settings read failed, treating all providers as keyless")
		return
	}

	for id := range res.Registry {
		if v := values[APIKeyKey(id)]; v != "" {
			res.Credentials.APIKeys[id] = v
		}
		if v := values[BaseURLKey(id)]; v != "" {
			res.Credentials.BaseURLs[id] = v
		}
		if values[AltBillingKey(id)] == "true" {
			res.Credentials.AltBilling[id] = true
		}
		if values[IntlKey(id)] == "true" {
			res.Credentials.Intl[id] = true
		}
	}
}

func (l *Loader) loadOAuth(ctx context.Context, res *LoadResult) {
	for id, store := range l.OAuth {
		def, ok := res.Registry[id]
		if !ok || !def.OAuthCapable {
			continue
		}
		bundle, err := store.Bundle(ctx)
		if err != nil {
			log.WithError(err).Warnf("loader: oauth load failed for provider %s, skipping", id)
			continue
		}
		if bundle == nil {
			continue
		}
		res.Credentials.OAuth[id] = *bundle
	}
}
