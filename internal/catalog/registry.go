package catalog

import (
	log "github.com/talkcody/modelgate/internal/logging"
)

// Registry maps provider id to its definition after custom entries have been
// merged over the built-in table.
type Registry map[string]ProviderDefinition

// CustomProvider is a user-authored provider entry. A zero field means "keep
// the built-in value" when the id collides with a built-in provider.
type CustomProvider struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	BaseURL       string            `json:"baseUrl,omitempty"`
	Auth          string            `json:"auth,omitempty"`
	APIKeyHeader  string            `json:"apiKeyHeader,omitempty"`
	AltBillingURL string            `json:"altBillingUrl,omitempty"`
	IntlBaseURL   string            `json:"intlBaseUrl,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// Build merges the built-in provider table with custom entries into a fresh
// registry. Pure and deterministic: same inputs, same output. Malformed custom
// entries are skipped with a warning, never fatal.
func Build(custom []CustomProvider) Registry {
	reg := make(Registry, len(builtinProviders)+len(custom))
	for _, p := range builtinProviders {
		reg[p.ID] = p
	}

	for _, c := range custom {
		if c.ID == "" {
			log.Warn("catalog: skipping custom provider without id")
			continue
		}
		base, exists := reg[c.ID]
		if !exists {
			if c.BaseURL == "" {
				log.Warnf("catalog: skipping custom provider %q: no base URL", c.ID)
				continue
			}
			base = ProviderDefinition{ID: c.ID, Name: c.ID, Auth: AuthAPIKey}
		}
		if c.Name != "" {
			base.Name = c.Name
		}
		if c.BaseURL != "" {
			base.BaseURL = c.BaseURL
		}
		if c.Auth != "" {
			switch AuthKind(c.Auth) {
			case AuthAPIKey, AuthOAuth, AuthNone:
				base.Auth = AuthKind(c.Auth)
			default:
				log.Warnf("catalog: custom provider %q has unknown auth kind %q, keeping %q", c.ID, c.Auth, base.Auth)
			}
		}
		if c.APIKeyHeader != "" {
			base.APIKeyHeader = c.APIKeyHeader
		}
		if c.AltBillingURL != "" {
			base.AltBillingURL = c.AltBillingURL
		}
		if c.IntlBaseURL != "" {
			base.IntlBaseURL = c.IntlBaseURL
		}
		if len(c.Headers) > 0 {
			headers := make(map[string]string, len(base.Headers)+len(c.Headers))
			for k, v := range base.Headers {
				headers[k] = v
			}
			for k, v := range c.Headers {
				headers[k] = v
			}
			base.Headers = headers
		}
		reg[c.ID] = base
	}

	return reg
}

// MergeModels overlays custom model descriptors on the built-in table. A
// custom descriptor with a colliding key replaces the built-in entry
// wholesale; order is built-ins first, then custom entries in input order.
func MergeModels(custom []ModelDescriptor) []ModelDescriptor {
	models := make([]ModelDescriptor, 0, len(builtinModels)+len(custom))
	replaced := make(map[string]int, len(custom))

	for _, m := range builtinModels {
		replaced[m.Key] = len(models)
		models = append(models, m)
	}
	for _, m := range custom {
		if m.Key == "" || len(m.Providers) == 0 {
			log.Warnf("catalog: skipping custom model %q: missing key or providers", m.Key)
			continue
		}
		if idx, ok := replaced[m.Key]; ok {
			models[idx] = m
			continue
		}
		replaced[m.Key] = len(models)
		models = append(models, m)
	}
	return models
}

// FindModel returns the descriptor for key, searching built-ins merged with
// custom entries.
func FindModel(models []ModelDescriptor, key string) (ModelDescriptor, bool) {
	for _, m := range models {
		if m.Key == key {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}
