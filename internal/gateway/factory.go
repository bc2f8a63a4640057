package gateway

import (
	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/credential"
)

// AuthStrategy tags how a request to a provider is authorized. Dispatch is a
// single switch over this tag; providers never get their own types.
type AuthStrategy int

const (
	AuthStrategyNone AuthStrategy = iota
	AuthStrategyBearer
	AuthStrategyAPIKeyHeader
	AuthStrategyOAuthBearer
)

func (s AuthStrategy) String() string {
	switch s {
	case AuthStrategyBearer:
		return "bearer"
	case AuthStrategyAPIKeyHeader:
		return "api-key-header"
	case AuthStrategyOAuthBearer:
		return "oauth-bearer"
	default:
		return "none"
	}
}

// CallableModel is a fully resolved model handle: everything the remote
// engine needs to place a request against one provider.
type CallableModel struct {
	ProviderID   string            `json:"providerId"`
	ModelKey     string            `json:"modelKey"`
	UpstreamName string            `json:"upstreamName"`
	BaseURL      string            `json:"baseUrl"`
	Strategy     AuthStrategy      `json:"-"`
	StrategyName string            `json:"authStrategy"`
	Secret       string            `json:"secret,omitempty"`
	AccountID    string            `json:"accountId,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// ResolveFn resolves a model name into a callable handle for one provider.
type ResolveFn func(modelKey string) CallableModel

// Usable reports whether the provider currently has a working credential:
// a present secret, a non-expired OAuth token, or no credential requirement
// at all. OAuth expiry is evaluated against the clock on every call.
func Usable(def catalog.ProviderDefinition, creds credential.Set) bool {
	if def.Auth == catalog.AuthNone {
		return true
	}
	if creds.APIKeys[def.ID] != "" {
		return true
	}
	if def.OAuthCapable && creds.OAuth[def.ID].Usable() {
		return true
	}
	return false
}

// resolveBaseURL applies the fixed precedence: explicit override, then the
// international variant when flagged, then the alt-billing endpoint when
// flagged, then the default.
func resolveBaseURL(def catalog.ProviderDefinition, creds credential.Set) string {
	if override := creds.BaseURLs[def.ID]; override != "" {
		return override
	}
	if creds.Intl[def.ID] && def.IntlBaseURL != "" {
		return def.IntlBaseURL
	}
	if creds.AltBilling[def.ID] && def.AltBillingURL != "" {
		return def.AltBillingURL
	}
	return def.BaseURL
}

// resolveAuth picks the strategy and secret for one provider from the
// credential set. OAuth wins over an API key when both are present and the
// token is live.
func resolveAuth(def catalog.ProviderDefinition, creds credential.Set) (AuthStrategy, string, string) {
	if def.Auth == catalog.AuthNone {
		return AuthStrategyNone, "", ""
	}
	if def.OAuthCapable {
		if bundle := creds.OAuth[def.ID]; bundle.Usable() {
			return AuthStrategyOAuthBearer, bundle.AccessToken, bundle.AccountID
		}
	}
	secret := creds.APIKeys[def.ID]
	if def.APIKeyHeader != "" {
		return AuthStrategyAPIKeyHeader, secret, ""
	}
	return AuthStrategyBearer, secret, ""
}

// CreateProviders builds one resolver per usable provider. A provider absent
// from the returned map is unavailable, not an error. The resolvers close
// over state captured here; a credential change rebuilds the whole map.
func CreateProviders(creds credential.Set, registry catalog.Registry, models []catalog.ModelDescriptor) map[string]ResolveFn {
	factories := make(map[string]ResolveFn, len(registry))

	for id, def := range registry {
		if !Usable(def, creds) {
			continue
		}

		def := def
		baseURL := resolveBaseURL(def, creds)
		strategy, secret, accountID := resolveAuth(def, creds)

		factories[id] = func(modelKey string) CallableModel {
			upstream := modelKey
			if desc, ok := catalog.FindModel(models, modelKey); ok {
				upstream = desc.UpstreamName(def.ID)
			}
			return CallableModel{
				ProviderID:   def.ID,
				ModelKey:     modelKey,
				UpstreamName: upstream,
				BaseURL:      baseURL,
				Strategy:     strategy,
				StrategyName: strategy.String(),
				Secret:       secret,
				AccountID:    accountID,
				Headers:      def.Headers,
			}
		}
	}

	return factories
}
