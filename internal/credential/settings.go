package credential

import "context"

// Settings is the key-value persistence boundary owned by an external
// settings service. The gateway only reads and writes through it; storage
// mechanics are not its concern.
type Settings interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Settings key layout. Everything the loader reads lives under one of these
// prefixes, or the custom provider document key.
const (
	KeyCustomProviders = "custom_providers"

	apiKeyPrefix     = "api_key."
	baseURLPrefix    = "base_url."
	altBillingPrefix = "alt_billing."
	intlPrefix       = "intl_endpoint."
)

func APIKeyKey(providerID string) string     { return apiKeyPrefix + providerID }
func BaseURLKey(providerID string) string    { return baseURLPrefix + providerID }
func AltBillingKey(providerID string) string { return altBillingPrefix + providerID }
func IntlKey(providerID string) string       { return intlPrefix + providerID }
