// Package catalog defines the built-in provider and model tables and the
// registry builder that merges user-defined entries into them. Everything in
// this package is pure data and pure functions; credential state lives
// elsewhere.
package catalog

// AuthKind selects the credential scheme a provider expects.
type AuthKind string

const (
	AuthAPIKey AuthKind = "api-key"
	AuthOAuth  AuthKind = "oauth"
	AuthNone   AuthKind = "none"
)

// ProviderDefinition describes one upstream LLM service. Definitions are
// immutable; credential changes rebuild the derived structures wholesale
// instead of patching them.
type ProviderDefinition struct {
	ID      string
	Name    string
	BaseURL string
	Auth    AuthKind

	// OAuthCapable marks providers that accept an OAuth bearer token as an
	// alternative to an API key.
	OAuthCapable bool

	// OAuthTokenURL is the token refresh endpoint for OAuthCapable
	// providers.
	OAuthTokenURL string

	// OAuthClientID is the public client id used at OAuthTokenURL.
	OAuthClientID string

	// AltBillingURL is the endpoint used when the user opted into the
	// provider's subscription/coding-plan billing. Empty when unsupported.
	AltBillingURL string

	// IntlBaseURL is the international endpoint variant. Empty when the
	// provider has a single endpoint.
	IntlBaseURL string

	// APIKeyHeader overrides the default "Authorization: Bearer" scheme with
	// a dedicated header (e.g. x-api-key). Empty means bearer.
	APIKeyHeader string

	// Headers are extra static headers sent with every request.
	Headers map[string]string
}

// AltBillingCapable reports whether the provider has a subscription endpoint.
func (p ProviderDefinition) AltBillingCapable() bool { return p.AltBillingURL != "" }

// IntlCapable reports whether the provider has an international endpoint.
func (p ProviderDefinition) IntlCapable() bool { return p.IntlBaseURL != "" }

// builtinProviders is the authoring-time provider table. IDs are globally
// unique; custom definitions may override individual fields but never remove
// entries.
var builtinProviders = []ProviderDefinition{
	{
		ID:            "anthropic",
		Name:          "Anthropic",
		BaseURL:       "https://api.anthropic.com",
		Auth:          AuthAPIKey,
		OAuthCapable:  true,
		OAuthTokenURL: "https://console.anthropic.com/v1/oauth/token",
		OAuthClientID: "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
		APIKeyHeader:  "x-api-key",
		Headers:       map[string]string{"anthropic-version": "2023-06-01"},
	},
	{
		ID:      "openai",
		Name:    "OpenAI",
		BaseURL: "https://api.openai.com/v1",
		Auth:    AuthAPIKey,
	},
	{
		ID:      "google",
		Name:    "Google",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Auth:    AuthAPIKey,
	},
	{
		ID:      "openrouter",
		Name:    "OpenRouter",
		BaseURL: "https://openrouter.ai/api/v1",
		Auth:    AuthAPIKey,
	},
	{
		ID:          "deepseek",
		Name:        "DeepSeek",
		BaseURL:     "https://api.deepseek.com",
		Auth:        AuthAPIKey,
		IntlBaseURL: "https://api.deepseek.com",
	},
	{
		ID:            "moonshot",
		Name:          "Moonshot",
		BaseURL:       "https://api.moonshot.cn/v1",
		Auth:          AuthAPIKey,
		IntlBaseURL:   "https://api.moonshot.ai/v1",
		AltBillingURL: "https://api.moonshot.cn/anthropic",
	},
	{
		ID:            "zhipu",
		Name:          "Zhipu",
		BaseURL:       "https://open.bigmodel.cn/api/paas/v4",
		Auth:          AuthAPIKey,
		IntlBaseURL:   "https://api.z.ai/api/paas/v4",
		AltBillingURL: "https://open.bigmodel.cn/api/coding/paas/v4",
	},
	{
		ID:      "groq",
		Name:    "Groq",
		BaseURL: "https://api.groq.com/openai/v1",
		Auth:    AuthAPIKey,
	},
	{
		ID:      "xai",
		Name:    "xAI",
		BaseURL: "https://api.x.ai/v1",
		Auth:    AuthAPIKey,
	},
	{
		ID:      "ollama",
		Name:    "Ollama",
		BaseURL: "http://127.0.0.1:11434/v1",
		Auth:    AuthNone,
	},
}

// BuiltinProviders returns a copy of the built-in provider table.
func BuiltinProviders() []ProviderDefinition {
	out := make([]ProviderDefinition, len(builtinProviders))
	copy(out, builtinProviders)
	return out
}
