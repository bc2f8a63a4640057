// Package credential defines the volatile credential state the gateway is
// computed from, and the loaders that assemble it from external persistence.
package credential

import (
	"time"

	"golang.org/x/oauth2"
)

// EnabledSentinel is the secret value recorded for credential-less local
// providers that the user has switched on.
const EnabledSentinel = "enabled"

// OAuthBundle is one provider's OAuth token state as recorded at the last
// load or refresh.
type OAuthBundle struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	AccountID    string    `json:"accountId,omitempty"`
}

// Token converts the bundle into an oauth2 token.
func (b OAuthBundle) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		Expiry:       b.Expiry,
	}
}

// Usable reports whether the bundle currently authorizes requests. Expiry is
// checked against the clock on every call, so a bundle loaded before its
// expiry stops being usable the moment it lapses.
func (b OAuthBundle) Usable() bool {
	return b.AccessToken != "" && b.Token().Valid()
}

// Set is the full credential state for one availability computation. It is
// rebuilt wholesale on any change and never patched in place.
type Set struct {
	// APIKeys maps provider id to its secret, or EnabledSentinel for local
	// providers.
	APIKeys map[string]string

	// BaseURLs maps provider id to an explicit base URL override.
	BaseURLs map[string]string

	// AltBilling marks providers the user switched to subscription billing.
	AltBilling map[string]bool

	// Intl marks providers pinned to their international endpoint.
	Intl map[string]bool

	// OAuth maps provider id to its token bundle.
	OAuth map[string]OAuthBundle
}

// NewSet returns an empty, fully allocated credential set.
func NewSet() Set {
	return Set{
		APIKeys:    make(map[string]string),
		BaseURLs:   make(map[string]string),
		AltBilling: make(map[string]bool),
		Intl:       make(map[string]bool),
		OAuth:      make(map[string]OAuthBundle),
	}
}

// Clone returns a deep copy so snapshots never alias live maps.
func (s Set) Clone() Set {
	out := NewSet()
	for k, v := range s.APIKeys {
		out.APIKeys[k] = v
	}
	for k, v := range s.BaseURLs {
		out.BaseURLs[k] = v
	}
	for k, v := range s.AltBilling {
		out.AltBilling[k] = v
	}
	for k, v := range s.Intl {
		out.Intl[k] = v
	}
	for k, v := range s.OAuth {
		out.OAuth[k] = v
	}
	return out
}
