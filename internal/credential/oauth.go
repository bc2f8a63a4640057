package credential

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/json"
)

// OAuthStore yields the current token bundle for one OAuth-capable provider.
// Implementations may refresh behind the scenes; callers treat the returned
// bundle as a point-in-time snapshot.
type OAuthStore interface {
	Bundle(ctx context.Context) (*OAuthBundle, error)
}

// FileOAuthStore reads a provider's token bundle from <authDir>/<provider>.json
// and refreshes it against the provider token endpoint when it has lapsed and
// a refresh token is present.
type FileOAuthStore struct {
	provider string
	path     string
	tokenURL string
	clientID string
	client   *http.Client
}

// NewFileOAuthStore builds a store for provider rooted at authDir. tokenURL
// may be empty, which disables refresh; expired bundles are then surfaced
// as-is and usability checks reject them.
func NewFileOAuthStore(provider, authDir, tokenURL, clientID string) *FileOAuthStore {
	return &FileOAuthStore{
		provider: provider,
		path:     filepath.Join(authDir, provider+".json"),
		tokenURL: tokenURL,
		clientID: clientID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Bundle returns the current token, refreshing first when possible.
func (s *FileOAuthStore) Bundle(ctx context.Context) (*OAuthBundle, error) {
	bundle, err := s.read()
	if err != nil || bundle == nil {
		return bundle, err
	}

	if bundle.Usable() || bundle.RefreshToken == "" || s.tokenURL == "" {
		return bundle, nil
	}

	refreshed, err := s.refresh(ctx, bundle)
	if err != nil {
		// The stale bundle is still returned; usability checks downstream
		// will reject it if the expiry has lapsed.
		log.WithError(err).Warnf("oauth: refresh failed for provider %s", s.provider)
		return bundle, nil
	}
	return refreshed, nil
}

func (s *FileOAuthStore) read() (*OAuthBundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("oauth: read %s: %w", s.path, err)
	}
	var bundle OAuthBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("oauth: parse %s: %w", s.path, err)
	}
	if bundle.AccessToken == "" {
		return nil, nil
	}
	return &bundle, nil
}

func (s *FileOAuthStore) refresh(ctx context.Context, stale *OAuthBundle) (*OAuthBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {stale.RefreshToken},
	}
	if s.clientID != "" {
		form.Set("client_id", s.clientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth: token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oauth: decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("oauth: token response missing access_token")
	}

	fresh := &OAuthBundle{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		AccountID:    stale.AccountID,
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stale.RefreshToken
	}
	if body.ExpiresIn > 0 {
		fresh.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}

	if err := s.write(fresh); err != nil {
		log.WithError(err).Warnf("oauth: persisting refreshed token for %s failed", s.provider)
	}
	return fresh, nil
}

func (s *FileOAuthStore) write(bundle *OAuthBundle) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// StaticOAuthStore returns a fixed bundle. Used by tests and by embedders
// that manage tokens themselves.
type StaticOAuthStore struct {
	Value *OAuthBundle
}

func (s StaticOAuthStore) Bundle(context.Context) (*OAuthBundle, error) {
	return s.Value, nil
}
