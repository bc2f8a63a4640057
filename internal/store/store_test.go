package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/talkcody/modelgate/internal/bus"
	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/credential"
	"github.com/talkcody/modelgate/internal/gateway"
	"github.com/talkcody/modelgate/internal/json"
	"github.com/talkcody/modelgate/internal/stream"
)

// memSettings is an in-memory credential.Settings. getManyGate, when set,
// blocks GetMany until released so coalescing can be observed.
type memSettings struct {
	mu          sync.Mutex
	values      map[string]string
	getManyN    int
	getManyGate chan struct{}
}

func newMemSettings() *memSettings {
	return &memSettings{values: map[string]string{}}
}

func (m *memSettings) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	m.getManyN++
	gate := m.getManyGate
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return out, nil
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memSettings) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func newTestStore(t *testing.T, settings *memSettings) (*Store, *bus.MemBus) {
	t.Helper()
	b := bus.NewMemBus()
	s := New(Options{
		Bus:          b,
		Settings:     settings,
		CustomModels: credential.NewCustomModelStore(filepath.Join(t.TempDir(), "custom_models.jsonc")),
	})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, b
}

func hasPairing(list []gateway.AvailableModel, key, provider string) bool {
	for _, am := range list {
		if am.Key == key && am.ProviderID == provider {
			return true
		}
	}
	return false
}

func TestInitializeBuildsSnapshot(t *testing.T) {
	settings := newMemSettings()
	settings.values[credential.APIKeyKey("openai")] = "sk-test"

	s, _ := newTestStore(t, settings)

	models := s.AvailableModels()
	if !hasPairing(models, "gpt-5", "openai") {
		t.Error("gpt-5@openai missing despite stored key")
	}
	if hasPairing(models, "claude-sonnet-4-5", "anthropic") {
		t.Error("anthropic pairing present without any anthropic credential")
	}
	// Local providers need no credential at all.
	if !hasPairing(models, "llama-3.3-70b", "ollama") {
		t.Error("credential-free local provider pairing missing")
	}

	if !s.IsModelAvailable("gpt-5") {
		t.Error("IsModelAvailable(gpt-5) = false")
	}
	if s.IsModelAvailable("claude-sonnet-4-5") {
		t.Error("IsModelAvailable(claude-sonnet-4-5) = true without credential")
	}
	if got := s.GetBestProviderForModel("gpt-5"); got != "openai" {
		t.Errorf("best provider = %q, want openai", got)
	}
}

func TestGetProviderModelErrors(t *testing.T) {
	s, _ := newTestStore(t, newMemSettings())

	_, err := s.GetProviderModel("gpt-5")
	if !errors.Is(err, gateway.ErrNoProvider) {
		t.Errorf("err = %v, want no-provider", err)
	}
	if errors.Is(err, gateway.ErrProviderNotConstructed) {
		t.Error("configuration error must not match the internal sentinel")
	}

	_, err = s.GetProviderModel("gpt-5@openai")
	if !errors.Is(err, gateway.ErrNoProvider) {
		t.Errorf("explicit suffix on unusable provider: err = %v", err)
	}
}

func TestGetProviderModelResolvesHandle(t *testing.T) {
	settings := newMemSettings()
	settings.values[credential.APIKeyKey("groq")] = "gsk-test"

	s, _ := newTestStore(t, settings)

	handle, err := s.GetProviderModel("kimi-k2@groq")
	if err != nil {
		t.Fatalf("GetProviderModel failed: %v", err)
	}
	if handle.ProviderID != "groq" {
		t.Errorf("ProviderID = %q", handle.ProviderID)
	}
	if handle.UpstreamName != "moonshotai/kimi-k2-instruct" {
		t.Errorf("UpstreamName = %q, remap not applied", handle.UpstreamName)
	}
	if handle.Secret != "gsk-test" {
		t.Errorf("Secret = %q", handle.Secret)
	}
}

func TestSetAPIKeyFlipsAvailability(t *testing.T) {
	settings := newMemSettings()
	s, _ := newTestStore(t, settings)
	ctx := context.Background()

	if s.IsModelAvailable("gpt-5") {
		t.Fatal("gpt-5 available before any key stored")
	}

	if err := s.SetAPIKey(ctx, "openai", "sk-new"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if !s.IsModelAvailable("gpt-5") {
		t.Error("stored key did not take effect without an explicit refresh")
	}

	// Empty key removes the credential.
	if err := s.SetAPIKey(ctx, "openai", ""); err != nil {
		t.Fatalf("SetAPIKey(remove) failed: %v", err)
	}
	if s.IsModelAvailable("gpt-5") {
		t.Error("removed key still usable")
	}
	if _, ok := settings.values[credential.APIKeyKey("openai")]; ok {
		t.Error("empty key stored instead of deleted")
	}
}

func TestCustomProviderLifecycle(t *testing.T) {
	settings := newMemSettings()
	s, _ := newTestStore(t, settings)
	ctx := context.Background()

	p := catalog.CustomProvider{
		ID:      "localai",
		Name:    "LocalAI",
		BaseURL: "http://localhost:8080/v1",
		Auth:    "none",
	}
	if err := s.AddCustomProvider(ctx, p); err != nil {
		t.Fatalf("AddCustomProvider failed: %v", err)
	}
	if err := s.AddCustomProvider(ctx, p); err == nil {
		t.Error("duplicate id accepted")
	}

	// A custom model routed through the new provider becomes available
	// immediately: auth "none" needs no credential.
	if err := s.AddCustomModel(ctx, catalog.ModelDescriptor{
		Key:       "phi-4",
		Name:      "Phi 4",
		Providers: []string{"localai"},
	}); err != nil {
		t.Fatalf("AddCustomModel failed: %v", err)
	}
	if !s.IsModelAvailable("phi-4") {
		t.Error("custom model on custom provider not available")
	}

	p.BaseURL = "http://localhost:9090/v1"
	if err := s.UpdateCustomProvider(ctx, p); err != nil {
		t.Fatalf("UpdateCustomProvider failed: %v", err)
	}
	handle, err := s.GetProviderModel("phi-4")
	if err != nil {
		t.Fatalf("GetProviderModel failed: %v", err)
	}
	if handle.BaseURL != "http://localhost:9090/v1" {
		t.Errorf("BaseURL = %q, update not applied", handle.BaseURL)
	}

	if err := s.UpdateCustomProvider(ctx, catalog.CustomProvider{ID: "ghost"}); err == nil {
		t.Error("update of unknown id accepted")
	}

	if err := s.RemoveCustomProvider(ctx, "localai"); err != nil {
		t.Fatalf("RemoveCustomProvider failed: %v", err)
	}
	if s.IsModelAvailable("phi-4") {
		t.Error("model still available after its provider was removed")
	}
	// Idempotent.
	if err := s.RemoveCustomProvider(ctx, "localai"); err != nil {
		t.Errorf("second remove errored: %v", err)
	}
}

func TestRemoveCustomModel(t *testing.T) {
	settings := newMemSettings()
	settings.values[credential.APIKeyKey("openai")] = "sk-test"
	s, _ := newTestStore(t, settings)
	ctx := context.Background()

	if err := s.AddCustomModel(ctx, catalog.ModelDescriptor{
		Key:       "my-tune",
		Providers: []string{"openai"},
	}); err != nil {
		t.Fatalf("AddCustomModel failed: %v", err)
	}
	if !s.IsModelAvailable("my-tune") {
		t.Fatal("custom model not available")
	}

	if err := s.RemoveCustomModel(ctx, "my-tune"); err != nil {
		t.Fatalf("RemoveCustomModel failed: %v", err)
	}
	if s.IsModelAvailable("my-tune") {
		t.Error("removed custom model still available")
	}
}

func TestGetAvailableModelFallsBackToCheapest(t *testing.T) {
	settings := newMemSettings()
	settings.values[credential.APIKeyKey("openai")] = "sk-test"
	settings.values[credential.APIKeyKey("deepseek")] = "sk-ds"
	s, _ := newTestStore(t, settings)

	am, ok := s.GetAvailableModel("gpt-5")
	if !ok || am.Key != "gpt-5" || am.ProviderID != "openai" {
		t.Errorf("named lookup = %+v, %v", am, ok)
	}

	// Unknown identifier falls back to the cheapest pairing by input price.
	am, ok = s.GetAvailableModel("no-such-model")
	if !ok {
		t.Fatal("fallback returned nothing despite available models")
	}
	for _, other := range s.AvailableModels() {
		if other.Pricing.Input < am.Pricing.Input {
			t.Fatalf("fallback picked %s@%s (input %v) over cheaper %s@%s (input %v)",
				am.Key, am.ProviderID, am.Pricing.Input, other.Key, other.ProviderID, other.Pricing.Input)
		}
	}
}

func TestRefreshCoalescesConcurrentCallers(t *testing.T) {
	settings := newMemSettings()
	s, _ := newTestStore(t, settings)

	settings.mu.Lock()
	settings.getManyN = 0
	gate := make(chan struct{})
	settings.getManyGate = gate
	settings.mu.Unlock()

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			started.Done()
			_ = s.Refresh(context.Background())
			done.Done()
		}()
	}
	started.Wait()
	close(gate)
	done.Wait()

	settings.mu.Lock()
	n := settings.getManyN
	settings.getManyGate = nil
	settings.mu.Unlock()
	// The first load may finish before some callers arrive, which starts a
	// second one, but eight callers must not mean eight loads.
	if n >= callers {
		t.Errorf("GetMany ran %d times for %d concurrent refreshes", n, callers)
	}
}

func TestCollectTextThroughStore(t *testing.T) {
	settings := newMemSettings()
	settings.values[credential.APIKeyKey("openai")] = "sk-test"
	s, b := newTestStore(t, settings)

	var gotModel gateway.CallableModel
	b.Handle(stream.CommandStreamText, func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var p struct {
			RequestID string                `json:"requestId"`
			Model     gateway.CallableModel `json:"model"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		gotModel = p.Model
		_ = b.Publish(stream.EventChannel(p.RequestID), stream.Event{Type: stream.EventTextDelta, Text: "ok"})
		_ = b.Publish(stream.EventChannel(p.RequestID), stream.Event{Type: stream.EventDone, FinishReason: "stop"})
		return json.Marshal(map[string]string{"requestId": p.RequestID})
	})

	res, err := s.CollectText(context.Background(), stream.Request{
		Model:    "gpt-5",
		Messages: []stream.Message{{Role: stream.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("CollectText failed: %v", err)
	}
	if res.Text != "ok" || res.FinishReason != "stop" {
		t.Errorf("result = %+v", res)
	}
	if gotModel.ProviderID != "openai" || gotModel.Secret != "sk-test" {
		t.Errorf("wire model = %+v, resolution not forwarded", gotModel)
	}

	_, err = s.CollectText(context.Background(), stream.Request{Model: "claude-sonnet-4-5"})
	if !errors.Is(err, gateway.ErrNoProvider) {
		t.Errorf("uncredentialed model: err = %v", err)
	}
}
