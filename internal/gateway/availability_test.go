package gateway

import (
	"reflect"
	"testing"
	"time"

	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/credential"
)

func credsWith(keys map[string]string) credential.Set {
	creds := credential.NewSet()
	for k, v := range keys {
		creds.APIKeys[k] = v
	}
	return creds
}

func testModels() []catalog.ModelDescriptor {
	return []catalog.ModelDescriptor{
		{
			Key:       "claude-sonnet-4-5",
			Name:      "Claude Sonnet 4.5",
			Providers: []string{"anthropic", "openai"},
			Pricing:   catalog.Pricing{Input: 3, Output: 15},
		},
		{
			Key:       "kimi-k2",
			Providers: []string{"moonshot", "groq", "openrouter"},
			ProviderNames: map[string]string{
				"groq": "moonshotai/kimi-k2-instruct",
			},
		},
	}
}

func TestComputeAvailableModelsDeterministic(t *testing.T) {
	creds := credsWith(map[string]string{"openai": "sk-1", "groq": "sk-2"})
	registry := catalog.Build(nil)
	models := testModels()

	a := ComputeAvailableModels(creds, registry, models)
	b := ComputeAvailableModels(creds, registry, models)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different output")
	}

	// Order: descriptor order crossed with authored provider order.
	var pairs [][2]string
	for _, am := range a {
		pairs = append(pairs, [2]string{am.Key, am.ProviderID})
	}
	want := [][2]string{
		{"claude-sonnet-4-5", "openai"},
		{"kimi-k2", "groq"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestBestProviderFirstUsableInAuthoredOrder(t *testing.T) {
	registry := catalog.Build(nil)
	models := testModels()

	tests := []struct {
		name string
		keys map[string]string
		want string
	}{
		{"only second usable", map[string]string{"openai": "sk"}, "openai"},
		{"first wins when both usable", map[string]string{"anthropic": "sk", "openai": "sk"}, "anthropic"},
		{"none usable", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestProviderFor("claude-sonnet-4-5", credsWith(tt.keys), registry, models)
			if got != tt.want {
				t.Errorf("BestProviderFor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBestProviderExplicitSuffix(t *testing.T) {
	registry := catalog.Build(nil)
	models := testModels()
	creds := credsWith(map[string]string{"groq": "sk", "moonshot": "sk"})

	if got := BestProviderFor("kimi-k2@groq", creds, registry, models); got != "groq" {
		t.Errorf("explicit usable suffix ignored: %q", got)
	}
	// An explicit but unusable provider is not silently replaced.
	if got := BestProviderFor("kimi-k2@openrouter", creds, registry, models); got != "" {
		t.Errorf("unusable explicit suffix resolved to %q, want none", got)
	}
}

func TestBestProviderOAuthExpiryCheckedLive(t *testing.T) {
	registry := catalog.Build(nil)
	models := testModels()

	creds := credential.NewSet()
	creds.OAuth["anthropic"] = credential.OAuthBundle{
		AccessToken: "tok",
		Expiry:      time.Now().Add(-time.Minute),
	}
	creds.APIKeys["openai"] = "sk"

	if got := BestProviderFor("claude-sonnet-4-5", creds, registry, models); got != "openai" {
		t.Errorf("expired oauth token still considered usable, got %q", got)
	}

	creds.OAuth["anthropic"] = credential.OAuthBundle{
		AccessToken: "tok",
		Expiry:      time.Now().Add(time.Hour),
	}
	if got := BestProviderFor("claude-sonnet-4-5", creds, registry, models); got != "anthropic" {
		t.Errorf("live oauth token not usable, got %q", got)
	}
}

func TestCustomModelVisibilityFollowsMutation(t *testing.T) {
	registry := catalog.Build(nil)
	creds := credsWith(map[string]string{"openai": "sk"})

	custom := catalog.ModelDescriptor{Key: "my-tune", Providers: []string{"openai"}}
	with := catalog.MergeModels([]catalog.ModelDescriptor{custom})
	without := catalog.MergeModels(nil)

	has := func(list []AvailableModel, key string) bool {
		for _, am := range list {
			if am.Key == key {
				return true
			}
		}
		return false
	}

	if !has(ComputeAvailableModels(creds, registry, with), "my-tune") {
		t.Error("added custom model not visible")
	}
	if has(ComputeAvailableModels(creds, registry, without), "my-tune") {
		t.Error("removed custom model still visible")
	}
}

func TestSplitModelKey(t *testing.T) {
	tests := []struct {
		in, key, provider string
	}{
		{"kimi-k2@groq", "kimi-k2", "groq"},
		{"gpt-5", "gpt-5", ""},
		{"org/model@openrouter", "org/model", "openrouter"},
	}
	for _, tt := range tests {
		key, provider := SplitModelKey(tt.in)
		if key != tt.key || provider != tt.provider {
			t.Errorf("SplitModelKey(%q) = (%q, %q), want (%q, %q)", tt.in, key, provider, tt.key, tt.provider)
		}
	}
}
