package catalog

import (
	"reflect"
	"testing"
)

func TestBuildMergesCustomOverBuiltin(t *testing.T) {
	custom := []CustomProvider{
		{ID: "anthropic", BaseURL: "https://proxy.example.com/anthropic"},
		{ID: "local-vllm", BaseURL: "http://127.0.0.1:8000/v1", Auth: "none"},
	}

	reg := Build(custom)

	anthropic := reg["anthropic"]
	if anthropic.BaseURL != "https://proxy.example.com/anthropic" {
		t.Errorf("custom base URL not applied: %q", anthropic.BaseURL)
	}
	// Fields the custom entry did not set keep built-in values.
	if anthropic.APIKeyHeader != "x-api-key" || !anthropic.OAuthCapable {
		t.Errorf("unset fields were clobbered: %+v", anthropic)
	}

	vllm, ok := reg["local-vllm"]
	if !ok {
		t.Fatal("new custom provider missing from registry")
	}
	if vllm.Auth != AuthNone {
		t.Errorf("auth kind = %q, want none", vllm.Auth)
	}
}

func TestBuildSkipsMalformedEntries(t *testing.T) {
	before := len(Build(nil))
	reg := Build([]CustomProvider{
		{},                          // no id
		{ID: "no-url"},              // new id without base URL
		{ID: "openai", Auth: "???"}, // bad auth kind keeps built-in
	})
	if len(reg) != before {
		t.Errorf("registry size = %d, want %d", len(reg), before)
	}
	if reg["openai"].Auth != AuthAPIKey {
		t.Errorf("unknown auth kind replaced built-in value")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	custom := []CustomProvider{{ID: "zhipu", Name: "Zhipu Intl"}}
	a := Build(custom)
	b := Build(custom)
	if !reflect.DeepEqual(a, b) {
		t.Error("Build is not deterministic for identical inputs")
	}
}

func TestMergeModelsReplacesByKey(t *testing.T) {
	custom := []ModelDescriptor{
		{Key: "gpt-5", Name: "GPT-5 (custom)", Providers: []string{"openai"}},
		{Key: "my-model", Providers: []string{"local-vllm"}},
		{Key: "", Providers: []string{"x"}}, // malformed, skipped
	}

	models := MergeModels(custom)

	got, ok := FindModel(models, "gpt-5")
	if !ok || got.Name != "GPT-5 (custom)" {
		t.Errorf("custom override not applied: %+v", got)
	}
	if _, ok := FindModel(models, "my-model"); !ok {
		t.Error("new custom model missing")
	}
	if len(models) != len(BuiltinModels())+1 {
		t.Errorf("unexpected model count %d", len(models))
	}
}

func TestParseCustomModelsTolerant(t *testing.T) {
	doc := []byte(`{
		// user-edited file
		"models": [
			{"key": "my-model", "providers": ["ollama"], "pricing": {"input": 0, "output": 0}},
		],
	}`)
	models, err := ParseCustomModels(doc)
	if err != nil {
		t.Fatalf("ParseCustomModels failed: %v", err)
	}
	if len(models) != 1 || models[0].Key != "my-model" {
		t.Errorf("unexpected result: %+v", models)
	}
}

func TestUpstreamName(t *testing.T) {
	m := ModelDescriptor{
		Key:           "kimi-k2",
		ProviderNames: map[string]string{"groq": "moonshotai/kimi-k2-instruct"},
	}
	if got := m.UpstreamName("groq"); got != "moonshotai/kimi-k2-instruct" {
		t.Errorf("UpstreamName(groq) = %q", got)
	}
	if got := m.UpstreamName("moonshot"); got != "kimi-k2" {
		t.Errorf("UpstreamName fallback = %q, want canonical key", got)
	}
}
