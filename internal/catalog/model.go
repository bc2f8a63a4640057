package catalog

// Pricing is expressed in USD per million tokens.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// ModelDescriptor describes one logical model and the providers able to serve
// it. Providers is an authored priority list: selection always returns the
// first usable entry, never a re-sorted one.
type ModelDescriptor struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Providers     []string          `json:"providers"`
	ProviderNames map[string]string `json:"providerNames,omitempty"`
	Pricing       Pricing           `json:"pricing"`
	ContextWindow int               `json:"contextWindow,omitempty"`
	Tools         bool              `json:"tools,omitempty"`
	Reasoning     bool              `json:"reasoning,omitempty"`
}

// UpstreamName resolves the provider-specific model identifier, falling back
// to the canonical key when no remap exists.
func (m ModelDescriptor) UpstreamName(providerID string) string {
	if name, ok := m.ProviderNames[providerID]; ok && name != "" {
		return name
	}
	return m.Key
}

var builtinModels = []ModelDescriptor{
	{
		Key:       "claude-sonnet-4-5",
		Name:      "Claude Sonnet 4.5",
		Providers: []string{"anthropic", "openrouter"},
		ProviderNames: map[string]string{
			"anthropic":  "claude-sonnet-4-5-20250929",
			"openrouter": "anthropic/claude-sonnet-4.5",
		},
		Pricing:       Pricing{Input: 3, Output: 15},
		ContextWindow: 200_000,
		Tools:         true,
		Reasoning:     true,
	},
	{
		Key:       "claude-haiku-4-5",
		Name:      "Claude Haiku 4.5",
		Providers: []string{"anthropic", "openrouter"},
		ProviderNames: map[string]string{
			"anthropic":  "claude-haiku-4-5-20251001",
			"openrouter": "anthropic/claude-haiku-4.5",
		},
		Pricing:       Pricing{Input: 1, Output: 5},
		ContextWindow: 200_000,
		Tools:         true,
	},
	{
		Key:       "gpt-5",
		Name:      "GPT-5",
		Providers: []string{"openai", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "openai/gpt-5",
		},
		Pricing:       Pricing{Input: 1.25, Output: 10},
		ContextWindow: 400_000,
		Tools:         true,
		Reasoning:     true,
	},
	{
		Key:       "gpt-5-mini",
		Name:      "GPT-5 mini",
		Providers: []string{"openai", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "openai/gpt-5-mini",
		},
		Pricing:       Pricing{Input: 0.25, Output: 2},
		ContextWindow: 400_000,
		Tools:         true,
	},
	{
		Key:       "gemini-2.5-pro",
		Name:      "Gemini 2.5 Pro",
		Providers: []string{"google", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "google/gemini-2.5-pro",
		},
		Pricing:       Pricing{Input: 1.25, Output: 10},
		ContextWindow: 1_048_576,
		Tools:         true,
		Reasoning:     true,
	},
	{
		Key:       "gemini-2.5-flash",
		Name:      "Gemini 2.5 Flash",
		Providers: []string{"google", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "google/gemini-2.5-flash",
		},
		Pricing:       Pricing{Input: 0.3, Output: 2.5},
		ContextWindow: 1_048_576,
		Tools:         true,
	},
	{
		Key:       "deepseek-chat",
		Name:      "DeepSeek V3.2",
		Providers: []string{"deepseek", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "deepseek/deepseek-chat-v3.2",
		},
		Pricing:       Pricing{Input: 0.28, Output: 0.42},
		ContextWindow: 128_000,
		Tools:         true,
	},
	{
		Key:       "kimi-k2",
		Name:      "Kimi K2",
		Providers: []string{"moonshot", "groq", "openrouter"},
		ProviderNames: map[string]string{
			"moonshot":   "kimi-k2-0905-preview",
			"groq":       "moonshotai/kimi-k2-instruct",
			"openrouter": "moonshotai/kimi-k2",
		},
		Pricing:       Pricing{Input: 0.6, Output: 2.5},
		ContextWindow: 256_000,
		Tools:         true,
	},
	{
		Key:       "glm-4.6",
		Name:      "GLM 4.6",
		Providers: []string{"zhipu", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "z-ai/glm-4.6",
		},
		Pricing:       Pricing{Input: 0.6, Output: 2.2},
		ContextWindow: 200_000,
		Tools:         true,
		Reasoning:     true,
	},
	{
		Key:       "grok-4",
		Name:      "Grok 4",
		Providers: []string{"xai", "openrouter"},
		ProviderNames: map[string]string{
			"openrouter": "x-ai/grok-4",
		},
		Pricing:       Pricing{Input: 3, Output: 15},
		ContextWindow: 256_000,
		Tools:         true,
		Reasoning:     true,
	},
	{
		Key:       "llama-3.3-70b",
		Name:      "Llama 3.3 70B",
		Providers: []string{"groq", "ollama", "openrouter"},
		ProviderNames: map[string]string{
			"groq":       "llama-3.3-70b-versatile",
			"ollama":     "llama3.3:70b",
			"openrouter": "meta-llama/llama-3.3-70b-instruct",
		},
		Pricing:       Pricing{Input: 0.59, Output: 0.79},
		ContextWindow: 128_000,
		Tools:         true,
	},
}

// BuiltinModels returns a copy of the built-in model table.
func BuiltinModels() []ModelDescriptor {
	out := make([]ModelDescriptor, len(builtinModels))
	copy(out, builtinModels)
	return out
}
