package gateway

import (
	"strings"

	"github.com/talkcody/modelgate/internal/catalog"
	"github.com/talkcody/modelgate/internal/credential"
)

// AvailableModel is one queryable (model, provider) pairing with its resolved
// display name and pricing. The full list is recomputed wholesale from its
// inputs; nothing is patched incrementally.
type AvailableModel struct {
	Key           string          `json:"key"`
	ProviderID    string          `json:"providerId"`
	Name          string          `json:"name"`
	UpstreamName  string          `json:"upstreamName"`
	Pricing       catalog.Pricing `json:"pricing"`
	ContextWindow int             `json:"contextWindow,omitempty"`
	Tools         bool            `json:"tools,omitempty"`
	Reasoning     bool            `json:"reasoning,omitempty"`
}

// SplitModelKey separates an optional "@provider" suffix from a model
// identifier. "kimi-k2@groq" yields ("kimi-k2", "groq").
func SplitModelKey(identifier string) (key, providerID string) {
	if at := strings.LastIndexByte(identifier, '@'); at >= 0 {
		return identifier[:at], identifier[at+1:]
	}
	return identifier, ""
}

// ComputeAvailableModels materializes every (descriptor, provider) pairing
// whose provider is currently usable. Pure and deterministic: output order is
// descriptor order crossed with each descriptor's authored provider order, so
// identical inputs produce deep-equal output.
func ComputeAvailableModels(creds credential.Set, registry catalog.Registry, models []catalog.ModelDescriptor) []AvailableModel {
	var out []AvailableModel
	for _, m := range models {
		for _, providerID := range m.Providers {
			def, ok := registry[providerID]
			if !ok || !Usable(def, creds) {
				continue
			}
			name := m.Name
			if name == "" {
				name = m.Key
			}
			out = append(out, AvailableModel{
				Key:           m.Key,
				ProviderID:    providerID,
				Name:          name,
				UpstreamName:  m.UpstreamName(providerID),
				Pricing:       m.Pricing,
				ContextWindow: m.ContextWindow,
				Tools:         m.Tools,
				Reasoning:     m.Reasoning,
			})
		}
	}
	return out
}

// BestProviderFor picks the provider for a model identifier. An explicit
// "@provider" suffix wins when that provider is usable. Otherwise the
// descriptor's provider list is scanned in authored order and the first
// usable entry wins — the list is a fixed priority order, never re-sorted.
// Returns "" when nothing is usable.
func BestProviderFor(identifier string, creds credential.Set, registry catalog.Registry, models []catalog.ModelDescriptor) string {
	key, explicit := SplitModelKey(identifier)

	if explicit != "" {
		if def, ok := registry[explicit]; ok && Usable(def, creds) {
			return explicit
		}
		return ""
	}

	desc, ok := catalog.FindModel(models, key)
	if !ok {
		return ""
	}
	for _, providerID := range desc.Providers {
		if def, ok := registry[providerID]; ok && Usable(def, creds) {
			return providerID
		}
	}
	return ""
}
