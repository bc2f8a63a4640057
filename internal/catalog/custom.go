package catalog

import (
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/talkcody/modelgate/internal/json"
)

// customModelDoc is the on-disk shape of the custom model document.
type customModelDoc struct {
	Models []ModelDescriptor `json:"models"`
}

// ParseCustomModels decodes a custom model document. The document is
// user-edited, so it is standardized through hujson first: comments and
// trailing commas are tolerated.
func ParseCustomModels(data []byte) ([]ModelDescriptor, error) {
	if len(data) == 0 {
		return nil, nil
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: standardize custom models: %w", err)
	}
	var doc customModelDoc
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse custom models: %w", err)
	}
	return doc.Models, nil
}

// ParseCustomProviders decodes a custom provider list, tolerating the same
// relaxed JSON as ParseCustomModels.
func ParseCustomProviders(data []byte) ([]CustomProvider, error) {
	if len(data) == 0 {
		return nil, nil
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: standardize custom providers: %w", err)
	}
	var providers []CustomProvider
	if err := json.Unmarshal(std, &providers); err != nil {
		return nil, fmt.Errorf("catalog: parse custom providers: %w", err)
	}
	return providers, nil
}
