package generate

import (
	"fmt"
)

// ProviderFactory creates and returns configured generators
type ProviderFactory struct {
	// ProviderConfigs stores configuration for each provider
	ProviderConfigs map[string]Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(configs map[string]Config) *ProviderFactory {
	return &ProviderFactory{
		ProviderConfigs: configs,
	}
}

// GetProvider returns an initialized provider instance for the specified provider name.
// A provider without an explicit configuration gets its defaults.
func (f *ProviderFactory) GetProvider(providerName string) (Generator, error) {
	config := f.ProviderConfigs[providerName]

	switch providerName {
	case ProviderOllama:
		return NewOllamaProvider(config), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderBasic:
		return NewBasicProvider(config.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}

// IsKnownProvider reports whether GetProvider can build name.
func IsKnownProvider(name string) bool {
	switch name {
	case ProviderOllama, ProviderOpenAI, ProviderBasic:
		return true
	}
	return false
}
