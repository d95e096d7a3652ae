package core

import (
	"strings"
	"sync"

	"github.com/juju/errors"
)

// ErrNoAPIKey is returned by factories whose provider key is unset. Callers
// treat it as "run without a model" rather than a startup failure.
const ErrNoAPIKey = errors.ConstError("ai provider API key not configured")

// FactoryConfig captures the inputs required to construct a provider client.
type FactoryConfig struct {
	Provider string

	Model               string
	Temperature         float64
	MaxCompletionTokens int

	GroqKey      string
	OpenAIKey    string
	AnthropicKey string

	Extra map[string]string
}

// ProviderFactory implements provider-specific Client creation.
type ProviderFactory func(FactoryConfig) (Client, error)

var (
	mu         sync.RWMutex
	providers  = map[string]ProviderFactory{}
	defaultKey = "groq"
)

// RegisterProvider registers a provider factory under one or more names.
func RegisterProvider(name string, factory ProviderFactory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	for _, n := range append([]string{name}, aliases...) {
		providers[strings.ToLower(n)] = factory
	}
}

// NewClient returns a provider-agnostic AI client.
func NewClient(cfg FactoryConfig) (Client, error) {
	providerName := cfg.Provider
	if strings.TrimSpace(providerName) == "" {
		providerName = defaultKey
	}

	mu.RLock()
	factory := providers[strings.ToLower(providerName)]
	mu.RUnlock()

	if factory == nil {
		return nil, errors.NotFoundf("ai provider %q", providerName)
	}
	return factory(cfg)
}

// ExtraOr returns cfg.Extra[key], or def when unset.
func (cfg FactoryConfig) ExtraOr(key, def string) string {
	if v := strings.TrimSpace(cfg.Extra[key]); v != "" {
		return v
	}
	return def
}
