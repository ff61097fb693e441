// Package provider holds the text-generation capability, the open provider
// registry, and the vendor adapters behind it. Every vendor is reached
// through the same contract so stage handlers never see SDK differences.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// TextGenerator is the single capability every vendor adapter implements.
// Generate returns the raw response text or a typed error; it never returns
// both.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, model string, maxTokens int) (string, error)
}

// Factory builds a generator for one vendor from an API key.
type Factory func(apiKey string) TextGenerator

// Registry maps provider names to generator factories. Registration is open:
// new vendors are added with Register, call sites stay untouched. The registry
// is passed explicitly to the components that need it; there is no package
// level instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in vendors registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("anthropic", func(apiKey string) TextGenerator {
		return NewAnthropic(WithAnthropicAPIKey(apiKey))
	})
	r.Register("openai", func(apiKey string) TextGenerator {
		return NewOpenAI(WithOpenAIAPIKey(apiKey))
	})
	return r
}

// Register adds or replaces a vendor factory under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a generator for the named vendor. An unknown name fails with
// UnsupportedProviderError listing the currently registered names.
func (r *Registry) Create(name, apiKey string) (TextGenerator, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.UnsupportedProviderError{Name: name, Registered: r.Names()}
	}
	return f(apiKey), nil
}
