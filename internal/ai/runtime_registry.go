package ai

import (
	"sort"
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes. There are no retry
// settings: a completion is a single request.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	// Hosted (OpenAI, OpenRouter)
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f(cfg), true
	}
	return nil, false
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hosted(defaultURL string) RuntimeFactory {
	return func(c RuntimeConfig) Runtime {
		base := c.BaseURL
		if base == "" {
			base = defaultURL
		}
		return NewClient(c.APIKey, base, c.HTTPTimeout)
	}
}

// init registers built-in runtimes.
func init() {
	RegisterRuntime(ProviderOpenAI, hosted(OpenAIBaseURL))
	RegisterRuntime(ProviderOpenRouter, hosted(OpenRouterBaseURL))
	local := func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout)
	}
	RegisterRuntime(ProviderOllama, local)
	RegisterRuntime(ProviderLocal, local)
}
