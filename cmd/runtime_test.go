package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
)

func TestBuildCompleterProviders(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	c := &cfgpkg.Global{Provider: "local", Model: "llama3", HTTPTimeoutSec: 5}
	comp, provider, err := buildCompleter(c, runtimeOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if provider != ai.ProviderOllama || comp.Model() != "llama3" {
		t.Fatalf("provider=%s model=%s", provider, comp.Model())
	}

	comp, provider, err = buildCompleter(c, runtimeOptions{ProviderFlag: "OpenRouter", ModelFlag: "openai/gpt-4o-mini"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if provider != ai.ProviderOpenRouter || comp.Model() != "openai/gpt-4o-mini" {
		t.Fatalf("provider=%s model=%s", provider, comp.Model())
	}

	if _, _, err := buildCompleter(c, runtimeOptions{ProviderFlag: "bedrock"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	c := &cfgpkg.Global{APIKey: "cfg-key"}
	if got := resolveAPIKey(c, ai.ProviderOpenRouter); got != "or-key" {
		t.Fatalf("openrouter key = %q", got)
	}
	if got := resolveAPIKey(c, ai.ProviderOpenAI); got != "cfg-key" {
		t.Fatalf("openai key = %q", got)
	}
}

func TestSelectModel(t *testing.T) {
	if got := selectModel(nil, ""); got != "gpt-4o-mini" {
		t.Fatalf("default = %q", got)
	}
	if got := selectModel(&cfgpkg.Global{Model: "m1"}, ""); got != "m1" {
		t.Fatalf("config = %q", got)
	}
	if got := selectModel(&cfgpkg.Global{Model: "m1"}, "m2"); got != "m2" {
		t.Fatalf("explicit = %q", got)
	}
}

func TestFriendlyError(t *testing.T) {
	api := &ai.APIError{StatusCode: 500, Message: "boom"}
	cases := []struct {
		name     string
		err      error
		provider string
		want     string
	}{
		{"missing key", ai.ErrMissingAPIKey, ai.ProviderOpenAI, "no API key"},
		{"unreachable ollama", &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, ai.ProviderOllama, "Ollama not reachable"},
		{"rate limit", &ai.RateLimitError{APIError: api, RetryAfter: 3 * time.Second}, ai.ProviderOpenAI, "try again in ~3s"},
		{"model", &ai.ModelNotFoundError{APIError: api}, ai.ProviderOllama, "ollama pull gpt-x"},
		{"server", &ai.ServerError{APIError: api}, ai.ProviderOpenAI, "server error"},
	}
	for _, tc := range cases {
		got := friendlyError(tc.err, tc.provider, "gpt-x")
		if !strings.Contains(got.Error(), tc.want) {
			t.Errorf("%s: %q does not contain %q", tc.name, got, tc.want)
		}
		if !errors.Is(got, tc.err) {
			t.Errorf("%s: original error not wrapped", tc.name)
		}
	}
	plain := errors.New("other")
	if friendlyError(plain, ai.ProviderOpenAI, "m") != plain {
		t.Fatalf("unclassified errors pass through")
	}
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	ok := [][2]string{
		{"provider", "LOCAL"},
		{"temperature", "0.2"},
		{"code_max_tokens", "500"},
		{"memory_backend", "redis"},
		{"redis_db", "2"},
	}
	for _, kv := range ok {
		if err := setConfigValue(c, kv[0], kv[1]); err != nil {
			t.Fatalf("%s=%s: %v", kv[0], kv[1], err)
		}
	}
	if c.Provider != ai.ProviderOllama || c.CodeMaxTokens != 500 || c.MemoryBackend != "redis" || c.RedisDB != 2 {
		t.Fatalf("unexpected config: %+v", c)
	}
	bad := [][2]string{
		{"provider", "bedrock"},
		{"temperature", "3"},
		{"exec_timeout_sec", "0"},
		{"redis_db", "-1"},
		{"unknown", "x"},
	}
	for _, kv := range bad {
		if err := setConfigValue(c, kv[0], kv[1]); err == nil {
			t.Errorf("%s=%s: expected error", kv[0], kv[1])
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{"": "", "abc": "******", "sk-1234567890": "sk-****890"}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
