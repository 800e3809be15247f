package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

// buildCompleter resolves provider, credentials and model and returns a
// completer for the pipeline. Completions are single requests.
func buildCompleter(cfg *cfgpkg.Global, opts runtimeOptions) (*ai.Completer, string, error) {
	httpTimeout := 60 * time.Second
	if cfg != nil && cfg.HTTPTimeoutSec > 0 {
		httpTimeout = cfg.HTTPTimeout()
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.Provider != "" {
		providerName = strings.ToLower(cfg.Provider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenAI
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		APIKey:      resolveAPIKey(cfg, providerName),
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("CSVINSIGHT_OLLAMA_HOST")
		}
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
	}

	rt, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use one of %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return ai.NewCompleter(rt, selectModel(cfg, opts.ModelFlag)), providerName, nil
}

func resolveAPIKey(cfg *cfgpkg.Global, provider string) string {
	if provider == ai.ProviderOpenRouter {
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			return v
		}
	}
	if cfg != nil {
		return cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	return "gpt-4o-mini"
}

// friendlyError adds a hint for the common completion failure classes.
func friendlyError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return fmt.Errorf("no API key: set OPENAI_API_KEY (or OPENROUTER_API_KEY) or 'csvinsight config set api_key <key>': %w", err)
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (CSVINSIGHT_OLLAMA_HOST or config 'ollama_host'). Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check api_key in config (~/.csvinsight/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try lowering code_max_tokens/text_max_tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return err
	}
}
