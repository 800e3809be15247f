package ai

import (
	"context"
	"errors"
	"testing"
)

type recordingRuntime struct {
	got  GenerateRequest
	resp *GenerateResponse
	err  error
}

func (r *recordingRuntime) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	r.got = req
	return r.resp, r.err
}

func TestCompleterPrependsSystemAndTrims(t *testing.T) {
	rt := &recordingRuntime{resp: &GenerateResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: "  hello \n"}}}}}
	c := NewCompleter(rt, "gpt-4o-mini")
	out, err := c.Complete(context.Background(), "sys", []Message{{Role: RoleUser, Content: "q"}}, 600, 0.1)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected trimmed content, got %q", out)
	}
	if len(rt.got.Messages) != 2 || rt.got.Messages[0].Role != RoleSystem || rt.got.Messages[1].Content != "q" {
		t.Fatalf("unexpected messages: %+v", rt.got.Messages)
	}
	if rt.got.MaxTokens != 600 || rt.got.Temperature != 0.1 || rt.got.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected request knobs: %+v", rt.got)
	}
}

func TestCompleterEmptyChoices(t *testing.T) {
	c := NewCompleter(&recordingRuntime{resp: &GenerateResponse{}}, "m")
	if _, err := c.Complete(context.Background(), "sys", nil, 10, 0); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestCompleterPropagatesServiceError(t *testing.T) {
	boom := &ServerError{APIError: &APIError{StatusCode: 503}}
	c := NewCompleter(&recordingRuntime{err: boom}, "m")
	_, err := c.Complete(context.Background(), "sys", nil, 10, 0)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
}

func TestRegistryBuildsKnownProviders(t *testing.T) {
	for _, p := range []string{ProviderOpenAI, ProviderOpenRouter, ProviderOllama} {
		if _, ok := GetRuntime(p, RuntimeConfig{APIKey: "k"}); !ok {
			t.Fatalf("provider %s not registered", p)
		}
	}
	if _, ok := GetRuntime("nope", RuntimeConfig{}); ok {
		t.Fatalf("unknown provider should not resolve")
	}
}
