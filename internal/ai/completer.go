package ai

import (
	"context"
	"errors"
	"strings"
)

// Completer turns a Runtime into a single request/response call: one system
// instruction, a bounded message history, an output budget and a temperature.
// It never retries on its own; retries are whatever the Runtime was built with.
type Completer struct {
	rt    Runtime
	model string
}

// NewCompleter binds a runtime to a model name.
func NewCompleter(rt Runtime, model string) *Completer {
	return &Completer{rt: rt, model: model}
}

// Model returns the bound model name.
func (c *Completer) Model() string { return c.model }

// Complete sends the system prompt followed by history and returns the trimmed
// text of the first choice.
func (c *Completer) Complete(ctx context.Context, system string, history []Message, maxTokens int, temperature float64) (string, error) {
	if c == nil || c.rt == nil {
		return "", errors.New("completer has no runtime")
	}
	msgs := make([]Message, 0, len(history)+1)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, history...)
	resp, err := c.rt.Generate(ctx, GenerateRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
