// Package memory keeps the rolling conversation history of a session.
package memory

import (
	"context"
	"sync"
)

// MaxEntries bounds the stored history; older entries are discarded first.
const MaxEntries = 16

// Entry is one role-tagged message.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store persists conversation history keyed by session id.
type Store interface {
	Append(ctx context.Context, sessionID string, entries ...Entry) error
	History(ctx context.Context, sessionID string) ([]Entry, error)
	Clear(ctx context.Context, sessionID string) error
}

// Buffer is the in-process Store.
type Buffer struct {
	mu       sync.Mutex
	sessions map[string][]Entry
}

func NewBuffer() *Buffer {
	return &Buffer{sessions: map[string][]Entry{}}
}

func (b *Buffer) Append(_ context.Context, sessionID string, entries ...Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := append(b.sessions[sessionID], entries...)
	if len(h) > MaxEntries {
		h = append([]Entry(nil), h[len(h)-MaxEntries:]...)
	}
	b.sessions[sessionID] = h
	return nil
}

func (b *Buffer) History(_ context.Context, sessionID string) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.sessions[sessionID]...), nil
}

func (b *Buffer) Clear(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
	return nil
}

// Recent returns at most n trailing entries with content cut to limit runes.
func Recent(history []Entry, n, limit int) []Entry {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]Entry, len(history))
	for i, e := range history {
		if r := []rune(e.Content); limit > 0 && len(r) > limit {
			e.Content = string(r[:limit])
		}
		out[i] = e
	}
	return out
}
