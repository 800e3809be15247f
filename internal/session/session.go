// Package session owns loaded datasets and serializes the turns asked
// against each of them.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/dataset"
	"github.com/KaramelBytes/csvinsight-cli/internal/memory"
	"github.com/KaramelBytes/csvinsight-cli/internal/pipeline"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Runner answers one question.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// Session is one loaded dataset with its own work directory. Turns on a
// session never overlap.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Table     *dataset.Table
	Dir       string

	snapshot []byte
	seq      uint64
	turn     sync.Mutex
	// deleted is set under turn once Delete has claimed the session.
	deleted bool
}

// Summary is the public view of a session.
type Summary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	Info      dataset.Info     `json:"data_info"`
	Schema    []dataset.Column `json:"schema"`
	Welcome   string           `json:"welcome"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Info:      s.Table.Info(),
		Schema:    s.Table.Schema(),
		Welcome:   s.Table.Welcome(),
	}
}

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextSeq  uint64
	root     string
	runner   Runner
	memory   memory.Store
	log      *slog.Logger
}

// NewManager creates a Manager whose sessions work under root.
func NewManager(root string, runner Runner, mem memory.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		sessions: map[string]*Session{},
		root:     root,
		runner:   runner,
		memory:   mem,
		log:      log,
	}
}

// Create loads raw as a dataset and registers a session for it. Nothing is
// registered when the data cannot be parsed.
func (m *Manager) Create(ctx context.Context, name string, raw []byte) (*Session, error) {
	tbl, err := dataset.Load(name, raw, m.log)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	snap, err := tbl.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	s := &Session{ID: id, Name: name, CreatedAt: time.Now().UTC(), Table: tbl, Dir: dir, snapshot: snap}
	m.mu.Lock()
	m.nextSeq++
	s.seq = m.nextSeq
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info("session created", "session", id, "name", name, "rows", len(tbl.Rows), "columns", len(tbl.Columns))
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns summaries ordered by creation time.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	out := make([]Summary, len(all))
	for i, s := range all {
		out[i] = s.Summary()
	}
	return out
}

// Ask runs one question against session id. Questions on the same session
// wait for the previous turn to finish.
func (m *Manager) Ask(ctx context.Context, id, question string) (*pipeline.Result, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return m.runTurn(ctx, s, question)
}

func (m *Manager) runTurn(ctx context.Context, s *Session, question string) (*pipeline.Result, error) {
	s.turn.Lock()
	defer s.turn.Unlock()
	// Delete may have won the lock after Get returned
	if s.deleted {
		return nil, ErrNotFound
	}
	return m.runner.Run(ctx, pipeline.Input{
		SessionID: s.ID,
		WorkDir:   s.Dir,
		Question:  question,
		Schema:    s.Table.Schema(),
		Info:      s.Table.Info(),
		Snapshot:  s.snapshot,
	})
}

// Delete forgets the session, its memory and its work directory.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	// wait for an in-flight turn
	s.turn.Lock()
	defer s.turn.Unlock()
	s.deleted = true
	if err := m.memory.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	m.log.Info("session deleted", "session", id)
	return nil
}

// Close deletes every session.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	var errs []error
	for _, id := range ids {
		if err := m.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
