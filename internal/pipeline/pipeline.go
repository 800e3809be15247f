// Package pipeline answers one question about a dataset: it routes the
// question, asks the model, repairs and runs generated code, and extracts
// the final answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/ai"
	"github.com/KaramelBytes/csvinsight-cli/internal/answer"
	"github.com/KaramelBytes/csvinsight-cli/internal/codecheck"
	"github.com/KaramelBytes/csvinsight-cli/internal/dataset"
	"github.com/KaramelBytes/csvinsight-cli/internal/memory"
	"github.com/KaramelBytes/csvinsight-cli/internal/metrics"
	"github.com/KaramelBytes/csvinsight-cli/internal/prompt"
	"github.com/KaramelBytes/csvinsight-cli/internal/sandbox"
	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
	"github.com/google/uuid"
)

// Context window sent with each completion.
const (
	RecentEntries = 4
	RecentChars   = 300
)

// ExecPrefix starts the answer of a turn whose program failed.
const ExecPrefix = "Erro ao executar código: "

// Completer is the completion service.
type Completer interface {
	Complete(ctx context.Context, system string, history []ai.Message, maxTokens int, temperature float64) (string, error)
}

// Executor runs a program against a dataset snapshot.
type Executor interface {
	Execute(ctx context.Context, dir string, snapshot []byte, code string) (*sandbox.Output, error)
}

// Options tunes the completion request per mode.
type Options struct {
	CodeMaxTokens int
	TextMaxTokens int
	Temperature   float64
}

// DefaultOptions match the configuration defaults.
func DefaultOptions() Options {
	return Options{CodeMaxTokens: 600, TextMaxTokens: 1000, Temperature: 0.1}
}

// Pipeline wires the stages together.
type Pipeline struct {
	completer Completer
	executor  Executor
	memory    memory.Store
	rules     []codecheck.Rule
	opts      Options
	log       *slog.Logger
	metrics   metrics.Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithRules replaces the code validation rules.
func WithRules(rules []codecheck.Rule) Option {
	return func(p *Pipeline) { p.rules = rules }
}

func WithOptions(o Options) Option {
	return func(p *Pipeline) { p.opts = o }
}

// New creates a Pipeline.
func New(c Completer, e Executor, m memory.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		completer: c,
		executor:  e,
		memory:    m,
		rules:     codecheck.DefaultRules,
		opts:      DefaultOptions(),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:   metrics.Nop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Input is one question against a loaded dataset.
type Input struct {
	SessionID string
	// WorkDir is where programs run and charts are written.
	WorkDir  string
	Question string
	Schema   []dataset.Column
	Info     dataset.Info
	Snapshot []byte
}

type stage struct {
	name string
	run  func(context.Context, *State) error
}

// Run answers one question. Only completion service failures are returned
// as errors; generation, execution and extraction problems degrade into the
// Result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	st := &State{
		TurnID:    uuid.NewString(),
		SessionID: in.SessionID,
		WorkDir:   in.WorkDir,
		Question:  in.Question,
		Schema:    in.Schema,
		DataInfo:  in.Info,
		Snapshot:  in.Snapshot,
	}
	log := p.log.With("turn", st.TurnID, "session", st.SessionID)
	stages := []stage{
		{"compose", p.compose},
		{"validate", p.validate},
		{"execute", p.execute},
		{"extract", p.extract},
	}
	for _, s := range stages {
		start := time.Now()
		if err := s.run(ctx, st); err != nil {
			log.Error("stage failed", "stage", s.name, "error", err)
			return nil, err
		}
		log.Debug("stage done", "stage", s.name, "mode", st.Mode, "duration", time.Since(start))
	}
	p.metrics.Turn(string(st.Mode))
	return st.result(), nil
}

// compose classifies the question, asks the model and records both sides
// of the exchange in memory. Prose answers are final here.
func (p *Pipeline) compose(ctx context.Context, st *State) error {
	mode, matched := prompt.Classify(st.Question)
	st.Mode = mode
	if len(matched) > 0 {
		p.log.Debug("keywords matched", "turn", st.TurnID, "keywords", matched)
	}

	if err := p.memory.Append(ctx, st.SessionID, memory.Entry{Role: ai.RoleUser, Content: st.Question}); err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	history, err := p.memory.History(ctx, st.SessionID)
	if err != nil {
		return fmt.Errorf("read memory: %w", err)
	}
	recent := memory.Recent(history, RecentEntries, RecentChars)
	msgs := make([]ai.Message, 0, len(recent))
	for _, e := range recent {
		msgs = append(msgs, ai.Message{Role: e.Role, Content: e.Content})
	}

	system := prompt.System(mode, prompt.Facts{Info: st.DataInfo, Columns: st.Schema})
	maxTokens := p.opts.TextMaxTokens
	if mode == prompt.ModeCode {
		maxTokens = p.opts.CodeMaxTokens
	}
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		contents[i] = m.Content
	}
	p.log.Debug("prompt composed", "turn", st.TurnID, "mode", mode,
		"context_entries", len(msgs), "prompt_tokens", utils.CountMessageTokens(system, contents...))
	raw, err := p.completer.Complete(ctx, system, msgs, maxTokens, p.opts.Temperature)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	st.RawCompletion = raw
	if err := p.memory.Append(ctx, st.SessionID, memory.Entry{Role: ai.RoleAssistant, Content: raw}); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	if mode == prompt.ModeText {
		st.FinalAnswer = prompt.CleanProse(raw)
	}
	return nil
}

func (p *Pipeline) validate(_ context.Context, st *State) error {
	if st.Mode != prompt.ModeCode {
		return nil
	}
	v := codecheck.Validate(codecheck.ExtractCode(st.RawCompletion), st.Question, p.rules)
	if v.Repaired {
		p.log.Info("generated code replaced by template",
			"turn", st.TurnID, "rule", v.Rule, "reason", v.Reason, "template", v.Template)
		p.metrics.TemplateRepair(v.Template, v.Rule)
	}
	st.Code = v.Code
	return nil
}

func (p *Pipeline) execute(ctx context.Context, st *State) error {
	if st.Mode != prompt.ModeCode {
		return nil
	}
	start := time.Now()
	out, err := p.executor.Execute(ctx, st.WorkDir, st.Snapshot, st.Code)
	p.metrics.ExecutionDuration(time.Since(start))
	if err != nil {
		var f *sandbox.Fault
		if !errors.As(err, &f) {
			p.log.Warn("execution could not start", "turn", st.TurnID, "error", err)
		}
		p.metrics.ExecutionError()
		st.ExecutionError = true
		st.FinalAnswer = ExecPrefix + err.Error()
		return nil
	}
	st.RawOutput = out.Stdout
	st.Image = out.Image
	p.log.Debug("program output", "turn", st.TurnID, "stdout_bytes", len(out.Stdout), "chart", out.Image != nil)
	return nil
}

func (p *Pipeline) extract(_ context.Context, st *State) error {
	if st.Mode != prompt.ModeCode || st.ExecutionError {
		return nil
	}
	r := answer.Extract(st.RawOutput)
	p.log.Debug("answer extracted", "turn", st.TurnID, "strategy", r.Strategy)
	p.metrics.Extraction(r.Strategy)
	st.FinalAnswer = r.Answer
	return nil
}
