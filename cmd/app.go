package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
	"github.com/KaramelBytes/csvinsight-cli/internal/logging"
	"github.com/KaramelBytes/csvinsight-cli/internal/memory"
	"github.com/KaramelBytes/csvinsight-cli/internal/metrics"
	"github.com/KaramelBytes/csvinsight-cli/internal/pipeline"
	"github.com/KaramelBytes/csvinsight-cli/internal/sandbox"
	"github.com/KaramelBytes/csvinsight-cli/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Swappable in tests.
var (
	completerFactory = func(c *cfgpkg.Global, o runtimeOptions) (pipeline.Completer, string, error) {
		return buildCompleter(c, o)
	}
	commandRunner sandbox.CommandRunner
)

// app is everything a command needs to answer questions.
type app struct {
	cfg      *cfgpkg.Global
	log      *slog.Logger
	registry *prometheus.Registry
	store    memory.Store
	sessions *session.Manager
	provider string
	model    string
	closers  []func() error
}

// newApp wires config, logging, memory, sandbox, metrics and the pipeline.
// quietLevel is the log level used when --debug is not set.
func newApp(ctx context.Context, opts runtimeOptions, quietLevel slog.Level) (*app, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := quietLevel
	if debug {
		level = slog.LevelDebug
	}
	log := logging.New(level)

	completer, provider, err := completerFactory(c, opts)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      c,
		log:      log,
		registry: prometheus.NewRegistry(),
		provider: provider,
		model:    selectModel(c, opts.ModelFlag),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	switch c.MemoryBackend {
	case "", "memory":
		a.store = memory.NewBuffer()
	case "redis":
		rs := memory.NewRedisStore(c.RedisAddr, c.RedisPassword, c.RedisDB,
			memory.WithTTL(time.Duration(c.MemoryTTLSec)*time.Second))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis memory at %s: %w", c.RedisAddr, err)
		}
		a.store = rs
		a.closers = append(a.closers, rs.Close)
	default:
		return nil, fmt.Errorf("invalid memory_backend: %s (use memory or redis)", c.MemoryBackend)
	}

	engine := sandbox.New(commandRunner,
		sandbox.WithPython(c.PythonBin),
		sandbox.WithTimeout(c.ExecTimeout()),
		sandbox.WithLogger(log))
	p := pipeline.New(completer, engine, a.store,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics.New(a.registry)),
		pipeline.WithOptions(pipeline.Options{
			CodeMaxTokens: c.CodeMaxTokens,
			TextMaxTokens: c.TextMaxTokens,
			Temperature:   c.Temperature,
		}))
	a.sessions = session.NewManager(c.WorkDir, p, a.store, log)
	log.Debug("app ready", "provider", provider, "model", a.model, "memory", c.MemoryBackend, "work_dir", c.WorkDir)
	return a, nil
}

// ask runs one question and decorates completion failures with a hint.
func (a *app) ask(ctx context.Context, sessionID, question string) (*pipeline.Result, error) {
	res, err := a.sessions.Ask(ctx, sessionID, question)
	if err != nil {
		return nil, friendlyError(err, a.provider, a.model)
	}
	return res, nil
}

// Close drops every session and releases the memory backend.
func (a *app) Close(ctx context.Context) error {
	err := a.sessions.Close(ctx)
	for _, c := range a.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
