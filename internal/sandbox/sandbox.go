// Package sandbox runs analysis programs in a separate interpreter process
// against a snapshot of the dataset.
package sandbox

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

//go:embed harness.py
var harness []byte

// ErrTimeout marks executions cut off by the configured bound.
var ErrTimeout = errors.New("execution timed out")

// File names inside a session's work directory.
const (
	DataFile    = "data.csv"
	ProgramFile = "analysis.py"
	HarnessFile = "harness.py"
	ImageFile   = "plot.png"
)

// Fault is a failure raised while running the program. Message holds the
// captured error text.
type Fault struct {
	Message string
	Timeout bool
}

func (f *Fault) Error() string { return f.Message }

func (f *Fault) Unwrap() error {
	if f.Timeout {
		return ErrTimeout
	}
	return nil
}

// Output is what a successful run produced. Image is nil when no chart was written.
type Output struct {
	Stdout   string
	Stderr   string
	Image    []byte
	Duration time.Duration
}

// Engine executes programs through a CommandRunner.
type Engine struct {
	runner  CommandRunner
	python  string
	timeout time.Duration
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPython sets the interpreter binary.
func WithPython(bin string) Option {
	return func(e *Engine) {
		if bin != "" {
			e.python = bin
		}
	}
}

// WithTimeout bounds each run; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Engine. A nil runner uses ExecRunner.
func New(runner CommandRunner, opts ...Option) *Engine {
	if runner == nil {
		runner = &ExecRunner{}
	}
	e := &Engine{
		runner:  runner,
		python:  "python3",
		timeout: 60 * time.Second,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute writes the snapshot and rewritten program into dir, runs them and
// collects stdout and the chart. Program failures are returned as *Fault;
// other errors mean the run could not be prepared.
func (e *Engine) Execute(ctx context.Context, dir string, snapshot []byte, code string) (*Output, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	imgPath := filepath.Join(dir, ImageFile)
	// a chart left by a previous turn must never be reported for this one
	if err := os.Remove(imgPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale chart: %w", err)
	}
	files := map[string][]byte{
		DataFile:    snapshot,
		ProgramFile: []byte(Rewrite(code)),
		HarnessFile: harness,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	stdout, stderr, exitCode, err := e.runner.Run(runCtx, dir, e.python, HarnessFile, DataFile, ProgramFile, imgPath)
	elapsed := time.Since(start)
	e.log.Debug("program finished", "dir", dir, "exit_code", exitCode, "duration", elapsed)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &Fault{Message: fmt.Sprintf("execution exceeded %s", e.timeout), Timeout: true}
	}
	if err != nil {
		return nil, &Fault{Message: faultText(stderr, err)}
	}
	if exitCode != 0 {
		return nil, &Fault{Message: faultText(stderr, fmt.Errorf("exit status %d", exitCode))}
	}

	out := &Output{Stdout: stdout, Stderr: stderr, Duration: elapsed}
	img, err := os.ReadFile(imgPath)
	switch {
	case err == nil:
		out.Image = img
	case errors.Is(err, os.ErrNotExist):
		e.log.Debug("no chart produced", "path", imgPath)
	default:
		return nil, fmt.Errorf("read chart: %w", err)
	}
	return out, nil
}

func faultText(stderr string, err error) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	return err.Error()
}

var (
	imgAssign = regexp.MustCompile(`^\s*img_path\s*=[^=]`)
	singlePNG = regexp.MustCompile(`'[^']*\.png'`)
	doublePNG = regexp.MustCompile(`"[^"]*\.png"`)
)

// Rewrite neutralizes dataset reloads and output path overrides: a statement
// that reads a CSV or reassigns img_path becomes pass at the same indentation
// (continuation lines included) and .png literals passed to savefig become
// img_path.
func Rewrite(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.Contains(line, "read_csv") || (imgAssign.MatchString(line) && !strings.Contains(line, "savefig")) {
			out = append(out, indentOf(line)+"pass")
			for depth, cur := bracketDepth(line), line; (depth > 0 || continues(cur)) && i+1 < len(lines); {
				i++
				cur = lines[i]
				depth += bracketDepth(cur)
			}
			continue
		}
		if strings.Contains(line, "savefig(") {
			line = singlePNG.ReplaceAllString(line, "img_path")
			line = doublePNG.ReplaceAllString(line, "img_path")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// continues reports an explicit backslash line continuation.
func continues(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t"), "\\")
}

// bracketDepth is the number of brackets line leaves open, ignoring string
// literals and comments.
func bracketDepth(line string) int {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range line {
		switch {
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '#':
			return depth
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		}
	}
	return depth
}
