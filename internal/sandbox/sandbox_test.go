package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	calls  [][]string
	stdout string
	stderr string
	exit   int
	err    error
	// chart is written to the image path argument when non-nil
	chart []byte
	block bool
}

func (f *fakeRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	f.calls = append(f.calls, append([]string{dir, name}, args...))
	if f.block {
		<-ctx.Done()
		return "", "", -1, ctx.Err()
	}
	if f.chart != nil {
		if err := os.WriteFile(args[len(args)-1], f.chart, 0o600); err != nil {
			return "", "", -1, err
		}
	}
	return f.stdout, f.stderr, f.exit, f.err
}

func TestExecuteSuccessWithChart(t *testing.T) {
	dir := t.TempDir()
	fr := &fakeRunner{stdout: `{"answer": "ok"}` + "\n", chart: []byte("PNG")}
	e := New(fr, WithPython("python3.12"))
	out, err := e.Execute(context.Background(), dir, []byte("a\n1\n"), "df = pd.read_csv('x.csv')\nprint(1)")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(out.Image) != "PNG" || !strings.Contains(out.Stdout, "answer") {
		t.Fatalf("unexpected output: %+v", out)
	}
	call := fr.calls[0]
	if call[0] != dir || call[1] != "python3.12" || call[2] != HarnessFile || call[3] != DataFile || call[4] != ProgramFile {
		t.Fatalf("unexpected invocation: %v", call)
	}
	prog, err := os.ReadFile(filepath.Join(dir, ProgramFile))
	if err != nil {
		t.Fatalf("read program: %v", err)
	}
	if strings.Contains(string(prog), "read_csv") {
		t.Fatalf("reload was not removed: %q", prog)
	}
	data, _ := os.ReadFile(filepath.Join(dir, DataFile))
	if string(data) != "a\n1\n" {
		t.Fatalf("snapshot not written: %q", data)
	}
}

func TestExecuteDropsStaleChart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ImageFile), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := New(&fakeRunner{stdout: "no chart"}).Execute(context.Background(), dir, nil, "print(1)")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Image != nil {
		t.Fatalf("stale chart returned: %q", out.Image)
	}
}

func TestExecuteFaultPrefersStderr(t *testing.T) {
	cases := []struct {
		name   string
		runner *fakeRunner
		want   string
	}{
		{"stderr", &fakeRunner{stderr: "division by zero\n", exit: 1}, "division by zero"},
		{"exit without stderr", &fakeRunner{exit: 2}, "exit status 2"},
		{"start failure", &fakeRunner{err: errors.New("exec: python3: not found"), exit: -1}, "exec: python3: not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.runner).Execute(context.Background(), t.TempDir(), nil, "1/0")
			var f *Fault
			if !errors.As(err, &f) || f.Message != tc.want {
				t.Fatalf("expected fault %q, got %v", tc.want, err)
			}
			if errors.Is(err, ErrTimeout) {
				t.Fatalf("not a timeout")
			}
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	e := New(&fakeRunner{block: true}, WithTimeout(20*time.Millisecond))
	_, err := e.Execute(context.Background(), t.TempDir(), nil, "while True: pass")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRewrite(t *testing.T) {
	in := strings.Join([]string{
		"import pandas as pd",
		"df = pd.read_csv('dados.csv')",
		"img_path = '/tmp/out.png'",
		"if img_path == '':",
		"    pass",
		"plt.savefig('grafico.png', dpi=150)",
		`fig.savefig("a/b.png")`,
		"label = 'x.png'",
		"plt.savefig(img_path)",
	}, "\n")
	want := strings.Join([]string{
		"import pandas as pd",
		"pass",
		"pass",
		"if img_path == '':",
		"    pass",
		"plt.savefig(img_path, dpi=150)",
		"fig.savefig(img_path)",
		"label = 'x.png'",
		"plt.savefig(img_path)",
	}, "\n")
	if got := Rewrite(in); got != want {
		t.Fatalf("Rewrite mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRewriteKeepsBlocksValid(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "only statement in block",
			in:   "if df is None:\n    df = pd.read_csv('dados.csv')\nprint(1)",
			want: "if df is None:\n    pass\nprint(1)",
		},
		{
			name: "multi-line call",
			in:   "for _ in range(1):\n    df = pd.read_csv(\n        'dados.csv',\n        sep=';')\n    print(len(df))",
			want: "for _ in range(1):\n    pass\n    print(len(df))",
		},
		{
			name: "backslash continuation",
			in:   "df = pd.read_csv('dados.csv') \\\n    .dropna()\nprint(2)",
			want: "pass\nprint(2)",
		},
		{
			name: "brackets inside strings and comments",
			in:   "df = pd.read_csv('a(.csv')  # (\nprint(3)",
			want: "pass\nprint(3)",
		},
		{
			name: "unterminated at end of program",
			in:   "df = pd.read_csv(\n    'dados.csv'",
			want: "pass",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Rewrite(tc.in); got != tc.want {
				t.Fatalf("Rewrite mismatch:\n got %q\nwant %q", got, tc.want)
			}
		})
	}
}

// TestHarnessIntegration runs the embedded harness with a real interpreter.
func TestHarnessIntegration(t *testing.T) {
	py, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	if err := exec.Command(py, "-c", "import pandas, matplotlib, seaborn").Run(); err != nil {
		t.Skip("pandas/matplotlib/seaborn not installed")
	}
	e := New(nil, WithPython(py), WithTimeout(60*time.Second))
	snapshot := []byte("age,income\n30,1000\n40,2000\n50,3500\n")
	code := "plt.hist(df['age'])\nplt.savefig('x.png')\nprint(json.dumps({'answer': str(len(df))}))"
	out, err := e.Execute(context.Background(), t.TempDir(), snapshot, code)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.Image) == 0 || !strings.Contains(out.Stdout, `{"answer": "3"}`) {
		t.Fatalf("unexpected output: stdout=%q image=%d bytes", out.Stdout, len(out.Image))
	}

	_, err = e.Execute(context.Background(), t.TempDir(), snapshot, "x = 1/0")
	var f *Fault
	if !errors.As(err, &f) || !strings.Contains(f.Message, "division by zero") {
		t.Fatalf("expected division fault, got %v", err)
	}
}
