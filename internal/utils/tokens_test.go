package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"short", "oi", 1},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestCountTokensRunes(t *testing.T) {
	// accented text is counted per rune, not per byte
	if got := utils.CountTokens("média"); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestCountMessageTokens(t *testing.T) {
	got := utils.CountMessageTokens(strings.Repeat("a", 40), strings.Repeat("b", 8), "")
	if got != 12 {
		t.Fatalf("got %d, want 12", got)
	}
}

func TestSafeWriteFileCreatesParent(t *testing.T) {
	path := t.TempDir() + "/charts/plot.png"
	if err := utils.SafeWriteFile(path, []byte("png")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := utils.SafeWriteFile(path, []byte("png2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected: %q", b)
	}
}
