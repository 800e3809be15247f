// Package codecheck validates generated analysis code and swaps in a
// template when it does not meet the output contract.
package codecheck

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/templates"
)

// Rule is one structural check on generated code. Check returns a non-empty
// reason when the code violates the rule.
type Rule struct {
	Name  string
	Check func(code string) string
}

// requireAll fails when any of the substrings is absent.
func requireAll(name string, subs ...string) Rule {
	return Rule{Name: name, Check: func(code string) string {
		for _, s := range subs {
			if !strings.Contains(code, s) {
				return fmt.Sprintf("missing %s", s)
			}
		}
		return ""
	}}
}

// forbidAny fails when any of the substrings is present.
func forbidAny(name string, subs ...string) Rule {
	return Rule{Name: name, Check: func(code string) string {
		for _, s := range subs {
			if strings.Contains(code, s) {
				return fmt.Sprintf("contains %s", s)
			}
		}
		return ""
	}}
}

// FixedGrids are the hard-coded subplot shapes that are rejected.
var FixedGrids = [][2]int{{3, 3}, {2, 2}, {4, 4}, {2, 3}, {3, 2}, {5, 5}}

func gridPatterns() []string {
	out := make([]string, 0, len(FixedGrids))
	for _, g := range FixedGrids {
		// also matches the "plt." qualified form
		out = append(out, fmt.Sprintf("subplot(%d, %d,", g[0], g[1]))
	}
	return out
}

// Reasons reported by the default rules.
const (
	RuleIncomplete = "incomplete"
	RuleFixedGrid  = "fixed_grid"
)

// DefaultRules are the completeness and layout rules applied to generated code.
var DefaultRules = []Rule{
	requireAll(RuleIncomplete, "plt.savefig", "print("),
	forbidAny(RuleFixedGrid, gridPatterns()...),
}

// Verdict is the outcome of validating generated code.
type Verdict struct {
	Code     string
	Repaired bool
	// Rule and Reason describe the first violation when Repaired is set.
	Rule     string
	Reason   string
	Template string
}

// Validate applies rules to code and substitutes the template selected by
// question on the first violation.
func Validate(code, question string, rules []Rule) Verdict {
	for _, r := range rules {
		if reason := r.Check(code); reason != "" {
			t := templates.Select(question)
			return Verdict{Code: t.Code, Repaired: true, Rule: r.Name, Reason: reason, Template: t.Name}
		}
	}
	return Verdict{Code: code}
}

// ExtractCode pulls the first fenced block from a completion, dropping a
// leading "python" tag. Without fences the trimmed text is returned.
func ExtractCode(raw string) string {
	if !strings.Contains(raw, "```") {
		return strings.TrimSpace(raw)
	}
	parts := strings.Split(raw, "```")
	block := parts[1]
	if strings.HasPrefix(block, "python") {
		block = strings.TrimSpace(block[len("python"):])
	}
	return block
}
