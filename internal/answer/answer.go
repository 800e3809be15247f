// Package answer recovers the structured {"answer": ...} emission from a
// program's captured output.
package answer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy tries to find an answer in raw output.
type Strategy struct {
	Name  string
	Parse func(raw string) (string, bool)
}

// RawFallback names the result when no strategy matched.
const RawFallback = "raw"

// Strategies are tried in order; the first match wins.
var Strategies = []Strategy{
	{Name: "print_json", Parse: printedJSON},
	{Name: "print_dict", Parse: printedDict},
	{Name: "json_line", Parse: jsonLine},
	{Name: "literal_line", Parse: literalLine},
}

// Result is the extracted answer and the strategy that produced it.
type Result struct {
	Answer   string
	Strategy string
}

// Extract runs Strategies over raw and falls back to the trimmed text.
func Extract(raw string) Result {
	for _, s := range Strategies {
		if a, ok := s.Parse(raw); ok {
			return Result{Answer: a, Strategy: s.Name}
		}
	}
	return Result{Answer: strings.TrimSpace(raw), Strategy: RawFallback}
}

var (
	printJSONRe = regexp.MustCompile(`print\s*\(\s*['"](\{[^}]+\})['"]`)
	printDictRe = regexp.MustCompile(`print\s*\(\s*\{['"]answer['"]\s*:\s*['"]([^'"]+)['"]\s*\}\s*\)`)
)

// printedJSON matches a print call whose argument is a quoted JSON object.
func printedJSON(raw string) (string, bool) {
	m := printJSONRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return fromJSON(m[1])
}

// printedDict matches a print call with a dict literal holding only an answer.
func printedDict(raw string) (string, bool) {
	m := printDictRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// jsonLine scans lines from the end for a JSON object with an answer key,
// retrying single-quoted dict lines with the quotes swapped.
func jsonLine(raw string) (string, bool) {
	lines := nonEmptyLines(raw)
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if a, ok := fromJSON(line); ok {
			return a, true
		}
		if isDictLine(line) {
			if a, ok := fromJSON(strings.ReplaceAll(line, "'", `"`)); ok {
				return a, true
			}
		}
	}
	return "", false
}

// literalLine scans lines from the end for a Python dict literal.
func literalLine(raw string) (string, bool) {
	lines := nonEmptyLines(raw)
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !isDictLine(line) {
			continue
		}
		v, err := ParseLiteral(line)
		if err != nil {
			continue
		}
		if d, ok := v.(map[string]any); ok {
			if a, ok := d["answer"]; ok {
				return stringify(a), true
			}
		}
	}
	return "", false
}

func isDictLine(line string) bool {
	return strings.HasPrefix(line, "{'answer':") && strings.HasSuffix(line, "}")
}

func fromJSON(s string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return "", false
	}
	a, ok := obj["answer"]
	if !ok {
		return "", false
	}
	return stringify(a), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "None"
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func nonEmptyLines(raw string) []string {
	var out []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
