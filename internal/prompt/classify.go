// Package prompt routes a question to code or prose and builds the system
// instruction sent to the completion service.
package prompt

import "strings"

// Mode is the routing decision made once per turn.
type Mode string

const (
	ModeText Mode = "text"
	ModeCode Mode = "code"
)

// Keywords force the code path when any of them occurs in the question.
var Keywords = []string{
	"gráfico", "plot", "histograma", "boxplot", "scatter",
	"heatmap", "correlação", "distribuição", "exploratória",
	"eda", "amostra", "visualizar", "plots", "outliers",
	"intervalo", "mínimo", "máximo", "média", "mediana", "moda",
	"desvio padrão", "variância", "tendência central", "variabilidade",
}

// Classify returns the mode for question and the keywords that matched.
// Matching is a case-insensitive substring test.
func Classify(question string) (Mode, []string) {
	q := strings.ToLower(question)
	var matched []string
	for _, kw := range Keywords {
		if strings.Contains(q, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return ModeCode, matched
	}
	return ModeText, nil
}
