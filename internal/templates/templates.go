// Package templates holds the fixed analysis programs used when generated
// code fails validation.
package templates

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed programs/*.py
var programs embed.FS

// Template is one parameterless analysis program.
type Template struct {
	Name  string
	Title string
	// AnyOf selects the template when any term occurs in the question.
	AnyOf []string
	// AllOf selects the template when every term occurs in the question.
	AllOf []string
	Code  string
}

// Names in selection order.
const (
	Exploratory     = "exploratory"
	Histogram       = "histogram"
	Boxplot         = "boxplot"
	Correlation     = "correlation"
	Interval        = "interval"
	CentralTendency = "central_tendency"
	Variability     = "variability"
	Default         = "default"
)

var catalog = []Template{
	{Name: Exploratory, Title: "Análise exploratória", AnyOf: []string{"exploratória", "eda"}},
	{Name: Histogram, Title: "Histogramas", AnyOf: []string{"histograma"}},
	{Name: Boxplot, Title: "Boxplots e outliers", AnyOf: []string{"boxplot", "outliers"}},
	{Name: Correlation, Title: "Matriz de correlação", AnyOf: []string{"correlação", "heatmap"}},
	{Name: Interval, Title: "Intervalos", AnyOf: []string{"intervalo"}, AllOf: []string{"mínimo", "máximo"}},
	{Name: CentralTendency, Title: "Tendência central", AnyOf: []string{"tendência central"}, AllOf: []string{"média", "mediana"}},
	{Name: Variability, Title: "Variabilidade", AnyOf: []string{"variabilidade", "desvio padrão", "variância"}},
	{Name: Default, Title: "Histogramas (padrão)"},
}

func init() {
	for i := range catalog {
		b, err := programs.ReadFile("programs/" + catalog[i].Name + ".py")
		if err != nil {
			panic(fmt.Sprintf("templates: missing program %s: %v", catalog[i].Name, err))
		}
		catalog[i].Code = string(b)
	}
}

// All returns the catalog in selection order.
func All() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Get returns the template with the given name.
func Get(name string) (Template, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// Select picks the first template whose terms match question, falling back
// to the default histogram.
func Select(question string) Template {
	q := strings.ToLower(question)
	for _, t := range catalog {
		if t.matches(q) {
			return t
		}
	}
	return catalog[len(catalog)-1]
}

func (t Template) matches(q string) bool {
	for _, term := range t.AnyOf {
		if strings.Contains(q, term) {
			return true
		}
	}
	if len(t.AllOf) == 0 {
		return false
	}
	for _, term := range t.AllOf {
		if !strings.Contains(q, term) {
			return false
		}
	}
	return true
}
