// Package metrics defines the prometheus collectors for pipeline outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives pipeline events. Nop discards them.
type Recorder interface {
	Turn(mode string)
	TemplateRepair(template, reason string)
	ExecutionError()
	ExecutionDuration(d time.Duration)
	Extraction(strategy string)
}

// Pipeline holds the collectors registered for one process.
type Pipeline struct {
	turns     *prometheus.CounterVec
	repairs   *prometheus.CounterVec
	execErrs  prometheus.Counter
	execTime  prometheus.Histogram
	extracted *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csvinsight_turns_total",
				Help: "Questions answered, by routing mode",
			},
			[]string{"mode"},
		),
		repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csvinsight_template_repairs_total",
				Help: "Generated programs replaced by a template",
			},
			[]string{"template", "reason"},
		),
		execErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvinsight_execution_errors_total",
			Help: "Program executions that raised a fault",
		}),
		execTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "csvinsight_execution_duration_seconds",
			Help:    "Duration of program executions",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		extracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csvinsight_extraction_total",
				Help: "Answers extracted, by strategy",
			},
			[]string{"strategy"},
		),
	}
	reg.MustRegister(p.turns, p.repairs, p.execErrs, p.execTime, p.extracted)
	return p
}

func (p *Pipeline) Turn(mode string) { p.turns.WithLabelValues(mode).Inc() }

func (p *Pipeline) TemplateRepair(template, reason string) {
	p.repairs.WithLabelValues(template, reason).Inc()
}

func (p *Pipeline) ExecutionError() { p.execErrs.Inc() }

func (p *Pipeline) ExecutionDuration(d time.Duration) { p.execTime.Observe(d.Seconds()) }

func (p *Pipeline) Extraction(strategy string) { p.extracted.WithLabelValues(strategy).Inc() }

type nop struct{}

func (nop) Turn(string)                     {}
func (nop) TemplateRepair(string, string)   {}
func (nop) ExecutionError()                 {}
func (nop) ExecutionDuration(time.Duration) {}
func (nop) Extraction(string)               {}

// Nop is a Recorder that records nothing.
var Nop Recorder = nop{}
