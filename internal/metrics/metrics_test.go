package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.Turn("code")
	p.Turn("code")
	p.Turn("text")
	p.TemplateRepair("histogram", "incomplete")
	p.ExecutionError()
	p.ExecutionDuration(1500 * time.Millisecond)
	p.Extraction("json_line")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.turns.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.turns.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.repairs.WithLabelValues("histogram", "incomplete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.execErrs))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.extracted.WithLabelValues("json_line")))

	n, err := testutil.GatherAndCount(reg, "csvinsight_execution_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNopRecorder(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop.Turn("code")
		Nop.TemplateRepair("a", "b")
		Nop.ExecutionError()
		Nop.ExecutionDuration(time.Second)
		Nop.Extraction("raw")
	})
}
