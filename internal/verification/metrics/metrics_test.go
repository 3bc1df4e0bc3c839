package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementCodesSent("email")
	m.IncrementCodesSent("email")
	m.IncrementCodeFailure("phone", "invalid")
	m.IncrementDecision("approved")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CodesSent.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CodeFailures.WithLabelValues("phone", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approved")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementInitialized()
		m.IncrementWriteConflict()
		m.ObserveOperation("status", 0.1)
	})
}
