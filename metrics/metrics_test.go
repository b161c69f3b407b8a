package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Outcome("confirmed", "")
	m.Outcome("failed", "EstimationReverted")
	m.Outcome("failed", "EstimationReverted")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Relays.WithLabelValues("confirmed", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Relays.WithLabelValues("failed", "EstimationReverted")))
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe("estimate", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageLatency))
}
