package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Relays       *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec
	AccountNonce prometheus.Gauge
	Markets      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betrelay",
			Name:      "relays_total",
			Help:      "Relay attempts by terminal state and error kind.",
		}, []string{"state", "kind"}),
		StageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "betrelay",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each relay stage.",
			Buckets:   []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30, 90},
		}, []string{"stage"}),
		AccountNonce: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "betrelay",
			Name:      "relay_account_nonce",
			Help:      "Next nonce the relay account will use.",
		}),
		Markets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "betrelay",
			Name:      "markets_cached",
			Help:      "Markets held by the market book.",
		}),
	}
	reg.MustRegister(m.Relays, m.StageLatency, m.AccountNonce, m.Markets)
	return m
}

// Observe records how long a stage took since start
func (m *Metrics) Observe(stage string, start time.Time) {
	m.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Outcome(state, kind string) {
	if kind == "" {
		kind = "none"
	}
	m.Relays.WithLabelValues(state, kind).Inc()
}
