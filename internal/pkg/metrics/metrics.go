package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hris_memorandum"

type Metrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	generated   *prometheus.CounterVec
	expired     prometheus.Counter
	gatherer    prometheus.Gatherer
}

// New registers the memorandum collectors on a fresh registry together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Memorandum status transitions applied, by event and resulting status.",
		}, []string{"event", "to_status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_rejected_total",
			Help:      "Memorandum actions refused, by event and error kind.",
		}, []string{"event", "kind"}),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_total",
			Help:      "Memoranda generated from attendance anomalies, by type.",
		}, []string{"type"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_total",
			Help:      "Pending memoranda moved to EXPIRADO by the sweep.",
		}),
		gatherer: gatherer,
	}
	reg.MustRegister(m.transitions, m.rejected, m.generated, m.expired)
	return m
}

func (m *Metrics) Transition(event, toStatus string) {
	m.transitions.WithLabelValues(event, toStatus).Inc()
}

func (m *Metrics) Rejected(event, kind string) {
	m.rejected.WithLabelValues(event, kind).Inc()
}

func (m *Metrics) Generated(memorandumType string) {
	m.generated.WithLabelValues(memorandumType).Inc()
}

func (m *Metrics) Expired(n int) {
	m.expired.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
