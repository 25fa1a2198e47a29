package echoapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	feesGenerated *prometheus.CounterVec
	feesPaid      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escola",
			Name:      "fees_generated_total",
			Help:      "Number of fees created by bulk & yearly generations.",
		}, []string{"mode"}),
		feesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escola",
			Name:      "fees_paid_total",
			Help:      "Number of fees marked as paid.",
		}),
	}
	m.registry.MustRegister(
		m.feesGenerated,
		m.feesPaid,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) FeesGenerated(mode string, n int) {
	m.feesGenerated.WithLabelValues(mode).Add(float64(n))
}

func (m *Metrics) FeePaid() {
	m.feesPaid.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
