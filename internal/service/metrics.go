package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts orchestration outcomes.
type Metrics struct {
	uploads         *prometheus.CounterVec
	inconsistencies *prometheus.CounterVec
}

// NewMetrics creates the service counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_uploads_total",
				Help: "Upload attempts by outcome.",
			},
			[]string{"result"},
		),
		inconsistencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_inconsistencies_total",
				Help: "Operations that left the file store and the records out of step.",
			},
			[]string{"operation"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.inconsistencies} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) upload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) inconsistency(op string) {
	if m == nil {
		return
	}
	m.inconsistencies.WithLabelValues(op).Inc()
}
