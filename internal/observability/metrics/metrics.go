package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for analyses, chat replies and leads.
type Metrics struct {
	analysisTotal *prometheus.CounterVec
	chatReplies   *prometheus.CounterVec
	chatNudges    prometheus.Counter
	leadsCreated  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hairloss",
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Completed analyses by source and result bucket",
		}, []string{"source", "bucket"}),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hairloss",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Chat replies by matched concern category",
		}, []string{"category"}),
		chatNudges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hairloss",
			Subsystem: "chat",
			Name:      "appointment_nudges_total",
			Help:      "Appointment suggestions surfaced in chat",
		}),
		leadsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hairloss",
			Subsystem: "leads",
			Name:      "created_total",
			Help:      "Consultation requests by source",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysisTotal, m.chatReplies, m.chatNudges, m.leadsCreated)
	return m
}

func (m *Metrics) ObserveAnalysis(source string, bucket int) {
	if m == nil {
		return
	}
	m.analysisTotal.WithLabelValues(source, strconv.Itoa(bucket)).Inc()
}

func (m *Metrics) ObserveReply(category string, nudged bool) {
	if m == nil {
		return
	}
	m.chatReplies.WithLabelValues(category).Inc()
	if nudged {
		m.chatNudges.Inc()
	}
}

func (m *Metrics) ObserveLead(source string) {
	if m == nil {
		return
	}
	m.leadsCreated.WithLabelValues(source).Inc()
}
