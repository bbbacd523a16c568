package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the lead submission pipeline.
type PipelineMetrics struct {
	outcomesTotal       *prometheus.CounterVec
	attemptsTotal       *prometheus.CounterVec
	attemptsPerLead     prometheus.Histogram
	duplicateChecks     *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	submitLatency       prometheus.Histogram
	recordStoreFailures prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "outcomes_total",
			Help:      "Resolved lead submissions by status",
		}, []string{"status"}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "submit_attempts_total",
			Help:      "Case system submit attempts by result",
		}, []string{"result"}),
		attemptsPerLead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "attempts_per_lead",
			Help:      "Submit attempts used per lead",
			Buckets:   []float64{1, 2, 3},
		}),
		duplicateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "duplicate_checks_total",
			Help:      "Duplicate checks by result (duplicate, new, degraded)",
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "notifications_total",
			Help:      "Staff notifications by kind and delivery status",
		}, []string{"kind", "status"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "pipeline_latency_seconds",
			Help:      "End-to-end latency of SubmitLead",
			Buckets:   prometheus.DefBuckets,
		}),
		recordStoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lawfirm",
			Subsystem: "intake",
			Name:      "record_store_failures_total",
			Help:      "Record store writes that failed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.outcomesTotal,
		m.attemptsTotal,
		m.attemptsPerLead,
		m.duplicateChecks,
		m.notificationsTotal,
		m.submitLatency,
		m.recordStoreFailures,
	)
	return m
}

func (m *PipelineMetrics) ObserveOutcome(status string, attempts int) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(status).Inc()
	if attempts > 0 {
		m.attemptsPerLead.Observe(float64(attempts))
	}
}

// ObserveAttempt records one submit attempt; result is "success" or a failure kind.
func (m *PipelineMetrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveDuplicateCheck(result string) {
	if m == nil {
		return
	}
	m.duplicateChecks.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveNotification(kind string, delivered bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !delivered {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

func (m *PipelineMetrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.submitLatency.Observe(seconds)
}

func (m *PipelineMetrics) ObserveRecordStoreFailure() {
	if m == nil {
		return
	}
	m.recordStoreFailures.Inc()
}
