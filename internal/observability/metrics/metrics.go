package metrics

import "github.com/prometheus/client_golang/prometheus"

// ParseMetrics exposes counters/histograms for appointment parsing.
type ParseMetrics struct {
	parseTotal   *prometheus.CounterVec
	fieldIssues  *prometheus.CounterVec
	ocrFailures  *prometheus.CounterVec
	parseLatency *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

func NewParseMetrics(reg prometheus.Registerer) *ParseMetrics {
	m := &ParseMetrics{
		parseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointment_parser",
			Name:      "parse_total",
			Help:      "Total parse requests by source and resulting status",
		}, []string{"source", "status"}),
		fieldIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointment_parser",
			Name:      "field_issues_total",
			Help:      "Fields reported missing or ambiguous",
		}, []string{"field"}),
		ocrFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointment_parser",
			Name:      "ocr_failures_total",
			Help:      "OCR calls that failed or returned no text",
		}, []string{"provider"}),
		parseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appointment_parser",
			Name:      "parse_latency_seconds",
			Help:      "End-to-end parse latency including OCR",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointment_parser",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.parseTotal, m.fieldIssues, m.ocrFailures, m.parseLatency, m.cacheLookups)
	return m
}

// ObserveParse records one finished parse.
func (m *ParseMetrics) ObserveParse(source, status string, fields []string, seconds float64) {
	if m == nil {
		return
	}
	m.parseTotal.WithLabelValues(source, status).Inc()
	for _, f := range fields {
		m.fieldIssues.WithLabelValues(f).Inc()
	}
	m.parseLatency.WithLabelValues(source).Observe(seconds)
}

func (m *ParseMetrics) ObserveOCRFailure(provider string) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	m.ocrFailures.WithLabelValues(provider).Inc()
}

func (m *ParseMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
