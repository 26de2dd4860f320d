package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	extractionPath  *prometheus.CounterVec
	issuesFound     *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "invoice_process_total",
			Help:      "Total processed invoices by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "invoice_process_duration_seconds",
			Help:      "Invoice processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "invoice_process_in_flight",
			Help:      "Number of in-flight invoice processing runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between invoice upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	extractionPath := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "extraction_path_total",
			Help:      "Total pipeline runs by extraction strategy used.",
		},
		[]string{"service", "path"},
	)
	issuesFound := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "worker",
			Name:      "validation_issues",
			Help:      "Distribution of validation issues per processed invoice.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, extractionPath, issuesFound)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		extractionPath:  extractionPath,
		issuesFound:     issuesFound,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartInvoice() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishInvoice(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordExtractionPath(service, path string) {
	if path == "" {
		path = "unknown"
	}
	m.extractionPath.WithLabelValues(service, path).Inc()
}

func (m *WorkerMetrics) RecordIssues(service string, count int) {
	m.issuesFound.WithLabelValues(service).Observe(float64(count))
}
