package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineRunsTotal    *prometheus.CounterVec
	pipelinePathTotal    *prometheus.CounterVec
	pipelineIssues       *prometheus.HistogramVec
	pipelineDuration     *prometheus.HistogramVec
	emailDraftsTotal     *prometheus.CounterVec
	reportRequestsTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finvoy",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pipelineRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total synchronous pipeline runs by outcome.",
		},
		[]string{"service", "status"},
	)
	pipelinePathTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "pipeline",
			Name:      "extraction_path_total",
			Help:      "Total pipeline runs by extraction strategy.",
		},
		[]string{"service", "path"},
	)
	pipelineIssues := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "pipeline",
			Name:      "validation_issues",
			Help:      "Distribution of validation issues per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finvoy",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	emailDraftsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "pipeline",
			Name:      "email_drafts_total",
			Help:      "Total corrective emails drafted for flagged invoices.",
		},
		[]string{"service"},
	)
	reportRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finvoy",
			Subsystem: "reports",
			Name:      "requests_total",
			Help:      "Total workflow, risk and cashflow report requests.",
		},
		[]string{"service", "report"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineRunsTotal,
		pipelinePathTotal,
		pipelineIssues,
		pipelineDuration,
		emailDraftsTotal,
		reportRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		pipelineRunsTotal:   pipelineRunsTotal,
		pipelinePathTotal:   pipelinePathTotal,
		pipelineIssues:      pipelineIssues,
		pipelineDuration:    pipelineDuration,
		emailDraftsTotal:    emailDraftsTotal,
		reportRequestsTotal: reportRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/invoices/"):
		return "/v1/invoices/{invoice_id}"
	case strings.HasPrefix(path, "/v1/risk/clients/"):
		return "/v1/risk/clients/{client_name}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordPipelineRun(service, path string, issueCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.pipelineRunsTotal.WithLabelValues(service, status).Inc()
	m.pipelineDuration.WithLabelValues(service).Observe(duration.Seconds())

	if err != nil {
		return
	}
	if path == "" {
		path = "unknown"
	}
	m.pipelinePathTotal.WithLabelValues(service, path).Inc()
	m.pipelineIssues.WithLabelValues(service).Observe(float64(issueCount))
}

func (m *HTTPServerMetrics) RecordEmailDraft(service string) {
	m.emailDraftsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordReportRequest(service, report string) {
	if report == "" {
		report = "unknown"
	}
	m.reportRequestsTotal.WithLabelValues(service, report).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
