package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. Every method is nil-safe so callers can
// record unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	documents     *prometheus.CounterVec
	verification  *prometheus.CounterVec
	retrievals    *prometheus.CounterVec
	inferenceErrs *prometheus.CounterVec
	inference     *prometheus.HistogramVec
	chatTurns     *prometheus.CounterVec
	vectorOps     *prometheus.HistogramVec
	reindexJobs   *prometheus.CounterVec
	apiRequests   *prometheus.HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide metrics once and returns them.
func Init() *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_documents_total",
			Help: "Document lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		verification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_vector_verification_total",
			Help: "Post-index verification results.",
		}, []string{"result"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_retrievals_total",
			Help: "Permission-filtered retrievals by outcome.",
		}, []string{"outcome"}),
		inferenceErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_inference_failures_total",
			Help: "Inference failures by pipeline stage.",
		}, []string{"stage"}),
		inference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexi_inference_request_seconds",
			Help:    "Inference API request latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"endpoint", "model", "status"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_chat_turns_total",
			Help: "Chat turns by whether retrieval ran.",
		}, []string{"searched"}),
		vectorOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexi_vector_index_op_seconds",
			Help:    "Vector index operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op", "status"}),
		reindexJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexi_reindex_jobs_total",
			Help: "Reconciliation jobs by outcome.",
		}, []string{"outcome"}),
		apiRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexi_api_request_seconds",
			Help:    "HTTP API latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.documents, m.verification, m.retrievals, m.inferenceErrs, m.inference,
		m.chatTurns, m.vectorOps, m.reindexJobs, m.apiRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncDocument(operation, outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncVerification(result string) {
	if m == nil {
		return
	}
	m.verification.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRetrieval(outcome string) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncInferenceFailure(stage string) {
	if m == nil {
		return
	}
	m.inferenceErrs.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveInference(endpoint, model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.inference.WithLabelValues(endpoint, model, status).Observe(dur.Seconds())
}

func (m *Metrics) IncChatTurn(searched bool) {
	if m == nil {
		return
	}
	label := "false"
	if searched {
		label = "true"
	}
	m.chatTurns.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveVectorOp(provider, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.WithLabelValues(provider, op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncReindexJob(outcome string) {
	if m == nil {
		return
	}
	m.reindexJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Observe(dur.Seconds())
}
