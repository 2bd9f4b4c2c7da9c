// Package metrics provides Prometheus metrics for the mapping pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache lookup results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// MappingMetrics contains Prometheus metrics for suggestion, provider and
// cache activity. A nil *MappingMetrics is valid and records nothing.
type MappingMetrics struct {
	registry *prometheus.Registry

	suggestionsTotal     *prometheus.CounterVec
	unknownValuesTotal   prometheus.Counter
	providerCallsTotal   *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	cacheLookupsTotal    *prometheus.CounterVec
	classifierBatches    *prometheus.CounterVec
	learnedMappingsTotal prometheus.Counter
}

// NewMappingMetrics creates and registers the metrics on registry.
func NewMappingMetrics(registry *prometheus.Registry) (*MappingMetrics, error) {
	m := &MappingMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewDefault creates a fresh registry carrying the Go runtime and process
// collectors plus the mapping metrics.
func NewDefault() (*MappingMetrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMappingMetrics(registry)
}

func (m *MappingMetrics) initMetrics() {
	m.suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_mapper_suggestions_total",
			Help: "Total number of suggestions returned, by source and target",
		},
		[]string{"source", "mapped_to"},
	)

	m.unknownValuesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_mapper_unknown_values_total",
			Help: "Total number of labels no layer could resolve",
		},
	)

	m.providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_mapper_provider_calls_total",
			Help: "Total number of calls to AI providers",
		},
		[]string{"provider", "operation", "status"},
	)

	m.providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donor_mapper_provider_call_duration_seconds",
			Help:    "Time taken by AI provider calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"provider", "operation"},
	)

	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_mapper_cache_lookups_total",
			Help: "Total number of cache lookups by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	m.classifierBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_mapper_classifier_batches_total",
			Help: "Total number of bulk classification batches",
		},
		[]string{"status"}, // status: success, malformed, error
	)

	m.learnedMappingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_mapper_learned_mappings_total",
			Help: "Total number of classifier results persisted as mappings",
		},
	)
}

// Describe implements the Collector interface
func (m *MappingMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.suggestionsTotal.Describe(ch)
	m.unknownValuesTotal.Describe(ch)
	m.providerCallsTotal.Describe(ch)
	m.providerCallDuration.Describe(ch)
	m.cacheLookupsTotal.Describe(ch)
	m.classifierBatches.Describe(ch)
	m.learnedMappingsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *MappingMetrics) Collect(ch chan<- prometheus.Metric) {
	m.suggestionsTotal.Collect(ch)
	m.unknownValuesTotal.Collect(ch)
	m.providerCallsTotal.Collect(ch)
	m.providerCallDuration.Collect(ch)
	m.cacheLookupsTotal.Collect(ch)
	m.classifierBatches.Collect(ch)
	m.learnedMappingsTotal.Collect(ch)
}

// Registry returns the registry the metrics are registered on.
func (m *MappingMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *MappingMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSuggestion records a returned suggestion
func (m *MappingMetrics) RecordSuggestion(source, mappedTo string) {
	if m == nil {
		return
	}
	m.suggestionsTotal.WithLabelValues(source, mappedTo).Inc()
}

// RecordUnknown records labels left unresolved
func (m *MappingMetrics) RecordUnknown(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.unknownValuesTotal.Add(float64(count))
}

// RecordProviderCall records an AI provider call and its duration
func (m *MappingMetrics) RecordProviderCall(provider, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.providerCallsTotal.WithLabelValues(provider, operation, status).Inc()
	m.providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss in namespace
func (m *MappingMetrics) RecordCacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// RecordClassifierBatch records the outcome of one classification batch
func (m *MappingMetrics) RecordClassifierBatch(status string) {
	if m == nil {
		return
	}
	m.classifierBatches.WithLabelValues(status).Inc()
}

// RecordLearnedMapping records a classifier result persisted to the store
func (m *MappingMetrics) RecordLearnedMapping() {
	if m == nil {
		return
	}
	m.learnedMappingsTotal.Inc()
}
