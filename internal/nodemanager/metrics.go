package nodemanager

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/storygraph/internal/apperr"
)

// Metrics records Manager calls in a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec

	NodesCreated prometheus.Counter
	NodesDeleted prometheus.Counter
	EdgesCreated prometheus.Counter
}

var _ Observer = (*Metrics)(nil)

// NewMetrics creates the collectors under namespace and registers them, along
// with the Go runtime and process collectors, in a fresh registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manager_operations_total",
			Help:      "Total number of node manager calls.",
		}, []string{"operation", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "manager_operation_duration_seconds",
			Help:      "Node manager call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of nodes created.",
		}),
		NodesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_deleted_total",
			Help:      "Total number of nodes deleted.",
		}),
		EdgesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_created_total",
			Help:      "Total number of edges created.",
		}),
	}

	m.registry.MustRegister(
		m.Operations, m.Duration,
		m.NodesCreated, m.NodesDeleted, m.EdgesCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe implements Observer.
func (m *Metrics) Observe(_ context.Context, call Call) {
	op := string(call.Op)
	m.Operations.WithLabelValues(op, outcome(call.Err)).Inc()
	m.Duration.WithLabelValues(op).Observe(call.Duration.Seconds())
	if call.Err != nil {
		return
	}

	switch call.Op {
	case OpCreate:
		m.NodesCreated.Inc()
	case OpDeleteByID:
		m.NodesDeleted.Inc()
	case OpFork:
		m.NodesCreated.Inc()
		m.EdgesCreated.Inc()
	case OpLink:
		m.EdgesCreated.Inc()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, apperr.ErrConstraint):
		return "constraint_violation"
	default:
		return "error"
	}
}
