package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of the docknet shim metrics.
type metrics struct {
	Registry *prometheus.Registry

	ResolutionTotal *prometheus.CounterVec
	ProvisionTotal  *prometheus.CounterVec
	RemovalTotal    *prometheus.CounterVec
}

// Constructor of the metrics. They are automatically registered in the
// Prometheus registry.
func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	namespace := "docknet"

	return &metrics{
		Registry: registry,

		ResolutionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "networks",
			Name:      "resolution_total",
			Help:      "Network identifier resolutions by result.",
		}, []string{"result"}),
		ProvisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "networks",
			Name:      "provision_total",
			Help:      "Fabric network provisioning attempts by result.",
		}, []string{"result"}),
		RemovalTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "networks",
			Name:      "removal_total",
			Help:      "Fabric network removals by result.",
		}, []string{"result"}),
	}
}

// Increments a result-labeled counter with the outcome of an operation.
func (metrics *metrics) observe(counter *prometheus.CounterVec, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	counter.WithLabelValues(result).Inc()
}
