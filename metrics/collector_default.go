package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CollectorDefault struct {
	registry   *prometheus.Registry
	registerer prometheus.Registerer
}

func NewDefaultCollector() Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &CollectorDefault{registry: registry, registerer: registry}
}

func (c *CollectorDefault) WithPrefix(prefix string) Collector {
	return &CollectorDefault{
		registry:   c.registry,
		registerer: prometheus.WrapRegistererWithPrefix(prefix+"_", c.registerer),
	}
}

func (c *CollectorDefault) RegisterMetric(metric prometheus.Collector) {
	c.registerer.MustRegister(metric)
}

func (c *CollectorDefault) GetHttpHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
