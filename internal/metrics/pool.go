package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Stat exported as gauges
type PoolStats interface {
	TotalConns() int32
	AcquiredConns() int32
	IdleConns() int32
	MaxConns() int32
}

// PoolCollector samples connection pool statistics on every scrape
type PoolCollector struct {
	stats func() PoolStats

	total    *prometheus.Desc
	acquired *prometheus.Desc
	idle     *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolCollector creates a collector for the pool behind stats
func NewPoolCollector(stats func() PoolStats) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, nil, nil)
	}
	return &PoolCollector{
		stats:    stats,
		total:    desc("total_conns", "Connections currently open"),
		acquired: desc("acquired_conns", "Connections currently checked out"),
		idle:     desc("idle_conns", "Idle connections"),
		max:      desc("max_conns", "Configured pool size"),
	}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.acquired
	ch <- c.idle
	ch <- c.max
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	if s == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
}

// RegisterPool registers a PoolCollector on the default registry
func RegisterPool(stats func() PoolStats) error {
	return prometheus.Register(NewPoolCollector(stats))
}
