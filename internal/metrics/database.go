package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DBCollector exposes pgxpool statistics at scrape time.
type DBCollector struct {
	pool *pgxpool.Pool

	open    *prometheus.Desc
	inUse   *prometheus.Desc
	idle    *prometheus.Desc
	maxOpen *prometheus.Desc
	waits   *prometheus.Desc
}

// NewDBCollector creates a collector for the pool; register it with Registry.
func NewDBCollector(pool *pgxpool.Pool) *DBCollector {
	return &DBCollector{
		pool:    pool,
		open:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "connections_open"), "Total number of open database connections", nil, nil),
		inUse:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "connections_in_use"), "Number of database connections currently in use (acquired)", nil, nil),
		idle:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "connections_idle"), "Number of idle database connections", nil, nil),
		maxOpen: prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "connections_max_open"), "Maximum number of open database connections allowed", nil, nil),
		waits:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "acquire_waits_total"), "Total number of acquires that had to wait for a connection", nil, nil),
	}
}

func (c *DBCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.maxOpen
	ch <- c.waits
}

func (c *DBCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
}
