package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports measurements as Prometheus metrics.
type Prometheus struct {
	opLatency   *prometheus.HistogramVec
	rows        prometheus.Gauge
	filterRows  prometheus.Gauge
	evaluated   prometheus.Counter
	allocations *prometheus.CounterVec
	exportRows  prometheus.Counter
}

// NewPrometheus creates the collector and registers its metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patchlib_operation_latency_seconds",
			Help:    "Latency of refresh and export operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchlib_view_rows",
			Help: "Rows in the current view snapshot",
		}),
		filterRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchlib_filter_rows",
			Help: "Rows accepted by every filter stage",
		}),
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchlib_filter_evaluations_total",
			Help: "Predicate evaluations performed by the filter pipeline",
		}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchlib_allocations_total",
			Help: "Allocation passes by mode and resulting alert",
		}, []string{"mode", "alert"}),
		exportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patchlib_export_writes_total",
			Help: "Slot writes sent to the record source",
		}),
	}

	reg.MustRegister(p.opLatency, p.rows, p.filterRows, p.evaluated, p.allocations, p.exportRows)
	return p
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRefresh implements Collector.
func (p *Prometheus) RecordRefresh(kind string, rows int, duration time.Duration, err error) {
	p.opLatency.WithLabelValues("refresh_"+kind, status(err)).Observe(duration.Seconds())
	if err == nil {
		p.rows.Set(float64(rows))
	}
}

// RecordFilter implements Collector.
func (p *Prometheus) RecordFilter(rows int, evaluated uint64) {
	p.filterRows.Set(float64(rows))
	p.evaluated.Add(float64(evaluated))
}

// RecordAllocation implements Collector.
func (p *Prometheus) RecordAllocation(mode string, alert string) {
	p.allocations.WithLabelValues(mode, alert).Inc()
}

// RecordExport implements Collector.
func (p *Prometheus) RecordExport(writes int, duration time.Duration, err error) {
	p.opLatency.WithLabelValues("export", status(err)).Observe(duration.Seconds())
	if err == nil {
		p.exportRows.Add(float64(writes))
	}
}
