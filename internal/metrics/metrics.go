// Package metrics defines the operational metrics the engine reports.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector receives engine measurements.
// Implement it to integrate with a monitoring system.
type Collector interface {
	// RecordRefresh is called after each view refresh. kind is "structural"
	// or "row"; rows is the row count after the refresh.
	RecordRefresh(kind string, rows int, duration time.Duration, err error)

	// RecordFilter is called after the pipeline settles. rows is the final row
	// count, evaluated the number of predicate evaluations since the last call.
	RecordFilter(rows int, evaluated uint64)

	// RecordAllocation is called after each allocation pass.
	RecordAllocation(mode string, alert string)

	// RecordExport is called after each export attempt.
	RecordExport(writes int, duration time.Duration, err error)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordRefresh(string, int, time.Duration, error) {}
func (Noop) RecordFilter(int, uint64)                        {}
func (Noop) RecordAllocation(string, string)                 {}
func (Noop) RecordExport(int, time.Duration, error)          {}

// Basic keeps simple in-memory counters.
type Basic struct {
	Refreshes     atomic.Int64
	RefreshErrors atomic.Int64
	Rows          atomic.Int64
	FilterRows    atomic.Int64
	Evaluated     atomic.Uint64
	Allocations   atomic.Int64
	Alerts        atomic.Int64
	Exports       atomic.Int64
	ExportErrors  atomic.Int64
	ExportWrites  atomic.Int64
}

// RecordRefresh implements Collector.
func (b *Basic) RecordRefresh(kind string, rows int, duration time.Duration, err error) {
	b.Refreshes.Add(1)
	if err != nil {
		b.RefreshErrors.Add(1)
		return
	}
	b.Rows.Store(int64(rows))
}

// RecordFilter implements Collector.
func (b *Basic) RecordFilter(rows int, evaluated uint64) {
	b.FilterRows.Store(int64(rows))
	b.Evaluated.Add(evaluated)
}

// RecordAllocation implements Collector.
func (b *Basic) RecordAllocation(mode string, alert string) {
	b.Allocations.Add(1)
	if alert != "None" {
		b.Alerts.Add(1)
	}
}

// RecordExport implements Collector.
func (b *Basic) RecordExport(writes int, duration time.Duration, err error) {
	b.Exports.Add(1)
	if err != nil {
		b.ExportErrors.Add(1)
		return
	}
	b.ExportWrites.Add(int64(writes))
}
