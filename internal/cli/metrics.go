package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/patchlib/internal/metrics"
)

// metricsSink gathers engine measurements for one command and writes them in
// the Prometheus text exposition format when the command finishes.
type metricsSink struct {
	reg    *prometheus.Registry
	dest   string // file path, or "-" for stderr
	stderr io.Writer
}

// newMetricsSink returns the collector the engine should report to. The sink
// is nil when --metrics is not set.
func newMetricsSink(opts *RootOptions, cmd *cobra.Command) (*metricsSink, metrics.Collector) {
	if opts.Metrics == "" {
		return nil, metrics.Noop{}
	}
	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg)
	return &metricsSink{reg: reg, dest: opts.Metrics, stderr: cmd.ErrOrStderr()}, collector
}

// flush writes every gathered metric family to the destination.
func (m *metricsSink) flush() error {
	families, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	w := m.stderr
	if m.dest != "-" {
		file, err := os.Create(m.dest)
		if err != nil {
			return fmt.Errorf("create metrics file: %w", err)
		}
		defer file.Close()
		w = file
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
