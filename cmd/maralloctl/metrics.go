package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/joshuapare/maralloc/metrics"
)

var (
	metricsNamespace string
	metricsOps       int
)

func init() {
	cmd := newMetricsCmd()
	cmd.Flags().StringVar(&metricsNamespace, "namespace", "maralloc", "Metric name prefix")
	cmd.Flags().IntVarP(&metricsOps, "ops", "n", 1000, "Operations per worker before scraping (0 for none)")
	rootCmd.AddCommand(cmd)
}

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print allocator metrics in Prometheus text format",
		Long: `The metrics command runs a short workload against a fresh heap, then
gathers the heap and arena collectors and writes them in the Prometheus
text exposition format.

Example:
  maralloctl metrics
  maralloctl metrics --ops 0 --namespace myapp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.Context())
		},
	}
	return cmd
}

func runMetrics(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h, a, err := openHeap()
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(metrics.NewCollector(h, metricsNamespace)); err != nil {
		return fmt.Errorf("failed to register heap collector: %w", err)
	}
	if err := reg.Register(metrics.NewArenaCollector(a, metricsNamespace)); err != nil {
		return fmt.Errorf("failed to register arena collector: %w", err)
	}

	if metricsOps > 0 {
		w := workload{Workers: 4, Ops: metricsOps, MaxSize: 1024, Seed: 1}
		if _, err := w.run(ctx, h); err != nil {
			return err
		}
	}

	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
