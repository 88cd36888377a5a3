// Package metrics defines the Prometheus instruments shared across the
// pipeline. The status server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationCalls counts requests sent to the generation service.
	GenerationCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookforge_generation_calls_total",
		Help: "Total requests sent to the text generation service.",
	})

	// GenerationFailures counts failed generation calls by kind (transient|fatal).
	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookforge_generation_failures_total",
		Help: "Failed generation calls by failure kind.",
	}, []string{"kind"})

	// UnitsGenerated counts chapter units written by the orchestrator.
	UnitsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookforge_units_generated_total",
		Help: "Chapter units written by the generation orchestrator.",
	})

	// ExpansionPasses counts completed expansion passes per unit.
	ExpansionPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookforge_expansion_passes_total",
		Help: "Completed per-unit expansion passes.",
	})

	// AssetRenames counts synchronizer renames by outcome (renamed|conflict).
	AssetRenames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookforge_asset_renames_total",
		Help: "Asset synchronizer rename operations by outcome.",
	}, []string{"outcome"})
)
