// Package metrics exposes Prometheus collectors for the filter and ranking pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilterRuns counts filter engine invocations.
	// Labels: result (matched, empty)
	FilterRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companyrank",
			Subsystem: "filter",
			Name:      "runs_total",
			Help:      "Total number of filter engine runs",
		},
		[]string{"result"},
	)

	// FilterDropped counts companies removed per filter stage.
	// Labels: stage (stage2, regional_kved)
	FilterDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companyrank",
			Subsystem: "filter",
			Name:      "dropped_companies_total",
			Help:      "Companies dropped by each secondary filter stage",
		},
		[]string{"stage"},
	)

	// SelectionsCreated counts selection bases written.
	SelectionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "companyrank",
			Subsystem: "selection",
			Name:      "created_total",
			Help:      "Total number of selection bases created",
		},
	)

	// RankingRuns counts ranking engine runs.
	// Labels: result (success, error)
	RankingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companyrank",
			Subsystem: "ranking",
			Name:      "runs_total",
			Help:      "Total number of ranking runs",
		},
		[]string{"result"},
	)

	// RankingDuration ranking run latency including persistence.
	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "companyrank",
			Subsystem: "ranking",
			Name:      "run_duration_seconds",
			Help:      "Duration of ranking runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RankedCompanies size of the latest ranking.
	RankedCompanies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "companyrank",
			Subsystem: "ranking",
			Name:      "latest_companies",
			Help:      "Number of companies in the most recent ranking",
		},
	)

	// CompaniesUpserted counts rows written by bulk loads.
	CompaniesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "companyrank",
			Subsystem: "store",
			Name:      "companies_upserted_total",
			Help:      "Total number of company rows inserted or merged",
		},
	)
)
