// Package metrics declares the Prometheus instrumentation of the sync
// engine. Collectors are registered at package init against the default
// registry, using a single global registry rather than a constructed one
// passed around explicitly. The worker and janitor update the job and sync
// collectors; QueueDepth, the indexer collectors and TokenCacheHits are
// declared but nothing in the engine updates them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "queue",
		Name:      "jobs_claimed_total",
		Help:      "Total number of sync jobs claimed by a worker.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "queue",
		Name:      "jobs_completed_total",
		Help:      "Total number of sync jobs completed successfully.",
	})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "queue",
		Name:      "jobs_failed_total",
		Help:      "Total number of sync job failures, labeled by whether the job will be retried.",
	}, []string{"terminal"})

	JobsStuckReset = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "queue",
		Name:      "jobs_stuck_reset_total",
		Help:      "Total number of jobs reclaimed from a stalled processing state by the janitor.",
	})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "walletsync",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Current job count by status.",
	}, []string{"status"})

	TransactionsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "sync",
		Name:      "transactions_parsed_total",
		Help:      "Total number of wallet-relevant transactions parsed, labeled by action.",
	}, []string{"action"})

	TransactionsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "sync",
		Name:      "transactions_inserted_total",
		Help:      "Total number of new transactions persisted to the transactions table.",
	})

	TransactionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "sync",
		Name:      "transactions_skipped_total",
		Help:      "Total number of transactions skipped as already-persisted duplicates.",
	})

	IndexerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletsync",
		Subsystem: "indexer",
		Name:      "request_duration_seconds",
		Help:      "Latency of chain-indexer HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	IndexerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "indexer",
		Name:      "errors_total",
		Help:      "Total number of chain-indexer request failures, labeled by error kind.",
	}, []string{"kind"})

	TokenCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletsync",
		Subsystem: "token",
		Name:      "cache_hits_total",
		Help:      "Total number of token metadata lookups resolved from a cache tier, labeled by tier.",
	}, []string{"tier"})
)
