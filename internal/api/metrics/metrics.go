// Package metrics defines and registers all custom Prometheus metrics for the
// fee-risk services. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed by the /metrics route of each service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feerisk"

// ── Identity metrics ──────────────────────────────────────────────────────────

// AuthRejectionsTotal counts requests rejected for identity reasons.
// Labels:
//   - layer:  "edge" (token validation) or "downstream" (propagated headers)
//   - reason: short description (e.g. "missing", "expired", "bad_signature", "malformed", "headers")
var AuthRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Total number of requests rejected by an identity layer.",
	},
	[]string{"layer", "reason"},
)

// IdentitiesResolvedTotal counts requests that carried a valid identity.
// Label:
//   - role: "regulator" or "hospital"
var IdentitiesResolvedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identities_resolved_total",
		Help:      "Total number of requests bound to a resolved identity, by role.",
	},
	[]string{"role"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts cache-aside lookups.
// Labels:
//   - entry:  "list" or "count"
//   - result: "hit" or "miss"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of settlement cache lookups, labelled by entry and result.",
	},
	[]string{"entry", "result"},
)

// BackendQueryDuration measures settlement store queries issued on a cache miss.
var BackendQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_query_duration_seconds",
		Help:      "Duration of settlement store queries issued on a cache miss.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"entry"},
)

// ── Risk job metrics ──────────────────────────────────────────────────────────

// JobsSubmittedTotal counts accepted risk assessment submissions.
var JobsSubmittedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_jobs_submitted_total",
		Help:      "Total number of risk assessment jobs submitted.",
	},
)

// JobResultsTotal counts result reports.
// Label:
//   - outcome: "stored" or "dropped" (job already expired)
var JobResultsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_job_results_total",
		Help:      "Total number of risk job result reports, by outcome.",
	},
	[]string{"outcome"},
)

// JobPollsTotal counts polls by observed status (PENDING, COMPLETE, UNKNOWN).
var JobPollsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_job_polls_total",
		Help:      "Total number of risk job polls, by observed status.",
	},
	[]string{"status"},
)

// QueueDepth tracks tasks waiting in each in-process dispatcher worker channel.
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "risk_queue_depth",
		Help:      "Current number of risk tasks pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
