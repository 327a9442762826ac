// Package metrics defines and registers all custom Prometheus metrics for the
// recordkeeper API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry through promauto when the
// package is imported; /metrics serves them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recordkeeper"

// ── Authentication ──────────────────────────────────────────────────────────

// AuthTotal counts authentication attempts.
// Labels:
//   - result: "ok", "denied" or "unavailable"
//   - source: "cache", "store" or "oauth"
var AuthTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_total",
		Help:      "Total number of credential authentications, by result and source.",
	},
	[]string{"result", "source"},
)

// ── Authorization ───────────────────────────────────────────────────────────

// DenialsTotal counts requests rejected by the access layer.
// Label:
//   - stage: "authenticate", "resolve" or "authorize"
var DenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denials_total",
		Help:      "Total number of requests denied by the access layer, by stage.",
	},
	[]string{"stage"},
)

// ControlStoreFailuresTotal counts ConfigurationFailures raised because the
// control store could not be reached.
var ControlStoreFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "control_store_failures_total",
		Help:      "Total number of requests rejected because the control store was unavailable.",
	},
)

// ── Tenant pools ────────────────────────────────────────────────────────────

// TenantPoolsOpen tracks how many tenant pools are currently published.
var TenantPoolsOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tenant_pools_open",
		Help:      "Current number of open tenant connection pools.",
	},
)

// TenantPoolOpenDuration measures pool construction time, including the ping.
var TenantPoolOpenDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tenant_pool_open_duration_seconds",
		Help:      "Duration of tenant pool construction.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Storage retries ─────────────────────────────────────────────────────────

// StorageRetriesTotal counts retries of transient storage faults.
// Label:
//   - operation: executor operation name (e.g. "records.insert")
var StorageRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_retries_total",
		Help:      "Total number of retried storage operations, by operation.",
	},
	[]string{"operation"},
)

// StorageFailuresTotal counts operations that failed after classification.
// Labels:
//   - operation: executor operation name
//   - kind: "exhausted" or "fatal"
var StorageFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_failures_total",
		Help:      "Total number of failed storage operations, by operation and kind.",
	},
	[]string{"operation", "kind"},
)

// ── Background queues ───────────────────────────────────────────────────────

// QueueDepth tracks items waiting in each background queue worker channel.
// Labels:
//   - queue: "audit" or "touch"
//   - worker_id: numeric worker index
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of items pending in each background queue worker channel.",
	},
	[]string{"queue", "worker_id"},
)

// QueueDroppedTotal counts items dropped because a queue was full or closed.
var QueueDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_dropped_total",
		Help:      "Total number of background items dropped, by queue.",
	},
	[]string{"queue"},
)

// ── Audit ───────────────────────────────────────────────────────────────────

// AuditWritesTotal counts audit log writes.
// Label:
//   - result: "ok" or "error"
var AuditWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_writes_total",
		Help:      "Total number of audit entries written, by result.",
	},
	[]string{"result"},
)
