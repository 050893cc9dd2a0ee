// Package metrics defines and registers all custom Prometheus metrics for
// the schema engine. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry via
// promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "schema_engine"

// MigrationRunsTotal counts migration sweeps per tenant.
// Label:
//   - outcome: "success" (all pending applied) or "failure" (sweep stopped)
var MigrationRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migration_runs_total",
		Help:      "Total number of migration sweeps, by outcome.",
	},
	[]string{"outcome"},
)

// MigrationsAppliedTotal counts individually committed migrations.
// Label:
//   - version: the migration's semantic version
var MigrationsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migrations_applied_total",
		Help:      "Total number of migrations applied, by version.",
	},
	[]string{"version"},
)

// ValidationRunsTotal counts validation runs.
// Label:
//   - valid: "true" when the run found zero error-severity issues
var ValidationRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_runs_total",
		Help:      "Total number of validation runs, by validity.",
	},
	[]string{"valid"},
)

// ValidationIssuesTotal counts issues emitted by validation runs.
// Label:
//   - severity: "error", "warning" or "info"
var ValidationIssuesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_issues_total",
		Help:      "Total number of validation issues found, by severity.",
	},
	[]string{"severity"},
)

// RepairOperationsTotal counts staged repair corrections.
var RepairOperationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repair_operations_total",
		Help:      "Total number of repair corrections applied.",
	},
)

// RunLockContentionTotal counts per-tenant lease acquisitions.
// Label:
//   - result: "acquired" or "contended"
var RunLockContentionTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "run_lock_contention_total",
		Help:      "Total number of tenant run-lock acquisition attempts, by result.",
	},
	[]string{"result"},
)
