package ports

import (
	"context"

	"github.com/checklisthq/schema-engine/internal/core/domain"
)

// PendingMigration is the read-only view of a registered migration that has
// not yet been applied to a tenant.
type PendingMigration struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
}

// RunAllResult reports the outcome of an ordered migration sweep. It is a
// result object, not an error: a failed sweep still carries how far it got.
type RunAllResult struct {
	// MigrationsRun counts migrations that fully committed and advanced
	// the version marker.
	MigrationsRun int `json:"migrations_run"`
	// Errors holds the error text of the migration that stopped the sweep
	// (at most one entry — the sweep halts on first failure).
	Errors []string `json:"errors"`
	// Version is the last successfully reached schema version.
	Version string `json:"version"`
}

// RunOneResult reports a single targeted migration run.
type RunOneResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RollbackResult reports a rollback attempt. On success Version holds the
// new current version (the greatest registered version strictly below the
// rolled-back one, or 0.0.0).
type RollbackResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Version string `json:"version,omitempty"`
}

// MigrationService defines the migration use-cases exposed to the admin
// surface. Caller misuse (bad tenant id, malformed version) is returned as
// an error; operational failures land inside the result objects.
type MigrationService interface {
	Version(ctx context.Context, tenantID string) (string, error)
	Pending(ctx context.Context, tenantID string) ([]PendingMigration, error)
	RunAll(ctx context.Context, tenantID string) (*RunAllResult, error)
	RunOne(ctx context.Context, tenantID, version string) (*RunOneResult, error)
	Rollback(ctx context.Context, tenantID, version string) (*RollbackResult, error)
	History(ctx context.Context, tenantID string) ([]domain.MigrationHistoryEntry, error)
}
