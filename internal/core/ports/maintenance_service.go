package ports

import (
	"context"
	"time"
)

// RepairOptions gates each correction individually; nothing is repaired
// unless explicitly requested.
type RepairOptions struct {
	FixInvalidReferences bool
	FixMissingTimestamps bool
	FixSelectedYear      bool
}

// RepairResult reports an option-gated repair run. Partial repairs are
// observable: every staged correction appears in Operations and every
// failure in Errors.
type RepairResult struct {
	Changed    bool     `json:"changed"`
	Operations []string `json:"operations"`
	Errors     []string `json:"errors"`
}

// RepairService applies idempotent batched corrections to tenant data.
type RepairService interface {
	Repair(ctx context.Context, tenantID string, opts RepairOptions) (*RepairResult, error)
}

// BootstrapResult reports what Ensure had to create.
type BootstrapResult struct {
	CreatedPreferences bool   `json:"created_preferences"`
	CreatedYear        bool   `json:"created_year"`
	YearID             string `json:"year_id,omitempty"`
}

// BootstrapService guarantees the minimal document shape for a tenant.
// Safe to call on every application start.
type BootstrapService interface {
	Ensure(ctx context.Context, tenantID string) (*BootstrapResult, error)
}

// TenantStats is the read-only inspection view of one tenant.
type TenantStats struct {
	Version           string     `json:"version"`
	Years             int        `json:"years"`
	Contacts          int        `json:"contacts"`
	DeliveredContacts int        `json:"delivered_contacts"`
	HistoryEntries    int        `json:"history_entries"`
	LastMigrationAt   *time.Time `json:"last_migration_at,omitempty"`
}

// StatsService reports tenant statistics without writing anything.
type StatsService interface {
	Stats(ctx context.Context, tenantID string) (*TenantStats, error)
}
