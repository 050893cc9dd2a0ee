package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Migration is one versioned, idempotent transformation of a tenant's data.
// Apply must be safe to re-run against already-migrated documents: a
// transport failure can commit some batched writes without advancing the
// version marker, and the whole migration is then re-run. Rollback is nil
// for irreversible migrations.
type Migration struct {
	Version     *semver.Version
	Description string
	Apply       func(ctx context.Context, tenantID string) error
	Rollback    func(ctx context.Context, tenantID string) error
}

// Reversible reports whether the migration declares a reverse operation.
func (m *Migration) Reversible() bool {
	return m.Rollback != nil
}

// Registry is the ordered, read-only catalog of registered migrations.
// It is sorted at construction by the numeric field-wise version
// comparison, so registration order carries no meaning; duplicate versions
// are rejected outright.
type Registry struct {
	migrations []Migration
}

// NewRegistry builds a registry from the given migrations. It returns an
// error for a migration without a version or apply function, and for
// duplicate versions.
func NewRegistry(migrations ...Migration) (*Registry, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	for _, m := range sorted {
		if m.Version == nil {
			return nil, fmt.Errorf("registry: migration %q has no version", m.Description)
		}
		if m.Apply == nil {
			return nil, fmt.Errorf("registry: migration %s has no apply function", m.Version)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version.LessThan(sorted[j].Version)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Version.Equal(sorted[i-1].Version) {
			return nil, fmt.Errorf("registry: duplicate migration version %s", sorted[i].Version)
		}
	}

	return &Registry{migrations: sorted}, nil
}

// All returns the migrations in ascending version order.
func (r *Registry) All() []Migration {
	out := make([]Migration, len(r.migrations))
	copy(out, r.migrations)
	return out
}

// Find returns the migration registered under exactly the given version.
func (r *Registry) Find(v *semver.Version) (*Migration, bool) {
	for i := range r.migrations {
		if r.migrations[i].Version.Equal(v) {
			return &r.migrations[i], true
		}
	}
	return nil, false
}

// PendingAfter returns, in ascending order, every migration whose version
// is strictly greater than current.
func (r *Registry) PendingAfter(current *semver.Version) []Migration {
	var pending []Migration
	for _, m := range r.migrations {
		if m.Version.GreaterThan(current) {
			pending = append(pending, m)
		}
	}
	return pending
}

// GreatestBelow returns the greatest registered version strictly less than
// v, or nil when no such version exists.
func (r *Registry) GreatestBelow(v *semver.Version) *semver.Version {
	var best *semver.Version
	for _, m := range r.migrations {
		if m.Version.LessThan(v) {
			best = m.Version
		}
	}
	return best
}

// Latest returns the highest registered version, or nil for an empty
// registry.
func (r *Registry) Latest() *semver.Version {
	if len(r.migrations) == 0 {
		return nil
	}
	return r.migrations[len(r.migrations)-1].Version
}
