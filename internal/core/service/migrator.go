package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Migrator executes registered migrations against a tenant, strictly in
// ascending version order, and maintains the version marker and the
// append-only history trail. It implements ports.MigrationService.
type Migrator struct {
	store    ports.DocumentStore
	registry *Registry
	versions *VersionStore
	logger   zerolog.Logger
}

func NewMigrator(store ports.DocumentStore, registry *Registry, versions *VersionStore, logger zerolog.Logger) *Migrator {
	return &Migrator{store: store, registry: registry, versions: versions, logger: logger}
}

// Version returns the tenant's current schema version.
func (m *Migrator) Version(ctx context.Context, tenantID string) (string, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return "", err
	}
	return m.versions.Get(ctx, tenantID)
}

// Pending returns the registry entries not yet applied to the tenant, in
// ascending version order.
func (m *Migrator) Pending(ctx context.Context, tenantID string) ([]ports.PendingMigration, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	current, err := m.currentVersion(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	pending := m.registry.PendingAfter(current)
	out := make([]ports.PendingMigration, 0, len(pending))
	for _, mig := range pending {
		out = append(out, ports.PendingMigration{
			Version:     mig.Version.String(),
			Description: mig.Description,
			Reversible:  mig.Reversible(),
		})
	}
	return out, nil
}

// RunAll applies every pending migration in order. It stops on the first
// failure so a later migration never runs against data a prior one failed
// to fully transform; partial progress is reported in the result, never as
// an error.
func (m *Migrator) RunAll(ctx context.Context, tenantID string) (*ports.RunAllResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	current, err := m.currentVersion(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &ports.RunAllResult{Errors: []string{}, Version: current.String()}
	for _, mig := range m.registry.PendingAfter(current) {
		if err := m.applyOne(ctx, tenantID, &mig); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("migration %s: %v", mig.Version, err))
			m.logger.Error().Err(err).
				Str("tenant_id", tenantID).
				Str("version", mig.Version.String()).
				Msg("migration failed, stopping run")
			break
		}
		result.MigrationsRun++
		result.Version = mig.Version.String()
	}

	m.logger.Info().
		Str("tenant_id", tenantID).
		Int("migrations_run", result.MigrationsRun).
		Str("version", result.Version).
		Msg("migration run finished")
	return result, nil
}

// RunOne runs a single registered migration outside the ordered sweep,
// used for targeted repair. The version marker only advances when the
// target version is greater than the current one; re-running an older
// migration never regresses the marker.
func (m *Migrator) RunOne(ctx context.Context, tenantID, version string) (*ports.RunOneResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	target, err := domain.ParseVersion(version)
	if err != nil {
		return nil, err
	}

	mig, ok := m.registry.Find(target)
	if !ok {
		return &ports.RunOneResult{Error: fmt.Sprintf("migration %s not found", target)}, nil
	}
	current, err := m.currentVersion(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := m.apply(ctx, tenantID, mig, current.LessThan(mig.Version)); err != nil {
		return &ports.RunOneResult{Error: err.Error()}, nil
	}
	return &ports.RunOneResult{Success: true}, nil
}

// Rollback reverses a single migration and moves the version marker to the
// greatest registered version strictly below the target (0.0.0 when the
// target is the lowest). Missing migrations and migrations without a
// reverse operation are reported in the result, not as errors.
func (m *Migrator) Rollback(ctx context.Context, tenantID, version string) (*ports.RollbackResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	target, err := domain.ParseVersion(version)
	if err != nil {
		return nil, err
	}

	mig, ok := m.registry.Find(target)
	if !ok {
		return &ports.RollbackResult{Error: fmt.Sprintf("migration %s not found", target)}, nil
	}
	if !mig.Reversible() {
		return &ports.RollbackResult{Error: fmt.Sprintf("migration %s does not support rollback", target)}, nil
	}

	tag := target.String() + "-rollback"
	if err := mig.Rollback(ctx, tenantID); err != nil {
		if histErr := m.writeHistory(ctx, tenantID, tag, false, err.Error()); histErr != nil {
			m.logger.Error().Err(histErr).Str("tenant_id", tenantID).Msg("failed to record rollback history")
		}
		return &ports.RollbackResult{Error: err.Error()}, nil
	}

	newVersion := domain.VersionZero
	if below := m.registry.GreatestBelow(target); below != nil {
		newVersion = below.String()
	}
	if err := m.versions.Set(ctx, tenantID, newVersion); err != nil {
		return &ports.RollbackResult{Error: fmt.Sprintf("rollback applied but version update failed: %v", err)}, nil
	}
	if err := m.writeHistory(ctx, tenantID, tag, true, ""); err != nil {
		m.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to record rollback history")
	}

	// Only the target migration was reversed; effects of migrations between
	// newVersion and target are assumed to still hold.
	m.logger.Warn().
		Str("tenant_id", tenantID).
		Str("rolled_back", target.String()).
		Str("version", newVersion).
		Msg("rollback complete, intervening migration effects not reversed")

	return &ports.RollbackResult{Success: true, Version: newVersion}, nil
}

// History returns the audit trail in execution order.
func (m *Migrator) History(ctx context.Context, tenantID string) ([]domain.MigrationHistoryEntry, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	docs, err := m.store.List(ctx, domain.HistoryCollectionPath(tenantID))
	if err != nil {
		return nil, err
	}

	entries := make([]domain.MigrationHistoryEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, decodeHistoryEntry(&docs[i]))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].ExecutedAt, entries[j].ExecutedAt
		if ti == nil || tj == nil {
			return tj != nil
		}
		return ti.Before(*tj)
	})
	return entries, nil
}

// applyOne runs one migration of an ordered sweep: apply, advance the
// marker, then record history. Either the migration fully commits and the
// version advances, or the version stays put.
func (m *Migrator) applyOne(ctx context.Context, tenantID string, mig *Migration) error {
	return m.apply(ctx, tenantID, mig, true)
}

func (m *Migrator) apply(ctx context.Context, tenantID string, mig *Migration, advance bool) error {
	if err := mig.Apply(ctx, tenantID); err != nil {
		if histErr := m.writeHistory(ctx, tenantID, mig.Version.String(), false, err.Error()); histErr != nil {
			m.logger.Error().Err(histErr).Str("tenant_id", tenantID).Msg("failed to record migration history")
		}
		return err
	}
	if advance {
		if err := m.versions.Set(ctx, tenantID, mig.Version.String()); err != nil {
			err = fmt.Errorf("applied but version update failed: %w", err)
			if histErr := m.writeHistory(ctx, tenantID, mig.Version.String(), false, err.Error()); histErr != nil {
				m.logger.Error().Err(histErr).Str("tenant_id", tenantID).Msg("failed to record migration history")
			}
			return err
		}
	}
	if err := m.writeHistory(ctx, tenantID, mig.Version.String(), true, ""); err != nil {
		m.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to record migration history")
	}
	m.logger.Info().
		Str("tenant_id", tenantID).
		Str("version", mig.Version.String()).
		Str("description", mig.Description).
		Msg("migration applied")
	return nil
}

// writeHistory appends one audit record. History entries are never updated
// after creation and never consulted for control flow.
func (m *Migrator) writeHistory(ctx context.Context, tenantID, versionTag string, success bool, errText string) error {
	fields := map[string]any{
		fieldVersion:    versionTag,
		fieldSuccess:    success,
		fieldExecutedAt: ports.ServerTimestamp,
	}
	if errText != "" {
		fields[fieldError] = errText
	}
	batch := m.store.NewBatch()
	batch.Set(domain.HistoryEntryPath(tenantID, uuid.NewString()), fields, false)
	return batch.Commit(ctx)
}

func (m *Migrator) currentVersion(ctx context.Context, tenantID string) (*semver.Version, error) {
	raw, err := m.versions.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return domain.ParseVersion(raw)
}
