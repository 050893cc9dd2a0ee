package service

import (
	"context"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// StatsReader produces the read-only inspection view of a tenant. It never
// writes. It implements ports.StatsService.
type StatsReader struct {
	store    ports.DocumentStore
	versions *VersionStore
}

func NewStatsReader(store ports.DocumentStore, versions *VersionStore) *StatsReader {
	return &StatsReader{store: store, versions: versions}
}

func (s *StatsReader) Stats(ctx context.Context, tenantID string) (*ports.TenantStats, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	version, err := s.versions.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	stats := &ports.TenantStats{Version: version}

	years, err := listYearDocs(ctx, s.store, tenantID)
	if err != nil {
		return nil, err
	}
	stats.Years = len(years)

	for i := range years {
		contacts, err := listContactDocs(ctx, s.store, tenantID, years[i].ID)
		if err != nil {
			return nil, err
		}
		stats.Contacts += len(contacts)
		for j := range contacts {
			if delivered, ok := fieldBool(&contacts[j], fieldDelivered); ok && delivered {
				stats.DeliveredContacts++
			}
		}
	}

	history, err := s.store.List(ctx, domain.HistoryCollectionPath(tenantID))
	if err != nil {
		return nil, err
	}
	stats.HistoryEntries = len(history)
	for i := range history {
		entry := decodeHistoryEntry(&history[i])
		if entry.ExecutedAt == nil {
			continue
		}
		if stats.LastMigrationAt == nil || entry.ExecutedAt.After(*stats.LastMigrationAt) {
			stats.LastMigrationAt = entry.ExecutedAt
		}
	}
	return stats, nil
}
