package service

import (
	"context"
	"errors"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// VersionStore reads and writes the single schema-version marker of a
// tenant.
type VersionStore struct {
	store ports.DocumentStore
}

func NewVersionStore(store ports.DocumentStore) *VersionStore {
	return &VersionStore{store: store}
}

// Get returns the tenant's current schema version. An absent marker (or a
// marker without a version field) means the tenant was never migrated and
// reads as 0.0.0; only transport failures are returned as errors.
func (s *VersionStore) Get(ctx context.Context, tenantID string) (string, error) {
	doc, err := s.store.Get(ctx, domain.VersionPath(tenantID))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domain.VersionZero, nil
		}
		return "", err
	}
	v, ok := fieldString(doc, fieldVersion)
	if !ok || v == "" {
		return domain.VersionZero, nil
	}
	return v, nil
}

// Set upserts the marker with merge semantics so unrelated fields on the
// marker document are preserved.
func (s *VersionStore) Set(ctx context.Context, tenantID, version string) error {
	batch := s.store.NewBatch()
	batch.Set(domain.VersionPath(tenantID), map[string]any{
		fieldVersion:   version,
		fieldUpdatedAt: ports.ServerTimestamp,
	}, true)
	return batch.Commit(ctx)
}
