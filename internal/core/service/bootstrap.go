package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Bootstrapper guarantees the minimal document shape for a tenant:
// a preferences document plus at least one year, linked together. All
// creations for one Ensure call go through a single batch, so bootstrap is
// the one operation with a full atomicity guarantee. It implements
// ports.BootstrapService.
type Bootstrapper struct {
	store  ports.DocumentStore
	logger zerolog.Logger
}

func NewBootstrapper(store ports.DocumentStore, logger zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{store: store, logger: logger}
}

// Ensure is idempotent and safe to call on every application start: once
// the minimal shape exists it performs no writes.
func (b *Bootstrapper) Ensure(ctx context.Context, tenantID string) (*ports.BootstrapResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	prefs, err := b.store.Get(ctx, domain.PreferencesPath(tenantID))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}

	result := &ports.BootstrapResult{}
	if prefs == nil {
		yearID := uuid.NewString()
		batch := b.store.NewBatch()
		batch.Set(domain.PreferencesPath(tenantID), map[string]any{
			fieldUserID:         tenantID,
			fieldSelectedYearID: yearID,
			fieldCreatedAt:      ports.ServerTimestamp,
			fieldUpdatedAt:      ports.ServerTimestamp,
		}, false)
		batch.Set(domain.YearPath(tenantID, yearID), defaultYearFields(tenantID), false)
		if err := batch.Commit(ctx); err != nil {
			return nil, err
		}
		result.CreatedPreferences = true
		result.CreatedYear = true
		result.YearID = yearID

		b.logger.Info().Str("tenant_id", tenantID).Str("year_id", yearID).Msg("tenant bootstrapped")
		return result, nil
	}

	years, err := listYearDocs(ctx, b.store, tenantID)
	if err != nil {
		return nil, err
	}
	if len(years) > 0 {
		return result, nil
	}

	// Preferences exist but no years: create one default year and relink.
	yearID := uuid.NewString()
	batch := b.store.NewBatch()
	batch.Set(domain.YearPath(tenantID, yearID), defaultYearFields(tenantID), false)
	batch.Update(domain.PreferencesPath(tenantID), map[string]any{
		fieldSelectedYearID: yearID,
		fieldUpdatedAt:      ports.ServerTimestamp,
	})
	if err := batch.Commit(ctx); err != nil {
		return nil, err
	}
	result.CreatedYear = true
	result.YearID = yearID

	b.logger.Info().Str("tenant_id", tenantID).Str("year_id", yearID).Msg("default year created")
	return result, nil
}

// defaultYearFields builds a year named after the current calendar year.
func defaultYearFields(tenantID string) map[string]any {
	return map[string]any{
		fieldUserID:    tenantID,
		fieldName:      strconv.Itoa(time.Now().Year()),
		fieldCreatedAt: ports.ServerTimestamp,
		fieldUpdatedAt: ports.ServerTimestamp,
	}
}
