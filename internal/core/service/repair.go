package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Repairer applies option-gated, idempotent batched corrections to the same
// data the validation rules inspect. Failures land in the result's error
// list so a partial repair stays observable; only caller misuse returns an
// error. It implements ports.RepairService.
type Repairer struct {
	store  ports.DocumentStore
	maxOps int
	logger zerolog.Logger
}

func NewRepairer(store ports.DocumentStore, maxOps int, logger zerolog.Logger) *Repairer {
	return &Repairer{store: store, maxOps: maxOps, logger: logger}
}

// Repair stages every requested correction through one batch writer and
// flushes at the end. Each correction re-checks the current document shape
// before staging, so re-running a repair is a no-op.
func (r *Repairer) Repair(ctx context.Context, tenantID string, opts ports.RepairOptions) (*ports.RepairResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	result := &ports.RepairResult{Operations: []string{}, Errors: []string{}}
	writer := NewBatchWriter(r.store, r.maxOps)

	if opts.FixInvalidReferences {
		if err := r.fixInvalidReferences(ctx, tenantID, writer, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("fix invalid references: %v", err))
		}
	}
	if opts.FixMissingTimestamps {
		if err := r.fixMissingTimestamps(ctx, tenantID, writer, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("fix missing timestamps: %v", err))
		}
	}
	if opts.FixSelectedYear {
		if err := r.fixSelectedYear(ctx, tenantID, writer, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("fix selected year: %v", err))
		}
	}

	if err := writer.Flush(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("flush: %v", err))
		return result, nil
	}
	result.Changed = len(result.Operations) > 0 && len(result.Errors) == 0

	r.logger.Info().
		Str("tenant_id", tenantID).
		Int("operations", len(result.Operations)).
		Int("errors", len(result.Errors)).
		Msg("repair run finished")
	return result, nil
}

// fixInvalidReferences rewrites owning-id fields that disagree with the
// document path, and contact yearId fields that disagree with the parent
// year.
func (r *Repairer) fixInvalidReferences(ctx context.Context, tenantID string, writer *BatchWriter, result *ports.RepairResult) error {
	prefs, err := r.store.Get(ctx, domain.PreferencesPath(tenantID))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	if prefs != nil {
		if owner, ok := fieldString(prefs, fieldUserID); !ok || owner != tenantID {
			if err := writer.Update(ctx, prefs.Path, map[string]any{fieldUserID: tenantID}); err != nil {
				return err
			}
			result.Operations = append(result.Operations, "set owner id on "+prefs.Path)
		}
	}

	years, err := listYearDocs(ctx, r.store, tenantID)
	if err != nil {
		return err
	}
	for i := range years {
		if owner, ok := fieldString(&years[i], fieldUserID); !ok || owner != tenantID {
			if err := writer.Update(ctx, years[i].Path, map[string]any{fieldUserID: tenantID}); err != nil {
				return err
			}
			result.Operations = append(result.Operations, "set owner id on "+years[i].Path)
		}
	}

	return forEachContact(ctx, r.store, tenantID, func(year, contact *ports.Document) error {
		fields := map[string]any{}
		if owner, ok := fieldString(contact, fieldUserID); !ok || owner != tenantID {
			fields[fieldUserID] = tenantID
		}
		if yearID, ok := fieldString(contact, fieldYearID); !ok || yearID != year.ID {
			fields[fieldYearID] = year.ID
		}
		if len(fields) == 0 {
			return nil
		}
		if err := writer.Update(ctx, contact.Path, fields); err != nil {
			return err
		}
		result.Operations = append(result.Operations, "fixed references on "+contact.Path)
		return nil
	})
}

// fixMissingTimestamps fills absent created/updated timestamps with the
// adapter's server clock.
func (r *Repairer) fixMissingTimestamps(ctx context.Context, tenantID string, writer *BatchWriter, result *ports.RepairResult) error {
	prefs, err := r.store.Get(ctx, domain.PreferencesPath(tenantID))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	if prefs != nil {
		if fields := missingTimestampFields(prefs); len(fields) > 0 {
			if err := writer.Update(ctx, prefs.Path, fields); err != nil {
				return err
			}
			result.Operations = append(result.Operations, "filled timestamps on "+prefs.Path)
		}
	}

	years, err := listYearDocs(ctx, r.store, tenantID)
	if err != nil {
		return err
	}
	for i := range years {
		if fields := missingTimestampFields(&years[i]); len(fields) > 0 {
			if err := writer.Update(ctx, years[i].Path, fields); err != nil {
				return err
			}
			result.Operations = append(result.Operations, "filled timestamps on "+years[i].Path)
		}
	}

	return forEachContact(ctx, r.store, tenantID, func(_, contact *ports.Document) error {
		fields := missingTimestampFields(contact)
		if len(fields) == 0 {
			return nil
		}
		if err := writer.Update(ctx, contact.Path, fields); err != nil {
			return err
		}
		result.Operations = append(result.Operations, "filled timestamps on "+contact.Path)
		return nil
	})
}

// fixSelectedYear repoints a dangling selected-year reference at any
// existing year, or null when the tenant has none.
func (r *Repairer) fixSelectedYear(ctx context.Context, tenantID string, writer *BatchWriter, result *ports.RepairResult) error {
	prefs, err := r.store.Get(ctx, domain.PreferencesPath(tenantID))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil // nothing to repoint; bootstrap territory
		}
		return err
	}

	selected, ok := fieldString(prefs, fieldSelectedYearID)
	if !ok || selected == "" {
		return nil
	}
	if _, err := r.store.Get(ctx, domain.YearPath(tenantID, selected)); err == nil {
		return nil // reference resolves, nothing to do
	} else if !errors.Is(err, ports.ErrNotFound) {
		return err
	}

	years, err := listYearDocs(ctx, r.store, tenantID)
	if err != nil {
		return err
	}
	var replacement any
	if len(years) > 0 {
		replacement = years[0].ID
	}
	if err := writer.Update(ctx, prefs.Path, map[string]any{
		fieldSelectedYearID: replacement,
		fieldUpdatedAt:      ports.ServerTimestamp,
	}); err != nil {
		return err
	}
	result.Operations = append(result.Operations, "repointed selected year on "+prefs.Path)
	return nil
}
