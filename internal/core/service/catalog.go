package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// DefaultRegistry builds the production migration catalog. Every apply
// function guards each document mutation with a "does this field already
// have the desired shape" check before staging a write, which is what makes
// re-running a partially committed migration safe.
func DefaultRegistry(store ports.DocumentStore, maxOps int) (*Registry, error) {
	return NewRegistry(
		Migration{
			Version:     semver.MustParse("1.0.0"),
			Description: "backfill created/updated timestamps on years and contacts",
			Apply:       backfillTimestamps(store, maxOps),
		},
		Migration{
			Version:     semver.MustParse("1.1.0"),
			Description: "add delivered tracking fields to contacts",
			Apply:       addDeliveredFields(store, maxOps),
			Rollback:    removeDeliveredFields(store, maxOps),
		},
		Migration{
			Version:     semver.MustParse("1.2.0"),
			Description: "backfill owner ids from document paths",
			Apply:       backfillOwnerIDs(store, maxOps),
		},
		Migration{
			Version:     semver.MustParse("2.0.0"),
			Description: "normalize contact name whitespace",
			Apply:       normalizeContactNames(store, maxOps),
		},
	)
}

func backfillTimestamps(store ports.DocumentStore, maxOps int) func(context.Context, string) error {
	return func(ctx context.Context, tenantID string) error {
		writer := NewBatchWriter(store, maxOps)

		years, err := listYearDocs(ctx, store, tenantID)
		if err != nil {
			return err
		}
		for i := range years {
			if fields := missingTimestampFields(&years[i]); len(fields) > 0 {
				if err := writer.Update(ctx, years[i].Path, fields); err != nil {
					return err
				}
			}
		}

		err = forEachContact(ctx, store, tenantID, func(_, contact *ports.Document) error {
			if fields := missingTimestampFields(contact); len(fields) > 0 {
				return writer.Update(ctx, contact.Path, fields)
			}
			return nil
		})
		if err != nil {
			return err
		}

		return writer.Flush(ctx)
	}
}

// missingTimestampFields returns the update fields needed to fill absent or
// null created/updated timestamps, or an empty map when the document
// already has the desired shape.
func missingTimestampFields(doc *ports.Document) map[string]any {
	fields := map[string]any{}
	if _, ok := fieldTime(doc, fieldCreatedAt); !ok {
		fields[fieldCreatedAt] = ports.ServerTimestamp
	}
	if _, ok := fieldTime(doc, fieldUpdatedAt); !ok {
		fields[fieldUpdatedAt] = ports.ServerTimestamp
	}
	return fields
}

func addDeliveredFields(store ports.DocumentStore, maxOps int) func(context.Context, string) error {
	return func(ctx context.Context, tenantID string) error {
		writer := NewBatchWriter(store, maxOps)

		err := forEachContact(ctx, store, tenantID, func(_, contact *ports.Document) error {
			if hasField(contact, fieldDelivered) {
				return nil
			}
			return writer.Update(ctx, contact.Path, map[string]any{
				fieldDelivered:   false,
				fieldDeliveredAt: nil,
			})
		})
		if err != nil {
			return err
		}

		return writer.Flush(ctx)
	}
}

func removeDeliveredFields(store ports.DocumentStore, maxOps int) func(context.Context, string) error {
	return func(ctx context.Context, tenantID string) error {
		writer := NewBatchWriter(store, maxOps)

		err := forEachContact(ctx, store, tenantID, func(_, contact *ports.Document) error {
			if !hasField(contact, fieldDelivered) && !hasField(contact, fieldDeliveredAt) {
				return nil
			}
			return writer.Update(ctx, contact.Path, map[string]any{
				fieldDelivered:   ports.DeleteField,
				fieldDeliveredAt: ports.DeleteField,
			})
		})
		if err != nil {
			return err
		}

		return writer.Flush(ctx)
	}
}

func backfillOwnerIDs(store ports.DocumentStore, maxOps int) func(context.Context, string) error {
	return func(ctx context.Context, tenantID string) error {
		writer := NewBatchWriter(store, maxOps)

		prefs, err := store.Get(ctx, domain.PreferencesPath(tenantID))
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return err
		}
		if prefs != nil {
			if owner, ok := fieldString(prefs, fieldUserID); !ok || owner != tenantID {
				if err := writer.Update(ctx, prefs.Path, map[string]any{fieldUserID: tenantID}); err != nil {
					return err
				}
			}
		}

		years, err := listYearDocs(ctx, store, tenantID)
		if err != nil {
			return err
		}
		for i := range years {
			if owner, ok := fieldString(&years[i], fieldUserID); !ok || owner != tenantID {
				if err := writer.Update(ctx, years[i].Path, map[string]any{fieldUserID: tenantID}); err != nil {
					return err
				}
			}
		}

		err = forEachContact(ctx, store, tenantID, func(year, contact *ports.Document) error {
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
			return writer.Update(ctx, contact.Path, fields)
		})
		if err != nil {
			return err
		}

		return writer.Flush(ctx)
	}
}

func normalizeContactNames(store ports.DocumentStore, maxOps int) func(context.Context, string) error {
	return func(ctx context.Context, tenantID string) error {
		writer := NewBatchWriter(store, maxOps)

		err := forEachContact(ctx, store, tenantID, func(_, contact *ports.Document) error {
			fields := map[string]any{}
			for _, key := range []string{fieldFirstName, fieldLastName, fieldEnterprise} {
				if v, ok := fieldString(contact, key); ok {
					if trimmed := strings.TrimSpace(v); trimmed != v {
						fields[key] = trimmed
					}
				}
			}
			if len(fields) == 0 {
				return nil
			}
			return writer.Update(ctx, contact.Path, fields)
		})
		if err != nil {
			return err
		}

		return writer.Flush(ctx)
	}
}
