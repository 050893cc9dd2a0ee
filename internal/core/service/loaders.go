package service

import (
	"context"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// listYearDocs returns the raw year documents of a tenant.
func listYearDocs(ctx context.Context, store ports.DocumentStore, tenantID string) ([]ports.Document, error) {
	return store.List(ctx, domain.YearsPath(tenantID))
}

// listContactDocs returns the raw contact documents inside one year.
func listContactDocs(ctx context.Context, store ports.DocumentStore, tenantID, yearID string) ([]ports.Document, error) {
	return store.List(ctx, domain.ContactsPath(tenantID, yearID))
}

// forEachContact walks every contact of every year, invoking fn with the
// owning year document and the contact document. Iteration stops on the
// first error.
func forEachContact(ctx context.Context, store ports.DocumentStore, tenantID string, fn func(year, contact *ports.Document) error) error {
	years, err := listYearDocs(ctx, store, tenantID)
	if err != nil {
		return err
	}
	for i := range years {
		contacts, err := listContactDocs(ctx, store, tenantID, years[i].ID)
		if err != nil {
			return err
		}
		for j := range contacts {
			if err := fn(&years[i], &contacts[j]); err != nil {
				return err
			}
		}
	}
	return nil
}
