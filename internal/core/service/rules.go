package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Rule names, usable as the rule-subset filter of a validation run.
const (
	RulePreferences          = "preferences"
	RuleYears                = "years"
	RuleContacts             = "contacts"
	RuleDeliveredConsistency = "delivered_consistency"
	RuleDuplicateContacts    = "duplicate_contacts"
	RuleSchemaVersion        = "schema_version"
)

// DefaultRules builds the production validation catalog. Each rule
// re-derives its findings from live documents; none of them trusts cached
// flags or the version marker.
func DefaultRules(store ports.DocumentStore) []Rule {
	return []Rule{
		{Name: RulePreferences, Check: checkPreferences(store)},
		{Name: RuleYears, Check: checkYears(store)},
		{Name: RuleContacts, Check: checkContacts(store)},
		{Name: RuleDeliveredConsistency, Check: checkDeliveredConsistency(store)},
		{Name: RuleDuplicateContacts, Check: checkDuplicateContacts(store)},
		{Name: RuleSchemaVersion, Check: checkSchemaVersion(store)},
	}
}

// checkPreferences verifies that the preferences document exists, belongs
// to the tenant it is stored under, and carries timestamps. A selected-year
// reference pointing at a missing Year is only a warning: the client heals
// it on the next selection.
func checkPreferences(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		path := domain.PreferencesPath(tenantID)
		doc, err := store.Get(ctx, path)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return []domain.Issue{{
					Severity:   domain.SeverityError,
					Rule:       RulePreferences,
					Message:    "preferences document is missing",
					Path:       path,
					Suggestion: "run bootstrap for this tenant",
				}}, nil
			}
			return nil, err
		}

		var issues []domain.Issue
		issues = append(issues, ownerIssues(doc, tenantID, RulePreferences)...)
		issues = append(issues, timestampIssues(doc, RulePreferences)...)

		if selected, ok := fieldString(doc, fieldSelectedYearID); ok && selected != "" {
			_, err := store.Get(ctx, domain.YearPath(tenantID, selected))
			if err != nil {
				if !errors.Is(err, ports.ErrNotFound) {
					return nil, err
				}
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityWarning,
					Rule:       RulePreferences,
					Message:    fmt.Sprintf("selected year %s does not exist", selected),
					Path:       path,
					Field:      fieldSelectedYearID,
					Suggestion: "run repair with fix_selected_year",
				})
			}
		}
		return issues, nil
	}
}

// checkYears warns when a tenant has no years (legal but unusual) and
// verifies per-year ownership, a non-empty display name, and timestamps.
func checkYears(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		years, err := listYearDocs(ctx, store, tenantID)
		if err != nil {
			return nil, err
		}

		var issues []domain.Issue
		if len(years) == 0 {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityWarning,
				Rule:       RuleYears,
				Message:    "tenant has no years",
				Path:       domain.YearsPath(tenantID),
				Suggestion: "run bootstrap for this tenant",
			})
			return issues, nil
		}

		for i := range years {
			doc := &years[i]
			issues = append(issues, ownerIssues(doc, tenantID, RuleYears)...)
			issues = append(issues, timestampIssues(doc, RuleYears)...)
			if name, ok := fieldString(doc, fieldName); !ok || strings.TrimSpace(name) == "" {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityError,
					Rule:       RuleYears,
					Message:    "year has no display name",
					Path:       doc.Path,
					DocumentID: doc.ID,
					Field:      fieldName,
				})
			}
		}
		return issues, nil
	}
}

// checkContacts verifies per-contact structure: ownership, agreement of the
// yearId field with the parent year, required name fields, the delivered
// flag being an actual boolean, and the comments length bound.
func checkContacts(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		var issues []domain.Issue
		err := forEachContact(ctx, store, tenantID, func(year, contact *ports.Document) error {
			issues = append(issues, ownerIssues(contact, tenantID, RuleContacts)...)
			issues = append(issues, timestampIssues(contact, RuleContacts)...)

			if yearID, ok := fieldString(contact, fieldYearID); !ok || yearID != year.ID {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityError,
					Rule:       RuleContacts,
					Message:    fmt.Sprintf("contact yearId %q does not match parent year %s", yearID, year.ID),
					Path:       contact.Path,
					DocumentID: contact.ID,
					Field:      fieldYearID,
					Suggestion: "run repair with fix_invalid_references",
				})
			}

			for _, key := range []string{fieldFirstName, fieldLastName, fieldEnterprise} {
				if v, ok := fieldString(contact, key); !ok || strings.TrimSpace(v) == "" {
					issues = append(issues, domain.Issue{
						Severity:   domain.SeverityError,
						Rule:       RuleContacts,
						Message:    fmt.Sprintf("contact is missing required field %s", key),
						Path:       contact.Path,
						DocumentID: contact.ID,
						Field:      key,
					})
				}
			}

			if hasField(contact, fieldDelivered) {
				if _, ok := fieldBool(contact, fieldDelivered); !ok {
					issues = append(issues, domain.Issue{
						Severity:   domain.SeverityError,
						Rule:       RuleContacts,
						Message:    "delivered flag is not a boolean",
						Path:       contact.Path,
						DocumentID: contact.ID,
						Field:      fieldDelivered,
					})
				}
			}

			if comments, ok := fieldString(contact, fieldComments); ok && len(comments) > domain.MaxCommentsLength {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityWarning,
					Rule:       RuleContacts,
					Message:    fmt.Sprintf("comments exceed %d characters", domain.MaxCommentsLength),
					Path:       contact.Path,
					DocumentID: contact.ID,
					Field:      fieldComments,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return issues, nil
	}
}

// checkDeliveredConsistency flags delivered/deliveredAt disagreement.
// Both directions are warnings, not errors: displaying stale delivery data
// is non-destructive.
func checkDeliveredConsistency(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		var issues []domain.Issue
		err := forEachContact(ctx, store, tenantID, func(_, contact *ports.Document) error {
			delivered, ok := fieldBool(contact, fieldDelivered)
			if !ok {
				return nil // absent or mistyped flag is checkContacts territory
			}
			_, hasDeliveredAt := fieldTime(contact, fieldDeliveredAt)

			if delivered && !hasDeliveredAt {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityWarning,
					Rule:       RuleDeliveredConsistency,
					Message:    "contact is delivered but has no delivery timestamp",
					Path:       contact.Path,
					DocumentID: contact.ID,
					Field:      fieldDeliveredAt,
				})
			}
			if !delivered && hasDeliveredAt {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityWarning,
					Rule:       RuleDeliveredConsistency,
					Message:    "contact is not delivered but has a delivery timestamp",
					Path:       contact.Path,
					DocumentID: contact.ID,
					Field:      fieldDeliveredAt,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return issues, nil
	}
}

// checkDuplicateContacts detects contacts within one year sharing the same
// case-insensitive (first, last, enterprise) key. Single pass over each
// year with a map; one warning per colliding key naming every document id.
func checkDuplicateContacts(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		years, err := listYearDocs(ctx, store, tenantID)
		if err != nil {
			return nil, err
		}

		var issues []domain.Issue
		for i := range years {
			contacts, err := listContactDocs(ctx, store, tenantID, years[i].ID)
			if err != nil {
				return nil, err
			}

			byKey := make(map[string][]string)
			for j := range contacts {
				c := decodeContact(&contacts[j])
				byKey[c.DuplicateKey()] = append(byKey[c.DuplicateKey()], c.ID)
			}

			keys := make([]string, 0, len(byKey))
			for key := range byKey {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				ids := byKey[key]
				if len(ids) < 2 {
					continue
				}
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityWarning,
					Rule:       RuleDuplicateContacts,
					Message:    fmt.Sprintf("duplicate contacts in year %s: %s", years[i].ID, strings.Join(ids, ", ")),
					Path:       domain.ContactsPath(tenantID, years[i].ID),
					Suggestion: "merge or delete the duplicate contacts",
				})
			}
		}
		return issues, nil
	}
}

// checkSchemaVersion reports the tenant's schema version as an info-level
// finding. Purely informational, surfaced only when info issues are
// requested.
func checkSchemaVersion(store ports.DocumentStore) func(context.Context, string) ([]domain.Issue, error) {
	return func(ctx context.Context, tenantID string) ([]domain.Issue, error) {
		version, err := NewVersionStore(store).Get(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		message := fmt.Sprintf("tenant is at schema version %s", version)
		if version == domain.VersionZero {
			message = "tenant has never been migrated"
		}
		return []domain.Issue{{
			Severity: domain.SeverityInfo,
			Rule:     RuleSchemaVersion,
			Message:  message,
			Path:     domain.VersionPath(tenantID),
		}}, nil
	}
}

// ownerIssues checks that a document's owning-id field agrees with the
// tenant implied by its storage path. Cross-tenant references are always
// errors.
func ownerIssues(doc *ports.Document, tenantID, rule string) []domain.Issue {
	owner, ok := fieldString(doc, fieldUserID)
	if ok && owner == tenantID {
		return nil
	}
	message := "document is missing its owner id"
	if ok {
		message = fmt.Sprintf("document owner %q does not match tenant %s", owner, tenantID)
	}
	return []domain.Issue{{
		Severity:   domain.SeverityError,
		Rule:       rule,
		Message:    message,
		Path:       doc.Path,
		DocumentID: doc.ID,
		Field:      fieldUserID,
		Suggestion: "run repair with fix_invalid_references",
	}}
}

// timestampIssues warns about absent created/updated timestamps. Warnings
// rather than errors: the repair service can fill them in.
func timestampIssues(doc *ports.Document, rule string) []domain.Issue {
	var issues []domain.Issue
	for _, key := range []string{fieldCreatedAt, fieldUpdatedAt} {
		if _, ok := fieldTime(doc, key); !ok {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityWarning,
				Rule:       rule,
				Message:    fmt.Sprintf("document is missing %s", key),
				Path:       doc.Path,
				DocumentID: doc.ID,
				Field:      key,
				Suggestion: "run repair with fix_missing_timestamps",
			})
		}
	}
	return issues
}
