package service

import (
	"time"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Stored field names. Documents are loosely-typed field bags in the store;
// this file is the single place that knows the raw field names and converts
// between field bags and the typed domain entities. Everything above it
// works with domain structs or the typed accessors below.
const (
	fieldUserID         = "userId"
	fieldSelectedYearID = "selectedYearId"
	fieldName           = "name"
	fieldFirstName      = "firstName"
	fieldLastName       = "lastName"
	fieldEnterprise     = "enterprise"
	fieldComments       = "comments"
	fieldYearID         = "yearId"
	fieldDelivered      = "delivered"
	fieldDeliveredAt    = "deliveredAt"
	fieldCreatedAt      = "createdAt"
	fieldUpdatedAt      = "updatedAt"
	fieldVersion        = "version"
	fieldSuccess        = "success"
	fieldError          = "error"
	fieldExecutedAt     = "executedAt"
)

// fieldString returns the field as a string. ok is false when the field is
// absent or not a string.
func fieldString(doc *ports.Document, key string) (string, bool) {
	v, present := doc.Fields[key]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	return s, isString
}

// fieldBool returns the field as a bool. ok is false when the field is
// absent or not a bool.
func fieldBool(doc *ports.Document, key string) (bool, bool) {
	v, present := doc.Fields[key]
	if !present {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// fieldTime returns the field as a timestamp. ok is false when the field is
// absent, nil, or not a time value.
func fieldTime(doc *ports.Document, key string) (*time.Time, bool) {
	v, present := doc.Fields[key]
	if !present || v == nil {
		return nil, false
	}
	t, isTime := v.(time.Time)
	if !isTime {
		return nil, false
	}
	return &t, true
}

// hasField reports raw presence, regardless of type (a present-but-nil
// field counts as present).
func hasField(doc *ports.Document, key string) bool {
	_, present := doc.Fields[key]
	return present
}

func decodePreferences(doc *ports.Document) domain.Preferences {
	p := domain.Preferences{}
	p.UserID, _ = fieldString(doc, fieldUserID)
	if s, ok := fieldString(doc, fieldSelectedYearID); ok && s != "" {
		p.SelectedYearID = &s
	}
	p.CreatedAt, _ = fieldTime(doc, fieldCreatedAt)
	p.UpdatedAt, _ = fieldTime(doc, fieldUpdatedAt)
	return p
}

func decodeYear(doc *ports.Document) domain.Year {
	y := domain.Year{ID: doc.ID}
	y.UserID, _ = fieldString(doc, fieldUserID)
	y.Name, _ = fieldString(doc, fieldName)
	y.CreatedAt, _ = fieldTime(doc, fieldCreatedAt)
	y.UpdatedAt, _ = fieldTime(doc, fieldUpdatedAt)
	return y
}

func decodeContact(doc *ports.Document) domain.Contact {
	c := domain.Contact{ID: doc.ID}
	c.UserID, _ = fieldString(doc, fieldUserID)
	c.YearID, _ = fieldString(doc, fieldYearID)
	c.FirstName, _ = fieldString(doc, fieldFirstName)
	c.LastName, _ = fieldString(doc, fieldLastName)
	c.Enterprise, _ = fieldString(doc, fieldEnterprise)
	c.Comments, _ = fieldString(doc, fieldComments)
	c.Delivered, _ = fieldBool(doc, fieldDelivered)
	c.DeliveredAt, _ = fieldTime(doc, fieldDeliveredAt)
	c.CreatedAt, _ = fieldTime(doc, fieldCreatedAt)
	c.UpdatedAt, _ = fieldTime(doc, fieldUpdatedAt)
	return c
}

func decodeHistoryEntry(doc *ports.Document) domain.MigrationHistoryEntry {
	e := domain.MigrationHistoryEntry{ID: doc.ID}
	e.Version, _ = fieldString(doc, fieldVersion)
	e.Success, _ = fieldBool(doc, fieldSuccess)
	e.Error, _ = fieldString(doc, fieldError)
	e.ExecutedAt, _ = fieldTime(doc, fieldExecutedAt)
	return e
}
