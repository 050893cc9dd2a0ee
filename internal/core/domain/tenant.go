package domain

import (
	"errors"
	"strings"
)

var ErrInvalidTenantID = errors.New("invalid tenant id")
var ErrInvalidVersion = errors.New("invalid version string")
var ErrMigrationNotFound = errors.New("migration not found")
var ErrTenantLocked = errors.New("tenant run already in progress")

// ValidateTenantID rejects empty or whitespace-only tenant identifiers and
// identifiers containing a path separator, which would break the document
// path layout. Tenant ids are otherwise opaque.
func ValidateTenantID(tenantID string) error {
	trimmed := strings.TrimSpace(tenantID)
	if trimmed == "" || trimmed != tenantID {
		return ErrInvalidTenantID
	}
	if strings.Contains(tenantID, "/") {
		return ErrInvalidTenantID
	}
	return nil
}
