package domain

import (
	"fmt"
	"strings"
)

// Document path layout. Every document the engine touches lives under a
// single tenant subtree:
//
//	tenants/{tenantID}/preferences/main
//	tenants/{tenantID}/years/{yearID}
//	tenants/{tenantID}/years/{yearID}/contacts/{contactID}
//	tenants/{tenantID}/system/version
//	tenants/{tenantID}/system/migrations/history/{entryID}
const (
	collectionTenants  = "tenants"
	collectionYears    = "years"
	collectionContacts = "contacts"
)

func PreferencesPath(tenantID string) string {
	return fmt.Sprintf("%s/%s/preferences/main", collectionTenants, tenantID)
}

func YearsPath(tenantID string) string {
	return fmt.Sprintf("%s/%s/%s", collectionTenants, tenantID, collectionYears)
}

func YearPath(tenantID, yearID string) string {
	return fmt.Sprintf("%s/%s", YearsPath(tenantID), yearID)
}

func ContactsPath(tenantID, yearID string) string {
	return fmt.Sprintf("%s/%s", YearPath(tenantID, yearID), collectionContacts)
}

func ContactPath(tenantID, yearID, contactID string) string {
	return fmt.Sprintf("%s/%s", ContactsPath(tenantID, yearID), contactID)
}

func VersionPath(tenantID string) string {
	return fmt.Sprintf("%s/%s/system/version", collectionTenants, tenantID)
}

func HistoryCollectionPath(tenantID string) string {
	return fmt.Sprintf("%s/%s/system/migrations/history", collectionTenants, tenantID)
}

func HistoryEntryPath(tenantID, entryID string) string {
	return fmt.Sprintf("%s/%s", HistoryCollectionPath(tenantID), entryID)
}

// TenantFromPath extracts the tenant id component of a document path, or
// "" for a path outside the tenants subtree.
func TenantFromPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != collectionTenants {
		return ""
	}
	return parts[1]
}
