package domain

import "time"

// MigrationHistoryEntry is an append-only audit record of one migration
// attempt. It is never consulted for control flow; the version marker is
// the single source of truth for what has been applied.
type MigrationHistoryEntry struct {
	ID         string     `json:"id"`
	Version    string     `json:"version"` // "<version>" or "<version>-rollback"
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	ExecutedAt *time.Time `json:"executed_at"`
}
