package domain

import "errors"

// ErrUnknownRule reports a requested rule name that is not in the catalog.
var ErrUnknownRule = errors.New("unknown validation rule")

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single validation finding. Issues are ephemeral: they are
// re-derived from live data on every run and never persisted.
type Issue struct {
	Severity   Severity `json:"severity"`
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	Path       string   `json:"path"`
	DocumentID string   `json:"document_id,omitempty"`
	Field      string   `json:"field,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}
