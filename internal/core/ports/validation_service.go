package ports

import (
	"context"

	"github.com/checklisthq/schema-engine/internal/core/domain"
)

// ValidateOptions tunes a validation run.
type ValidateOptions struct {
	// Rules restricts the run to the named rules; empty means all.
	Rules []string
	// IncludeInfo keeps info-severity issues in the report. They are
	// filtered out by default.
	IncludeInfo bool
}

// ValidationReport aggregates the issues of one validation run.
// Valid is true iff no error-severity issue was found; warnings do not
// affect validity.
type ValidationReport struct {
	Valid    bool           `json:"valid"`
	Errors   int            `json:"errors"`
	Warnings int            `json:"warnings"`
	Info     int            `json:"info"`
	Issues   []domain.Issue `json:"issues"`
}

// ValidationService runs the rule catalog against live tenant data.
type ValidationService interface {
	ValidateAll(ctx context.Context, tenantID string, opts ValidateOptions) (*ValidationReport, error)
	// QuickValidate is ValidateAll reduced to "no error-severity issues".
	QuickValidate(ctx context.Context, tenantID string) (bool, error)
	// RuleNames lists the catalog in execution order.
	RuleNames() []string
}
