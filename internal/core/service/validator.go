package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// Rule is one independent, side-effect-free inspector of live tenant data.
type Rule struct {
	Name  string
	Check func(ctx context.Context, tenantID string) ([]domain.Issue, error)
}

// Validator runs a fixed rule catalog against a tenant and aggregates the
// findings. Rules are independent, so they fan out concurrently; issues are
// still aggregated in catalog order, keeping per-rule issue order stable.
// It implements ports.ValidationService.
type Validator struct {
	catalog []Rule
	logger  zerolog.Logger
}

func NewValidator(catalog []Rule, logger zerolog.Logger) *Validator {
	return &Validator{catalog: catalog, logger: logger}
}

// RuleNames lists the catalog in execution order.
func (v *Validator) RuleNames() []string {
	names := make([]string, 0, len(v.catalog))
	for _, r := range v.catalog {
		names = append(names, r.Name)
	}
	return names
}

// ValidateAll runs the requested rules (all when opts.Rules is empty) and
// aggregates their issues. A failing rule never aborts the others: its
// failure becomes a single error-severity issue naming the rule.
// Info-severity issues are dropped unless opts.IncludeInfo is set.
func (v *Validator) ValidateAll(ctx context.Context, tenantID string, opts ports.ValidateOptions) (*ports.ValidationReport, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	selected, err := v.selectRules(opts.Rules)
	if err != nil {
		return nil, err
	}

	perRule := make([][]domain.Issue, len(selected))
	var wg sync.WaitGroup
	for i, rule := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perRule[i] = v.runRule(ctx, tenantID, rule)
		}()
	}
	wg.Wait()

	report := &ports.ValidationReport{Issues: []domain.Issue{}}
	for _, issues := range perRule {
		for _, issue := range issues {
			switch issue.Severity {
			case domain.SeverityError:
				report.Errors++
			case domain.SeverityWarning:
				report.Warnings++
			case domain.SeverityInfo:
				report.Info++
				if !opts.IncludeInfo {
					continue
				}
			}
			report.Issues = append(report.Issues, issue)
		}
	}
	report.Valid = report.Errors == 0

	v.logger.Info().
		Str("tenant_id", tenantID).
		Bool("valid", report.Valid).
		Int("errors", report.Errors).
		Int("warnings", report.Warnings).
		Msg("validation run finished")
	return report, nil
}

// QuickValidate reports whether a full validation run finds zero
// error-severity issues.
func (v *Validator) QuickValidate(ctx context.Context, tenantID string) (bool, error) {
	report, err := v.ValidateAll(ctx, tenantID, ports.ValidateOptions{})
	if err != nil {
		return false, err
	}
	return report.Valid, nil
}

// runRule isolates one rule: an error return or a panic is converted into
// a single error-severity issue attributed to the rule.
func (v *Validator) runRule(ctx context.Context, tenantID string, rule Rule) (issues []domain.Issue) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error().Str("rule", rule.Name).Interface("panic", r).Msg("validation rule panicked")
			issues = []domain.Issue{{
				Severity: domain.SeverityError,
				Rule:     rule.Name,
				Message:  fmt.Sprintf("rule %s panicked: %v", rule.Name, r),
			}}
		}
	}()

	issues, err := rule.Check(ctx, tenantID)
	if err != nil {
		return []domain.Issue{{
			Severity: domain.SeverityError,
			Rule:     rule.Name,
			Message:  fmt.Sprintf("rule %s failed: %v", rule.Name, err),
		}}
	}
	return issues
}

func (v *Validator) selectRules(names []string) ([]Rule, error) {
	if len(names) == 0 {
		return v.catalog, nil
	}
	byName := make(map[string]Rule, len(v.catalog))
	for _, r := range v.catalog {
		byName[r.Name] = r
	}
	selected := make([]Rule, 0, len(names))
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRule, name)
		}
		selected = append(selected, r)
	}
	return selected, nil
}
