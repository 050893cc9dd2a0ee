package service

import (
	"context"
	"testing"

	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// TestEngine_BootstrapMigrateValidate walks a fresh tenant through the full
// lifecycle: bootstrap, the complete migration catalog, then a validation
// run that must come back clean.
func TestEngine_BootstrapMigrateValidate(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	if _, err := NewBootstrapper(store, discardLogger).Ensure(ctx, "u1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	reg, err := DefaultRegistry(store, ports.DefaultMaxBatchOps)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	m := NewMigrator(store, reg, NewVersionStore(store), discardLogger)

	result, err := m.RunAll(ctx, "u1")
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected migration errors: %v", result.Errors)
	}
	if result.Version != reg.Latest().String() {
		t.Fatalf("expected version %s, got %s", reg.Latest(), result.Version)
	}

	report, err := NewValidator(DefaultRules(store), discardLogger).ValidateAll(ctx, "u1", ports.ValidateOptions{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid || report.Errors != 0 {
		t.Fatalf("expected a clean tenant after migration, got %+v", report.Issues)
	}
}

// TestEngine_LegacyTenantIsHealedByCatalog seeds pre-migration documents
// with every defect the catalog addresses and checks the full run leaves
// nothing for validation to flag.
func TestEngine_LegacyTenantIsHealedByCatalog(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	// Legacy shape: no owner ids, no timestamps, no delivery tracking,
	// padded names.
	store.put("tenants/u1/preferences/main", map[string]any{
		"selectedYearId": "y1",
		"createdAt":      seedTime,
		"updatedAt":      seedTime,
	})
	store.put("tenants/u1/years/y1", map[string]any{
		"name": "2020",
	})
	store.put("tenants/u1/years/y1/contacts/c1", map[string]any{
		"firstName":  "  Ana ",
		"lastName":   "Lopez",
		"enterprise": " Acme ",
	})

	reg, err := DefaultRegistry(store, ports.DefaultMaxBatchOps)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	m := NewMigrator(store, reg, NewVersionStore(store), discardLogger)

	result, err := m.RunAll(ctx, "u1")
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(result.Errors) != 0 || result.MigrationsRun != len(reg.All()) {
		t.Fatalf("expected the whole catalog to run cleanly, got %+v", result)
	}

	doc, err := store.Get(ctx, "tenants/u1/years/y1/contacts/c1")
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	c := decodeContact(doc)
	if c.FirstName != "Ana" || c.Enterprise != "Acme" {
		t.Fatalf("names not normalized: %+v", c)
	}
	if c.UserID != "u1" || c.YearID != "y1" {
		t.Fatalf("references not backfilled: %+v", c)
	}
	if c.Delivered {
		t.Fatalf("delivery flag must default to false: %+v", c)
	}

	report, err := NewValidator(DefaultRules(store), discardLogger).ValidateAll(ctx, "u1", ports.ValidateOptions{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Valid {
		t.Fatalf("expected errors healed, got %+v", report.Issues)
	}
	if report.Warnings != 0 {
		t.Fatalf("expected warnings healed too, got %+v", report.Issues)
	}
}
