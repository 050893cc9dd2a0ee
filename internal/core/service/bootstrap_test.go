package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/checklisthq/schema-engine/internal/core/domain"
)

func TestBootstrapper_FreshTenant(t *testing.T) {
	store := newMemStore()
	b := NewBootstrapper(store, discardLogger)

	result, err := b.Ensure(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.CreatedPreferences || !result.CreatedYear || result.YearID == "" {
		t.Fatalf("expected both documents created, got %+v", result)
	}

	// Both creations go through one batch.
	if len(store.commits) != 1 || store.commits[0] != 2 {
		t.Fatalf("expected a single two-op commit, got %v", store.commits)
	}

	prefs, err := store.Get(context.Background(), "tenants/u1/preferences/main")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if selected, _ := fieldString(prefs, fieldSelectedYearID); selected != result.YearID {
		t.Fatalf("preferences must select the created year, got %q", selected)
	}
	if _, ok := fieldTime(prefs, fieldCreatedAt); !ok {
		t.Fatal("preferences missing createdAt")
	}

	year, err := store.Get(context.Background(), "tenants/u1/years/"+result.YearID)
	if err != nil {
		t.Fatalf("get year: %v", err)
	}
	if name, _ := fieldString(year, fieldName); name != strconv.Itoa(time.Now().Year()) {
		t.Fatalf("year must be named after the current calendar year, got %q", name)
	}
	if owner, _ := fieldString(year, fieldUserID); owner != "u1" {
		t.Fatalf("year owner = %q, want u1", owner)
	}
}

func TestBootstrapper_Idempotent(t *testing.T) {
	store := newMemStore()
	b := NewBootstrapper(store, discardLogger)

	if _, err := b.Ensure(context.Background(), "u1"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	commitsBefore := len(store.commits)

	result, err := b.Ensure(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if result.CreatedPreferences || result.CreatedYear {
		t.Fatalf("second ensure must create nothing, got %+v", result)
	}
	if len(store.commits) != commitsBefore {
		t.Fatalf("second ensure must not write, got %v", store.commits)
	}
}

func TestBootstrapper_PreferencesWithoutYears(t *testing.T) {
	store := newMemStore()
	seedPreferences(store, "u1", "gone")

	result, err := NewBootstrapper(store, discardLogger).Ensure(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CreatedPreferences {
		t.Fatal("existing preferences must not be recreated")
	}
	if !result.CreatedYear || result.YearID == "" {
		t.Fatalf("expected a default year, got %+v", result)
	}

	// The dangling selection is relinked to the new year.
	prefs, err := store.Get(context.Background(), "tenants/u1/preferences/main")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if selected, _ := fieldString(prefs, fieldSelectedYearID); selected != result.YearID {
		t.Fatalf("expected selection relinked to %s, got %q", result.YearID, selected)
	}
}

func TestBootstrapper_InvalidTenant(t *testing.T) {
	_, err := NewBootstrapper(newMemStore(), discardLogger).Ensure(context.Background(), "a/b")
	if !errors.Is(err, domain.ErrInvalidTenantID) {
		t.Fatalf("expected ErrInvalidTenantID, got %v", err)
	}
}
