package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// --- Stub services ---

type stubLocker struct {
	err      error
	acquired int
	released int
}

func (l *stubLocker) Acquire(_ context.Context, _ string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type stubBootstrap struct {
	result *ports.BootstrapResult
	err    error
}

func (s *stubBootstrap) Ensure(context.Context, string) (*ports.BootstrapResult, error) {
	return s.result, s.err
}

type stubMigrations struct {
	version string
	pending []ports.PendingMigration
	runAll  *ports.RunAllResult
	runOne  *ports.RunOneResult
	rollbck *ports.RollbackResult
	history []domain.MigrationHistoryEntry
	err     error

	gotVersion string
}

func (s *stubMigrations) Version(context.Context, string) (string, error) {
	return s.version, s.err
}

func (s *stubMigrations) Pending(context.Context, string) ([]ports.PendingMigration, error) {
	return s.pending, s.err
}

func (s *stubMigrations) RunAll(context.Context, string) (*ports.RunAllResult, error) {
	return s.runAll, s.err
}

func (s *stubMigrations) RunOne(_ context.Context, _ string, version string) (*ports.RunOneResult, error) {
	s.gotVersion = version
	return s.runOne, s.err
}

func (s *stubMigrations) Rollback(_ context.Context, _ string, version string) (*ports.RollbackResult, error) {
	s.gotVersion = version
	return s.rollbck, s.err
}

func (s *stubMigrations) History(context.Context, string) ([]domain.MigrationHistoryEntry, error) {
	return s.history, s.err
}

type stubValidation struct {
	report  *ports.ValidationReport
	quick   bool
	err     error
	gotOpts ports.ValidateOptions
}

func (s *stubValidation) ValidateAll(_ context.Context, _ string, opts ports.ValidateOptions) (*ports.ValidationReport, error) {
	s.gotOpts = opts
	return s.report, s.err
}

func (s *stubValidation) QuickValidate(context.Context, string) (bool, error) {
	return s.quick, s.err
}

func (s *stubValidation) RuleNames() []string { return nil }

type stubRepair struct {
	result  *ports.RepairResult
	err     error
	gotOpts ports.RepairOptions
}

func (s *stubRepair) Repair(_ context.Context, _ string, opts ports.RepairOptions) (*ports.RepairResult, error) {
	s.gotOpts = opts
	return s.result, s.err
}

type stubStats struct {
	stats *ports.TenantStats
	err   error
}

func (s *stubStats) Stats(context.Context, string) (*ports.TenantStats, error) {
	return s.stats, s.err
}

type handlerFixture struct {
	handler    *EngineHandler
	locker     *stubLocker
	migrations *stubMigrations
	validation *stubValidation
	repair     *stubRepair
}

func newFixture() *handlerFixture {
	locker := &stubLocker{}
	migrations := &stubMigrations{
		version: "1.1.0",
		runAll:  &ports.RunAllResult{MigrationsRun: 2, Errors: []string{}, Version: "1.1.0"},
		runOne:  &ports.RunOneResult{Success: true},
		rollbck: &ports.RollbackResult{Success: true, Version: "1.0.0"},
	}
	validation := &stubValidation{report: &ports.ValidationReport{Valid: true}}
	repair := &stubRepair{result: &ports.RepairResult{Operations: []string{}, Errors: []string{}}}
	return &handlerFixture{
		handler: NewEngineHandler(
			&stubBootstrap{result: &ports.BootstrapResult{CreatedPreferences: true, CreatedYear: true, YearID: "y1"}},
			migrations,
			validation,
			repair,
			&stubStats{stats: &ports.TenantStats{Version: "1.1.0"}},
			locker,
		),
		locker:     locker,
		migrations: migrations,
		validation: validation,
		repair:     repair,
	}
}

func newEngineContext(method, body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func TestEngineHandler_Bootstrap(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodPost, "", map[string]string{"tenant_id": "u1"})

	if err := f.handler.Bootstrap(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"created_preferences":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if f.locker.acquired != 1 || f.locker.released != 1 {
		t.Fatalf("lock not taken and released: %+v", f.locker)
	}
}

func TestEngineHandler_Bootstrap_Contended(t *testing.T) {
	f := newFixture()
	f.locker.err = domain.ErrTenantLocked
	c, _ := newEngineContext(http.MethodPost, "", map[string]string{"tenant_id": "u1"})

	err := f.handler.Bootstrap(c)
	if !errors.Is(err, domain.ErrTenantLocked) {
		t.Fatalf("expected ErrTenantLocked, got %v", err)
	}
}

func TestEngineHandler_Bootstrap_InvalidTenantSkipsLock(t *testing.T) {
	f := newFixture()
	c, _ := newEngineContext(http.MethodPost, "", map[string]string{"tenant_id": " "})

	err := f.handler.Bootstrap(c)
	if !errors.Is(err, domain.ErrInvalidTenantID) {
		t.Fatalf("expected ErrInvalidTenantID, got %v", err)
	}
	if f.locker.acquired != 0 {
		t.Fatal("lock must not be taken for an invalid tenant")
	}
}

func TestEngineHandler_RunAll(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodPost, "", map[string]string{"tenant_id": "u1"})

	if err := f.handler.RunAll(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"migrations_run":2`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if f.locker.released != 1 {
		t.Fatal("lock must be released after the run")
	}
}

func TestEngineHandler_RunOne_PassesVersionParam(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodPost, "", map[string]string{"tenant_id": "u1", "version": "1.1.0"})

	if err := f.handler.RunOne(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.migrations.gotVersion != "1.1.0" {
		t.Fatalf("version param not passed, got %q", f.migrations.gotVersion)
	}
}

func TestEngineHandler_Pending_EmptyListNotNull(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodGet, "", map[string]string{"tenant_id": "u1"})

	if err := f.handler.Pending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"pending":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestEngineHandler_Validate_PassesOptions(t *testing.T) {
	f := newFixture()
	body := `{"rules":["preferences","years"],"include_info":true}`
	c, rec := newEngineContext(http.MethodPost, body, map[string]string{"tenant_id": "u1"})

	if err := f.handler.Validate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.validation.gotOpts.Rules) != 2 || !f.validation.gotOpts.IncludeInfo {
		t.Fatalf("options not passed through: %+v", f.validation.gotOpts)
	}
}

func TestEngineHandler_Validate_MalformedBody(t *testing.T) {
	f := newFixture()
	c, _ := newEngineContext(http.MethodPost, `{"rules": 5}`, map[string]string{"tenant_id": "u1"})

	err := f.handler.Validate(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected a 400, got %v", err)
	}
}

func TestEngineHandler_Repair_PassesOptions(t *testing.T) {
	f := newFixture()
	body := `{"fix_invalid_references":true,"fix_selected_year":true}`
	c, rec := newEngineContext(http.MethodPost, body, map[string]string{"tenant_id": "u1"})

	if err := f.handler.Repair(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	opts := f.repair.gotOpts
	if !opts.FixInvalidReferences || opts.FixMissingTimestamps || !opts.FixSelectedYear {
		t.Fatalf("options not passed through: %+v", opts)
	}
}

func TestEngineHandler_Version(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodGet, "", map[string]string{"tenant_id": "u1"})

	if err := f.handler.Version(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"version":"1.1.0"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestEngineHandler_Stats(t *testing.T) {
	f := newFixture()
	c, rec := newEngineContext(http.MethodGet, "", map[string]string{"tenant_id": "u1"})

	if err := f.handler.Stats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
