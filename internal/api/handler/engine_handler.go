package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/checklisthq/schema-engine/internal/api/metrics"
	"github.com/checklisthq/schema-engine/internal/core/domain"
	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// EngineHandler exposes the schema engine's per-tenant operations to the
// admin surface. Mutating operations take the per-tenant run lock first so
// at most one engine run per tenant is ever in flight.
type EngineHandler struct {
	bootstrap  ports.BootstrapService
	migrations ports.MigrationService
	validation ports.ValidationService
	repair     ports.RepairService
	stats      ports.StatsService
	locker     ports.TenantLocker
}

func NewEngineHandler(
	bootstrap ports.BootstrapService,
	migrations ports.MigrationService,
	validation ports.ValidationService,
	repair ports.RepairService,
	stats ports.StatsService,
	locker ports.TenantLocker,
) *EngineHandler {
	return &EngineHandler{
		bootstrap:  bootstrap,
		migrations: migrations,
		validation: validation,
		repair:     repair,
		stats:      stats,
		locker:     locker,
	}
}

// --- Request / Response types ---

type validateRequest struct {
	Rules       []string `json:"rules" validate:"dive,min=1"`
	IncludeInfo bool     `json:"include_info"`
}

type repairRequest struct {
	FixInvalidReferences bool `json:"fix_invalid_references"`
	FixMissingTimestamps bool `json:"fix_missing_timestamps"`
	FixSelectedYear      bool `json:"fix_selected_year"`
}

type versionResponse struct {
	TenantID string `json:"tenant_id"`
	Version  string `json:"version"`
}

type pendingResponse struct {
	TenantID string                   `json:"tenant_id"`
	Pending  []ports.PendingMigration `json:"pending"`
}

type historyResponse struct {
	TenantID string                         `json:"tenant_id"`
	Entries  []domain.MigrationHistoryEntry `json:"entries"`
}

type quickValidateResponse struct {
	TenantID string `json:"tenant_id"`
	Valid    bool   `json:"valid"`
}

// Bootstrap handles POST /v1/tenants/:tenant_id/bootstrap.
//
// @Summary      Ensure the minimal document shape for a tenant
// @Tags         bootstrap
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  path      string  true  "Tenant id"
// @Success      200        {object}  ports.BootstrapResult
// @Failure      409        {object}  map[string]string
// @Router       /v1/tenants/{tenant_id}/bootstrap [post]
func (h *EngineHandler) Bootstrap(c echo.Context) error {
	tenantID, release, err := h.lockedTenant(c)
	if err != nil {
		return err
	}
	defer release()

	result, err := h.bootstrap.Ensure(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Version handles GET /v1/tenants/:tenant_id/version.
func (h *EngineHandler) Version(c echo.Context) error {
	tenantID := c.Param("tenant_id")
	version, err := h.migrations.Version(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, versionResponse{TenantID: tenantID, Version: version})
}

// Pending handles GET /v1/tenants/:tenant_id/migrations/pending.
func (h *EngineHandler) Pending(c echo.Context) error {
	tenantID := c.Param("tenant_id")
	pending, err := h.migrations.Pending(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []ports.PendingMigration{}
	}
	return c.JSON(http.StatusOK, pendingResponse{TenantID: tenantID, Pending: pending})
}

// RunAll handles POST /v1/tenants/:tenant_id/migrations/run.
//
// @Summary      Apply all pending migrations in order
// @Tags         migrations
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  path      string  true  "Tenant id"
// @Success      200        {object}  ports.RunAllResult
// @Failure      409        {object}  map[string]string
// @Router       /v1/tenants/{tenant_id}/migrations/run [post]
func (h *EngineHandler) RunAll(c echo.Context) error {
	tenantID, release, err := h.lockedTenant(c)
	if err != nil {
		return err
	}
	defer release()

	result, err := h.migrations.RunAll(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}

	outcome := "success"
	if len(result.Errors) > 0 {
		outcome = "failure"
	}
	metrics.MigrationRunsTotal.WithLabelValues(outcome).Inc()
	if result.MigrationsRun > 0 {
		metrics.MigrationsAppliedTotal.WithLabelValues(result.Version).Add(float64(result.MigrationsRun))
	}
	return c.JSON(http.StatusOK, result)
}

// RunOne handles POST /v1/tenants/:tenant_id/migrations/:version/run.
func (h *EngineHandler) RunOne(c echo.Context) error {
	tenantID, release, err := h.lockedTenant(c)
	if err != nil {
		return err
	}
	defer release()

	result, err := h.migrations.RunOne(c.Request().Context(), tenantID, c.Param("version"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Rollback handles POST /v1/tenants/:tenant_id/migrations/:version/rollback.
func (h *EngineHandler) Rollback(c echo.Context) error {
	tenantID, release, err := h.lockedTenant(c)
	if err != nil {
		return err
	}
	defer release()

	result, err := h.migrations.Rollback(c.Request().Context(), tenantID, c.Param("version"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// History handles GET /v1/tenants/:tenant_id/migrations/history.
func (h *EngineHandler) History(c echo.Context) error {
	tenantID := c.Param("tenant_id")
	entries, err := h.migrations.History(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.MigrationHistoryEntry{}
	}
	return c.JSON(http.StatusOK, historyResponse{TenantID: tenantID, Entries: entries})
}

// Validate handles POST /v1/tenants/:tenant_id/validate.
//
// @Summary      Run validation rules against live tenant data
// @Tags         validation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  path      string           true   "Tenant id"
// @Param        request    body      validateRequest  false  "Rule subset and options"
// @Success      200        {object}  ports.ValidationReport
// @Router       /v1/tenants/{tenant_id}/validate [post]
func (h *EngineHandler) Validate(c echo.Context) error {
	tenantID := c.Param("tenant_id")

	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.validation.ValidateAll(c.Request().Context(), tenantID, ports.ValidateOptions{
		Rules:       req.Rules,
		IncludeInfo: req.IncludeInfo,
	})
	if err != nil {
		return err
	}

	metrics.ValidationRunsTotal.WithLabelValues(strconv.FormatBool(report.Valid)).Inc()
	metrics.ValidationIssuesTotal.WithLabelValues(string(domain.SeverityError)).Add(float64(report.Errors))
	metrics.ValidationIssuesTotal.WithLabelValues(string(domain.SeverityWarning)).Add(float64(report.Warnings))
	metrics.ValidationIssuesTotal.WithLabelValues(string(domain.SeverityInfo)).Add(float64(report.Info))
	return c.JSON(http.StatusOK, report)
}

// QuickValidate handles GET /v1/tenants/:tenant_id/validate/quick.
func (h *EngineHandler) QuickValidate(c echo.Context) error {
	tenantID := c.Param("tenant_id")
	valid, err := h.validation.QuickValidate(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quickValidateResponse{TenantID: tenantID, Valid: valid})
}

// Repair handles POST /v1/tenants/:tenant_id/repair.
//
// @Summary      Apply option-gated integrity repairs
// @Tags         repair
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  path      string         true  "Tenant id"
// @Param        request    body      repairRequest  true  "Corrections to apply"
// @Success      200        {object}  ports.RepairResult
// @Failure      409        {object}  map[string]string
// @Router       /v1/tenants/{tenant_id}/repair [post]
func (h *EngineHandler) Repair(c echo.Context) error {
	tenantID, release, err := h.lockedTenant(c)
	if err != nil {
		return err
	}
	defer release()

	var req repairRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.repair.Repair(c.Request().Context(), tenantID, ports.RepairOptions{
		FixInvalidReferences: req.FixInvalidReferences,
		FixMissingTimestamps: req.FixMissingTimestamps,
		FixSelectedYear:      req.FixSelectedYear,
	})
	if err != nil {
		return err
	}

	metrics.RepairOperationsTotal.Add(float64(len(result.Operations)))
	return c.JSON(http.StatusOK, result)
}

// Stats handles GET /v1/tenants/:tenant_id/stats.
func (h *EngineHandler) Stats(c echo.Context) error {
	tenantID := c.Param("tenant_id")
	stats, err := h.stats.Stats(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// lockedTenant validates the tenant path parameter and takes the per-tenant
// run lock. The returned release function must be deferred.
func (h *EngineHandler) lockedTenant(c echo.Context) (string, func(), error) {
	tenantID := c.Param("tenant_id")
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return "", nil, err
	}

	release, err := h.locker.Acquire(c.Request().Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantLocked) {
			metrics.RunLockContentionTotal.WithLabelValues("contended").Inc()
		}
		return "", nil, err
	}
	metrics.RunLockContentionTotal.WithLabelValues("acquired").Inc()
	return tenantID, release, nil
}
