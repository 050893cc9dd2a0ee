package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/checklisthq/schema-engine/internal/api/handler"
	"github.com/checklisthq/schema-engine/internal/api/middleware"
	"github.com/checklisthq/schema-engine/internal/core/domain"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The engine handler arrives pre-built because registry construction can
// fail; wiring it is main's responsibility.
func NewRouter(db *mongo.Database, rdb *redis.Client, engine *handler.EngineHandler, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("schema_engine"))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Tenant engine routes ---
	auth := middleware.Auth(jwtSecret)
	readRoles := middleware.RBAC(domain.RoleAdmin, domain.RoleOperator)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	tenants := e.Group("/v1/tenants/:tenant_id", auth)

	// Read-only inspection.
	tenants.GET("/version", engine.Version, readRoles)
	tenants.GET("/migrations/pending", engine.Pending, readRoles)
	tenants.GET("/migrations/history", engine.History, readRoles)
	tenants.GET("/validate/quick", engine.QuickValidate, readRoles)
	tenants.GET("/stats", engine.Stats, readRoles)
	tenants.POST("/validate", engine.Validate, readRoles)

	// Mutating engine runs.
	tenants.POST("/bootstrap", engine.Bootstrap, adminOnly)
	tenants.POST("/migrations/run", engine.RunAll, adminOnly)
	tenants.POST("/migrations/:version/run", engine.RunOne, adminOnly)
	tenants.POST("/migrations/:version/rollback", engine.Rollback, adminOnly)
	tenants.POST("/repair", engine.Repair, adminOnly)

	return e
}
