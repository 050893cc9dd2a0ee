package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/checklisthq/schema-engine/internal/api"
	"github.com/checklisthq/schema-engine/internal/api/handler"
	"github.com/checklisthq/schema-engine/internal/core/service"
	"github.com/checklisthq/schema-engine/internal/infrastructure/config"
	mongodb "github.com/checklisthq/schema-engine/internal/infrastructure/db/mongo"
	redisdb "github.com/checklisthq/schema-engine/internal/infrastructure/db/redis"
	"github.com/checklisthq/schema-engine/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	store := mongodb.NewDocStore(client, db, cfg.BatchMaxOps)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	registry, err := service.DefaultRegistry(store, cfg.BatchMaxOps)
	if err != nil {
		log.Fatal().Err(err).Msg("migration registry rejected")
	}

	versions := service.NewVersionStore(store)
	engine := handler.NewEngineHandler(
		service.NewBootstrapper(store, log),
		service.NewMigrator(store, registry, versions, log),
		service.NewValidator(service.DefaultRules(store), log),
		service.NewRepairer(store, cfg.BatchMaxOps, log),
		service.NewStatsReader(store, versions),
		redisdb.NewRunLock(rdb),
	)

	e := api.NewRouter(db, rdb, engine, cfg.JWTSecret, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("schema engine admin server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
