package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rentory/rentory-backend/internal/inventory/consumers"
	"github.com/rentory/rentory-backend/internal/inventory/events"
	"github.com/rentory/rentory-backend/internal/inventory/export"
	"github.com/rentory/rentory-backend/internal/inventory/handler"
	"github.com/rentory/rentory-backend/internal/inventory/repository"
	"github.com/rentory/rentory-backend/internal/inventory/service"
	"github.com/rentory/rentory-backend/migrations"
	"github.com/rentory/rentory-backend/pkg/config"
	"github.com/rentory/rentory-backend/pkg/database"
	"github.com/rentory/rentory-backend/pkg/httputil"
	"github.com/rentory/rentory-backend/pkg/logger"
	"github.com/rentory/rentory-backend/pkg/messaging"
	"github.com/rentory/rentory-backend/pkg/metrics"
)

const serviceName = "inventory-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	// Repositories
	itemRepo := repository.NewItemRepository(db)
	statusChangeRepo := repository.NewStatusChangeRepository(db)
	serialRepo := repository.NewSerialSequenceRepository(db, cfg.Inventory.Serial.Prefix, cfg.Inventory.Serial.PaddingLength)
	categoryRepo := repository.NewCategoryRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	exportRepo := repository.NewExportRepository(db)

	exportLimits := service.ExportLimits{
		SyncLimit:    cfg.Inventory.Export.SyncLimit,
		AsyncLimit:   cfg.Inventory.Export.AsyncLimit,
		InventoryTTL: cfg.Inventory.Export.InventoryTTL,
		AuditTTL:     cfg.Inventory.Export.AuditTTL,
		DownloadBase: cfg.Inventory.Export.DownloadBase,
	}

	// Messaging is optional in development. Without a broker there is no
	// export worker, so every export must fit the synchronous path.
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.InventoryEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewInventoryEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("RabbitMQ disabled, events are not published and async exports are rejected")
		exportLimits.AsyncLimit = exportLimits.SyncLimit
	}

	deps := service.Dependencies{
		Tx:            db,
		Items:         itemRepo,
		StatusChanges: statusChangeRepo,
		Serials:       serialRepo,
		Categories:    categoryRepo,
		Audit:         auditRepo,
		AuditLog:      auditRepo,
		Exports:       exportRepo,
		Publisher:     publisher,
		Logger:        log,
	}

	itemService := service.NewItemMutationService(deps)
	bulkEngine := service.NewBulkEditEngine(deps, service.BulkLimits{
		ConfirmThreshold: cfg.Inventory.Bulk.ConfirmThreshold,
		MaxItems:         cfg.Inventory.Bulk.MaxItems,
		Workers:          cfg.Inventory.Bulk.Workers,
		ItemTimeout:      cfg.Inventory.Bulk.ItemTimeout,
	})
	exportCoordinator := service.NewExportCoordinator(deps, exportLimits, export.Renderers())

	itemHandler := handler.NewItemHandler(itemService, bulkEngine, log)
	exportHandler := handler.NewExportHandler(exportCoordinator, log)

	if rmq != nil {
		categoryConsumer, err := consumers.NewCategoryEventConsumer(rmq, categoryRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create category event consumer")
		}
		if err := categoryConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start category event consumer")
		}

		exportWorker, err := consumers.NewExportWorker(rmq, exportCoordinator, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create export worker")
		}
		if err := exportWorker.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start export worker")
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", httputil.HeaderTenantID, httputil.HeaderUserID},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.TenantMiddleware)
	r.Use(httputil.ActorMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api/v1/inventory", func(r chi.Router) {
		handler.Routes(r, itemHandler, exportHandler)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consumers before draining HTTP
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
