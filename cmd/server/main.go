package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/internal/config"
	"billingengine/internal/handler"
	"billingengine/internal/httpserver"
	"billingengine/internal/repository"
	"billingengine/internal/service"
	"billingengine/pkg/db"
	"billingengine/pkg/logger"
	"billingengine/pkg/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting billing server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("port", cfg.Server.Port),
	)

	shutdownTracing, err := otel.Init(cfg.OTel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(context.Background(), cfg.DB, cfg.Billing.SlowQueryThreshold, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.Migrate(migrateCtx, dbConn); err != nil {
		migrateCancel()
		log.Fatal("Failed to apply schema", zap.Error(err))
	}
	migrateCancel()
	log.Info("Database connection established successfully")

	projectRepo := repository.NewProjectRepository(dbConn, log)
	timesheetRepo := repository.NewTimesheetRepository(dbConn, log)
	quoteRepo := repository.NewQuoteRepository(dbConn, log)
	invoiceRepo := repository.NewInvoiceRepository(dbConn, log)

	opts := cfg.Billing.AggregateOptions()
	reconcileService := service.NewReconcileService(projectRepo, timesheetRepo, quoteRepo, invoiceRepo, opts, log).
		WithLimits(cfg.Billing.ReconcileTimeout, cfg.Billing.ReconcileConcurrency)
	documentService := service.NewDocumentService(quoteRepo, invoiceRepo, opts, log)

	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(httpserver.Deps{
		Billing:   handler.NewBillingHandler(reconcileService, log),
		Documents: handler.NewDocumentHandler(documentService, log),
		DB:        dbConn,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("billing server is fully initialized and running")

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down billing server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("billing server shutdown complete")
}
