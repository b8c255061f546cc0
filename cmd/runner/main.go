package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/internal/config"
	"billingengine/internal/events"
	"billingengine/internal/httpserver"
	"billingengine/internal/mqhandler"
	"billingengine/internal/repository"
	"billingengine/internal/service"
	"billingengine/pkg/db"
	"billingengine/pkg/logger"
	"billingengine/pkg/mq"
	"billingengine/pkg/otel"
	"billingengine/pkg/outbox"
	"billingengine/pkg/redis"
	"billingengine/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting billing runner...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Duration("overdue_interval", cfg.Billing.OverdueInterval),
	)

	shutdownTracing, err := otel.Init(cfg.OTel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(context.Background(), cfg.DB, cfg.Billing.SlowQueryThreshold, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis (dedup only; the activity table is idempotent on its own)
	var dedup mqhandler.Deduper
	rdb, err := redis.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, activity consumer runs without dedup", zap.Error(err))
	} else {
		defer rdb.Close()
		dedup = util.NewDeduper(rdb, cfg.Billing.DedupTTL, log)
	}

	invoiceRepo := repository.NewInvoiceRepository(dbConn, log)
	activityRepo := repository.NewActivityRepository(dbConn, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	// Outbox Dispatcher
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log).
		WithInterval(cfg.Billing.OutboxInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Start(ctx)
	}()

	// Overdue orchestrator
	orchestrator := service.NewOrchestrator(invoiceRepo, cfg.Billing.AggregateOptions(), log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		orchestrator.Run(ctx, cfg.Billing.OverdueInterval)
	}()

	// MQ Consumer for document.transitioned
	log.Info("Initializing MQ consumer for document.transitioned...",
		zap.String("queue", events.ActivityLogQueue),
		zap.String("routing_key", events.DocumentTransitioned),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, events.ActivityLogQueue, events.DocumentTransitioned, log)
	if err != nil {
		log.Fatal("Failed to init activity consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(mqhandler.NewActivityHandler(activityRepo, dedup, log).HandleDocumentTransitioned)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil {
			log.Error("Activity consumer failed", zap.Error(err))
		}
	}()

	// HTTP Server (for health checks)
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Runner.Port,
		Handler:           httpserver.NewHealthRouter(dbConn, consumer, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Runner.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("billing runner is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down billing runner gracefully...")
	consumer.Stop()
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("billing runner shutdown complete")
}
