package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/internal/api"
	"github.com/trackforce/fieldguard/internal/behavior"
	"github.com/trackforce/fieldguard/internal/device"
	"github.com/trackforce/fieldguard/internal/fraud"
	"github.com/trackforce/fieldguard/internal/location"
	"github.com/trackforce/fieldguard/internal/sensors"
	"github.com/trackforce/fieldguard/pkg/alerthub"
	"github.com/trackforce/fieldguard/pkg/config"
	"github.com/trackforce/fieldguard/pkg/health"
	"github.com/trackforce/fieldguard/pkg/logger"
	"github.com/trackforce/fieldguard/pkg/middleware"
	"github.com/trackforce/fieldguard/pkg/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load("agentd")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	logger.Info("storage ready", zap.String("backend", cfg.Storage.Backend))

	// Alert hub streams High/Critical findings to the host UI
	hub := alerthub.NewHub(logger.Named("alerthub"))
	go hub.Run()

	prober := device.NewPushProber()
	collector := device.NewCollector(prober, store, logger.Named("device"))
	monitor := sensors.NewMonitor()
	behaviorStore := behavior.NewStore(store, logger.Named("behavior"))

	source := location.NewChannelSource()
	tracker := location.NewTracker(source, store, cfg.Tracking.HistoryCapacity, hub, logger.Named("location"))

	fraudService := fraud.NewService(
		behaviorStore, collector, monitor, store, hub,
		fraud.Config{
			AuditCapacity:         cfg.Fraud.AuditCapacity,
			RapidActivityLimit:    cfg.Fraud.RapidActivityLimit,
			RapidActivityWindow:   time.Duration(cfg.Fraud.RapidActivityWindowMinutes) * time.Minute,
			SimilarActivityLimit:  cfg.Fraud.SimilarActivityLimit,
			SimilarActivityWindow: time.Duration(cfg.Fraud.SimilarActivityWindowMinutes) * time.Minute,
		},
		logger.Named("fraud"),
	)

	handler := api.NewHandler(
		tracker, source, monitor, collector, prober,
		behaviorStore, fraudService, hub, cfg.Tracking, logger.Named("api"),
	)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", health.Handler("agentd", version, map[string]func() error{
		"storage": health.StoreChecker(store),
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("agentd listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	tracker.StopTracking()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

// newStore selects the key-value backend from configuration
func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return storage.NewRedisStore(&cfg.Redis)
	default:
		return storage.NewMemoryStore(), nil
	}
}
