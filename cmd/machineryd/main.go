package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"machinery-backend/config"
	"machinery-backend/internal/api"
	"machinery-backend/internal/auth"
	"machinery-backend/internal/blob"
	"machinery-backend/internal/db"
	"machinery-backend/internal/events"
	"machinery-backend/internal/logger"
	"machinery-backend/internal/metrics"
	"machinery-backend/internal/mw"
	"machinery-backend/internal/notification"
	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
	"machinery-backend/internal/sweeper"
)

const visitorIdleTimeout = 10 * time.Minute

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "machineryd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)
	m := metrics.New()

	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.Addr != "" {
		rp, err := events.Dial(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to event stream", zap.Error(err))
		}
		defer rp.Close()
		publisher = rp
		log.Info("publishing lifecycle events", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Redis.Stream))
	}

	blobs, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("failed to initialize document storage", zap.Error(err))
	}

	deps := service.Deps{
		Store:    appStore,
		Log:      log,
		Events:   publisher,
		Metrics:  m,
		Location: cfg.Location(),
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log, m)
		pool.Start(ctx)
		deps.Notifier = pool
	} else {
		log.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	svcs := service.New(deps, blobs, tokens, service.MaintenanceOptions{
		StrictDuration:  cfg.Maintenance.StrictDuration,
		DefaultDuration: cfg.Maintenance.DefaultDuration,
		WeekDays:        cfg.Maintenance.WeekDays,
	})

	if err := svcs.Identity.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword,
		cfg.Auth.AdminFirstName, cfg.Auth.AdminLastName); err != nil {
		log.Fatal("failed to bootstrap administrator", zap.Error(err))
	}

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(svcs, appStore, cfg.Sweeper.Schedule, cfg.Location(), log, m)
		go func() {
			if err := sw.Run(ctx); err != nil {
				log.Error("maintenance sweeper stopped", zap.Error(err))
			}
		}()
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Forget(visitorIdleTimeout)
			}
		}
	}()

	handler := api.NewHandler(svcs, appStore, api.Options{
		WebPush:        webpushOptions,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Log:            log,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		Log:      log,
		Metrics:  m,
		Limiter:  limiter,
		CacheTTL: time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server Shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}
