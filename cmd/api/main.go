package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dentalespejo/clinic-platform/internal/api/router"
	"github.com/dentalespejo/clinic-platform/internal/appointments"
	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/internal/auth"
	"github.com/dentalespejo/clinic-platform/internal/clinic"
	appconfig "github.com/dentalespejo/clinic-platform/internal/config"
	"github.com/dentalespejo/clinic-platform/internal/notify"
	"github.com/dentalespejo/clinic-platform/internal/observability/metrics"
	"github.com/dentalespejo/clinic-platform/internal/users"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.AdminJWTSecret == "" {
		logger.Error("ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Separate database/sql handle for the audit trail.
	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = auditDB.Close() }()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, slot cache and settings store degraded", "error", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	auditService := audit.NewService(auditDB)

	settingsStore := clinic.NewStore(redisClient, clinic.Settings{
		Name:        cfg.ClinicName,
		Doctor:      cfg.ClinicDoctor,
		Address:     cfg.ClinicAddress,
		Phone:       cfg.ClinicPhone,
		StaffEmail:  cfg.ClinicStaffEmail,
		NotifyStaff: cfg.ClinicStaffEmail != "",
	})

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn("sendgrid not configured, emails go to the stub sender")
		sender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewConfirmationService(sender, settingsStore, logger)

	var slotCache *appointments.AvailabilityCache
	if redisClient != nil && !cfg.DisableSlotCache {
		slotCache = appointments.NewAvailabilityCache(redisClient, cfg.AvailabilityTTL, logger)
	}

	apptRepo := appointments.NewPostgresRepository(pool)
	apptService := appointments.NewBookingService(apptRepo, slotCache, notifier, bookingMetrics, logger)
	apptHandler := appointments.NewHandler(apptService, auditService, logger)

	userRepo := users.NewPostgresRepository(pool)
	userHandler := users.NewHandler(userRepo, auditService, logger).WithActor(sessionActor)

	tokenStore := auth.NewTokenStore(pool)
	authHandler := auth.NewHandler(userRepo, tokenStore, auditService,
		cfg.AdminJWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)

	clinicHandler := clinic.NewHandler(settingsStore, apptService, auditService, logger)
	auditHandler := audit.NewHandler(auditService, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: apptHandler,
		AuthHandler:         authHandler,
		UsersHandler:        userHandler,
		ClinicHandler:       clinicHandler,
		AuditHandler:        auditHandler,
		AdminJWTSecret:      cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		BookingRateLimit:    cfg.BookingRateLimit,
		BookingRateBurst:    cfg.BookingRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// sessionActor maps access-token claims to the audit actor.
func sessionActor(ctx context.Context) (users.Actor, bool) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return users.Actor{}, false
	}
	return users.Actor{ID: claims.UserID, Email: claims.Email}, true
}
