package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/poofware/inventory-service/internal/app"
	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/controllers"
	"github.com/poofware/inventory-service/internal/metrics"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/seeding"
	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

const (
	localhostOrigin = "http://localhost:3000"
	jobTimeout      = 5 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize inventory-service:", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "inventory")

	allowedOrigins := append([]string{cfg.AppUrl}, cfg.AllowedOrigins...)
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, localhostOrigin)
	}

	// Push events: local hub, relayed through Redis when it is available.
	hub := notifications.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowedOrigins, origin)
	})
	go hub.Run(ctx)
	var publisher notifications.Publisher = hub
	if application.Redis != nil {
		bridge := notifications.NewRedisBridge(application.Redis, hub)
		go bridge.Run(ctx)
		publisher = bridge
	}

	unitRepo := repositories.NewInventoryUnitRepository(application.DB)
	seqRepo := repositories.NewCodeSequenceRepository(application.DB)
	userRepo := repositories.NewUserRepository(application.DB)
	otpRepo := repositories.NewOtpVerificationRepository(application.DB)
	requestRepo := repositories.NewAccountRequestRepository(application.DB)
	auditRepo := repositories.NewAuditLogRepository(application.DB)
	rateLimitRepo := repositories.NewRateLimitRepository(application.DB)

	if err := seeding.SeedDefaultAdmin(ctx, userRepo, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to seed default admin")
	}

	mailer := services.NewSendGridMailer(cfg, m)
	rateLimiter := services.NewRateLimiterService(rateLimitRepo, cfg)
	jwtService := services.NewJWTService(cfg)

	inventoryService := services.NewInventoryService(unitRepo, seqRepo, userRepo, auditRepo, publisher, m, cfg)
	authService := services.NewAuthService(userRepo, otpRepo, rateLimiter, jwtService, mailer, cfg)
	requestService := services.NewAccountRequestService(requestRepo, userRepo, auditRepo, rateLimiter, mailer, publisher, m, cfg)
	overdueService := services.NewOverdueNotificationService(unitRepo, userRepo, publisher, mailer, m, cfg)
	cleanupService := services.NewVerificationCleanupService(otpRepo, rateLimitRepo)
	qrService := services.NewQRCodeService(unitRepo)

	router := mux.NewRouter()
	controllers.RegisterRoutes(router, cfg.RSAPublicKey, m, controllers.Handlers{
		Health:         controllers.NewHealthController(application.DB, application.Redis),
		Auth:           controllers.NewAuthController(authService),
		Property:       controllers.NewPropertyController(inventoryService),
		AccountRequest: controllers.NewAccountRequestController(requestService),
		QR:             controllers.NewQRController(qrService),
		WS:             controllers.NewWSController(hub),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	c := cron.New()
	_, overdueErr := c.AddFunc(cfg.OverdueCron, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, e := overdueService.NotifyOverdue(jobCtx); e != nil {
			utils.Logger.WithError(e).Error("Scheduled overdue scan failed")
		}
	})
	if overdueErr != nil {
		utils.Logger.WithError(overdueErr).Fatal("Failed to schedule overdue cron")
	}

	_, cleanupErr := c.AddFunc(cfg.CleanupCron, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		cleanupService.CleanupDaily(jobCtx)
	})
	if cleanupErr != nil {
		utils.Logger.WithError(cleanupErr).Fatal("Failed to schedule cleanup cron")
	}

	_, gaugeErr := c.AddFunc("@every 30s", func() {
		m.SetWebsocketClients(hub.ClientCount(ctx))
	})
	if gaugeErr != nil {
		utils.Logger.WithError(gaugeErr).Fatal("Failed to schedule websocket gauge")
	}
	c.Start()
	defer c.Stop()

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.Logger.WithError(err).Warn("Graceful shutdown failed")
		}
	}()

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.Logger.Fatal("inventory-service failed to start:", err)
	}
	utils.Logger.Info("inventory-service stopped")
}
