package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/http/handlers"
	"github.com/campusops/attendance-portal/internal/payments"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/internal/repo/redisstore"
	"github.com/campusops/attendance-portal/internal/service"
	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/campusops/attendance-portal/pkg/database"
	"github.com/campusops/attendance-portal/pkg/events"
	"github.com/campusops/attendance-portal/pkg/logger"
	mw "github.com/campusops/attendance-portal/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.MigrateUp(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	sessions := redisstore.New(cfg.Redis)
	if !sessions.Healthy(ctx) {
		logger.Error("Failed to connect to redis", "addr", cfg.Redis.Addr)
		os.Exit(1)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	userRepo := postgres.NewUserRepo(pool)
	eventRepo := postgres.NewEventRepo(pool)
	attendanceRepo := postgres.NewAttendanceRepo(pool)
	rateLimitRepo := postgres.NewRateLimitRepo(pool)

	var charger payments.Charger = payments.NewDevCharger()
	if cfg.Payments.StripeSecretKey != "" {
		charger = payments.NewStripeCharger(cfg.Payments)
	}

	identity := service.NewIdentityService(userRepo, sessions, eventBus, cfg)
	ledger := service.NewLedgerService(attendanceRepo, eventRepo, userRepo, charger, eventBus)
	catalog := service.NewCatalogService(eventRepo, userRepo, ledger, eventBus)

	h := handlers.New(identity, catalog, ledger, rateLimitRepo, cfg)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(h.RequireSession).Get("/me", h.Me)
		r.With(h.RequireSession).Post("/logout", h.Logout)
	})

	r.With(h.RequireSession).Get("/events", h.ListEvents)

	r.Route("/faculty/events", func(r chi.Router) {
		r.Use(h.RequireRole(domain.RoleFaculty))
		r.Post("/", h.CreateEvent)
		r.Post("/{id}/finalize", h.FinalizeEvent)
		r.Get("/{id}/attendance", h.EventAttendance)
	})

	r.Route("/student", func(r chi.Router) {
		r.Use(h.RequireRole(domain.RoleStudent))
		r.Post("/checkin", h.CheckIn)
		r.Get("/attendance", h.MyAttendance)
		r.Get("/fines", h.MyFines)
		r.Post("/fines/{recordId}/pay", h.PayFine)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}
