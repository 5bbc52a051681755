package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"payandpromise/internal/auth"
	"payandpromise/internal/checkin"
	"payandpromise/internal/handler"
	"payandpromise/internal/ledger"
	"payandpromise/internal/middleware"
	"payandpromise/internal/promise"
	"payandpromise/internal/report"
	"payandpromise/internal/repository/postgres"
	"payandpromise/internal/settlement"
	"payandpromise/pkg/config"
	"payandpromise/pkg/logger"
	"payandpromise/pkg/validator"
)

func main() {
	cfg := config.Load()
	log := logger.New("payandpromise-api")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Pay & Promise API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	log.Info("Redis connected", nil)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	promiseRepo := postgres.NewPromiseRepository(db)
	checkinRepo := postgres.NewCheckinRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	settlementRepo := postgres.NewSettlementRepository(db)

	// Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	promiseService := promise.NewService(promiseRepo, userRepo, log)
	checkinService := checkin.NewService(checkinRepo, promiseRepo, log)
	ledgerService := ledger.NewService(ledgerRepo, promiseRepo, log)
	settlementService := settlement.NewService(settlementRepo, log)
	reportService := report.NewService(
		ledgerRepo, checkinRepo, promiseRepo, userRepo, settlementService,
		cfg.Payments.UPIScheme, cfg.Payments.Currency, log,
	)

	// Handlers
	val := validator.New()
	blacklist := middleware.NewRedisTokenBlacklist(redisClient)
	authHandler := handler.NewAuthHandler(authService, blacklist, cfg.JWT.Expiration, val, log)
	promiseHandler := handler.NewPromiseHandler(promiseService, val, log)
	checkinHandler := handler.NewCheckinHandler(checkinService, val, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	settlementHandler := handler.NewSettlementHandler(settlementService, log)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, log)
	systemHandler := handler.NewSystemHandler(db, redisClient)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB global cap
	r.Use(middleware.NewRateLimiter(redisClient, "public", 150, time.Minute).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)

	// Health checks (no auth)
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")

	// Public auth routes
	public := r.PathPrefix("/api/v1/auth").Subrouter()
	public.HandleFunc("/register", authHandler.Register).Methods("POST")
	public.HandleFunc("/login", authHandler.Login).Methods("POST")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, "api", 60, time.Minute).Limit)

	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/profile", authHandler.Profile).Methods("GET")
	api.HandleFunc("/profile/upi", authHandler.UpdateUPIID).Methods("PUT")

	api.HandleFunc("/promises", promiseHandler.Create).Methods("POST")
	api.HandleFunc("/promises", promiseHandler.List).Methods("GET")
	api.HandleFunc("/promises/join", promiseHandler.Join).Methods("POST")
	api.HandleFunc("/promises/{id}", promiseHandler.Get).Methods("GET")
	api.HandleFunc("/promises/{id}/report", reportHandler.View).Methods("GET")
	api.HandleFunc("/promises/{id}/checkins", checkinHandler.History).Methods("GET")
	api.HandleFunc("/promises/{id}/ledger", ledgerHandler.PromiseSummary).Methods("GET")

	// Check-in submissions replay safely on client retries.
	checkins := api.PathPrefix("/promises/{id}/checkins").Subrouter()
	checkins.Use(idemMW.Require)
	checkins.HandleFunc("", checkinHandler.Submit).Methods("POST")

	api.HandleFunc("/settlements/{id}/mark-paid", settlementHandler.MarkPaid).Methods("POST")
	api.HandleFunc("/settlements/{id}/confirm", settlementHandler.Confirm).Methods("POST")
	api.HandleFunc("/settlements/{id}/reject", settlementHandler.Reject).Methods("POST")

	api.HandleFunc("/ledger", ledgerHandler.History).Methods("GET")

	// Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Stopped gracefully", nil)
}
