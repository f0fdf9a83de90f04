package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/handler"
	"github.com/segyhp/microloan-engine/internal/logging"
	"github.com/segyhp/microloan-engine/internal/notify"
	"github.com/segyhp/microloan-engine/internal/repository"
	"github.com/segyhp/microloan-engine/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	ledgerCache := cache.NewNopLedgerCache()
	if redisClient != nil {
		ledgerCache = cache.NewRedisLedgerCache(redisClient, cfg.Redis.CacheTTL)
	}

	// Initialize services
	store := repository.NewStore(db)
	policy := cfg.LoanPolicy()
	paymentService := service.NewPaymentService(store, policy, ledgerCache, logger)
	loanService := service.NewLoanService(store, paymentService, policy, ledgerCache, logger)
	clientService := service.NewClientService(store, logger)

	notifier := notify.NewLogNotifier(logger)

	loanHandler := handler.NewLoanHandler(loanService, paymentService, notifier, logger)
	clientHandler := handler.NewClientHandler(clientService, loanService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout)

	router := handler.NewRouter(loanHandler, clientHandler, healthHandler, logger, cfg.Server.RequestTimeout)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":   server.Addr,
			"env":    cfg.Server.Env,
			"driver": cfg.Database.Driver,
			"cache":  redisClient != nil,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Pool())
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// initRedis returns nil when the ledger cache is disabled.
func initRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
