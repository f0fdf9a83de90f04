package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/logging"
	"github.com/segyhp/microloan-engine/internal/notify"
	"github.com/segyhp/microloan-engine/internal/repository"
	"github.com/segyhp/microloan-engine/internal/scheduler"
	"github.com/segyhp/microloan-engine/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting loan scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Pool())
	cancel()
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Refreshed ledgers must drop the entries the API process cached.
	ledgerCache := cache.NewNopLedgerCache()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		ledgerCache = cache.NewRedisLedgerCache(redisClient, cfg.Redis.CacheTTL)
	}

	store := repository.NewStore(db)
	loanService := service.NewLoanService(store, nil, cfg.LoanPolicy(), ledgerCache, logger)

	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.SMTPEnabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.SMTP, logger))
	}

	jobs := scheduler.NewJobs(loanService, notify.Multi(notifiers...), scheduler.Config{
		RefreshSpec:      cfg.Scheduler.RefreshSpec,
		ReminderSpec:     cfg.Scheduler.ReminderSpec,
		ReminderLeadDays: cfg.Scheduler.ReminderLeadDays,
		JobTimeout:       cfg.Scheduler.JobTimeout,
	}, logger)

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.SchedulerLocation()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)
	if err := jobs.Register(c); err != nil {
		logger.Fatalf("Failed to schedule jobs: %v", err)
	}

	c.Start()
	logger.WithFields(logrus.Fields{
		"refresh":  cfg.Scheduler.RefreshSpec,
		"reminder": cfg.Scheduler.ReminderSpec,
		"timezone": cfg.Scheduler.Timezone,
	}).Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
