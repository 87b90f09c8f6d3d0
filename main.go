package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"player-monitor-system/config"
	"player-monitor-system/handlers"
	"player-monitor-system/logging"
	"player-monitor-system/models"
	"player-monitor-system/services"
	"player-monitor-system/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(
			&models.PlayerStatus{},
			&models.NotificationLogEntry{},
			&models.MonitoringJob{},
			// read models owned by the account services; migrated for standalone runs
			&models.Subscription{},
			&models.NotificationPreference{},
			&models.User{},
		); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var rdb *redis.Client
	if cfg.Monitor.LockMode == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	}

	runLock, err := services.NewRunLock(cfg.Monitor.LockMode, rdb, cfg.Monitor.LockTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build run lock")
	}

	subscriptions := services.NewSubscriptionService(db)
	statusStore := services.NewStatusStore(db)
	jobRecorder := services.NewJobRecorder(services.NewJobRepository(db))

	emailService, err := services.NewEmailService(ctx, cfg.Email, subscriptions)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize e-mail delivery")
	}

	notifier := services.NewNotificationService(
		subscriptions,
		subscriptions,
		services.NewNotificationLog(db),
		emailService,
		cfg.Monitor.DedupWindow,
	)

	monitor := services.NewMonitorService(
		subscriptions,
		services.NewChessComClient(cfg.ChessCom),
		statusStore,
		notifier,
		jobRecorder,
		runLock,
		services.MonitorOptions{
			BatchSize:    cfg.Monitor.BatchSize,
			BatchPause:   cfg.Monitor.BatchPause,
			CheckPause:   cfg.Monitor.CheckPause,
			FetchTimeout: cfg.ChessCom.Timeout,
		},
	)

	var scheduler *workers.MonitorScheduler
	if cfg.Monitor.SchedulerEnabled {
		scheduler, err = workers.NewMonitorScheduler(monitor, services.NewRetentionService(db), cfg.Monitor.PollInterval, cfg.Retention.Days)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create scheduler")
		}
		if err := scheduler.Start(ctx); err != nil {
			logging.Fatal().Err(err).Msg("failed to start scheduler")
		}
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.Origins(), ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		MaxAge:       86400,
	}))

	handlers.SetupOpsRoutes(app, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	handlers.SetupMonitoringRoutes(app, handlers.NewMonitoringHandler(monitor, jobRecorder), cfg.Monitor.TriggerToken)
	handlers.SetupPlayerRoutes(app, statusStore, cfg.Monitor.TriggerToken)

	go func() {
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logging.Error().Err(err).Msg("Server error")
		}
	}()

	logging.Info().Str("addr", cfg.Server.Addr).Msg("✅ Server running")
	logging.Info().Str("lock_mode", cfg.Monitor.LockMode).Str("email_provider", cfg.Email.Provider).Bool("scheduler", cfg.Monitor.SchedulerEnabled).Msg("✅ Monitoring pipeline ready")

	<-ctx.Done()
	logging.Info().Msg("Shutting down server...")

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			logging.Warn().Err(err).Msg("scheduler shutdown")
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Warn().Err(err).Msg("server shutdown")
	}
}
