package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alexkrista/whatsapp-webhook/internal/attribution"
	"github.com/alexkrista/whatsapp-webhook/internal/config"
	"github.com/alexkrista/whatsapp-webhook/internal/handler"
	"github.com/alexkrista/whatsapp-webhook/internal/infra/postgresql"
	"github.com/alexkrista/whatsapp-webhook/internal/infra/postgresql/migrations"
	infraredis "github.com/alexkrista/whatsapp-webhook/internal/infra/redis"
	"github.com/alexkrista/whatsapp-webhook/internal/journal"
	"github.com/alexkrista/whatsapp-webhook/internal/observability"
	"github.com/alexkrista/whatsapp-webhook/internal/provider"
	"github.com/alexkrista/whatsapp-webhook/internal/report"
	"github.com/alexkrista/whatsapp-webhook/internal/service"
	"github.com/alexkrista/whatsapp-webhook/internal/store"
	"github.com/alexkrista/whatsapp-webhook/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db    *gorm.DB
		sqlDB *sql.DB
		rdb   *goredis.Client
	)

	if cfg.StateBackend == "postgres" || cfg.SeenBackend == "postgres" {
		db, err = postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err = db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()
	}

	if cfg.SeenBackend == "redis" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()
	}

	states, seen, err := buildStores(cfg, db, rdb, logger)
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}

	engine, err := attribution.NewEngine(states, seen, attribution.Config{
		StickyWindow:   cfg.StickyWindow,
		PromptCooldown: cfg.PromptCooldown,
		CaptionCodes:   cfg.CaptionCodes,
	}, logger)
	if err != nil {
		logger.Fatal("attribution engine initialization failed", zap.Error(err))
	}

	journalWriter, err := journal.NewWriter(cfg.StorageRoot, logger)
	if err != nil {
		logger.Fatal("journal writer initialization failed", zap.Error(err))
	}
	journalReader, err := journal.NewReader(cfg.StorageRoot, logger)
	if err != nil {
		logger.Fatal("journal reader initialization failed", zap.Error(err))
	}

	graph, err := provider.NewGraphClient(cfg.GraphBaseURL, cfg.GraphAPIToken, cfg.GraphPhoneNumberID)
	if err != nil {
		logger.Fatal("graph client initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	ingest, err := service.NewIngestService(engine, journalWriter, graph, graph, cfg.PromptBody, logger)
	if err != nil {
		logger.Fatal("ingest service initialization failed", zap.Error(err))
	}
	ingest.SetMetrics(metrics)

	pruner, err := service.NewSeenPruner(seen, cfg.PruneInterval, cfg.SeenRetention, logger)
	if err != nil {
		logger.Fatal("seen pruner initialization failed", zap.Error(err))
	}
	go func() {
		if err := pruner.Start(ctx); err != nil {
			logger.Error("seen pruner stopped with error", zap.Error(err))
		}
	}()

	var reports *service.ReportService
	if cfg.MailingEnabled() {
		mailer, err := provider.NewSMTPMailer(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       cfg.MailTo,
		})
		if err != nil {
			logger.Fatal("mailer initialization failed", zap.Error(err))
		}

		builder, err := report.NewBuilder(journalReader, logger)
		if err != nil {
			logger.Fatal("report builder initialization failed", zap.Error(err))
		}

		reports, err = service.NewReportService(builder, journalReader, mailer, logger)
		if err != nil {
			logger.Fatal("report service initialization failed", zap.Error(err))
		}
		reports.SetMetrics(metrics)

		scheduler, err := report.NewScheduler(reports, cfg.ReportCron, logger)
		if err != nil {
			logger.Fatal("report scheduler initialization failed", zap.Error(err))
		}
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("report scheduler start failed", zap.Error(err))
		}
	} else {
		logger.Warn("mail settings incomplete, report delivery disabled")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterWebhookRoutes(app, ingest, cfg.VerifyToken, cfg.AppSecret, logger); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}
	if reports != nil && cfg.AdminSecret != "" {
		if err := handler.RegisterReportRoutes(app, reports, cfg.AdminSecret, logger); err != nil {
			logger.Fatal("report route registration failed", zap.Error(err))
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("whatsapp-webhook api started",
		zap.Int("port", cfg.APIPort),
		zap.String("stateBackend", cfg.StateBackend),
		zap.String("seenBackend", cfg.SeenBackend),
	)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func buildStores(cfg *config.Config, db *gorm.DB, rdb *goredis.Client, logger *zap.Logger) (store.SenderStateRepository, store.SeenMessageStore, error) {
	var fileStore *store.FileStore
	if cfg.StateBackend == "file" || cfg.SeenBackend == "file" {
		var err error
		fileStore, err = store.NewFileStore(cfg.StateFile, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
	}

	var states store.SenderStateRepository
	switch cfg.StateBackend {
	case "file":
		states = fileStore
	case "postgres":
		states = store.NewGormSenderStateRepo(db)
	}

	var seen store.SeenMessageStore
	switch cfg.SeenBackend {
	case "file":
		seen = fileStore
	case "memory":
		var err error
		seen, err = store.NewCacheSeenStore(cfg.SeenRetention)
		if err != nil {
			return nil, nil, fmt.Errorf("memory seen store: %w", err)
		}
	case "redis":
		var err error
		seen, err = store.NewRedisSeenStore(rdb, cfg.SeenRetention)
		if err != nil {
			return nil, nil, fmt.Errorf("redis seen store: %w", err)
		}
	case "postgres":
		seen = store.NewGormSeenStore(db)
	}

	return states, seen, nil
}
