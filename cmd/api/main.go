package main

import (
	"log"
	"strconv"
	"time"

	"github.com/aix-dean/mailcourier/internal/assets"
	"github.com/aix-dean/mailcourier/internal/attachments"
	"github.com/aix-dean/mailcourier/internal/classify"
	"github.com/aix-dean/mailcourier/internal/compliance"
	"github.com/aix-dean/mailcourier/internal/config"
	"github.com/aix-dean/mailcourier/internal/directory"
	"github.com/aix-dean/mailcourier/internal/handler"
	"github.com/aix-dean/mailcourier/internal/infra/postgresql"
	"github.com/aix-dean/mailcourier/internal/infra/postgresql/migrations"
	infraredis "github.com/aix-dean/mailcourier/internal/infra/redis"
	"github.com/aix-dean/mailcourier/internal/observability"
	"github.com/aix-dean/mailcourier/internal/provider"
	"github.com/aix-dean/mailcourier/internal/ratelimit"
	"github.com/aix-dean/mailcourier/internal/repository"
	"github.com/aix-dean/mailcourier/internal/service"
	"github.com/aix-dean/mailcourier/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	window := time.Duration(cfg.RateLimitWindowSec) * time.Second

	// Redis backs the sender rate limiter when configured; a single-instance
	// deployment falls back to the in-process window limiter.
	var rdb *goredis.Client
	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitMax, window)
		if err != nil {
			logger.Fatal("rate limiter initialization failed", zap.Error(err))
		}
	} else {
		limiter = ratelimit.NewSenderWindowLimiter(cfg.RateLimitMax, window)
		logger.Info("no redis configured, using in-process rate limiter")
	}

	mailProvider, err := provider.NewHTTPEmailProvider(cfg.TransportEndpoint, cfg.TransportAPIKey)
	if err != nil {
		logger.Fatal("transport provider initialization failed", zap.Error(err))
	}

	var companies directory.CompanyDirectory
	if cfg.CompanyDirectoryURL != "" {
		companies, err = directory.NewHTTPCompanyDirectory(cfg.CompanyDirectoryURL)
		if err != nil {
			logger.Fatal("company directory initialization failed", zap.Error(err))
		}
	}
	var users directory.UserDirectory
	if cfg.UserDirectoryURL != "" {
		users, err = directory.NewHTTPUserDirectory(cfg.UserDirectoryURL)
		if err != nil {
			logger.Fatal("user directory initialization failed", zap.Error(err))
		}
	}

	fetcher := assets.NewHTTPFetcher()
	metrics := observability.NewMetrics()

	deliveryService, err := service.NewDeliveryService(service.Deps{
		Classifier:        classify.NewClassifier(cfg.SensitiveDomainList()),
		Limiter:           limiter,
		Auditor:           compliance.NewAuditor(nil, logger),
		Colors:            assets.NewColorResolver(fetcher, logger),
		Attachments:       attachments.NewProcessor(cfg.AttachmentMaxBytes, fetcher),
		Provider:          mailProvider,
		Companies:         companies,
		Users:             users,
		Deliveries:        repository.NewGormDeliveryRepo(db),
		Attempts:          repository.NewGormAttemptRepo(db),
		Metrics:           metrics,
		Logger:            logger,
		FromAddress:       cfg.FromAddress,
		SendingDomain:     cfg.SendingDomain,
		ProposalLinkBase:  cfg.ProposalLinkBase,
		EscalationMarkers: cfg.EscalationMarkerList(),
	})
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterDeliveryRoutes(app, deliveryService); err != nil {
		logger.Fatal("failed to register delivery routes", zap.Error(err))
	}
	if err := handler.RegisterComplianceRoutes(app, deliveryService); err != nil {
		logger.Fatal("failed to register compliance routes", zap.Error(err))
	}

	logger.Info("mailcourier api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(":" + strconv.Itoa(cfg.APIPort)); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}
