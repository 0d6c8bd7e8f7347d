package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	inboundgin "github.com/storekit/cardpay/internal/adapter/inbound/gin"
	"github.com/storekit/cardpay/internal/adapter/outbound/countries"
	"github.com/storekit/cardpay/internal/adapter/outbound/feedback"
	"github.com/storekit/cardpay/internal/adapter/outbound/gateway"
	"github.com/storekit/cardpay/internal/adapter/outbound/postgres"
	redisadapter "github.com/storekit/cardpay/internal/adapter/outbound/redis"
	"github.com/storekit/cardpay/internal/adapter/outbound/stripeterminal"
	"github.com/storekit/cardpay/internal/controller"
	"github.com/storekit/cardpay/internal/domain/payment"
	"github.com/storekit/cardpay/internal/domain/refund"
	"github.com/storekit/cardpay/internal/shared/config"
	"github.com/storekit/cardpay/internal/shared/logger"
	"github.com/storekit/cardpay/internal/shared/metrics"
	"github.com/storekit/cardpay/internal/shared/middleware"
)

// App wires the card payment service together.
type App struct {
	config  *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	redis   *goredis.Client
	router  *gin.Engine
	ctrl    *controller.Controller
	metrics *metrics.Metrics
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := gorm.Open(pgdriver.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	app := &App{
		config:  cfg,
		logger:  log,
		db:      db,
		redis:   redisClient,
		metrics: metrics.New("cardpay"),
	}

	app.ctrl = app.buildController()
	app.router = app.setupRouter()

	return app, nil
}

// buildController assembles the outbound adapters, domain managers, and the
// payment controller.
func (a *App) buildController() *controller.Controller {
	orderCache := redisadapter.NewOrderCache(a.redis)
	kv := redisadapter.NewKVStore(a.redis)
	onboarding := redisadapter.NewOnboardingCache(a.redis)

	orders := postgres.NewOrderRepository(a.db, orderCache, a.logger)
	catalog := postgres.NewProductCatalog(a.db)

	reader := stripeterminal.NewReader(&stripeterminal.Config{
		APIKey:   a.config.Stripe.APIKey,
		ReaderID: a.config.Stripe.ReaderID,
	}, a.logger)

	gw := gateway.NewClient(&gateway.Config{
		BaseURL: a.config.Gateway.BaseURL,
		APIKey:  a.config.Gateway.APIKey,
		Timeout: a.config.Gateway.Timeout,
	}, a.logger)

	countryConfigs := countries.NewProvider()
	countryCode := a.config.Store.CountryCode

	payments := payment.NewManager(reader, gw, countryConfigs, a.config.Payments.TapToPay, a.logger)
	refunds := refund.NewManager(reader, a.logger)

	return controller.New(controller.Config{
		Payments:       payments,
		Refunds:        refunds,
		Orders:         orders,
		Gateway:        gw,
		Reader:         reader,
		Collectibility: payment.NewCollectibilityChecker(countryConfigs, catalog, countryCode, a.logger),
		Refundability:  refund.NewRefundabilityChecker(countryConfigs, countryCode, a.logger),
		Countries:      countryConfigs,
		KV:             kv,
		Onboarding:     onboarding,
		Feedback:       feedback.NewLogChime(a.logger),
		Logger:         a.logger,
		CountryCode:    countryCode,
		StoreName:      a.config.Store.Name,
		SiteURL:        a.config.Store.SiteURL,
		RetryDelay:     a.config.Payments.RetryDelay,
	})
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	terminal := inboundgin.NewTerminalAdapter(a.ctrl, a.metrics, a.logger)
	inboundgin.RegisterTerminalRoutes(v1, terminal)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if err := a.ctrl.Close(context.Background()); err != nil {
		a.logger.Warn("controller close", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("database close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
