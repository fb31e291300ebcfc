package go_affiliate

import (
	"net/http"
	"time"

	"github.com/PayRam/go-affiliate/cache"
	db2 "github.com/PayRam/go-affiliate/internal/db"
	"github.com/PayRam/go-affiliate/internal/logger"
	"github.com/PayRam/go-affiliate/internal/serviceimpl"
	"github.com/PayRam/go-affiliate/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AffiliateService struct {
	Affiliates service.AffiliateService
	Codes      service.CodeService
	Tracking   service.TrackingService
	Offers     service.OfferService
	SmartLinks service.SmartLinkService
	Webhooks   service.WebhookService
	Settings   service.SettingsService
	Stats      service.StatsService
	Worker     service.Worker
}

type config struct {
	logger     *zap.Logger
	httpClient service.HTTPDoer
	rateCache  cache.Cache
	calculator service.CommissionCalculator
}

type Option func(*config)

// WithLogger replaces the default production logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDefaultLogger builds the engine's standard logger. Mode "debug"
// logs console output at debug level; anything else is JSON at info.
// A non-empty filePath adds rotated file output.
func WithDefaultLogger(mode, filePath string) Option {
	return func(c *config) {
		c.logger = logger.New(mode, logger.Options{FilePath: filePath})
	}
}

// WithHTTPClient replaces the transport used for webhook deliveries.
func WithHTTPClient(client service.HTTPDoer) Option {
	return func(c *config) { c.httpClient = client }
}

// WithRateCache backs the default-commission-rate cache with the given
// implementation, e.g. cache.NewRedisCache for multi-process setups.
func WithRateCache(rc cache.Cache) Option {
	return func(c *config) { c.rateCache = rc }
}

// WithCommissionCalculator swaps the commission calculation strategy.
func WithCommissionCalculator(calc service.CommissionCalculator) Option {
	return func(c *config) { c.calculator = calc }
}

func NewAffiliateService(db *gorm.DB, opts ...Option) *AffiliateService {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		cfg.logger = logger
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.rateCache == nil {
		cfg.rateCache = cache.NewMemoryCache()
	}
	if cfg.calculator == nil {
		cfg.calculator = serviceimpl.NewDefaultCommissionCalculator()
	}

	db2.Migrate(db)

	settings := serviceimpl.NewSettingsService(db, cfg.rateCache, cfg.logger)
	webhooks := serviceimpl.NewWebhookService(db, cfg.httpClient, cfg.logger)

	return &AffiliateService{
		Affiliates: serviceimpl.NewAffiliateService(db),
		Codes:      serviceimpl.NewCodeService(db, settings),
		Tracking:   serviceimpl.NewTrackingService(db, cfg.calculator, cfg.logger),
		Offers:     serviceimpl.NewOfferService(db),
		SmartLinks: serviceimpl.NewSmartLinkService(db),
		Webhooks:   webhooks,
		Settings:   settings,
		Stats:      serviceimpl.NewStatsService(db),
		Worker:     serviceimpl.NewRetryWorker(db, webhooks, cfg.logger),
	}
}
