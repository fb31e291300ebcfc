package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PayRam/go-affiliate/cache"
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultRateCacheTTL = 5 * time.Minute

type settingsService struct {
	DB        *gorm.DB
	rateCache cache.Cache
	logger    *zap.Logger
}

func NewSettingsService(db *gorm.DB, rateCache cache.Cache, logger *zap.Logger) *settingsService {
	return &settingsService{DB: db, rateCache: rateCache, logger: logger}
}

func (s *settingsService) GetSettings(project string) (*models.ProjectSettings, error) {
	var settings models.ProjectSettings
	if err := s.DB.Where("project = ?", project).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unsaved defaults; a row is only written on first update.
			return &models.ProjectSettings{
				Project:               project,
				DefaultCommissionRate: decimal.Zero,
				DefaultCurrency:       "USD",
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch settings for project %s: %w", project, err)
	}
	return &settings, nil
}

func (s *settingsService) UpdateSettings(project string, req request.UpdateSettingsRequest) (*models.ProjectSettings, error) {
	var settings models.ProjectSettings

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ?", project).
			First(&settings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = models.ProjectSettings{Project: project, DefaultCurrency: "USD"}
		} else if err != nil {
			return fmt.Errorf("failed to fetch settings for project %s: %w", project, err)
		}

		if req.DefaultCommissionRate != nil {
			settings.DefaultCommissionRate = *req.DefaultCommissionRate
		}
		if req.DefaultCurrency != nil {
			settings.DefaultCurrency = *req.DefaultCurrency
		}

		if err := tx.Save(&settings).Error; err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Drop the cached rate so the next read sees the new value.
	if err := s.rateCache.Invalidate(context.Background(), rateCacheKey(project)); err != nil {
		s.logger.Warn("failed to invalidate rate cache", zap.String("project", project), zap.Error(err))
	}

	return &settings, nil
}

// DefaultCommissionRate serves the project's default rate through the
// injected cache. Cache failures fall back to the database.
func (s *settingsService) DefaultCommissionRate(project string) (decimal.Decimal, error) {
	ctx := context.Background()
	key := rateCacheKey(project)

	cached, ok, err := s.rateCache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("rate cache read failed", zap.String("project", project), zap.Error(err))
	} else if ok {
		rate, convErr := decimal.NewFromString(cached)
		if convErr == nil {
			return rate, nil
		}
		s.logger.Warn("discarding malformed cached rate", zap.String("project", project), zap.String("value", cached))
	}

	settings, err := s.GetSettings(project)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.rateCache.Set(ctx, key, settings.DefaultCommissionRate.String(), defaultRateCacheTTL); err != nil {
		s.logger.Warn("rate cache write failed", zap.String("project", project), zap.Error(err))
	}

	return settings.DefaultCommissionRate, nil
}

func rateCacheKey(project string) string {
	return fmt.Sprintf("settings:default-rate:%s", project)
}
