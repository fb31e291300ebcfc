package serviceimpl

import (
	"fmt"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/response"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type statsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *statsService {
	return &statsService{DB: db}
}

// GetAffiliateStats returns directory rows with their live aggregates and
// a joined code count. The aggregate columns are maintained at ingestion
// so no conversion scan is needed here.
func (s *statsService) GetAffiliateStats(req request.GetAffiliateRequest) ([]response.AffiliateStats, int64, error) {
	var stats []response.AffiliateStats
	var count int64

	countQuery := request.ApplyGetAffiliateRequest(req, s.DB.Model(&models.Affiliate{}))
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count affiliates: %w", err)
	}

	query := request.ApplyGetAffiliateRequest(req, s.DB.Model(&models.Affiliate{})).
		Select(`affiliate_members.id,
			affiliate_members.project,
			affiliate_members.reference_id,
			affiliate_members.email,
			COUNT(affiliate_referral_codes.id) AS code_count,
			affiliate_members.total_clicks,
			affiliate_members.total_conversions,
			affiliate_members.total_earnings,
			affiliate_members.created_at,
			affiliate_members.updated_at`).
		Joins("LEFT JOIN affiliate_referral_codes ON affiliate_referral_codes.affiliate_id = affiliate_members.id AND affiliate_referral_codes.deleted_at IS NULL").
		Group("affiliate_members.id")

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Scan(&stats).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch affiliate stats: %w", err)
	}

	return stats, count, nil
}

// GetTotalEarnings sums commission over the matching conversions,
// excluding cancelled ones. Filters narrow the sum, e.g. by affiliate,
// status or project.
func (s *statsService) GetTotalEarnings(req request.GetConversionRequest) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}

	query := s.DB.Model(&models.Conversion{}).
		Select("COALESCE(SUM(affiliate_conversions.commission_amount), 0) AS total")

	query = request.ApplyGetConversionRequest(req, query)

	if req.Status == nil {
		query = query.Where("affiliate_conversions.status <> ?", models.ConversionStatusCancelled)
	}

	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum earnings: %w", err)
	}

	return result.Total, nil
}
