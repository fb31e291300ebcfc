package serviceimpl

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type affiliateService struct {
	DB *gorm.DB
}

func NewAffiliateService(db *gorm.DB) *affiliateService {
	return &affiliateService{DB: db}
}

func (s *affiliateService) CreateAffiliate(project string, req request.CreateAffiliateRequest) (*models.Affiliate, error) {
	// Validate email if provided
	if req.Email != nil {
		if *req.Email == "" {
			return nil, fmt.Errorf("email cannot be empty")
		}
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, fmt.Errorf("invalid email format: %w", err)
		}
	}

	affiliate := &models.Affiliate{
		Project:           project,
		ReferenceID:       req.ReferenceID,
		Email:             req.Email,
		CommissionCeiling: req.CommissionCeiling,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// A referrer code links the new affiliate to its referrer and
		// counts as a signup-scoped redemption of that code.
		if req.ReferrerCode != nil && *req.ReferrerCode != "" {
			code, err := redeemCodeTx(tx, project, *req.ReferrerCode, models.ScopeSignup, nil)
			if err != nil {
				return fmt.Errorf("invalid referrer code: %w", err)
			}
			affiliate.ReferredByAffiliateID = &code.AffiliateID
		}

		if err := tx.Create(affiliate).Error; err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Reload with the referrer preloaded
	if err := s.DB.Preload("ReferredByAffiliate").First(affiliate, affiliate.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to preload affiliate data: %w", err)
	}

	return affiliate, nil
}

func (s *affiliateService) GetAffiliates(req request.GetAffiliateRequest) ([]models.Affiliate, int64, error) {
	var affiliates []models.Affiliate
	var count int64

	query := s.DB.Model(&models.Affiliate{})

	query = request.ApplyGetAffiliateRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count affiliates: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Preload("ReferredByAffiliate").Find(&affiliates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch affiliates: %w", err)
	}

	return affiliates, count, nil
}

func (s *affiliateService) GetTotalAffiliates(req request.GetAffiliateRequest) (int64, error) {
	var count int64

	query := s.DB.Model(&models.Affiliate{})

	query = request.ApplyGetAffiliateRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count affiliates: %w", err)
	}

	return count, nil
}

func (s *affiliateService) UpdateAffiliateStatus(project, referenceID, newStatus string) (*models.Affiliate, error) {
	var affiliate models.Affiliate

	if newStatus != "active" && newStatus != "inactive" {
		return nil, fmt.Errorf("invalid new status: must be 'active' or 'inactive'")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND reference_id = ?", project, referenceID).
			First(&affiliate).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("affiliate not found for project=%s and reference_id=%s", project, referenceID)
			}
			return fmt.Errorf("failed to fetch affiliate: %w", err)
		}

		if affiliate.Status == newStatus {
			return fmt.Errorf("affiliate is already %s", newStatus)
		}

		affiliate.Status = newStatus

		if err := tx.Save(&affiliate).Error; err != nil {
			return fmt.Errorf("failed to update affiliate status: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &affiliate, nil
}
