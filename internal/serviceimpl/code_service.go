package serviceimpl

import (
	"errors"
	"fmt"
	"time"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/service"
	"github.com/PayRam/go-affiliate/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	codePrefixAffiliate = "AFF"
	codePrefixProduct   = "PRD"
	// 8 random base36 chars give ~2.8e12 combinations, which keeps the
	// 10-attempt collision cap comfortable for any realistic code count.
	codeSuffixLength       = 8
	codeGenerationAttempts = 10
)

type codeService struct {
	DB       *gorm.DB
	settings service.SettingsService
}

func NewCodeService(db *gorm.DB, settings service.SettingsService) *codeService {
	return &codeService{DB: db, settings: settings}
}

func (s *codeService) CreateCode(project string, req request.CreateCodeRequest) (*models.ReferralCode, error) {
	var affiliate models.Affiliate
	if err := s.DB.Where("project = ? AND reference_id = ? AND status = ?", project, req.AffiliateReferenceID, "active").
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("affiliate not found for project=%s and reference_id=%s", project, req.AffiliateReferenceID)
		}
		return nil, fmt.Errorf("failed to fetch affiliate: %w", err)
	}

	scopeType := req.ScopeType
	if scopeType == "" {
		scopeType = models.ScopeBoth
	}
	if scopeType != models.ScopeSignup && scopeType != models.ScopeProduct && scopeType != models.ScopeBoth {
		return nil, fmt.Errorf("invalid scope type: %s", scopeType)
	}

	rate := req.CommissionRate
	if rate == nil {
		defaultRate, err := s.settings.DefaultCommissionRate(project)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default commission rate: %w", err)
		}
		rate = &defaultRate
	}
	if affiliate.CommissionCeiling != nil && rate.GreaterThan(*affiliate.CommissionCeiling) {
		return nil, fmt.Errorf("rate %s exceeds ceiling %s: %w", rate, affiliate.CommissionCeiling, service.ErrRateExceedsCeiling)
	}

	if req.OfferID != nil {
		var offer models.Offer
		if err := s.DB.Where("project = ? AND id = ?", project, *req.OfferID).First(&offer).Error; err != nil {
			return nil, fmt.Errorf("offer %d not found for project %s: %w", *req.OfferID, project, err)
		}
	}

	code := &models.ReferralCode{
		Project:        project,
		AffiliateID:    affiliate.ID,
		ScopeType:      scopeType,
		CommissionRate: *rate,
		OfferID:        req.OfferID,
		ProductID:      req.ProductID,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
	}

	if req.PreferredCode != nil && *req.PreferredCode != "" {
		code.Code = *req.PreferredCode
		if err := s.DB.Create(code).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("preferred code %s already taken: %w", *req.PreferredCode, service.ErrCodeGenerationExhausted)
			}
			return nil, fmt.Errorf("failed to create referral code: %w", err)
		}
		return code, nil
	}

	prefix := codePrefixAffiliate
	if req.ProductID != nil {
		prefix = codePrefixProduct
	}

	// The unique index on code is the real guarantee; the retry loop
	// only absorbs the rare collision.
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		suffix, err := utils.CreateCodeSuffix(codeSuffixLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}
		code.Code = fmt.Sprintf("%s_%s", prefix, suffix)

		err = s.DB.Create(code).Error
		if err == nil {
			return code, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create referral code: %w", err)
		}
		code.ID = 0
	}

	return nil, fmt.Errorf("gave up after %d attempts: %w", codeGenerationAttempts, service.ErrCodeGenerationExhausted)
}

func (s *codeService) GetCodes(req request.GetCodeRequest) ([]models.ReferralCode, int64, error) {
	var codes []models.ReferralCode
	var count int64

	query := s.DB.Model(&models.ReferralCode{})

	query = request.ApplyGetCodeRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count referral codes: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Preload("Affiliate").Preload("Offer").Find(&codes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch referral codes: %w", err)
	}

	return codes, count, nil
}

func (s *codeService) UpdateCodeStatus(project, codeValue, newStatus string) (*models.ReferralCode, error) {
	var code models.ReferralCode

	if newStatus != "active" && newStatus != "disabled" {
		return nil, fmt.Errorf("invalid new status: must be 'active' or 'disabled'")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND code = ?", project, codeValue).
			First(&code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("code %s not found: %w", codeValue, service.ErrCodeNotFound)
			}
			return fmt.Errorf("failed to fetch referral code: %w", err)
		}

		if code.Status == newStatus {
			return fmt.Errorf("code is already %s", newStatus)
		}

		code.Status = newStatus

		if err := tx.Save(&code).Error; err != nil {
			return fmt.Errorf("failed to update code status: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &code, nil
}

// redeemCodeTx looks up a redeemable code and atomically consumes one
// usage. The limit check and the increment are a single conditional
// UPDATE so two concurrent redemptions at max_uses-1 cannot both win.
func redeemCodeTx(tx *gorm.DB, project, codeValue, scope string, productID *string) (*models.ReferralCode, error) {
	var code models.ReferralCode
	if err := tx.Where("project = ? AND code = ? AND status = ?", project, codeValue, "active").
		First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("code %s: %w", codeValue, service.ErrCodeNotFound)
		}
		return nil, fmt.Errorf("failed to fetch referral code: %w", err)
	}

	if code.ExpiresAt != nil && time.Now().After(*code.ExpiresAt) {
		return nil, fmt.Errorf("code %s expired at %s: %w", codeValue, code.ExpiresAt, service.ErrCodeNotFound)
	}
	if code.ScopeType != scope && code.ScopeType != models.ScopeBoth {
		return nil, fmt.Errorf("code %s does not cover %s scope: %w", codeValue, scope, service.ErrCodeNotFound)
	}
	if code.ProductID != nil {
		if productID == nil || *productID != *code.ProductID {
			return nil, fmt.Errorf("code %s: %w", codeValue, service.ErrProductMismatch)
		}
	}

	res := tx.Model(&models.ReferralCode{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", code.ID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment code usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("code %s: %w", codeValue, service.ErrUsageLimitReached)
	}

	code.CurrentUses++
	return &code, nil
}
