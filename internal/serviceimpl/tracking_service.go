package serviceimpl

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/PayRam/go-affiliate/conditions"
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/response"
	"github.com/PayRam/go-affiliate/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errConversionRace signals that the unique index rejected our insert
// because a concurrent request won the natural key. Internal only; the
// caller converts it into a duplicate result.
var errConversionRace = errors.New("conversion natural key already taken")

type trackingService struct {
	DB         *gorm.DB
	calculator service.CommissionCalculator
	logger     *zap.Logger
}

func NewTrackingService(db *gorm.DB, calculator service.CommissionCalculator, logger *zap.Logger) *trackingService {
	return &trackingService{DB: db, calculator: calculator, logger: logger}
}

// TrackClick records a visit and credits the owning affiliate's click
// aggregate. Clicks carry no dedup key: repeat visits are distinct rows.
func (s *trackingService) TrackClick(project string, req request.TrackClickRequest) (*response.ClickResult, error) {
	var code models.ReferralCode
	if err := s.DB.Where("project = ? AND code = ? AND status = ?", project, req.Code, "active").
		First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("code %s: %w", req.Code, service.ErrCodeNotFound)
		}
		return nil, fmt.Errorf("failed to fetch referral code: %w", err)
	}
	if code.ExpiresAt != nil && time.Now().After(*code.ExpiresAt) {
		return nil, fmt.Errorf("code %s expired: %w", req.Code, service.ErrCodeNotFound)
	}

	click := &models.Click{
		Project:     project,
		Code:        code.Code,
		AffiliateID: code.AffiliateID,
		SourceID:    req.SourceID,
		URL:         req.URL,
		Referrer:    req.Referrer,
		UserAgent:   req.UserAgent,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(click).Error; err != nil {
			return fmt.Errorf("failed to create click: %w", err)
		}
		// Relative increment, never read-modify-write.
		if err := tx.Model(&models.Affiliate{}).Where("id = ?", code.AffiliateID).
			UpdateColumn("total_clicks", gorm.Expr("total_clicks + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment click aggregate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &response.ClickResult{
		Attributed:  true,
		AffiliateID: code.AffiliateID,
		ClickID:     click.ID,
		Code:        code.Code,
	}, nil
}

// RecordConversion ingests an order exactly once per (orderID, storeID).
// A replayed order returns Duplicate=true with zero further mutation;
// the DB unique index backs the check so concurrent replays cannot both
// credit commission.
func (s *trackingService) RecordConversion(project string, req request.RecordConversionRequest) (*response.ConversionResult, error) {
	// Fast path: the order was already ingested.
	if result, found, err := s.findExistingConversion(req.OrderID, req.StoreID); err != nil {
		return nil, err
	} else if found {
		return result, nil
	}

	if err := s.runValidationRules(project, req); err != nil {
		return nil, err
	}

	var result *response.ConversionResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		code, err := redeemCodeTx(tx, project, req.Code, models.ScopeProduct, req.ProductID)
		if err != nil {
			return err
		}

		config, err := s.payoutConfigFor(tx, code)
		if err != nil {
			return err
		}

		amount, err := s.calculator.Calculate(config, req.OrderValue)
		if err != nil {
			return fmt.Errorf("commission calculation failed: %w", err)
		}

		currency := req.Currency
		if currency == "" {
			currency = "USD"
		}

		conversion := &models.Conversion{
			Project:          project,
			OrderID:          req.OrderID,
			StoreID:          req.StoreID,
			Code:             code.Code,
			AffiliateID:      code.AffiliateID,
			OrderValue:       req.OrderValue,
			Currency:         currency,
			CommissionRate:   code.CommissionRate,
			CommissionAmount: amount,
			Status:           models.ConversionStatusPending,
		}

		if err := tx.Create(conversion).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost the race; roll back the usage increment too.
				return errConversionRace
			}
			return fmt.Errorf("failed to create conversion: %w", err)
		}

		if err := tx.Model(&models.Affiliate{}).Where("id = ?", code.AffiliateID).
			UpdateColumns(map[string]interface{}{
				"total_conversions": gorm.Expr("total_conversions + 1"),
				"total_earnings":    gorm.Expr("total_earnings + ?", amount),
			}).Error; err != nil {
			return fmt.Errorf("failed to increment conversion aggregates: %w", err)
		}

		result = &response.ConversionResult{
			Duplicate:        false,
			ConversionID:     conversion.ID,
			AffiliateID:      code.AffiliateID,
			CommissionAmount: amount,
		}
		return nil
	})

	if errors.Is(err, errConversionRace) {
		winner, found, ferr := s.findExistingConversion(req.OrderID, req.StoreID)
		if ferr != nil {
			return nil, ferr
		}
		if !found {
			return nil, fmt.Errorf("conversion for order %s/%s vanished after race", req.OrderID, req.StoreID)
		}
		return winner, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversion attributed",
		zap.String("project", project),
		zap.String("orderID", req.OrderID),
		zap.String("storeID", req.StoreID),
		zap.Uint("affiliateID", result.AffiliateID),
		zap.String("commission", result.CommissionAmount.String()),
	)

	return result, nil
}

func (s *trackingService) findExistingConversion(orderID, storeID string) (*response.ConversionResult, bool, error) {
	var existing models.Conversion
	err := s.DB.Where("order_id = ? AND store_id = ?", orderID, storeID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for existing conversion: %w", err)
	}
	return &response.ConversionResult{
		Duplicate:        true,
		ConversionID:     existing.ID,
		AffiliateID:      existing.AffiliateID,
		CommissionAmount: existing.CommissionAmount,
	}, true, nil
}

// payoutConfigFor picks the offer's configuration when the code is bound
// to one, otherwise a plain percentage of the code's snapshot rate.
func (s *trackingService) payoutConfigFor(tx *gorm.DB, code *models.ReferralCode) (models.PayoutConfig, error) {
	if code.OfferID == nil {
		return models.PercentageConfig(code.CommissionRate), nil
	}
	var offer models.Offer
	if err := tx.First(&offer, *code.OfferID).Error; err != nil {
		return models.PayoutConfig{}, fmt.Errorf("failed to fetch offer %d: %w", *code.OfferID, err)
	}
	return offer.PayoutConfig()
}

// runValidationRules evaluates every active rule against the order
// payload, highest priority first, and aggregates all failures.
func (s *trackingService) runValidationRules(project string, req request.RecordConversionRequest) error {
	var rules []models.ValidationRule
	if err := s.DB.Where("project = ? AND is_active = ?", project, true).Find(&rules).Error; err != nil {
		return fmt.Errorf("failed to fetch validation rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	payload := conversionPayload(req)

	var failures []string
	for _, rule := range rules {
		conds, err := rule.ConditionList()
		if err != nil {
			s.logger.Warn("skipping undecodable validation rule", zap.Uint("ruleID", rule.ID), zap.Error(err))
			continue
		}
		if !conditions.Evaluate(payload, conds) {
			failures = append(failures, rule.ErrorMessage)
		}
	}

	if len(failures) > 0 {
		return &service.ValidationError{Messages: failures}
	}
	return nil
}

// conversionPayload is the view of an order that validation rules can
// address: order.* fields plus any caller-supplied metadata.
func conversionPayload(req request.RecordConversionRequest) map[string]interface{} {
	order := map[string]interface{}{
		"id":       req.OrderID,
		"storeId":  req.StoreID,
		"value":    req.OrderValue.InexactFloat64(),
		"currency": req.Currency,
		"code":     req.Code,
	}
	if req.ProductID != nil {
		order["productId"] = *req.ProductID
	}
	payload := map[string]interface{}{"order": order}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	return payload
}

// validStatusTransitions: pending conversions are approved or cancelled,
// approved ones are paid or cancelled. Paid and cancelled are terminal.
var validStatusTransitions = map[string][]string{
	models.ConversionStatusPending:  {models.ConversionStatusApproved, models.ConversionStatusCancelled},
	models.ConversionStatusApproved: {models.ConversionStatusPaid, models.ConversionStatusCancelled},
}

// UpdateConversionStatus applies a status transition. Cancelling
// explicitly reverses the aggregate deltas applied at ingestion;
// approval changes nothing (totals count attributed commission, see
// DESIGN.md), and payment only stamps the payout time.
func (s *trackingService) UpdateConversionStatus(project, orderID, storeID, newStatus string) (*models.Conversion, error) {
	var conversion models.Conversion

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND order_id = ? AND store_id = ?", project, orderID, storeID).
			First(&conversion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("conversion not found for order %s/%s", orderID, storeID)
			}
			return fmt.Errorf("failed to fetch conversion: %w", err)
		}

		allowed := false
		for _, next := range validStatusTransitions[conversion.Status] {
			if next == newStatus {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("invalid status transition %s -> %s", conversion.Status, newStatus)
		}

		conversion.Status = newStatus

		switch newStatus {
		case models.ConversionStatusPaid:
			now := time.Now()
			conversion.PaidAt = &now
		case models.ConversionStatusCancelled:
			if err := tx.Model(&models.Affiliate{}).Where("id = ?", conversion.AffiliateID).
				UpdateColumns(map[string]interface{}{
					"total_conversions": gorm.Expr("total_conversions - 1"),
					"total_earnings":    gorm.Expr("total_earnings - ?", conversion.CommissionAmount),
				}).Error; err != nil {
				return fmt.Errorf("failed to reverse conversion aggregates: %w", err)
			}
		}

		if err := tx.Save(&conversion).Error; err != nil {
			return fmt.Errorf("failed to update conversion status: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &conversion, nil
}

func (s *trackingService) GetClicks(req request.GetClickRequest) ([]models.Click, int64, error) {
	var clicks []models.Click
	var count int64

	query := s.DB.Model(&models.Click{})

	query = request.ApplyGetClickRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&clicks).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clicks: %w", err)
	}

	return clicks, count, nil
}

func (s *trackingService) GetConversions(req request.GetConversionRequest) ([]models.Conversion, int64, error) {
	var conversions []models.Conversion
	var count int64

	query := s.DB.Model(&models.Conversion{})

	query = request.ApplyGetConversionRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Preload("Affiliate").Find(&conversions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch conversions: %w", err)
	}

	return conversions, count, nil
}

func (s *trackingService) CreateValidationRule(project string, req request.CreateValidationRuleRequest) (*models.ValidationRule, error) {
	conds, err := models.EncodeJSONColumn(req.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}

	rule := &models.ValidationRule{
		Project:      project,
		Name:         req.Name,
		Priority:     req.Priority,
		Conditions:   conds,
		ErrorMessage: req.ErrorMessage,
		IsActive:     true,
	}

	if err := s.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create validation rule: %w", err)
	}

	return rule, nil
}

func (s *trackingService) GetValidationRules(req request.GetValidationRuleRequest) ([]models.ValidationRule, int64, error) {
	var rules []models.ValidationRule
	var count int64

	query := s.DB.Model(&models.ValidationRule{})

	query = request.ApplyGetValidationRuleRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count validation rules: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&rules).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch validation rules: %w", err)
	}

	return rules, count, nil
}
