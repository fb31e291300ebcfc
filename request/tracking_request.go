package request

import (
	"github.com/PayRam/go-affiliate/conditions"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TrackClickRequest struct {
	Code        string `json:"code" binding:"required"`
	SourceID    string `json:"sourceID"`
	URL         string `json:"url"`
	Referrer    string `json:"referrer"`
	UserAgent   string `json:"userAgent"`
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
}

type RecordConversionRequest struct {
	Code       string                 `json:"code" binding:"required"`
	OrderID    string                 `json:"orderID" binding:"required"`
	StoreID    string                 `json:"storeID" binding:"required"`
	OrderValue decimal.Decimal        `json:"orderValue"`
	Currency   string                 `json:"currency"`
	ProductID  *string                `json:"productID"`
	Metadata   map[string]interface{} `json:"metadata"` // Extra fields exposed to validation rules
}

type GetClickRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	Code                 *string              `form:"code"`
	AffiliateID          *uint                `form:"affiliateID"`
	SourceID             *string              `form:"sourceID"`
	UTMCampaign          *string              `form:"utmCampaign"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetClickRequest(req GetClickRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_clicks.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_clicks.id = ?", *req.ID)
	}
	if req.Code != nil {
		query = query.Where("affiliate_clicks.code = ?", *req.Code)
	}
	if req.AffiliateID != nil {
		query = query.Where("affiliate_clicks.affiliate_id = ?", *req.AffiliateID)
	}
	if req.SourceID != nil {
		query = query.Where("affiliate_clicks.source_id = ?", *req.SourceID)
	}
	if req.UTMCampaign != nil {
		query = query.Where("affiliate_clicks.utm_campaign = ?", *req.UTMCampaign)
	}
	return query
}

type GetConversionRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	OrderID              *string              `form:"orderID"`
	StoreID              *string              `form:"storeID"`
	Code                 *string              `form:"code"`
	AffiliateID          *uint                `form:"affiliateID"`
	Status               *string              `form:"status"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetConversionRequest(req GetConversionRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_conversions.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_conversions.id = ?", *req.ID)
	}
	if req.OrderID != nil {
		query = query.Where("affiliate_conversions.order_id = ?", *req.OrderID)
	}
	if req.StoreID != nil {
		query = query.Where("affiliate_conversions.store_id = ?", *req.StoreID)
	}
	if req.Code != nil {
		query = query.Where("affiliate_conversions.code = ?", *req.Code)
	}
	if req.AffiliateID != nil {
		query = query.Where("affiliate_conversions.affiliate_id = ?", *req.AffiliateID)
	}
	if req.Status != nil {
		query = query.Where("affiliate_conversions.status = ?", *req.Status)
	}
	return query
}

type CreateValidationRuleRequest struct {
	Name         string                 `json:"name" binding:"required"`
	Priority     int                    `json:"priority"`
	Conditions   []conditions.Condition `json:"conditions" binding:"required"`
	ErrorMessage string                 `json:"errorMessage" binding:"required"`
}

type GetValidationRuleRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	IsActive             *bool                `form:"isActive"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetValidationRuleRequest(req GetValidationRuleRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_validation_rules.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_validation_rules.id = ?", *req.ID)
	}
	if req.IsActive != nil {
		query = query.Where("affiliate_validation_rules.is_active = ?", *req.IsActive)
	}
	return query
}
