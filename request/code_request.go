package request

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateCodeRequest struct {
	AffiliateReferenceID string           `json:"affiliateReferenceID" binding:"required"`
	ScopeType            string           `json:"scopeType"`      // signup, product, both; defaults to both
	CommissionRate       *decimal.Decimal `json:"commissionRate"` // Defaults to the project's default rate
	OfferID              *uint            `json:"offerID"`
	ProductID            *string          `json:"productID"`
	MaxUses              *int64           `json:"maxUses"`
	ExpiresAt            *time.Time       `json:"expiresAt"`
	PreferredCode        *string          `json:"preferredCode"` // Skips generation; must still be unique
}

type GetCodeRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	Code                 *string              `form:"code"`
	AffiliateID          *uint                `form:"affiliateID"`
	OfferID              *uint                `form:"offerID"`
	ProductID            *string              `form:"productID"`
	ScopeType            *string              `form:"scopeType"`
	Status               *string              `form:"status"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetCodeRequest(req GetCodeRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_referral_codes.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_referral_codes.id = ?", *req.ID)
	}
	if req.Code != nil {
		query = query.Where("affiliate_referral_codes.code = ?", *req.Code)
	}
	if req.AffiliateID != nil {
		query = query.Where("affiliate_referral_codes.affiliate_id = ?", *req.AffiliateID)
	}
	if req.OfferID != nil {
		query = query.Where("affiliate_referral_codes.offer_id = ?", *req.OfferID)
	}
	if req.ProductID != nil {
		query = query.Where("affiliate_referral_codes.product_id = ?", *req.ProductID)
	}
	if req.ScopeType != nil {
		query = query.Where("affiliate_referral_codes.scope_type = ?", *req.ScopeType)
	}
	if req.Status != nil {
		query = query.Where("affiliate_referral_codes.status = ?", *req.Status)
	}
	return query
}
