package request

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateAffiliateRequest struct {
	ReferenceID       string           `json:"referenceID" binding:"required"`
	Email             *string          `json:"email"`
	ReferrerCode      *string          `json:"referrerCode"` // Redeemed at signup scope when present
	CommissionCeiling *decimal.Decimal `json:"commissionCeiling"`
}

type GetAffiliateRequest struct {
	Projects              []string             `form:"projects"`
	ID                    *uint                `form:"id"`
	ReferenceID           *string              `form:"referenceID"` // Composite key with Project
	Email                 *string              `form:"email"`
	Status                *string              `form:"status"`
	IsReferred            *bool                `form:"isReferred"`
	ReferredByAffiliateID *uint                `form:"referredByAffiliateID"`
	PaginationConditions  PaginationConditions `form:"paginationConditions"`
}

func ApplyGetAffiliateRequest(req GetAffiliateRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_members.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_members.id = ?", *req.ID)
	}
	if req.ReferenceID != nil {
		query = query.Where("affiliate_members.reference_id = ?", *req.ReferenceID)
	}
	if req.Email != nil {
		query = query.Where("affiliate_members.email = ?", *req.Email)
	}
	if req.Status != nil {
		query = query.Where("affiliate_members.status = ?", *req.Status)
	}
	if req.IsReferred != nil {
		if *req.IsReferred {
			query = query.Where("affiliate_members.referred_by_affiliate_id IS NOT NULL")
		} else {
			query = query.Where("affiliate_members.referred_by_affiliate_id IS NULL")
		}
	}
	if req.ReferredByAffiliateID != nil {
		query = query.Where("affiliate_members.referred_by_affiliate_id = ?", *req.ReferredByAffiliateID)
	}
	return query
}
