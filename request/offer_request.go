package request

import (
	"github.com/PayRam/go-affiliate/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateOfferRequest struct {
	Name          string            `json:"name" binding:"required"`
	Description   *string           `json:"description"`
	PayoutType    string            `json:"payoutType" binding:"required"` // fixed, percentage, tiered
	BasePayout    decimal.Decimal   `json:"basePayout"`
	Tiers         []models.TierRate `json:"tiers"` // Required for tiered payouts, ordered by min
	MinimumPayout *decimal.Decimal  `json:"minimumPayout"`
	MaximumPayout *decimal.Decimal  `json:"maximumPayout"`
}

type GetOfferRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	Name                 *string              `form:"name"`
	Status               *string              `form:"status"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetOfferRequest(req GetOfferRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_offers.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_offers.id = ?", *req.ID)
	}
	if req.Name != nil {
		query = query.Where("affiliate_offers.name = ?", *req.Name)
	}
	if req.Status != nil {
		query = query.Where("affiliate_offers.status = ?", *req.Status)
	}
	return query
}
