package serviceimpl

import (
	"errors"
	"fmt"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type offerService struct {
	DB *gorm.DB
}

func NewOfferService(db *gorm.DB) *offerService {
	return &offerService{DB: db}
}

func (s *offerService) CreateOffer(project string, req request.CreateOfferRequest) (*models.Offer, error) {
	switch req.PayoutType {
	case models.PayoutFixed, models.PayoutPercentage:
		if len(req.Tiers) > 0 {
			return nil, fmt.Errorf("tiers are only valid for tiered payouts")
		}
	case models.PayoutTiered:
		if len(req.Tiers) == 0 {
			return nil, fmt.Errorf("tiered payout requires at least one tier")
		}
		for i, tier := range req.Tiers {
			if tier.Type != models.PayoutFixed && tier.Type != models.PayoutPercentage {
				return nil, fmt.Errorf("tier %d has invalid type: %s", i, tier.Type)
			}
			if i > 0 && tier.Min.LessThan(req.Tiers[i-1].Min) {
				return nil, fmt.Errorf("tiers must be ordered by min, tier %d is out of order", i)
			}
			if i > 0 && req.Tiers[i-1].Max != nil && tier.Min.LessThanOrEqual(*req.Tiers[i-1].Max) {
				return nil, fmt.Errorf("tiers must be disjoint, tier %d overlaps the previous tier", i)
			}
		}
	default:
		return nil, fmt.Errorf("invalid payout type: %s", req.PayoutType)
	}

	tiers, err := models.EncodeJSONColumn(req.Tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tiers: %w", err)
	}
	if len(req.Tiers) == 0 {
		tiers = nil
	}

	offer := &models.Offer{
		Project:       project,
		Name:          req.Name,
		Description:   req.Description,
		PayoutType:    req.PayoutType,
		BasePayout:    req.BasePayout,
		Tiers:         tiers,
		MinimumPayout: req.MinimumPayout,
		MaximumPayout: req.MaximumPayout,
	}

	if err := s.DB.Create(offer).Error; err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	return offer, nil
}

func (s *offerService) GetOffers(req request.GetOfferRequest) ([]models.Offer, int64, error) {
	var offers []models.Offer
	var count int64

	query := s.DB.Model(&models.Offer{})

	query = request.ApplyGetOfferRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&offers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch offers: %w", err)
	}

	return offers, count, nil
}

func (s *offerService) UpdateOfferStatus(project string, offerID uint, newStatus string) (*models.Offer, error) {
	var offer models.Offer

	if newStatus != "active" && newStatus != "paused" && newStatus != "archived" {
		return nil, fmt.Errorf("invalid new status: must be 'active', 'paused' or 'archived'")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND id = ?", project, offerID).
			First(&offer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %d not found for project %s", offerID, project)
			}
			return fmt.Errorf("failed to fetch offer: %w", err)
		}

		if offer.Status == newStatus {
			return fmt.Errorf("offer is already %s", newStatus)
		}

		offer.Status = newStatus

		if err := tx.Save(&offer).Error; err != nil {
			return fmt.Errorf("failed to update offer status: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &offer, nil
}
