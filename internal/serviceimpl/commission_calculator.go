package serviceimpl

import (
	"fmt"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/service"
	"github.com/shopspring/decimal"
)

type DefaultCommissionCalculator struct{}

var _ service.CommissionCalculator = &DefaultCommissionCalculator{}

func NewDefaultCommissionCalculator() *DefaultCommissionCalculator {
	return &DefaultCommissionCalculator{}
}

// Calculate computes the commission for a sale amount. All arithmetic is
// decimal; the public numbers never pass through binary floats.
func (c *DefaultCommissionCalculator) Calculate(config models.PayoutConfig, saleAmount decimal.Decimal) (decimal.Decimal, error) {
	var commission decimal.Decimal

	switch config.PayoutType {
	case models.PayoutFixed:
		commission = config.BasePayout
	case models.PayoutPercentage:
		commission = saleAmount.Mul(config.BasePayout).Div(decimal.NewFromInt(100))
	case models.PayoutTiered:
		commission = tieredCommission(config.Tiers, saleAmount)
	default:
		return decimal.Zero, fmt.Errorf("unknown payout type: %s", config.PayoutType)
	}

	// Clamp minimum first, then maximum: when the two conflict the
	// maximum wins.
	if config.MinimumPayout != nil && commission.LessThan(*config.MinimumPayout) {
		commission = *config.MinimumPayout
	}
	if config.MaximumPayout != nil && commission.GreaterThan(*config.MaximumPayout) {
		commission = *config.MaximumPayout
	}

	return commission, nil
}

// tieredCommission scans tiers in configured order and applies the first
// tier whose band contains the sale amount. No matching tier pays zero.
func tieredCommission(tiers []models.TierRate, saleAmount decimal.Decimal) decimal.Decimal {
	for _, tier := range tiers {
		if saleAmount.LessThan(tier.Min) {
			continue
		}
		if tier.Max != nil && saleAmount.GreaterThan(*tier.Max) {
			continue
		}
		if tier.Type == models.PayoutFixed {
			return tier.Rate
		}
		return saleAmount.Mul(tier.Rate).Div(decimal.NewFromInt(100))
	}
	return decimal.Zero
}
