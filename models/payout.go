package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	PayoutFixed      = "fixed"
	PayoutPercentage = "percentage"
	PayoutTiered     = "tiered"
)

// TierRate is one band of a tiered payout schedule. Tiers are disjoint
// and ordered by Min; the first matching tier wins.
type TierRate struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max,omitempty"` // unset means open-ended
	Rate decimal.Decimal  `json:"rate"`
	Type string           `json:"type"` // fixed or percentage within the tier
}

// PayoutConfig is the in-memory commission configuration handed to the
// calculator. It is assembled either from an Offer row or from a code's
// snapshot rate.
type PayoutConfig struct {
	PayoutType    string           `json:"payoutType"`
	BasePayout    decimal.Decimal  `json:"basePayout"`
	Tiers         []TierRate       `json:"tiers,omitempty"`
	MinimumPayout *decimal.Decimal `json:"minimumPayout,omitempty"`
	MaximumPayout *decimal.Decimal `json:"maximumPayout,omitempty"`
}

// PayoutConfig decodes the offer's payout columns, including the tier
// JSON document, into a calculator-ready config.
func (o *Offer) PayoutConfig() (PayoutConfig, error) {
	cfg := PayoutConfig{
		PayoutType:    o.PayoutType,
		BasePayout:    o.BasePayout,
		MinimumPayout: o.MinimumPayout,
		MaximumPayout: o.MaximumPayout,
	}
	if o.Tiers != nil && *o.Tiers != "" {
		if err := json.Unmarshal([]byte(*o.Tiers), &cfg.Tiers); err != nil {
			return PayoutConfig{}, fmt.Errorf("failed to decode tiers for offer %d: %w", o.ID, err)
		}
	}
	return cfg, nil
}

// PercentageConfig builds a plain percentage payout config from a single
// rate, used when a code has no offer attached.
func PercentageConfig(rate decimal.Decimal) PayoutConfig {
	return PayoutConfig{PayoutType: PayoutPercentage, BasePayout: rate}
}
