package request

import "github.com/shopspring/decimal"

type UpdateSettingsRequest struct {
	DefaultCommissionRate *decimal.Decimal `json:"defaultCommissionRate"`
	DefaultCurrency       *string          `json:"defaultCurrency"`
}
