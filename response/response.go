package response

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClickResult reports a recorded visit.
type ClickResult struct {
	Attributed  bool   `json:"attributed"`
	AffiliateID uint   `json:"affiliateId"`
	ClickID     uint   `json:"clickId"`
	Code        string `json:"code"`
}

// ConversionResult reports an order ingestion. Duplicate is true when the
// natural key was already recorded; a duplicate is a successful no-op,
// not an error, because store webhooks are expected to replay.
type ConversionResult struct {
	Duplicate        bool            `json:"duplicate"`
	ConversionID     uint            `json:"conversionId"`
	AffiliateID      uint            `json:"affiliateId"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
}

// ResolveResult is a smart-link resolution outcome. Redirect is false
// only for an explicit BLOCK rule; otherwise some URL is always returned.
type ResolveResult struct {
	Redirect bool   `json:"redirect"`
	URL      string `json:"url,omitempty"`
	Reason   string `json:"reason"` // rule, geo, device, time, fallback, blocked
}

// DeliveryResult reports one webhook pipeline run.
type DeliveryResult struct {
	DeliveryID uint    `json:"deliveryId"`
	Outcome    string  `json:"outcome"` // delivered, failed, filtered
	StatusCode *int    `json:"statusCode,omitempty"`
	DurationMs int64   `json:"durationMs"`
	Error      *string `json:"error,omitempty"`
}

// AffiliateStats is a directory row joined with live aggregates.
type AffiliateStats struct {
	ID               uint            `json:"id"`
	Project          string          `json:"project"`
	ReferenceID      string          `json:"referenceId"`
	Email            *string         `json:"email,omitempty"`
	CodeCount        int64           `json:"codeCount"`
	TotalClicks      int64           `json:"totalClicks"`
	TotalConversions int64           `json:"totalConversions"`
	TotalEarnings    decimal.Decimal `json:"totalEarnings"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
