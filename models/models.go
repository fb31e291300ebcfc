package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"time"
)

type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"index" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Affiliate is the owner of referral codes. Running totals are moved
// exclusively through relative SQL increments, never read-modify-write.
type Affiliate struct {
	BaseModel
	Project           string           `gorm:"size:100;not null;uniqueIndex:idx_affiliate_project_reference_id" json:"project"`
	ReferenceID       string           `gorm:"size:100;not null;uniqueIndex:idx_affiliate_project_reference_id" json:"referenceId"`
	Email             *string          `gorm:"size:100" json:"email"`
	Status            string           `gorm:"size:50;default:'active';index" json:"status"`
	CommissionCeiling *decimal.Decimal `gorm:"type:decimal(38,18)" json:"commissionCeiling"` // Max rate any of this affiliate's codes may carry

	ReferredByAffiliateID *uint      `gorm:"index" json:"referredByAffiliateId"`
	ReferredByAffiliate   *Affiliate `gorm:"foreignKey:ReferredByAffiliateID" json:"referredByAffiliate,omitempty"`

	TotalClicks      int64           `gorm:"not null;default:0" json:"totalClicks"`
	TotalConversions int64           `gorm:"not null;default:0" json:"totalConversions"`
	TotalEarnings    decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0" json:"totalEarnings"`
}

func (Affiliate) TableName() string {
	return "affiliate_members"
}

const (
	ScopeSignup  = "signup"
	ScopeProduct = "product"
	ScopeBoth    = "both"
)

// ReferralCode is a shareable attribution token. Codes are soft-disabled
// via Status/ExpiresAt and never hard-deleted while usages reference them.
type ReferralCode struct {
	BaseModel
	Project        string          `gorm:"size:100;not null;index" json:"project"`
	Code           string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	AffiliateID    uint            `gorm:"not null;index" json:"affiliateId"`
	ScopeType      string          `gorm:"size:50;not null;default:'both';index" json:"scopeType"` // signup, product, both
	CommissionRate decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"commissionRate"`
	OfferID        *uint           `gorm:"index" json:"offerId"`
	ProductID      *string         `gorm:"size:100;index" json:"productId"`
	MaxUses        *int64          `gorm:"" json:"maxUses"`
	CurrentUses    int64           `gorm:"not null;default:0" json:"currentUses"`
	ExpiresAt      *time.Time      `gorm:"index" json:"expiresAt"`
	Status         string          `gorm:"size:50;default:'active';index" json:"status"`

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID;references:ID" json:"affiliate,omitempty"`
	Offer     *Offer     `gorm:"foreignKey:OfferID;references:ID" json:"offer,omitempty"`
}

func (ReferralCode) TableName() string {
	return "affiliate_referral_codes"
}

// Click is append-only. Duplicate visits are distinct rows on purpose;
// there is no dedup key for clicks.
type Click struct {
	BaseModel
	Project     string `gorm:"size:100;not null;index" json:"project"`
	Code        string `gorm:"size:50;not null;index" json:"code"`
	AffiliateID uint   `gorm:"not null;index" json:"affiliateId"`
	SourceID    string `gorm:"size:100;index" json:"sourceId"`
	URL         string `gorm:"size:2048" json:"url"`
	Referrer    string `gorm:"size:2048" json:"referrer"`
	UserAgent   string `gorm:"size:512" json:"userAgent"`
	UTMSource   string `gorm:"size:255;index" json:"utmSource"`
	UTMMedium   string `gorm:"size:255" json:"utmMedium"`
	UTMCampaign string `gorm:"size:255;index" json:"utmCampaign"`
}

func (Click) TableName() string {
	return "affiliate_clicks"
}

const (
	ConversionStatusPending   = "pending"
	ConversionStatusApproved  = "approved"
	ConversionStatusPaid      = "paid"
	ConversionStatusCancelled = "cancelled"
)

// Conversion is a purchase attributed to a referral code. The natural key
// (order_id, store_id) carries a DB unique index: a replayed store webhook
// can never insert a second row. CommissionRate and CommissionAmount are
// snapshots taken at attribution time and are never silently recomputed.
type Conversion struct {
	BaseModel
	Project          string          `gorm:"size:100;not null;index" json:"project"`
	OrderID          string          `gorm:"size:100;not null;uniqueIndex:idx_conversion_order_store" json:"orderId"`
	StoreID          string          `gorm:"size:100;not null;uniqueIndex:idx_conversion_order_store" json:"storeId"`
	Code             string          `gorm:"size:50;not null;index" json:"code"`
	AffiliateID      uint            `gorm:"not null;index" json:"affiliateId"`
	OrderValue       decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"orderValue"`
	Currency         string          `gorm:"type:varchar(20);default:'USD'" json:"currency"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"commissionRate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"commissionAmount"`
	Status           string          `gorm:"size:50;default:'pending';not null;index" json:"status"`
	PaidAt           *time.Time      `gorm:"" json:"paidAt"`

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID;references:ID" json:"affiliate,omitempty"`
}

func (Conversion) TableName() string {
	return "affiliate_conversions"
}

// Offer groups products under one payout configuration. The payout
// columns are read-only during calculation.
type Offer struct {
	BaseModel
	Project       string           `gorm:"size:100;not null;index" json:"project"`
	Name          string           `gorm:"size:255;not null;index" json:"name"`
	Description   *string          `gorm:"type:text" json:"description"`
	Status        string           `gorm:"size:50;default:'active';index" json:"status"`
	PayoutType    string           `gorm:"size:50;not null" json:"payoutType"` // fixed, percentage, tiered
	BasePayout    decimal.Decimal  `gorm:"type:decimal(38,18);not null" json:"basePayout"`
	Tiers         *string          `gorm:"type:json" json:"tiers"` // JSON-encoded []TierRate, ordered by Min
	MinimumPayout *decimal.Decimal `gorm:"type:decimal(38,18)" json:"minimumPayout"`
	MaximumPayout *decimal.Decimal `gorm:"type:decimal(38,18)" json:"maximumPayout"`
}

func (Offer) TableName() string {
	return "affiliate_offers"
}

const (
	SmartLinkStatusActive   = "active"
	SmartLinkStatusDisabled = "disabled"
)

// SmartLink is a tracking URL with conditional redirect behaviour. Rule
// sets are stored as JSON documents; configured rarely, read per visit.
type SmartLink struct {
	BaseModel
	Project         string  `gorm:"size:100;not null;uniqueIndex:idx_smartlink_project_slug" json:"project"`
	Slug            string  `gorm:"size:100;not null;uniqueIndex:idx_smartlink_project_slug" json:"slug"`
	Name            string  `gorm:"size:255;not null" json:"name"`
	BaseURL         string  `gorm:"size:2048;not null" json:"baseUrl"`
	Status          string  `gorm:"size:50;default:'active';index" json:"status"`
	Rules           *string `gorm:"type:json" json:"rules"`           // []RedirectRule
	GeoRedirects    *string `gorm:"type:json" json:"geoRedirects"`    // []GeoRedirect
	DeviceRedirects *string `gorm:"type:json" json:"deviceRedirects"` // []DeviceRedirect
	TimeRedirects   *string `gorm:"type:json" json:"timeRedirects"`   // []TimeRedirect
}

func (SmartLink) TableName() string {
	return "affiliate_smart_links"
}

const (
	WebhookStatusActive   = "active"
	WebhookStatusDisabled = "disabled"
)

// Webhook is an outbound endpoint subscription with its transform and
// filter pipeline configuration.
type Webhook struct {
	BaseModel
	Project         string  `gorm:"size:100;not null;index" json:"project"`
	Name            string  `gorm:"size:255;not null" json:"name"`
	URL             string  `gorm:"size:2048;not null" json:"url"`
	Status          string  `gorm:"size:50;default:'active';index" json:"status"`
	Events          *string `gorm:"type:json" json:"events"`          // []string of subscribed event types
	Transformations *string `gorm:"type:json" json:"transformations"` // []Transformation, applied in order
	Filters         *string `gorm:"type:json" json:"filters"`         // []PayloadFilter
	MaxAttempts     int     `gorm:"not null;default:3" json:"maxAttempts"`
}

func (Webhook) TableName() string {
	return "affiliate_webhooks"
}

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusFiltered  = "filtered"
	DeliveryStatusExhausted = "exhausted"
)

// WebhookDelivery is the durable unit of work for one event shipped to
// one webhook. Failed deliveries stay retryable until Attempts reaches
// the webhook's MaxAttempts, then move to exhausted.
type WebhookDelivery struct {
	BaseModel
	Project       string     `gorm:"size:100;not null;index" json:"project"`
	WebhookID     uint       `gorm:"not null;index" json:"webhookId"`
	EventID       string     `gorm:"size:100;not null;index" json:"eventId"`
	EventType     string     `gorm:"size:100;not null;index" json:"eventType"`
	Payload       string     `gorm:"type:json" json:"payload"` // payload after transforms, as shipped
	Status        string     `gorm:"size:50;default:'pending';not null;index" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"index" json:"nextAttemptAt"`
	LastError     *string    `gorm:"type:text" json:"lastError"`

	Webhook *Webhook `gorm:"foreignKey:WebhookID;references:ID" json:"webhook,omitempty"`
}

func (WebhookDelivery) TableName() string {
	return "affiliate_webhook_deliveries"
}

// WebhookDeliveryLog records a single attempt: success, filtered-out or
// transport failure. One row per attempt, always written.
type WebhookDeliveryLog struct {
	BaseModel
	DeliveryID   uint    `gorm:"not null;index" json:"deliveryId"`
	WebhookID    uint    `gorm:"not null;index" json:"webhookId"`
	Attempt      int     `gorm:"not null" json:"attempt"`
	Outcome      string  `gorm:"size:50;not null;index" json:"outcome"` // delivered, failed, filtered
	StatusCode   *int    `gorm:"" json:"statusCode"`
	ResponseBody *string `gorm:"type:text" json:"responseBody"`
	ErrorMessage *string `gorm:"type:text" json:"errorMessage"`
	DurationMs   int64   `gorm:"not null;default:0" json:"durationMs"`
}

func (WebhookDeliveryLog) TableName() string {
	return "affiliate_webhook_delivery_logs"
}

// ValidationRule gates conversion ingestion. A conversion is accepted
// only when every active rule's conditions match the order payload;
// failing rules surface their messages together.
type ValidationRule struct {
	BaseModel
	Project      string  `gorm:"size:100;not null;index" json:"project"`
	Name         string  `gorm:"size:255;not null" json:"name"`
	Priority     int     `gorm:"not null;default:0;index" json:"priority"`
	Conditions   *string `gorm:"type:json" json:"conditions"` // []conditions.Condition
	ErrorMessage string  `gorm:"size:512;not null" json:"errorMessage"`
	IsActive     bool    `gorm:"default:true;index" json:"isActive"`
}

func (ValidationRule) TableName() string {
	return "affiliate_validation_rules"
}

// ProjectSettings holds per-project defaults. The default commission rate
// is read through the injected rate cache, see settingsService.
type ProjectSettings struct {
	BaseModel
	Project               string          `gorm:"size:100;not null;uniqueIndex" json:"project"`
	DefaultCommissionRate decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0" json:"defaultCommissionRate"`
	DefaultCurrency       string          `gorm:"type:varchar(20);default:'USD'" json:"defaultCurrency"`
}

func (ProjectSettings) TableName() string {
	return "affiliate_project_settings"
}
