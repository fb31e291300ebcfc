package service

import (
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/response"
	"github.com/shopspring/decimal"
)

// AffiliateService handles the affiliate directory
type AffiliateService interface {
	CreateAffiliate(project string, req request.CreateAffiliateRequest) (*models.Affiliate, error)
	GetAffiliates(req request.GetAffiliateRequest) ([]models.Affiliate, int64, error)
	GetTotalAffiliates(req request.GetAffiliateRequest) (int64, error)
	UpdateAffiliateStatus(project, referenceID, newStatus string) (*models.Affiliate, error)
}

// CodeService handles referral code issuance and lifecycle
type CodeService interface {
	CreateCode(project string, req request.CreateCodeRequest) (*models.ReferralCode, error)
	GetCodes(req request.GetCodeRequest) ([]models.ReferralCode, int64, error)
	UpdateCodeStatus(project, code, newStatus string) (*models.ReferralCode, error)
}

// TrackingService ingests clicks and orders and owns conversion status
// transitions and validation rules
type TrackingService interface {
	TrackClick(project string, req request.TrackClickRequest) (*response.ClickResult, error)
	RecordConversion(project string, req request.RecordConversionRequest) (*response.ConversionResult, error)
	UpdateConversionStatus(project, orderID, storeID, newStatus string) (*models.Conversion, error)
	GetClicks(req request.GetClickRequest) ([]models.Click, int64, error)
	GetConversions(req request.GetConversionRequest) ([]models.Conversion, int64, error)
	CreateValidationRule(project string, req request.CreateValidationRuleRequest) (*models.ValidationRule, error)
	GetValidationRules(req request.GetValidationRuleRequest) ([]models.ValidationRule, int64, error)
}

// OfferService handles offers and their payout configuration
type OfferService interface {
	CreateOffer(project string, req request.CreateOfferRequest) (*models.Offer, error)
	GetOffers(req request.GetOfferRequest) ([]models.Offer, int64, error)
	UpdateOfferStatus(project string, offerID uint, newStatus string) (*models.Offer, error)
}

// SmartLinkService resolves inbound visits against configured rule sets
type SmartLinkService interface {
	CreateSmartLink(project string, req request.CreateSmartLinkRequest) (*models.SmartLink, error)
	UpdateSmartLink(project, slug string, req request.UpdateSmartLinkRequest) (*models.SmartLink, error)
	GetSmartLinks(req request.GetSmartLinkRequest) ([]models.SmartLink, int64, error)
	Resolve(project, slug string, req request.ResolveRequest) (*response.ResolveResult, error)
}

// WebhookService runs the transform/filter/deliver pipeline
type WebhookService interface {
	CreateWebhook(project string, req request.CreateWebhookRequest) (*models.Webhook, error)
	GetWebhooks(req request.GetWebhookRequest) ([]models.Webhook, int64, error)
	UpdateWebhookStatus(project string, webhookID uint, newStatus string) (*models.Webhook, error)
	Deliver(project string, webhookID uint, event request.EventPayload) (*response.DeliveryResult, error)
	Retry(deliveryID uint) (*response.DeliveryResult, error)
	GetDeliveryLogs(req request.GetDeliveryLogRequest) ([]models.WebhookDeliveryLog, int64, error)
}

// SettingsService owns per-project defaults; the default commission rate
// is served through the injected rate cache
type SettingsService interface {
	GetSettings(project string) (*models.ProjectSettings, error)
	UpdateSettings(project string, req request.UpdateSettingsRequest) (*models.ProjectSettings, error)
	DefaultCommissionRate(project string) (decimal.Decimal, error)
}

type StatsService interface {
	GetAffiliateStats(req request.GetAffiliateRequest) ([]response.AffiliateStats, int64, error)
	GetTotalEarnings(req request.GetConversionRequest) (decimal.Decimal, error)
}

type Worker interface {
	ProcessPendingDeliveries() error
}

// CommissionCalculator computes a commission for a sale amount. The
// default implementation can be swapped per deployment via the facade.
type CommissionCalculator interface {
	Calculate(config models.PayoutConfig, saleAmount decimal.Decimal) (decimal.Decimal, error)
}
