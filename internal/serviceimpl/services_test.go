package serviceimpl_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	go_affiliate "github.com/PayRam/go-affiliate"
	"github.com/PayRam/go-affiliate/conditions"
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/service"
	"github.com/PayRam/go-affiliate/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	db               *gorm.DB
	affiliateService *go_affiliate.AffiliateService
)

func TestMain(m *testing.M) {
	// A shared file-backed database: ":memory:" gives every pooled
	// connection its own empty schema, which breaks concurrent tests.
	dir, err := os.MkdirTemp("", "affiliate-test-*")
	if err != nil {
		panic("failed to create temp dir")
	}
	// _txlock=immediate takes the write lock at BEGIN so concurrent
	// transactions queue instead of deadlocking on lock upgrade.
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(dir, "test.db"))
	db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to initialize test database")
	}

	affiliateService = go_affiliate.NewAffiliateService(db, go_affiliate.WithLogger(zap.NewNop()))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func createAffiliate(t *testing.T, project, referenceID string, ceiling *decimal.Decimal) *models.Affiliate {
	affiliate, err := affiliateService.Affiliates.CreateAffiliate(project, request.CreateAffiliateRequest{
		ReferenceID:       referenceID,
		Email:             utils.StringPtr(referenceID + "@example.com"),
		CommissionCeiling: ceiling,
	})
	require.NoError(t, err, "failed to create affiliate")
	require.NotNil(t, affiliate)
	assert.Equal(t, project, affiliate.Project)
	assert.Equal(t, referenceID, affiliate.ReferenceID)
	assert.Equal(t, "active", affiliate.Status)
	return affiliate
}

func createCode(t *testing.T, project string, req request.CreateCodeRequest) *models.ReferralCode {
	code, err := affiliateService.Codes.CreateCode(project, req)
	require.NoError(t, err, "failed to create code")
	require.NotNil(t, code)
	assert.NotEmpty(t, code.Code)
	assert.Equal(t, "active", code.Status)
	return code
}

func recordConversion(t *testing.T, project string, req request.RecordConversionRequest) *decimal.Decimal {
	result, err := affiliateService.Tracking.RecordConversion(project, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Duplicate)
	return &result.CommissionAmount
}

func TestCreateAffiliateValidation(t *testing.T) {
	project := "t-affiliate-validation"

	_, err := affiliateService.Affiliates.CreateAffiliate(project, request.CreateAffiliateRequest{
		ReferenceID: "user-1",
		Email:       utils.StringPtr("not-an-email"),
	})
	assert.Error(t, err)

	createAffiliate(t, project, "user-1", nil)

	// The (project, referenceID) pair is unique.
	_, err = affiliateService.Affiliates.CreateAffiliate(project, request.CreateAffiliateRequest{
		ReferenceID: "user-1",
	})
	assert.Error(t, err)
}

func TestCreateAffiliateWithReferrerCode(t *testing.T) {
	project := "t-referrer-code"

	referrer := createAffiliate(t, project, "referrer", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "referrer",
		ScopeType:            models.ScopeSignup,
		CommissionRate:       decPtr("10"),
	})

	referred, err := affiliateService.Affiliates.CreateAffiliate(project, request.CreateAffiliateRequest{
		ReferenceID:  "referred",
		ReferrerCode: &code.Code,
	})
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredByAffiliateID)
	assert.Equal(t, referrer.ID, *referred.ReferredByAffiliateID)
	require.NotNil(t, referred.ReferredByAffiliate)
	assert.Equal(t, "referrer", referred.ReferredByAffiliate.ReferenceID)

	// Signup redemption consumed one usage.
	codes, _, err := affiliateService.Codes.GetCodes(request.GetCodeRequest{Code: &code.Code})
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, int64(1), codes[0].CurrentUses)

	// An unknown referrer code rejects the signup entirely.
	_, err = affiliateService.Affiliates.CreateAffiliate(project, request.CreateAffiliateRequest{
		ReferenceID:  "referred-2",
		ReferrerCode: utils.StringPtr("NO_SUCH_CODE"),
	})
	assert.ErrorIs(t, err, service.ErrCodeNotFound)
}

func TestCreateCodeDefaultsToProjectRate(t *testing.T) {
	project := "t-code-default-rate"

	_, err := affiliateService.Settings.UpdateSettings(project, request.UpdateSettingsRequest{
		DefaultCommissionRate: decPtr("7.5"),
	})
	require.NoError(t, err)

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
	})
	assert.True(t, code.CommissionRate.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, models.ScopeBoth, code.ScopeType)
}

func TestCreateCodeCeilingEnforced(t *testing.T) {
	project := "t-code-ceiling"

	createAffiliate(t, project, "capped", decPtr("15"))

	_, err := affiliateService.Codes.CreateCode(project, request.CreateCodeRequest{
		AffiliateReferenceID: "capped",
		CommissionRate:       decPtr("20"),
	})
	assert.ErrorIs(t, err, service.ErrRateExceedsCeiling)

	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "capped",
		CommissionRate:       decPtr("15"),
	})
	assert.True(t, code.CommissionRate.Equal(decimal.RequireFromString("15")))
}

func TestPreferredCodeMustBeUnique(t *testing.T) {
	project := "t-preferred-code"

	createAffiliate(t, project, "user-1", nil)
	createAffiliate(t, project, "user-2", nil)

	first := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
		PreferredCode:        utils.StringPtr("SUMMER25"),
	})
	assert.Equal(t, "SUMMER25", first.Code)

	_, err := affiliateService.Codes.CreateCode(project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-2",
		CommissionRate:       decPtr("10"),
		PreferredCode:        utils.StringPtr("SUMMER25"),
	})
	assert.ErrorIs(t, err, service.ErrCodeGenerationExhausted)
}

func TestUpdateCodeStatus(t *testing.T) {
	project := "t-code-status"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	disabled, err := affiliateService.Codes.UpdateCodeStatus(project, code.Code, "disabled")
	require.NoError(t, err)
	assert.Equal(t, "disabled", disabled.Status)

	// A disabled code is invisible to tracking.
	_, err = affiliateService.Tracking.TrackClick(project, request.TrackClickRequest{Code: code.Code})
	assert.ErrorIs(t, err, service.ErrCodeNotFound)

	_, err = affiliateService.Codes.UpdateCodeStatus(project, code.Code, "banana")
	assert.Error(t, err)
}

func TestTrackClick(t *testing.T) {
	project := "t-track-click"

	affiliate := createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	result, err := affiliateService.Tracking.TrackClick(project, request.TrackClickRequest{
		Code:      code.Code,
		SourceID:  "visitor-1",
		UTMSource: "newsletter",
	})
	require.NoError(t, err)
	assert.True(t, result.Attributed)
	assert.Equal(t, affiliate.ID, result.AffiliateID)

	// Clicks are append-only: a second visit is a second row.
	_, err = affiliateService.Tracking.TrackClick(project, request.TrackClickRequest{Code: code.Code, SourceID: "visitor-1"})
	require.NoError(t, err)

	clicks, count, err := affiliateService.Tracking.GetClicks(request.GetClickRequest{
		Projects: []string{project},
		Code:     &code.Code,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, clicks, 2)

	affiliates, _, err := affiliateService.Affiliates.GetAffiliates(request.GetAffiliateRequest{
		Projects:    []string{project},
		ReferenceID: utils.StringPtr("user-1"),
	})
	require.NoError(t, err)
	require.Len(t, affiliates, 1)
	assert.Equal(t, int64(2), affiliates[0].TotalClicks)
}

func TestRecordConversionIdempotent(t *testing.T) {
	project := "t-conversion-idempotent"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	req := request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("200"),
	}

	first, err := affiliateService.Tracking.RecordConversion(project, req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.True(t, first.CommissionAmount.Equal(decimal.RequireFromString("20")))

	// Replaying the store webhook is a no-op that reports the original.
	second, err := affiliateService.Tracking.RecordConversion(project, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ConversionID, second.ConversionID)
	assert.True(t, second.CommissionAmount.Equal(first.CommissionAmount))

	// Exactly one usage consumed, exactly one conversion counted.
	codes, _, err := affiliateService.Codes.GetCodes(request.GetCodeRequest{Code: &code.Code})
	require.NoError(t, err)
	assert.Equal(t, int64(1), codes[0].CurrentUses)

	affiliates, _, err := affiliateService.Affiliates.GetAffiliates(request.GetAffiliateRequest{
		Projects:    []string{project},
		ReferenceID: utils.StringPtr("user-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affiliates[0].TotalConversions)
	assert.True(t, affiliates[0].TotalEarnings.Equal(decimal.RequireFromString("20")))

	// Same order id at a different store is a distinct order.
	req.StoreID = "store-2"
	third, err := affiliateService.Tracking.RecordConversion(project, req)
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
}

func TestRecordConversionWithOffer(t *testing.T) {
	project := "t-conversion-offer"

	createAffiliate(t, project, "user-1", nil)

	offer, err := affiliateService.Offers.CreateOffer(project, request.CreateOfferRequest{
		Name:       "Tiered launch offer",
		PayoutType: models.PayoutTiered,
		Tiers: []models.TierRate{
			{Min: decimal.Zero, Max: decPtr("99"), Rate: decimal.RequireFromString("5"), Type: models.PayoutPercentage},
			{Min: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("50"), Type: models.PayoutFixed},
		},
	})
	require.NoError(t, err)

	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
		OfferID:              &offer.ID,
	})

	amount := recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "offer-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("50"),
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("2.5")), "5%% tier, got %s", amount)

	amount = recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "offer-order-2",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("500"),
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("50")), "fixed tier, got %s", amount)
}

func TestProductScopedCode(t *testing.T) {
	project := "t-product-scope"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		ScopeType:            models.ScopeProduct,
		CommissionRate:       decPtr("10"),
		ProductID:            utils.StringPtr("sku-42"),
	})

	_, err := affiliateService.Tracking.RecordConversion(project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "scope-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
		ProductID:  utils.StringPtr("sku-7"),
	})
	assert.ErrorIs(t, err, service.ErrProductMismatch)

	// A signup-scoped code cannot attribute purchases at all.
	signupCode := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		ScopeType:            models.ScopeSignup,
		CommissionRate:       decPtr("10"),
	})
	_, err = affiliateService.Tracking.RecordConversion(project, request.RecordConversionRequest{
		Code:       signupCode.Code,
		OrderID:    "scope-order-2",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, service.ErrCodeNotFound)

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "scope-order-3",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
		ProductID:  utils.StringPtr("sku-42"),
	})
}

func TestExpiredCode(t *testing.T) {
	project := "t-expired-code"

	createAffiliate(t, project, "user-1", nil)
	past := time.Now().Add(-time.Hour)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
		ExpiresAt:            &past,
	})

	_, err := affiliateService.Tracking.TrackClick(project, request.TrackClickRequest{Code: code.Code})
	assert.ErrorIs(t, err, service.ErrCodeNotFound)

	_, err = affiliateService.Tracking.RecordConversion(project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "expired-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, service.ErrCodeNotFound)
}

func TestUsageLimitConcurrent(t *testing.T) {
	project := "t-usage-limit"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
		MaxUses:              utils.Int64Ptr(1),
	})

	// Two different orders race for the last usage; exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = affiliateService.Tracking.RecordConversion(project, request.RecordConversionRequest{
				Code:       code.Code,
				OrderID:    fmt.Sprintf("limit-order-%d", i),
				StoreID:    "store-1",
				OrderValue: decimal.RequireFromString("100"),
			})
		}(i)
	}
	wg.Wait()

	succeeded, limited := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, service.ErrUsageLimitReached):
			limited++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, limited)

	codes, _, err := affiliateService.Codes.GetCodes(request.GetCodeRequest{Code: &code.Code})
	require.NoError(t, err)
	assert.Equal(t, int64(1), codes[0].CurrentUses)
}

func TestConversionStatusLifecycle(t *testing.T) {
	project := "t-conversion-lifecycle"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "lifecycle-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})

	conv, err := affiliateService.Tracking.UpdateConversionStatus(project, "lifecycle-order-1", "store-1", models.ConversionStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusApproved, conv.Status)

	// pending -> paid skips approval and is rejected.
	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "lifecycle-order-2",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})
	_, err = affiliateService.Tracking.UpdateConversionStatus(project, "lifecycle-order-2", "store-1", models.ConversionStatusPaid)
	assert.Error(t, err)

	conv, err = affiliateService.Tracking.UpdateConversionStatus(project, "lifecycle-order-1", "store-1", models.ConversionStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusPaid, conv.Status)
	assert.NotNil(t, conv.PaidAt)

	// Paid is terminal.
	_, err = affiliateService.Tracking.UpdateConversionStatus(project, "lifecycle-order-1", "store-1", models.ConversionStatusCancelled)
	assert.Error(t, err)
}

func TestCancellationReversesAggregates(t *testing.T) {
	project := "t-cancel-reversal"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "cancel-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("300"),
	})

	affiliates, _, err := affiliateService.Affiliates.GetAffiliates(request.GetAffiliateRequest{
		Projects: []string{project},
	})
	require.NoError(t, err)
	assert.True(t, affiliates[0].TotalEarnings.Equal(decimal.RequireFromString("30")))

	_, err = affiliateService.Tracking.UpdateConversionStatus(project, "cancel-order-1", "store-1", models.ConversionStatusCancelled)
	require.NoError(t, err)

	affiliates, _, err = affiliateService.Affiliates.GetAffiliates(request.GetAffiliateRequest{
		Projects: []string{project},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affiliates[0].TotalConversions)
	assert.True(t, affiliates[0].TotalEarnings.IsZero(), "earnings should return to zero, got %s", affiliates[0].TotalEarnings)

	// The cancelled row itself keeps its snapshot.
	convs, _, err := affiliateService.Tracking.GetConversions(request.GetConversionRequest{
		Projects: []string{project},
		OrderID:  utils.StringPtr("cancel-order-1"),
	})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, models.ConversionStatusCancelled, convs[0].Status)
	assert.True(t, convs[0].CommissionAmount.Equal(decimal.RequireFromString("30")))
}

func TestValidationRulesGateConversions(t *testing.T) {
	project := "t-validation-rules"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	_, err := affiliateService.Tracking.CreateValidationRule(project, request.CreateValidationRuleRequest{
		Name:     "minimum order value",
		Priority: 10,
		Conditions: []conditions.Condition{
			{Field: "order.value", Operator: conditions.OpGreaterThan, Value: 50},
		},
		ErrorMessage: "order value must exceed 50",
	})
	require.NoError(t, err)

	_, err = affiliateService.Tracking.CreateValidationRule(project, request.CreateValidationRuleRequest{
		Name:     "domestic orders only",
		Priority: 5,
		Conditions: []conditions.Condition{
			{Field: "metadata.country", Operator: conditions.OpIn, Value: []interface{}{"US", "CA"}},
		},
		ErrorMessage: "only US and CA orders qualify",
	})
	require.NoError(t, err)

	// Both rules fail; both messages surface together.
	_, err = affiliateService.Tracking.RecordConversion(project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "rules-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("20"),
		Metadata:   map[string]interface{}{"country": "DE"},
	})
	require.Error(t, err)
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Messages, 2)

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "rules-order-2",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
		Metadata:   map[string]interface{}{"country": "US"},
	})
}

func TestSmartLinkResolve(t *testing.T) {
	project := "t-smartlink"

	_, err := affiliateService.SmartLinks.CreateSmartLink(project, request.CreateSmartLinkRequest{
		Slug:    "spring-sale",
		Name:    "Spring sale",
		BaseURL: "https://example.com/sale",
		Rules: []models.RedirectRule{
			{
				Priority: 1,
				Action:   models.RuleActionRedirect,
				URL:      "https://example.com/vip",
				Conditions: []conditions.Condition{
					{Field: "tier", Operator: conditions.OpEquals, Value: "vip"},
				},
				IsActive: true,
			},
			{
				Priority: 10,
				Action:   models.RuleActionBlock,
				Conditions: []conditions.Condition{
					{Field: "country", Operator: conditions.OpEquals, Value: "KP"},
				},
				IsActive: true,
			},
		},
		GeoRedirects: []models.GeoRedirect{
			{Country: "DE", URL: "https://example.de/sale"},
		},
		DeviceRedirects: []models.DeviceRedirect{
			{Device: "mobile", URL: "https://m.example.com/sale"},
		},
	})
	require.NoError(t, err)

	// Highest-priority rule wins even when listed last.
	result, err := affiliateService.SmartLinks.Resolve(project, "spring-sale", request.ResolveRequest{
		Country:    "KP",
		Attributes: map[string]interface{}{"tier": "vip"},
	})
	require.NoError(t, err)
	assert.False(t, result.Redirect)
	assert.Equal(t, "blocked", result.Reason)

	result, err = affiliateService.SmartLinks.Resolve(project, "spring-sale", request.ResolveRequest{
		Country:    "US",
		Attributes: map[string]interface{}{"tier": "vip"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/vip", result.URL)
	assert.Equal(t, "rule", result.Reason)

	// Geo beats device when no rule matches.
	result, err = affiliateService.SmartLinks.Resolve(project, "spring-sale", request.ResolveRequest{
		Country: "de",
		Device:  "mobile",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.de/sale", result.URL)
	assert.Equal(t, "geo", result.Reason)

	result, err = affiliateService.SmartLinks.Resolve(project, "spring-sale", request.ResolveRequest{
		Country: "US",
		Device:  "mobile",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://m.example.com/sale", result.URL)
	assert.Equal(t, "device", result.Reason)

	// Nothing matches: the base URL always resolves.
	result, err = affiliateService.SmartLinks.Resolve(project, "spring-sale", request.ResolveRequest{
		Country: "US",
		Device:  "desktop",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/sale", result.URL)
	assert.Equal(t, "fallback", result.Reason)
}

func TestSmartLinkTimeRedirect(t *testing.T) {
	project := "t-smartlink-time"

	_, err := affiliateService.SmartLinks.CreateSmartLink(project, request.CreateSmartLinkRequest{
		Slug:    "weekday-link",
		Name:    "Weekday link",
		BaseURL: "https://example.com",
		TimeRedirects: []models.TimeRedirect{
			{
				Days:      []int{1, 2, 3, 4, 5}, // Monday through Friday
				StartHour: 9,
				EndHour:   17,
				URL:       "https://example.com/office-hours",
				IsActive:  true,
			},
		},
	})
	require.NoError(t, err)

	// Wednesday 10:00.
	at := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	result, err := affiliateService.SmartLinks.Resolve(project, "weekday-link", request.ResolveRequest{Timestamp: &at})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/office-hours", result.URL)
	assert.Equal(t, "time", result.Reason)

	// Sunday 10:00 falls through to the base URL.
	at = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	result, err = affiliateService.SmartLinks.Resolve(project, "weekday-link", request.ResolveRequest{Timestamp: &at})
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Reason)

	// Wednesday 20:00, outside the hour band.
	at = time.Date(2026, 8, 26, 20, 0, 0, 0, time.UTC)
	result, err = affiliateService.SmartLinks.Resolve(project, "weekday-link", request.ResolveRequest{Timestamp: &at})
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Reason)
}

func TestUpdateSmartLink(t *testing.T) {
	project := "t-smartlink-update"

	_, err := affiliateService.SmartLinks.CreateSmartLink(project, request.CreateSmartLinkRequest{
		Slug:    "landing",
		Name:    "Landing",
		BaseURL: "https://old.example.com",
	})
	require.NoError(t, err)

	updated, err := affiliateService.SmartLinks.UpdateSmartLink(project, "landing", request.UpdateSmartLinkRequest{
		BaseURL: utils.StringPtr("https://new.example.com"),
		Status:  utils.StringPtr(models.SmartLinkStatusDisabled),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", updated.BaseURL)

	// A disabled link still resolves to its base URL.
	result, err := affiliateService.SmartLinks.Resolve(project, "landing", request.ResolveRequest{})
	require.NoError(t, err)
	assert.True(t, result.Redirect)
	assert.Equal(t, "https://new.example.com", result.URL)
}

func TestSettingsRoundTrip(t *testing.T) {
	project := "t-settings"

	// Unsaved defaults before any update.
	settings, err := affiliateService.Settings.GetSettings(project)
	require.NoError(t, err)
	assert.True(t, settings.DefaultCommissionRate.IsZero())
	assert.Equal(t, "USD", settings.DefaultCurrency)

	_, err = affiliateService.Settings.UpdateSettings(project, request.UpdateSettingsRequest{
		DefaultCommissionRate: decPtr("12.5"),
		DefaultCurrency:       utils.StringPtr("EUR"),
	})
	require.NoError(t, err)

	rate, err := affiliateService.Settings.DefaultCommissionRate(project)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("12.5")))

	// The cache is invalidated on update, not served stale.
	_, err = affiliateService.Settings.UpdateSettings(project, request.UpdateSettingsRequest{
		DefaultCommissionRate: decPtr("20"),
	})
	require.NoError(t, err)

	rate, err = affiliateService.Settings.DefaultCommissionRate(project)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("20")))
}

func TestAffiliateStats(t *testing.T) {
	project := "t-stats"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})
	createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("5"),
	})

	_, err := affiliateService.Tracking.TrackClick(project, request.TrackClickRequest{Code: code.Code})
	require.NoError(t, err)

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "stats-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})

	stats, count, err := affiliateService.Stats.GetAffiliateStats(request.GetAffiliateRequest{
		Projects: []string{project},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, stats, 1)
	assert.Equal(t, "user-1", stats[0].ReferenceID)
	assert.Equal(t, int64(2), stats[0].CodeCount)
	assert.Equal(t, int64(1), stats[0].TotalClicks)
	assert.Equal(t, int64(1), stats[0].TotalConversions)
	assert.True(t, stats[0].TotalEarnings.Equal(decimal.RequireFromString("10")))

	total, err := affiliateService.Stats.GetTotalEarnings(request.GetConversionRequest{
		Projects: []string{project},
	})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("10")))
}

func TestGetTotalEarningsExcludesCancelled(t *testing.T) {
	project := "t-earnings-cancelled"

	createAffiliate(t, project, "user-1", nil)
	code := createCode(t, project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})

	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "earn-order-1",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})
	recordConversion(t, project, request.RecordConversionRequest{
		Code:       code.Code,
		OrderID:    "earn-order-2",
		StoreID:    "store-1",
		OrderValue: decimal.RequireFromString("100"),
	})

	_, err := affiliateService.Tracking.UpdateConversionStatus(project, "earn-order-2", "store-1", models.ConversionStatusCancelled)
	require.NoError(t, err)

	total, err := affiliateService.Stats.GetTotalEarnings(request.GetConversionRequest{
		Projects: []string{project},
	})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("10")), "cancelled commission must not count, got %s", total)
}

func TestUpdateAffiliateStatus(t *testing.T) {
	project := "t-affiliate-status"

	createAffiliate(t, project, "user-1", nil)

	updated, err := affiliateService.Affiliates.UpdateAffiliateStatus(project, "user-1", "inactive")
	require.NoError(t, err)
	assert.Equal(t, "inactive", updated.Status)

	// Inactive affiliates cannot receive new codes.
	_, err = affiliateService.Codes.CreateCode(project, request.CreateCodeRequest{
		AffiliateReferenceID: "user-1",
		CommissionRate:       decPtr("10"),
	})
	assert.Error(t, err)
}
