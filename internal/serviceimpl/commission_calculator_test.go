package serviceimpl_test

import (
	"testing"

	"github.com/PayRam/go-affiliate/internal/serviceimpl"
	"github.com/PayRam/go-affiliate/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCalculateFixed(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	got, err := calc.Calculate(models.PayoutConfig{
		PayoutType: models.PayoutFixed,
		BasePayout: decimal.RequireFromString("7.50"),
	}, decimal.RequireFromString("1000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("7.50")), "fixed payout ignores the sale amount, got %s", got)
}

func TestCalculatePercentage(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	got, err := calc.Calculate(models.PercentageConfig(decimal.RequireFromString("12.5")), decimal.RequireFromString("80"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("10")), "12.5%% of 80 should be 10, got %s", got)
}

func TestCalculateTiered(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	config := models.PayoutConfig{
		PayoutType: models.PayoutTiered,
		Tiers: []models.TierRate{
			{Min: decimal.Zero, Max: decPtr("99"), Rate: decimal.RequireFromString("5"), Type: models.PayoutPercentage},
			{Min: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("50"), Type: models.PayoutFixed},
		},
	}

	got, err := calc.Calculate(config, decimal.RequireFromString("50"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")), "5%% of 50, got %s", got)

	got, err = calc.Calculate(config, decimal.RequireFromString("100"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("50")), "open-ended fixed tier, got %s", got)

	got, err = calc.Calculate(config, decimal.RequireFromString("5000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("50")))
}

func TestCalculateTieredNoMatchingTier(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	config := models.PayoutConfig{
		PayoutType: models.PayoutTiered,
		Tiers: []models.TierRate{
			{Min: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("10"), Type: models.PayoutPercentage},
		},
	}

	got, err := calc.Calculate(config, decimal.RequireFromString("50"))
	assert.NoError(t, err)
	assert.True(t, got.IsZero(), "sale below every tier pays zero, got %s", got)
}

func TestCalculateClamps(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	config := models.PercentageConfig(decimal.RequireFromString("10"))
	config.MinimumPayout = decPtr("5")
	config.MaximumPayout = decPtr("100")

	got, err := calc.Calculate(config, decimal.RequireFromString("10"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("5")), "raised to the minimum, got %s", got)

	got, err = calc.Calculate(config, decimal.RequireFromString("100000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("100")), "capped at the maximum, got %s", got)
}

func TestCalculateClampConflictMaximumWins(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	config := models.PercentageConfig(decimal.RequireFromString("10"))
	config.MinimumPayout = decPtr("20")
	config.MaximumPayout = decPtr("10")

	got, err := calc.Calculate(config, decimal.RequireFromString("1"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("10")), "maximum applies after minimum, got %s", got)
}

func TestCalculateUnknownPayoutType(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	_, err := calc.Calculate(models.PayoutConfig{PayoutType: "bogus"}, decimal.NewFromInt(10))
	assert.Error(t, err)
}

func TestCalculateClampProperties(t *testing.T) {
	calc := serviceimpl.NewDefaultCommissionCalculator()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("clamped commission never exceeds the maximum", prop.ForAll(
		func(sale float64, rate float64, max float64) bool {
			config := models.PercentageConfig(decimal.NewFromFloat(rate))
			m := decimal.NewFromFloat(max)
			config.MaximumPayout = &m
			got, err := calc.Calculate(config, decimal.NewFromFloat(sale))
			return err == nil && got.LessThanOrEqual(m)
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1e4),
	))

	properties.Property("commission without clamps is proportional to the sale", prop.ForAll(
		func(sale float64, rate float64) bool {
			config := models.PercentageConfig(decimal.NewFromFloat(rate))
			got, err := calc.Calculate(config, decimal.NewFromFloat(sale))
			if err != nil {
				return false
			}
			expected := decimal.NewFromFloat(sale).Mul(decimal.NewFromFloat(rate)).Div(decimal.NewFromInt(100))
			return got.Equal(expected)
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
