package commission

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
)

func pricingWithDeepDiscount() *pricing.Tables {
	tables := pricing.Default()
	tables.Tiers[0].Discount = decimal.RequireFromString("-0.20")
	return tables
}

func TestCompute(t *testing.T) {
	type want struct {
		total    string
		fee      string
		discount string
		platform int64
		cleaner  int64
	}

	tests := []struct {
		name    string
		price   int64
		urgency model.Urgency
		tier    model.ProviderTier
		want    want
	}{
		{
			name:    "standard urgency, standard tier",
			price:   5000,
			urgency: model.UrgencyStandard,
			tier:    model.TierStandard,
			want:    want{total: "0.09", fee: "0", discount: "-0.01", platform: 450, cleaner: 4550},
		},
		{
			name:    "express urgency, enterprise tier",
			price:   10000,
			urgency: model.UrgencyExpress,
			tier:    model.TierEnterprise,
			want:    want{total: "0.13", fee: "0.08", discount: "-0.05", platform: 1300, cleaner: 8700},
		},
		{
			name:    "enterprise discount lands exactly on the floor",
			price:   10000,
			urgency: model.UrgencyStandard,
			tier:    model.TierEnterprise,
			want:    want{total: "0.05", fee: "0", discount: "-0.05", platform: 500, cleaner: 9500},
		},
		{
			name:    "urgent new provider",
			price:   2000,
			urgency: model.UrgencyUrgent,
			tier:    model.TierNew,
			want:    want{total: "0.15", fee: "0.05", discount: "0", platform: 300, cleaner: 1700},
		},
		{
			name:    "fast verified provider",
			price:   3333,
			urgency: model.UrgencyFast,
			tier:    model.TierVerified,
			want:    want{total: "0.11", fee: "0.03", discount: "-0.02", platform: 367, cleaner: 2966},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.price, tt.urgency, tt.tier)
			require.NoError(t, err)

			assert.True(t, got.BaseRate.Equal(decimal.RequireFromString("0.10")))
			assert.True(t, got.TotalCommission.Equal(decimal.RequireFromString(tt.want.total)), "total = %s", got.TotalCommission)
			assert.True(t, got.UrgencyFee.Equal(decimal.RequireFromString(tt.want.fee)), "fee = %s", got.UrgencyFee)
			assert.True(t, got.TierDiscount.Equal(decimal.RequireFromString(tt.want.discount)), "discount = %s", got.TierDiscount)
			assert.Equal(t, tt.want.platform, got.PlatformReceives)
			assert.Equal(t, tt.want.cleaner, got.CleanerReceives)
		})
	}
}

func TestComputeFloorHoldsForEveryCombination(t *testing.T) {
	floor := decimal.RequireFromString("0.05")

	for _, u := range model.Urgencies {
		for _, tier := range model.Tiers {
			got, err := Compute(7777, u, tier)
			require.NoError(t, err)
			assert.True(t, got.TotalCommission.GreaterThanOrEqual(floor), "%s/%s: %s", u, tier, got.TotalCommission)

			diff := got.CleanerReceives + got.PlatformReceives - 7777
			assert.LessOrEqual(t, diff, int64(1))
			assert.GreaterOrEqual(t, diff, int64(-1))
		}
	}
}

func TestComputeFloorAppliesAfterSumming(t *testing.T) {
	calc := NewCalculator(pricingWithDeepDiscount())

	got, err := calc.Compute(1000, model.UrgencyStandard, model.TierEnterprise)
	require.NoError(t, err)
	assert.True(t, got.TotalCommission.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, int64(50), got.PlatformReceives)
	assert.Equal(t, int64(950), got.CleanerReceives)
}

func TestComputeZeroPrice(t *testing.T) {
	for _, u := range model.Urgencies {
		for _, tier := range model.Tiers {
			got, err := Compute(0, u, tier)
			require.NoError(t, err)
			assert.Zero(t, got.Price)
			assert.Zero(t, got.PlatformReceives)
			assert.Zero(t, got.CleanerReceives)
		}
	}
}

func TestComputeRoundsSidesIndependently(t *testing.T) {
	// 5 × 0.10 = 0.5 и 5 × 0.90 = 4.5: обе доли округляются вверх.
	got, err := Compute(5, model.UrgencyStandard, model.TierNew)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PlatformReceives)
	assert.Equal(t, int64(5), got.CleanerReceives)
}

func TestComputeInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		price   int64
		urgency model.Urgency
		tier    model.ProviderTier
	}{
		{name: "negative price", price: -1, urgency: model.UrgencyStandard, tier: model.TierNew},
		{name: "unknown urgency", price: 100, urgency: "tomorrow", tier: model.TierNew},
		{name: "unknown tier", price: 100, urgency: model.UrgencyStandard, tier: "gold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.price, tt.urgency, tt.tier)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
