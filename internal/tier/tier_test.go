package tier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		orders int
		rating float64
		want   model.ProviderTier
	}{
		{name: "fresh provider", orders: 0, rating: 0, want: model.TierNew},
		{name: "many orders but low rating", orders: 5000, rating: 3.9, want: model.TierNew},
		{name: "standard threshold exactly", orders: 10, rating: 4.0, want: model.TierStandard},
		{name: "verified threshold exactly", orders: 50, rating: 4.5, want: model.TierVerified},
		{name: "premium orders with verified rating", orders: 300, rating: 4.6, want: model.TierVerified},
		{name: "premium threshold exactly", orders: 200, rating: 4.7, want: model.TierPremium},
		{name: "enterprise rating but premium orders", orders: 999, rating: 5.0, want: model.TierPremium},
		{name: "enterprise threshold exactly", orders: 1000, rating: 4.8, want: model.TierEnterprise},
		{name: "one order short of standard", orders: 9, rating: 5.0, want: model.TierNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.orders, tt.rating)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyMonotonic(t *testing.T) {
	orders := []int{0, 5, 10, 49, 50, 199, 200, 999, 1000, 5000}
	ratings := []float64{0, 3.9, 4.0, 4.4, 4.5, 4.69, 4.7, 4.79, 4.8, 5.0}

	for i, o := range orders {
		for j, r := range ratings {
			base, err := Classify(o, r)
			require.NoError(t, err)

			if i+1 < len(orders) {
				more, err := Classify(orders[i+1], r)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, more.Rank(), base.Rank(), "orders %d -> %d at rating %v", o, orders[i+1], r)
			}
			if j+1 < len(ratings) {
				better, err := Classify(o, ratings[j+1])
				require.NoError(t, err)
				assert.GreaterOrEqual(t, better.Rank(), base.Rank(), "rating %v -> %v at orders %d", r, ratings[j+1], o)
			}
		}
	}
}

func TestClassifyInvalidInput(t *testing.T) {
	_, err := Classify(-1, 4.5)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = Classify(10, 5.1)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = Classify(10, -0.1)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = Classify(5000, math.NaN())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
