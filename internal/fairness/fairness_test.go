package fairness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
)

func TestEvaluateFairnessBands(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		ref   int64
		index int64
		band  model.FairnessBand
	}{
		{name: "free", price: 0, ref: 1000, index: 0, band: model.BandTooLow},
		{name: "upper edge of too low", price: 600, ref: 1000, index: 60, band: model.BandTooLow},
		{name: "lower edge of below market", price: 610, ref: 1000, index: 61, band: model.BandBelowMarket},
		{name: "upper edge of below market", price: 850, ref: 1000, index: 85, band: model.BandBelowMarket},
		{name: "lower edge of market", price: 860, ref: 1000, index: 86, band: model.BandMarket},
		{name: "upper edge of market", price: 1150, ref: 1000, index: 115, band: model.BandMarket},
		{name: "lower edge of above market", price: 1160, ref: 1000, index: 116, band: model.BandAboveMarket},
		{name: "upper edge of above market", price: 1300, ref: 1000, index: 130, band: model.BandAboveMarket},
		{name: "vip", price: 1310, ref: 1000, index: 131, band: model.BandVIP},
		{name: "far above market", price: 100000, ref: 1000, index: 10000, band: model.BandVIP},
		{name: "index rounds half away from zero", price: 1010, ref: 2000, index: 51, band: model.BandTooLow},
		{name: "zero reference treated as one", price: 2, ref: 0, index: 200, band: model.BandVIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateFairness(tt.price, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.index, got.Index)
			assert.Equal(t, tt.band, got.Band)
			assert.Equal(t, tt.ref, got.RecommendedPrice)
		})
	}
}

func TestEvaluateSaturatesHugePrices(t *testing.T) {
	got, err := EvaluateFairness(100_000_000_000_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, pricing.Unbounded, got.Index)
	assert.Equal(t, model.BandVIP, got.Band)
	assert.Equal(t, pricing.Unbounded, got.DeltaPercent)

	got, err = EvaluateFairness(math.MaxInt64, 0)
	require.NoError(t, err)
	assert.Equal(t, pricing.Unbounded, got.Index)
	assert.Equal(t, model.BandVIP, got.Band)

	idx, err := EvaluateIndex(math.MaxInt64, 10)
	require.NoError(t, err)
	assert.Equal(t, pricing.Unbounded, idx.Index)
	assert.Equal(t, model.LevelPremium, idx.Level)
	assert.True(t, idx.ProtectionEnabled)
}

func TestPercentOfBounds(t *testing.T) {
	assert.Equal(t, int64(math.MinInt64), percentOf(math.MinInt64, 1))
	assert.Equal(t, int64(-100), percentOf(-1000, 1000))
	assert.Equal(t, int64(922337203685477581), percentOf(math.MaxInt64, 1000))
}

func TestEvaluateFairnessAtMarketPrice(t *testing.T) {
	for _, ref := range []int64{1, 500, 3000, 12345, 99999} {
		got, err := EvaluateFairness(ref, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.Index)
		assert.Equal(t, model.BandMarket, got.Band)
		assert.Zero(t, got.Delta)
		assert.Zero(t, got.DeltaPercent)
	}
}

func TestEvaluateFairnessDelta(t *testing.T) {
	got, err := EvaluateFairness(2500, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), got.Delta)
	assert.Equal(t, int64(-17), got.DeltaPercent)
	assert.Equal(t, int64(3000), got.RecommendedPrice)
}

func TestEvaluateIndex(t *testing.T) {
	tests := []struct {
		name       string
		price      int64
		avg        int64
		level      model.IndexLevel
		protection bool
	}{
		{name: "economy", price: 490, avg: 1000, level: model.LevelEconomy},
		{name: "standard lower edge", price: 500, avg: 1000, level: model.LevelStandard},
		{name: "standard upper edge", price: 790, avg: 1000, level: model.LevelStandard},
		{name: "optimal at average", price: 1000, avg: 1000, level: model.LevelOptimal},
		{name: "optimal upper edge", price: 1090, avg: 1000, level: model.LevelOptimal},
		{name: "premium lower edge", price: 1100, avg: 1000, level: model.LevelPremium, protection: true},
		{name: "premium at 115", price: 1150, avg: 1000, level: model.LevelPremium, protection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateIndex(tt.price, tt.avg)
			require.NoError(t, err)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.protection, got.ProtectionEnabled)
		})
	}
}

func TestMissingBandFallsBackToDefault(t *testing.T) {
	tables := pricing.Default()
	tables.FairnessBands = tables.FairnessBands[:2]
	tables.IndexLevels = tables.IndexLevels[:1]
	engine := NewEngine(tables)

	fair, err := engine.EvaluateFairness(1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.BandMarket, fair.Band)

	idx, err := engine.EvaluateIndex(1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, model.LevelOptimal, idx.Level)
	assert.False(t, idx.ProtectionEnabled)
}

func TestEvaluateNegativeInput(t *testing.T) {
	_, err := EvaluateFairness(-1, 100)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = EvaluateIndex(100, -5)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
