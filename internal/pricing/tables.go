// Package pricing содержит справочные таблицы цен, комиссий, уровней и полос справедливости.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// Unbounded обозначает открытую верхнюю границу диапазона индекса.
const Unbounded int64 = math.MaxInt64

// UrgencyRule описывает надбавку к комиссии и срок выполнения для уровня срочности.
type UrgencyRule struct {
	Urgency  model.Urgency
	Fee      decimal.Decimal
	Deadline time.Duration
}

// TierRule описывает порог уровня исполнителя и скидку на комиссию.
type TierRule struct {
	Tier      model.ProviderTier
	MinOrders int
	MinRating float64
	Discount  decimal.Decimal
}

// BandRange описывает полосу справедливости на диапазоне индекса [Min, Max] включительно.
type BandRange struct {
	Min  int64
	Max  int64
	Band model.FairnessBand
}

// LevelRange описывает уровень индекса на диапазоне [Min, Max] включительно.
type LevelRange struct {
	Min        int64
	Max        int64
	Level      model.IndexLevel
	Protection bool
}

// CategoryRule описывает среднюю цену и множитель категории.
type CategoryRule struct {
	Category      model.Category
	AveragePrice  int64
	Multiplier    decimal.Decimal
	Subcategories []SubcategoryPrice
}

// SubcategoryPrice описывает базовую цену подкатегории.
type SubcategoryPrice struct {
	Name  string
	Price int64
}

// TrendRule описывает множитель рыночного тренда.
type TrendRule struct {
	Trend      model.Trend
	Multiplier decimal.Decimal
}

// Tables объединяет все справочные таблицы. Значения только читаются.
type Tables struct {
	BaseRate        decimal.Decimal
	CommissionFloor decimal.Decimal
	MinMarketPrice  int64

	Categories []CategoryRule
	Trends     []TrendRule
	Urgencies  []UrgencyRule

	// Tiers упорядочены от высшего уровня к низшему.
	Tiers []TierRule

	// FairnessBands и IndexLevels упорядочены по возрастанию индекса.
	FairnessBands []BandRange
	IndexLevels   []LevelRange

	DefaultBand  model.FairnessBand
	DefaultLevel model.IndexLevel
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Default возвращает справочные таблицы, используемые сервисом.
func Default() *Tables {
	return &Tables{
		BaseRate:        d("0.10"),
		CommissionFloor: d("0.05"),
		MinMarketPrice:  500,

		Categories: []CategoryRule{
			{
				Category: model.CategoryClothing, AveragePrice: 3000, Multiplier: d("1.00"),
				Subcategories: []SubcategoryPrice{
					{"shirt", 1500}, {"dress", 3500}, {"suit", 4500}, {"coat", 5000}, {"down_jacket", 6000},
				},
			},
			{
				Category: model.CategoryFurniture, AveragePrice: 8000, Multiplier: d("1.10"),
				Subcategories: []SubcategoryPrice{
					{"chair", 1500}, {"armchair", 5000}, {"mattress", 7000}, {"sofa", 9000},
				},
			},
			{
				Category: model.CategoryShoes, AveragePrice: 2500, Multiplier: d("1.00"),
				Subcategories: []SubcategoryPrice{
					{"sneakers", 2500}, {"leather_boots", 3500}, {"suede", 4000},
				},
			},
			{
				Category: model.CategoryCarpets, AveragePrice: 6000, Multiplier: d("1.05"),
				Subcategories: []SubcategoryPrice{
					{"synthetic", 4000}, {"wool", 7000}, {"silk", 12000},
				},
			},
			{
				Category: model.CategoryCleaning, AveragePrice: 10000, Multiplier: d("1.00"),
				Subcategories: []SubcategoryPrice{
					{"windows", 4000}, {"apartment", 10000}, {"office", 15000}, {"after_renovation", 18000},
				},
			},
			{
				Category: model.CategoryStrollers, AveragePrice: 4000, Multiplier: d("0.95"),
				Subcategories: []SubcategoryPrice{
					{"car_seat", 3000}, {"stroller", 4000},
				},
			},
		},

		Trends: []TrendRule{
			{model.TrendUp, d("1.04")},
			{model.TrendDown, d("0.94")},
			{model.TrendStable, d("1.00")},
		},

		Urgencies: []UrgencyRule{
			{model.UrgencyStandard, d("0"), 72 * time.Hour},
			{model.UrgencyFast, d("0.03"), 8 * time.Hour},
			{model.UrgencyUrgent, d("0.05"), 2 * time.Hour},
			{model.UrgencyExpress, d("0.08"), time.Hour},
		},

		Tiers: []TierRule{
			{model.TierEnterprise, 1000, 4.8, d("-0.05")},
			{model.TierPremium, 200, 4.7, d("-0.03")},
			{model.TierVerified, 50, 4.5, d("-0.02")},
			{model.TierStandard, 10, 4.0, d("-0.01")},
			{model.TierNew, 0, 0, d("0")},
		},

		FairnessBands: []BandRange{
			{0, 60, model.BandTooLow},
			{61, 85, model.BandBelowMarket},
			{86, 115, model.BandMarket},
			{116, 130, model.BandAboveMarket},
			{131, Unbounded, model.BandVIP},
		},
		IndexLevels: []LevelRange{
			{0, 49, model.LevelEconomy, false},
			{50, 79, model.LevelStandard, false},
			{80, 109, model.LevelOptimal, false},
			{110, Unbounded, model.LevelPremium, true},
		},

		DefaultBand:  model.BandMarket,
		DefaultLevel: model.LevelOptimal,
	}
}
