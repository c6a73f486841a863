// Package model содержит доменные сущности маркетплейса химчистки.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category описывает категорию заказа.
type Category string

const (
	CategoryClothing  Category = "clothing"
	CategoryFurniture Category = "furniture"
	CategoryShoes     Category = "shoes"
	CategoryCarpets   Category = "carpets"
	CategoryCleaning  Category = "cleaning"
	CategoryStrollers Category = "strollers"
)

// Categories перечисляет все категории в фиксированном порядке.
var Categories = []Category{
	CategoryClothing,
	CategoryFurniture,
	CategoryShoes,
	CategoryCarpets,
	CategoryCleaning,
	CategoryStrollers,
}

// Valid сообщает, входит ли категория в закрытый список.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Urgency описывает срочность заказа.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyFast     Urgency = "fast"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyExpress  Urgency = "express"
)

// Urgencies перечисляет все уровни срочности.
var Urgencies = []Urgency{UrgencyStandard, UrgencyFast, UrgencyUrgent, UrgencyExpress}

// Valid сообщает, известен ли уровень срочности.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyStandard, UrgencyFast, UrgencyUrgent, UrgencyExpress:
		return true
	}
	return false
}

// ProviderTier описывает уровень исполнителя, от которого зависит скидка на комиссию.
type ProviderTier string

const (
	TierNew        ProviderTier = "new"
	TierStandard   ProviderTier = "standard"
	TierVerified   ProviderTier = "verified"
	TierPremium    ProviderTier = "premium"
	TierEnterprise ProviderTier = "enterprise"
)

// Tiers перечисляет уровни по возрастанию.
var Tiers = []ProviderTier{TierNew, TierStandard, TierVerified, TierPremium, TierEnterprise}

// Rank возвращает порядковый номер уровня (new=0 ... enterprise=4) или -1 для неизвестного.
func (t ProviderTier) Rank() int {
	for i, v := range Tiers {
		if v == t {
			return i
		}
	}
	return -1
}

// Valid сообщает, известен ли уровень.
func (t ProviderTier) Valid() bool {
	return t.Rank() >= 0
}

// Trend описывает направление рыночной цены подкатегории.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Valid сообщает, известен ли тренд.
func (t Trend) Valid() bool {
	return t == TrendUp || t == TrendDown || t == TrendStable
}

// ETA описывает срок выполнения, предложенный исполнителем.
type ETA string

const (
	ETATwoHours  ETA = "2h"
	ETAFourHours ETA = "4h"
	ETASameDay   ETA = "same_day"
	ETANextDay   ETA = "next_day"
	ETAThreeDays ETA = "3_days"
)

// Valid сообщает, входит ли срок в допустимый набор.
func (e ETA) Valid() bool {
	switch e {
	case ETATwoHours, ETAFourHours, ETASameDay, ETANextDay, ETAThreeDays:
		return true
	}
	return false
}

// Order описывает заказ клиента и производные от него денежные данные.
type Order struct {
	ID               string
	ClientID         string
	Category         Category
	Subcategory      string
	PriceOffer       int64
	FinalPrice       int64
	Urgency          Urgency
	Deadline         time.Time
	Status           OrderStatus
	ChosenProviderID *string
	ChosenOfferID    *string
	PartnerID        *string
	CourierID        *string
	Commission       *CommissionBreakdown
	Fairness         *FairnessEvaluation
	CancelReason     string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
}

// EffectivePrice возвращает цену принятого предложения, а до выбора исполнителя цену клиента.
func (o Order) EffectivePrice() int64 {
	if o.ChosenProviderID != nil {
		return o.FinalPrice
	}
	return o.PriceOffer
}

// Offer описывает ставку исполнителя по заказу.
type Offer struct {
	ID            string
	OrderID       string
	ProviderID    string
	ProposedPrice int64
	Comment       string
	ETA           ETA
	Fairness      *FairnessEvaluation
	CreatedAt     time.Time
}

// CommissionBreakdown содержит распределение цены заказа между исполнителем и платформой.
type CommissionBreakdown struct {
	Price            int64           `json:"price"`
	Urgency          Urgency         `json:"urgency"`
	Tier             ProviderTier    `json:"tier"`
	BaseRate         decimal.Decimal `json:"base_rate"`
	UrgencyFee       decimal.Decimal `json:"urgency_fee"`
	TierDiscount     decimal.Decimal `json:"tier_discount"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	CleanerReceives  int64           `json:"cleaner_receives"`
	PlatformReceives int64           `json:"platform_receives"`
}

// ProviderStats содержит историю работы исполнителя, из которой выводится его уровень.
type ProviderStats struct {
	ProviderID      string  `json:"provider_id"`
	CompletedOrders int     `json:"completed_orders"`
	Rating          float64 `json:"rating"`
}

// FairnessBand описывает полосу справедливости цены.
type FairnessBand string

const (
	BandTooLow      FairnessBand = "too_low"
	BandBelowMarket FairnessBand = "below_market"
	BandMarket      FairnessBand = "market"
	BandAboveMarket FairnessBand = "above_market"
	BandVIP         FairnessBand = "vip"
)

// FairnessEvaluation описывает оценку цены относительно рыночной.
type FairnessEvaluation struct {
	Index            int64        `json:"index"`
	Band             FairnessBand `json:"band"`
	Delta            int64        `json:"delta"`
	DeltaPercent     int64        `json:"delta_percent"`
	ReferencePrice   int64        `json:"reference_price"`
	RecommendedPrice int64        `json:"recommended_price"`
}

// IndexLevel описывает уровень ценового индекса.
type IndexLevel string

const (
	LevelEconomy  IndexLevel = "economy"
	LevelStandard IndexLevel = "standard"
	LevelOptimal  IndexLevel = "optimal"
	LevelPremium  IndexLevel = "premium"
)

// IndexEvaluation описывает грубую оценку цены по четырём уровням.
type IndexEvaluation struct {
	Index             int64      `json:"index"`
	Level             IndexLevel `json:"level"`
	ProtectionEnabled bool       `json:"protection_enabled"`
}

// MarketPriceEntry описывает рыночную цену подкатегории с учётом множителей.
type MarketPriceEntry struct {
	Category           Category        `json:"category"`
	Subcategory        string          `json:"subcategory,omitempty"`
	BasePrice          int64           `json:"base_price"`
	CategoryMultiplier decimal.Decimal `json:"category_multiplier"`
	Trend              Trend           `json:"trend"`
	TrendMultiplier    decimal.Decimal `json:"trend_multiplier"`
	Price              int64           `json:"price"`
}

// MarketTrend хранит последний известный тренд подкатегории из рыночного фида.
type MarketTrend struct {
	Category    Category  `json:"category"`
	Subcategory string    `json:"subcategory"`
	Trend       Trend     `json:"trend"`
	UpdatedAt   time.Time `json:"updated_at"`
}
