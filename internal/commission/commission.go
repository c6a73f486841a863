// Package commission рассчитывает распределение цены заказа между исполнителем и платформой.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
)

// Calculator рассчитывает комиссию по справочным таблицам.
type Calculator struct {
	tables *pricing.Tables
}

// NewCalculator создаёт калькулятор комиссии поверх указанных таблиц.
func NewCalculator(tables *pricing.Tables) *Calculator {
	return &Calculator{tables: tables}
}

var defaultCalculator = NewCalculator(pricing.Default())

// Compute рассчитывает комиссию по таблицам по умолчанию.
func Compute(price int64, urgency model.Urgency, tier model.ProviderTier) (model.CommissionBreakdown, error) {
	return defaultCalculator.Compute(price, urgency, tier)
}

// Compute рассчитывает комиссию для цены, срочности и уровня исполнителя.
//
// Итоговая ставка = max(floor, base + urgencyFee + tierDiscount); нижняя граница применяется
// после суммирования. Доли исполнителя и платформы округляются независимо друг от друга,
// поэтому их сумма может отличаться от цены на одну единицу.
func (c *Calculator) Compute(price int64, urgency model.Urgency, tier model.ProviderTier) (model.CommissionBreakdown, error) {
	if price < 0 {
		return model.CommissionBreakdown{}, model.InvalidInput("negative price %d", price)
	}

	fee, err := c.tables.UrgencyFee(urgency)
	if err != nil {
		return model.CommissionBreakdown{}, err
	}
	discount, err := c.tables.TierDiscount(tier)
	if err != nil {
		return model.CommissionBreakdown{}, err
	}

	total := decimal.Max(c.tables.CommissionFloor, c.tables.BaseRate.Add(fee).Add(discount))

	p := decimal.NewFromInt(price)
	platform := p.Mul(total).Round(0).IntPart()
	cleaner := p.Mul(decimal.NewFromInt(1).Sub(total)).Round(0).IntPart()

	return model.CommissionBreakdown{
		Price:            price,
		Urgency:          urgency,
		Tier:             tier,
		BaseRate:         c.tables.BaseRate,
		UrgencyFee:       fee,
		TierDiscount:     discount,
		TotalCommission:  total,
		CleanerReceives:  cleaner,
		PlatformReceives: platform,
	}, nil
}
