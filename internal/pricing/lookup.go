package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

func (t *Tables) category(c model.Category) (CategoryRule, bool) {
	for _, rule := range t.Categories {
		if rule.Category == c {
			return rule, true
		}
	}
	return CategoryRule{}, false
}

// AveragePrice возвращает среднюю цену категории.
func (t *Tables) AveragePrice(c model.Category) (int64, error) {
	rule, ok := t.category(c)
	if !ok {
		return 0, model.InvalidInput("unknown category %q", c)
	}
	return rule.AveragePrice, nil
}

// SubcategoryPrice возвращает базовую цену подкатегории. Пустая подкатегория означает среднюю цену категории.
func (t *Tables) SubcategoryPrice(c model.Category, sub string) (int64, error) {
	rule, ok := t.category(c)
	if !ok {
		return 0, model.InvalidInput("unknown category %q", c)
	}
	if sub == "" {
		return rule.AveragePrice, nil
	}
	for _, s := range rule.Subcategories {
		if s.Name == sub {
			return s.Price, nil
		}
	}
	return 0, model.InvalidInput("unknown subcategory %q in %s", sub, c)
}

// Subcategories возвращает названия подкатегорий категории в табличном порядке.
func (t *Tables) Subcategories(c model.Category) []string {
	rule, ok := t.category(c)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(rule.Subcategories))
	for _, s := range rule.Subcategories {
		names = append(names, s.Name)
	}
	return names
}

// TrendMultiplier возвращает множитель тренда.
func (t *Tables) TrendMultiplier(tr model.Trend) (decimal.Decimal, error) {
	for _, rule := range t.Trends {
		if rule.Trend == tr {
			return rule.Multiplier, nil
		}
	}
	return decimal.Zero, model.InvalidInput("unknown trend %q", tr)
}

// MarketPrice рассчитывает рыночную цену подкатегории: база × множитель категории × множитель тренда,
// с нижней границей MinMarketPrice.
func (t *Tables) MarketPrice(c model.Category, sub string, tr model.Trend) (model.MarketPriceEntry, error) {
	if tr == "" {
		tr = model.TrendStable
	}

	base, err := t.SubcategoryPrice(c, sub)
	if err != nil {
		return model.MarketPriceEntry{}, err
	}
	rule, _ := t.category(c)

	trendMul, err := t.TrendMultiplier(tr)
	if err != nil {
		return model.MarketPriceEntry{}, err
	}

	price := decimal.NewFromInt(base).Mul(rule.Multiplier).Mul(trendMul).Round(0).IntPart()
	if price < t.MinMarketPrice {
		price = t.MinMarketPrice
	}

	return model.MarketPriceEntry{
		Category:           c,
		Subcategory:        sub,
		BasePrice:          base,
		CategoryMultiplier: rule.Multiplier,
		Trend:              tr,
		TrendMultiplier:    trendMul,
		Price:              price,
	}, nil
}

// UrgencyFee возвращает надбавку к комиссии за срочность.
func (t *Tables) UrgencyFee(u model.Urgency) (decimal.Decimal, error) {
	for _, rule := range t.Urgencies {
		if rule.Urgency == u {
			return rule.Fee, nil
		}
	}
	return decimal.Zero, model.InvalidInput("unknown urgency %q", u)
}

// Deadline возвращает срок выполнения для уровня срочности.
func (t *Tables) Deadline(u model.Urgency) (time.Duration, error) {
	for _, rule := range t.Urgencies {
		if rule.Urgency == u {
			return rule.Deadline, nil
		}
	}
	return 0, model.InvalidInput("unknown urgency %q", u)
}

// TierDiscount возвращает скидку на комиссию для уровня исполнителя (отрицательное число или ноль).
func (t *Tables) TierDiscount(tier model.ProviderTier) (decimal.Decimal, error) {
	for _, rule := range t.Tiers {
		if rule.Tier == tier {
			return rule.Discount, nil
		}
	}
	return decimal.Zero, model.InvalidInput("unknown tier %q", tier)
}

// Band возвращает полосу справедливости, содержащую индекс.
func (t *Tables) Band(index int64) (model.FairnessBand, bool) {
	for _, b := range t.FairnessBands {
		if index >= b.Min && index <= b.Max {
			return b.Band, true
		}
	}
	return "", false
}

// Level возвращает уровень индекса, содержащий значение.
func (t *Tables) Level(index int64) (LevelRange, bool) {
	for _, l := range t.IndexLevels {
		if index >= l.Min && index <= l.Max {
			return l, true
		}
	}
	return LevelRange{}, false
}
