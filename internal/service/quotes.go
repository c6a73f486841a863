package service

import (
	"context"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// TierQuote описывает текущий уровень исполнителя и его историю.
type TierQuote struct {
	Stats model.ProviderStats `json:"stats"`
	Tier  model.ProviderTier  `json:"tier"`
}

// QuoteCommission рассчитывает комиссию без привязки к заказу.
func (s *Service) QuoteCommission(price int64, urgency model.Urgency, tier model.ProviderTier) (model.CommissionBreakdown, error) {
	return s.machine.Commission().Compute(price, urgency, tier)
}

// QuoteFairness оценивает цену относительно текущей рыночной цены подкатегории.
func (s *Service) QuoteFairness(ctx context.Context, category model.Category, subcategory string, price int64) (model.FairnessEvaluation, error) {
	market, err := s.marketPrice(ctx, category, subcategory)
	if err != nil {
		return model.FairnessEvaluation{}, err
	}
	return s.machine.Fairness().EvaluateFairness(price, market)
}

// QuoteIndex рассчитывает ценовой индекс относительно средней цены категории.
func (s *Service) QuoteIndex(category model.Category, price int64) (model.IndexEvaluation, error) {
	average, err := s.machine.Tables().AveragePrice(category)
	if err != nil {
		return model.IndexEvaluation{}, err
	}
	return s.machine.Fairness().EvaluateIndex(price, average)
}

// MarketPrices возвращает рыночные цены всех подкатегорий категории с учётом трендов.
func (s *Service) MarketPrices(ctx context.Context, category model.Category) ([]model.MarketPriceEntry, error) {
	tables := s.machine.Tables()
	if _, err := tables.AveragePrice(category); err != nil {
		return nil, err
	}

	subs := tables.Subcategories(category)
	res := make([]model.MarketPriceEntry, 0, len(subs))
	for _, sub := range subs {
		trend, err := s.repo.GetTrend(ctx, category, sub)
		if err != nil {
			return nil, err
		}
		entry, err := tables.MarketPrice(category, sub, trend)
		if err != nil {
			return nil, err
		}
		res = append(res, entry)
	}
	return res, nil
}

// ProviderTier возвращает уровень исполнителя по его истории. Исполнитель без истории получает new.
func (s *Service) ProviderTier(ctx context.Context, providerID string) (TierQuote, error) {
	stats, err := s.repo.GetProviderStats(ctx, providerID)
	if err != nil {
		return TierQuote{}, err
	}
	if stats == nil {
		stats = &model.ProviderStats{ProviderID: providerID}
	}

	tier, err := s.machine.Tiers().ClassifyStats(*stats)
	if err != nil {
		return TierQuote{}, err
	}
	return TierQuote{Stats: *stats, Tier: tier}, nil
}
