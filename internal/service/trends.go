package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/marketfeed"
	"github.com/mmeshcher/taza-marketplace/internal/metrics"
	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// StartTrendUpdates запускает фоновый опрос рыночного фида и блокируется до отмены контекста.
func (s *Service) StartTrendUpdates(ctx context.Context, interval time.Duration) {
	if s.feed == nil {
		return
	}

	s.processTrendBatch(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processTrendBatch(ctx)
		}
	}
}

func (s *Service) processTrendBatch(ctx context.Context) {
	for _, category := range model.Categories {
		resp, statusCode, retryAfter, err := s.feed.GetTrends(ctx, category)
		if err != nil {
			metrics.TrendUpdates.WithLabelValues("error").Inc()
			s.logger.Warn("market feed request failed", zap.String("category", string(category)), zap.Error(err))
			continue
		}

		if statusCode == http.StatusTooManyRequests {
			metrics.TrendUpdates.WithLabelValues("throttled").Inc()
			if retryAfter <= 0 {
				return
			}
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}

		if len(resp) == 0 {
			continue
		}

		trends := s.knownTrends(category, resp)
		if len(trends) == 0 {
			continue
		}
		if err := s.repo.SaveTrends(ctx, trends); err != nil {
			metrics.TrendUpdates.WithLabelValues("error").Inc()
			s.logger.Error("failed to save market trends", zap.String("category", string(category)), zap.Error(err))
			continue
		}
		metrics.TrendUpdates.WithLabelValues("ok").Add(float64(len(trends)))
	}
}

// knownTrends отбрасывает подкатегории и тренды, которых нет в таблицах.
func (s *Service) knownTrends(category model.Category, resp []marketfeed.SubcategoryTrend) []model.MarketTrend {
	tables := s.machine.Tables()
	now := s.now()

	res := make([]model.MarketTrend, 0, len(resp))
	for _, t := range resp {
		if !t.Trend.Valid() {
			continue
		}
		if _, err := tables.SubcategoryPrice(category, t.Subcategory); err != nil {
			continue
		}
		res = append(res, model.MarketTrend{
			Category:    category,
			Subcategory: t.Subcategory,
			Trend:       t.Trend,
			UpdatedAt:   now,
		})
	}
	return res
}
