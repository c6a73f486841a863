package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// GetProviderStats возвращает историю исполнителя или nil, если исполнитель ещё не работал.
func (r *PostgresRepository) GetProviderStats(ctx context.Context, providerID string) (*model.ProviderStats, error) {
	stats := model.ProviderStats{ProviderID: providerID}
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT completed_orders, rating FROM provider_stats WHERE provider_id = $1`,
			providerID,
		).Scan(&stats.CompletedOrders, &stats.Rating)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider stats: %w", err)
	}
	return &stats, nil
}

// UpsertProviderStats записывает историю исполнителя целиком.
func (r *PostgresRepository) UpsertProviderStats(ctx context.Context, stats model.ProviderStats) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO provider_stats (provider_id, completed_orders, rating, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (provider_id) DO UPDATE
		 SET completed_orders = EXCLUDED.completed_orders, rating = EXCLUDED.rating, updated_at = now()`,
		stats.ProviderID, stats.CompletedOrders, stats.Rating,
	)
	if err != nil {
		return fmt.Errorf("upsert provider stats: %w", err)
	}
	return nil
}

// GetTrend возвращает тренд подкатегории; при отсутствии данных тренд стабильный.
func (r *PostgresRepository) GetTrend(ctx context.Context, category model.Category, subcategory string) (model.Trend, error) {
	var trend model.Trend
	err := r.pool.QueryRow(ctx,
		`SELECT trend FROM market_trends WHERE category = $1 AND subcategory = $2`,
		category, subcategory,
	).Scan(&trend)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TrendStable, nil
		}
		return "", fmt.Errorf("get trend: %w", err)
	}
	return trend, nil
}

// SaveTrends обновляет тренды пачкой.
func (r *PostgresRepository) SaveTrends(ctx context.Context, trends []model.MarketTrend) error {
	if len(trends) == 0 {
		return nil
	}

	return r.withRetry(ctx, func() error {
		batch := &pgx.Batch{}
		for _, t := range trends {
			batch.Queue(
				`INSERT INTO market_trends (category, subcategory, trend, updated_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (category, subcategory) DO UPDATE
				 SET trend = EXCLUDED.trend, updated_at = EXCLUDED.updated_at`,
				t.Category, t.Subcategory, t.Trend, t.UpdatedAt,
			)
		}

		if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save trends: %w", err)
		}
		return nil
	})
}
