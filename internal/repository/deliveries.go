package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

const deliveryColumns = `id, order_id, courier_id, leg, status, version, created_at, updated_at, delivered_at`

func scanDelivery(row pgx.Row) (model.Delivery, error) {
	var d model.Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.CourierID, &d.Leg, &d.Status, &d.Version, &d.CreatedAt, &d.UpdatedAt, &d.DeliveredAt)
	return d, err
}

// CreateDelivery сохраняет новое курьерское плечо.
func (r *PostgresRepository) CreateDelivery(ctx context.Context, d model.Delivery) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO deliveries (`+deliveryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			d.ID, d.OrderID, d.CourierID, d.Leg, d.Status, d.Version, d.CreatedAt, d.UpdatedAt, d.DeliveredAt,
		)
		if err != nil {
			return fmt.Errorf("insert delivery: %w", err)
		}
		return nil
	})
}

// GetDelivery возвращает курьерское плечо по идентификатору.
func (r *PostgresRepository) GetDelivery(ctx context.Context, id string) (model.Delivery, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Delivery{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
		}
		return model.Delivery{}, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// ListDeliveries возвращает курьерские плечи заказа в порядке назначения.
func (r *PostgresRepository) ListDeliveries(ctx context.Context, orderID string) ([]model.Delivery, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select deliveries: %w", err)
	}
	defer rows.Close()

	var res []model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SaveDelivery сохраняет переход курьерского плеча с проверкой версии.
func (r *PostgresRepository) SaveDelivery(ctx context.Context, d model.Delivery, prevVersion int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE deliveries SET status = $3, version = $4, updated_at = $5, delivered_at = $6
		 WHERE id = $1 AND version = $2`,
		d.ID, prevVersion, d.Status, d.Version, d.UpdatedAt, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delivery %s at version %d", ErrVersionConflict, d.ID, prevVersion)
	}
	return nil
}
