package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

const orderColumns = `id, client_id, category, subcategory, price_offer, final_price, urgency, deadline,
	status, chosen_provider_id, chosen_offer_id, partner_id, courier_id, commission, fairness,
	cancel_reason, version, created_at, updated_at, completed_at, cancelled_at`

// OrderChange описывает результат одного перехода заказа, сохраняемый атомарно.
type OrderChange struct {
	Order model.Order
	// PrevVersion: версия, прочитанная до перехода.
	PrevVersion int64
	// Offer: новое предложение, если переход его создал.
	Offer *model.Offer
	// CompletedBy: исполнитель, которому засчитывается завершённый заказ.
	CompletedBy string
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.ClientID, &o.Category, &o.Subcategory, &o.PriceOffer, &o.FinalPrice, &o.Urgency, &o.Deadline,
		&o.Status, &o.ChosenProviderID, &o.ChosenOfferID, &o.PartnerID, &o.CourierID, &o.Commission, &o.Fairness,
		&o.CancelReason, &o.Version, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CancelledAt,
	)
	return o, err
}

// CreateOrder сохраняет новый заказ.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO orders (`+orderColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			o.ID, o.ClientID, o.Category, o.Subcategory, o.PriceOffer, o.FinalPrice, o.Urgency, o.Deadline,
			o.Status, o.ChosenProviderID, o.ChosenOfferID, o.PartnerID, o.CourierID, o.Commission, o.Fairness,
			o.CancelReason, o.Version, o.CreatedAt, o.UpdatedAt, o.CompletedAt, o.CancelledAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		o, err = scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает заказы, в которых участник выступает в своей роли, от новых к старым.
func (r *PostgresRepository) ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	var column string
	switch actor.Role {
	case model.RoleClient:
		column = "client_id"
	case model.RoleProvider:
		column = "chosen_provider_id"
	case model.RolePartner:
		column = "partner_id"
	case model.RoleCourier:
		column = "courier_id"
	default:
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, actor.Role)
	}

	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1 ORDER BY created_at DESC`,
		actor.ID,
	)
}

// ListOrdersByStatus возвращает заказы в указанных статусах, от старых к новым.
func (r *PostgresRepository) ListOrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY created_at`,
		names,
	)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetOffers возвращает предложения по заказу в порядке поступления.
func (r *PostgresRepository) GetOffers(ctx context.Context, orderID string) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, provider_id, proposed_price, comment, eta, fairness, created_at
		 FROM offers
		 WHERE order_id = $1
		 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.OrderID, &o.ProviderID, &o.ProposedPrice, &o.Comment, &o.ETA, &o.Fairness, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return offers, nil
}

// SaveOrder сохраняет переход заказа в одной транзакции: заказ с проверкой версии, новое
// предложение и счётчик завершённых заказов исполнителя.
func (r *PostgresRepository) SaveOrder(ctx context.Context, ch OrderChange) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	o := ch.Order
	cmdTag, err := tx.Exec(ctx,
		`UPDATE orders SET
			final_price = $3, status = $4, chosen_provider_id = $5, chosen_offer_id = $6, partner_id = $7,
			courier_id = $8, commission = $9, fairness = $10, cancel_reason = $11, version = $12,
			updated_at = $13, completed_at = $14, cancelled_at = $15
		 WHERE id = $1 AND version = $2`,
		o.ID, ch.PrevVersion,
		o.FinalPrice, o.Status, o.ChosenProviderID, o.ChosenOfferID, o.PartnerID,
		o.CourierID, o.Commission, o.Fairness, o.CancelReason, o.Version,
		o.UpdatedAt, o.CompletedAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, o.ID)
		}
		return fmt.Errorf("%w: order %s at version %d", ErrVersionConflict, o.ID, ch.PrevVersion)
	}

	if of := ch.Offer; of != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO offers (id, order_id, provider_id, proposed_price, comment, eta, fairness, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			of.ID, of.OrderID, of.ProviderID, of.ProposedPrice, of.Comment, of.ETA, of.Fairness, of.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateOffer, of.ProviderID)
			}
			return fmt.Errorf("insert offer: %w", err)
		}
	}

	if ch.CompletedBy != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO provider_stats (provider_id, completed_orders, updated_at)
			 VALUES ($1, 1, $2)
			 ON CONFLICT (provider_id) DO UPDATE
			 SET completed_orders = provider_stats.completed_orders + 1, updated_at = EXCLUDED.updated_at`,
			ch.CompletedBy, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("increment provider stats: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
