// Package service реализует бизнес-логику маркетплейса: загрузку снимков, применение переходов
// машины состояний и сохранение результата с проверкой версии.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/events"
	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/marketfeed"
	"github.com/mmeshcher/taza-marketplace/internal/metrics"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateOrder(ctx context.Context, o model.Order) error
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
	GetOffers(ctx context.Context, orderID string) ([]model.Offer, error)
	SaveOrder(ctx context.Context, ch repository.OrderChange) error
	CreateDelivery(ctx context.Context, d model.Delivery) error
	GetDelivery(ctx context.Context, id string) (model.Delivery, error)
	ListDeliveries(ctx context.Context, orderID string) ([]model.Delivery, error)
	SaveDelivery(ctx context.Context, d model.Delivery, prevVersion int64) error
	GetProviderStats(ctx context.Context, providerID string) (*model.ProviderStats, error)
	GetTrend(ctx context.Context, category model.Category, subcategory string) (model.Trend, error)
	SaveTrends(ctx context.Context, trends []model.MarketTrend) error
}

// TrendFeed описывает источник рыночных трендов.
type TrendFeed interface {
	GetTrends(ctx context.Context, category model.Category) ([]marketfeed.SubcategoryTrend, int, time.Duration, error)
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo      Repository
	machine   *lifecycle.Machine
	publisher events.Publisher
	feed      TrendFeed
	logger    *zap.Logger

	now     func() time.Time
	backoff func() retry.Backoff
}

// NewService создаёт сервис. feed может быть nil, тогда тренды не обновляются.
func NewService(repo Repository, machine *lifecycle.Machine, publisher events.Publisher, feed TrendFeed, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		machine:   machine,
		publisher: publisher,
		feed:      feed,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(5, retry.WithJitter(10*time.Millisecond, retry.NewExponential(20*time.Millisecond)))
		},
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}

// Machine возвращает машину состояний сервиса.
func (s *Service) Machine() *lifecycle.Machine {
	return s.machine
}

// OrderInput описывает запрос клиента на создание заказа.
type OrderInput struct {
	Category    model.Category
	Subcategory string
	PriceOffer  int64
	Urgency     model.Urgency
}

// OrderDetails содержит заказ со всеми предложениями, курьерскими плечами и допустимыми действиями.
type OrderDetails struct {
	Order      model.Order
	Offers     []model.Offer
	Deliveries []model.Delivery
	Allowed    []lifecycle.Action
}

// marketPrice возвращает рыночную цену подкатегории с учётом последнего тренда.
func (s *Service) marketPrice(ctx context.Context, category model.Category, subcategory string) (int64, error) {
	trend, err := s.repo.GetTrend(ctx, category, subcategory)
	if err != nil {
		return 0, err
	}
	entry, err := s.machine.Tables().MarketPrice(category, subcategory, trend)
	if err != nil {
		return 0, err
	}
	return entry.Price, nil
}

// CreateOrder создаёт заказ от имени клиента.
func (s *Service) CreateOrder(ctx context.Context, actor model.Actor, in OrderInput) (model.Order, error) {
	if actor.Role != model.RoleClient {
		return model.Order{}, &model.InvalidTransitionError{Action: "create_order", Reason: fmt.Sprintf("%s may not create orders", actor.Role)}
	}

	market, err := s.marketPrice(ctx, in.Category, in.Subcategory)
	if err != nil {
		return model.Order{}, err
	}

	order, err := s.machine.NewOrder(lifecycle.OrderDraft{
		ID:          uuid.NewString(),
		ClientID:    actor.ID,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		PriceOffer:  in.PriceOffer,
		Urgency:     in.Urgency,
	}, market, s.now())
	if err != nil {
		metrics.RejectionsTotal.WithLabelValues("create_order", reason(err)).Inc()
		return model.Order{}, err
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return model.Order{}, err
	}

	metrics.TransitionsTotal.WithLabelValues("create_order", string(order.Status)).Inc()
	s.publish(ctx, events.NewOrderEvent(order, "create_order", actor))
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("category", string(order.Category)),
		zap.Int64("price_offer", order.PriceOffer),
	)

	return order, nil
}

// GetOrder возвращает заказ с предложениями и курьерскими плечами. role ограничивает список
// допустимых действий; пустая роль означает любую.
func (s *Service) GetOrder(ctx context.Context, id string, role model.Role) (OrderDetails, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}
	offers, err := s.repo.GetOffers(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}
	deliveries, err := s.repo.ListDeliveries(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}

	return OrderDetails{
		Order:      order,
		Offers:     offers,
		Deliveries: deliveries,
		Allowed:    lifecycle.Allowed(order.Status, role),
	}, nil
}

// ListOrders возвращает заказы участника.
func (s *Service) ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, actor)
}

// ListOpenOrders возвращает заказы, на которые исполнитель может отправить предложение.
func (s *Service) ListOpenOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	if actor.Role != model.RoleProvider {
		return nil, &model.InvalidTransitionError{
			Action: string(lifecycle.ActionSubmitOffer),
			Reason: fmt.Sprintf("%s may not browse open orders", actor.Role),
		}
	}
	return s.repo.ListOrdersByStatus(ctx, lifecycle.StatusesFor(lifecycle.ActionSubmitOffer, model.RoleProvider)...)
}

// Apply загружает снимок заказа, применяет действие и сохраняет результат. При конфликте версий
// снимок перечитывается и действие применяется заново; проигравший гонку получает
// InvalidTransition от машины, если статус уже ушёл вперёд.
func (s *Service) Apply(ctx context.Context, orderID string, action lifecycle.Action, actor model.Actor, p lifecycle.Payload) (lifecycle.Result, error) {
	if action == lifecycle.ActionSubmitOffer && p.Offer != nil && p.Offer.ID == "" {
		draft := *p.Offer
		draft.ID = uuid.NewString()
		p.Offer = &draft
	}

	var res lifecycle.Result
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		res, err = s.applyOnce(ctx, orderID, action, actor, p)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			s.logger.Debug("order version conflict, retrying",
				zap.String("order_id", orderID),
				zap.String("action", string(action)),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		metrics.RejectionsTotal.WithLabelValues(string(action), reason(err)).Inc()
		return lifecycle.Result{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(action), string(res.Order.Status)).Inc()
	s.publish(ctx, events.NewOrderEvent(res.Order, string(action), actor))
	s.logger.Info("order transition applied",
		zap.String("order_id", orderID),
		zap.String("action", string(action)),
		zap.String("actor_role", string(actor.Role)),
		zap.String("status", string(res.Order.Status)),
		zap.Int64("version", res.Order.Version),
	)

	return res, nil
}

func (s *Service) applyOnce(ctx context.Context, orderID string, action lifecycle.Action, actor model.Actor, p lifecycle.Payload) (lifecycle.Result, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	offers, err := s.repo.GetOffers(ctx, orderID)
	if err != nil {
		return lifecycle.Result{}, err
	}

	p.Now = s.now()
	if p.MarketPrice == 0 {
		if p.MarketPrice, err = s.marketPrice(ctx, order.Category, order.Subcategory); err != nil {
			return lifecycle.Result{}, err
		}
	}

	if action == lifecycle.ActionAcceptOffer && p.ProviderStats == nil {
		for _, o := range offers {
			if o.ID != p.OfferID {
				continue
			}
			if p.ProviderStats, err = s.repo.GetProviderStats(ctx, o.ProviderID); err != nil {
				return lifecycle.Result{}, err
			}
			break
		}
	}

	res, err := s.machine.Apply(lifecycle.Snapshot{Order: order, Offers: offers}, action, actor, p)
	if err != nil {
		return lifecycle.Result{}, err
	}

	ch := repository.OrderChange{
		Order:       res.Order,
		PrevVersion: order.Version,
		Offer:       res.Offer,
	}
	if res.Order.Status == model.OrderStatusCompleted && res.Order.ChosenProviderID != nil {
		ch.CompletedBy = *res.Order.ChosenProviderID
	}

	if err := s.repo.SaveOrder(ctx, ch); err != nil {
		return lifecycle.Result{}, err
	}

	return res, nil
}

// CreateDelivery назначает курьерское плечо по заказу.
func (s *Service) CreateDelivery(ctx context.Context, orderID string, actor model.Actor, courierID string, leg model.DeliveryLeg) (model.Delivery, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return model.Delivery{}, err
	}

	d, err := s.machine.NewDelivery(order, lifecycle.DeliveryDraft{
		ID:        uuid.NewString(),
		CourierID: courierID,
		Leg:       leg,
	}, actor, s.now())
	if err != nil {
		metrics.RejectionsTotal.WithLabelValues(string(lifecycle.ActionAssignDelivery), reason(err)).Inc()
		return model.Delivery{}, err
	}

	if err := s.repo.CreateDelivery(ctx, d); err != nil {
		return model.Delivery{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionAssignDelivery), string(d.Status)).Inc()
	s.publish(ctx, events.NewDeliveryEvent(order, d, string(lifecycle.ActionAssignDelivery), actor))
	s.logger.Info("delivery assigned",
		zap.String("order_id", orderID),
		zap.String("delivery_id", d.ID),
		zap.String("courier_id", d.CourierID),
		zap.String("leg", string(d.Leg)),
	)

	return d, nil
}

// ApplyDelivery применяет действие к курьерскому плечу с повтором при конфликте версий.
func (s *Service) ApplyDelivery(ctx context.Context, deliveryID string, action lifecycle.DeliveryAction, actor model.Actor) (model.Delivery, error) {
	label := "delivery_" + string(action)

	var (
		res   model.Delivery
		order model.Order
	)
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		d, err := s.repo.GetDelivery(ctx, deliveryID)
		if err != nil {
			return err
		}
		order, err = s.repo.GetOrder(ctx, d.OrderID)
		if err != nil {
			return err
		}

		next, err := s.machine.ApplyDelivery(d, order, action, actor, s.now())
		if err != nil {
			return err
		}

		if err := s.repo.SaveDelivery(ctx, next, d.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				metrics.VersionConflicts.Inc()
				return retry.RetryableError(err)
			}
			return err
		}

		res = next
		return nil
	})
	if err != nil {
		metrics.RejectionsTotal.WithLabelValues(label, reason(err)).Inc()
		return model.Delivery{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(label, string(res.Status)).Inc()
	s.publish(ctx, events.NewDeliveryEvent(order, res, label, actor))
	s.logger.Info("delivery transition applied",
		zap.String("delivery_id", deliveryID),
		zap.String("action", string(action)),
		zap.String("status", string(res.Status)),
	)

	return res, nil
}

func (s *Service) publish(ctx context.Context, e events.OrderEvent) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("order_id", e.OrderID),
			zap.Bool("delivery", e.Delivery != nil),
			zap.String("action", e.Action),
			zap.Error(err),
		)
	}
}

// reason возвращает метку причины отказа для метрик.
func reason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrDuplicateOffer):
		return "conflict"
	case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, repository.ErrDeliveryNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
