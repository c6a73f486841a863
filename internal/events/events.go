// Package events публикует события заказов для внешних потребителей (финансовый учёт, аналитика).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/metrics"
	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// OrderEvent описывает применённый переход заказа.
type OrderEvent struct {
	OrderID    string                     `json:"order_id"`
	Action     string                     `json:"action"`
	Status     model.OrderStatus          `json:"status"`
	Version    int64                      `json:"version"`
	ActorRole  model.Role                 `json:"actor_role"`
	ActorID    string                     `json:"actor_id"`
	Commission *model.CommissionBreakdown `json:"commission,omitempty"`
	Delivery   *DeliveryInfo              `json:"delivery,omitempty"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

// DeliveryInfo описывает курьерское плечо, к которому относится событие.
type DeliveryInfo struct {
	ID        string               `json:"id"`
	CourierID string               `json:"courier_id"`
	Leg       model.DeliveryLeg    `json:"leg"`
	Status    model.DeliveryStatus `json:"status"`
	Version   int64                `json:"version"`
}

// Publisher отправляет события заказов.
type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// NewOrderEvent собирает событие по сохранённому заказу.
func NewOrderEvent(order model.Order, action string, actor model.Actor) OrderEvent {
	return OrderEvent{
		OrderID:    order.ID,
		Action:     action,
		Status:     order.Status,
		Version:    order.Version,
		ActorRole:  actor.Role,
		ActorID:    actor.ID,
		Commission: order.Commission,
		OccurredAt: order.UpdatedAt,
	}
}

// NewDeliveryEvent собирает событие перехода курьерского плеча. Статус и версия берутся из заказа,
// чтобы события одного заказа читались в общей последовательности.
func NewDeliveryEvent(order model.Order, d model.Delivery, action string, actor model.Actor) OrderEvent {
	e := NewOrderEvent(order, action, actor)
	e.Delivery = &DeliveryInfo{
		ID:        d.ID,
		CourierID: d.CourierID,
		Leg:       d.Leg,
		Status:    d.Status,
		Version:   d.Version,
	}
	e.OccurredAt = d.UpdatedAt
	return e
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в топик Kafka с ключом по идентификатору заказа.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher создаёт издателя для указанных брокеров и топика.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Publish сериализует событие и отправляет его синхронно. Ключ сообщения сохраняет порядок
// событий одного заказа внутри партиции.
func (p *KafkaPublisher) Publish(ctx context.Context, e OrderEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: value,
		Time:  e.OccurredAt,
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("write event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues("ok").Inc()
	p.logger.Debug("order event published",
		zap.String("order_id", e.OrderID),
		zap.String("action", e.Action),
		zap.Int64("version", e.Version),
	)
	return nil
}

// Close закрывает соединения с брокером.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher отбрасывает события; используется, когда брокеры не настроены.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// Close ничего не делает.
func (NopPublisher) Close() error { return nil }
