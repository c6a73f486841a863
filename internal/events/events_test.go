package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	w := &stubWriter{}
	p := &KafkaPublisher{writer: w, logger: zap.NewNop()}

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	provider := "provider-1"
	order := model.Order{
		ID:               "order-1",
		Status:           model.OrderStatusInProgress,
		Version:          3,
		ChosenProviderID: &provider,
		Commission:       &model.CommissionBreakdown{Price: 5000, PlatformReceives: 450, CleanerReceives: 4550},
		UpdatedAt:        at,
	}

	err := p.Publish(context.Background(), NewOrderEvent(order, "accept_offer", model.Actor{Role: model.RoleClient, ID: "client-1"}))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var got OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "accept_offer", got.Action)
	assert.Equal(t, model.OrderStatusInProgress, got.Status)
	assert.Equal(t, int64(3), got.Version)
	require.NotNil(t, got.Commission)
	assert.Equal(t, int64(450), got.Commission.PlatformReceives)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewDeliveryEvent(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	moved := created.Add(time.Hour)
	order := model.Order{ID: "order-1", Status: model.OrderStatusAtPartner, Version: 3, UpdatedAt: created}
	d := model.Delivery{
		ID:        "d-1",
		OrderID:   "order-1",
		CourierID: "courier-1",
		Leg:       model.LegClientToPartner,
		Status:    model.DeliveryStatusPickedUp,
		Version:   3,
		UpdatedAt: moved,
	}

	e := NewDeliveryEvent(order, d, "delivery_pick_up", model.Actor{Role: model.RoleCourier, ID: "courier-1"})

	assert.Equal(t, "order-1", e.OrderID)
	assert.Equal(t, model.OrderStatusAtPartner, e.Status)
	assert.Equal(t, moved, e.OccurredAt)
	require.NotNil(t, e.Delivery)
	assert.Equal(t, DeliveryInfo{ID: "d-1", CourierID: "courier-1", Leg: model.LegClientToPartner, Status: model.DeliveryStatusPickedUp, Version: 3}, *e.Delivery)

	assert.Nil(t, NewOrderEvent(order, "start_work", model.Actor{Role: model.RolePartner, ID: "p"}).Delivery)
}

func TestKafkaPublisherWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &stubWriter{err: errors.New("broker down")}, logger: zap.NewNop()}

	err := p.Publish(context.Background(), OrderEvent{OrderID: "order-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), OrderEvent{}))
	assert.NoError(t, p.Close())
}
