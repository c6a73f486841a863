package lifecycle

import (
	"fmt"
	"time"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/validation"
)

// DeliveryDraft описывает назначение курьера на плечо доставки.
type DeliveryDraft struct {
	ID        string            `validate:"required"`
	CourierID string            `validate:"required"`
	Leg       model.DeliveryLeg `validate:"enum"`
}

func invalidDelivery(status model.DeliveryStatus, action DeliveryAction, reason string) error {
	return &model.InvalidTransitionError{Status: string(status), Action: "delivery_" + string(action), Reason: reason}
}

// NewDelivery назначает курьерское плечо по незавершённому заказу. Назначать может клиент,
// выбранный исполнитель или партнёр заказа.
func (m *Machine) NewDelivery(order model.Order, d DeliveryDraft, actor model.Actor, now time.Time) (model.Delivery, error) {
	if order.Status.Terminal() {
		return model.Delivery{}, invalid(order.Status, ActionAssignDelivery, "order is closed")
	}
	if !participates(order, actor) {
		return model.Delivery{}, invalid(order.Status, ActionAssignDelivery, fmt.Sprintf("%s %s is not an order participant", actor.Role, actor.ID))
	}
	if err := validation.Struct(d); err != nil {
		return model.Delivery{}, err
	}

	return model.Delivery{
		ID:        d.ID,
		OrderID:   order.ID,
		CourierID: d.CourierID,
		Leg:       d.Leg,
		Status:    model.DeliveryStatusAssigned,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func participates(order model.Order, actor model.Actor) bool {
	switch actor.Role {
	case model.RoleClient:
		return actor.ID != "" && actor.ID == order.ClientID
	case model.RoleProvider:
		return is(order.ChosenProviderID, actor.ID)
	case model.RolePartner:
		return is(order.PartnerID, actor.ID)
	}
	return false
}

// ApplyDelivery применяет действие к курьерскому плечу. Продвигать плечо может только
// назначенный курьер; отменить может курьер или клиент заказа.
func (m *Machine) ApplyDelivery(d model.Delivery, order model.Order, action DeliveryAction, actor model.Actor, now time.Time) (model.Delivery, error) {
	if !action.Valid() {
		return model.Delivery{}, model.InvalidInput("unknown delivery action %q", action)
	}
	t, ok := findDeliveryTransition(d.Status, action)
	if !ok {
		return model.Delivery{}, invalidDelivery(d.Status, action, "not allowed")
	}
	if d.OrderID != order.ID {
		return model.Delivery{}, model.InvalidInput("delivery %s does not belong to order %s", d.ID, order.ID)
	}

	switch {
	case actor.Role == model.RoleCourier && actor.ID == d.CourierID:
	case action == DeliveryCancel && actor.Role == model.RoleClient && actor.ID == order.ClientID:
	default:
		return model.Delivery{}, invalidDelivery(d.Status, action, fmt.Sprintf("%s %s may not act on this delivery", actor.Role, actor.ID))
	}

	next := d
	next.Status = t.To
	next.Version = d.Version + 1
	next.UpdatedAt = now
	if t.To == model.DeliveryStatusDelivered {
		next.DeliveredAt = ptr(now)
	}
	return next, nil
}
