// Package lifecycle реализует машину состояний заказа и курьерских плеч.
//
// Машина чистая: она принимает снимок состояния, действие и участника и возвращает новый снимок
// или ошибку, не изменяя входные данные. Хранением и повторами занимается вызывающий.
package lifecycle

import "github.com/mmeshcher/taza-marketplace/internal/model"

// Action описывает действие над заказом.
type Action string

const (
	ActionSubmitOffer    Action = "submit_offer"
	ActionAcceptOffer    Action = "accept_offer"
	ActionStartWork      Action = "start_work"
	ActionRequestCourier Action = "request_courier"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"

	// ActionAssignDelivery не меняет статус заказа; используется в ошибках назначения курьера.
	ActionAssignDelivery Action = "assign_delivery"
)

// Valid сообщает, есть ли действие в таблице переходов заказа.
func (a Action) Valid() bool {
	switch a {
	case ActionSubmitOffer, ActionAcceptOffer, ActionStartWork, ActionRequestCourier, ActionComplete, ActionCancel:
		return true
	}
	return false
}

// DeliveryAction описывает действие над курьерским плечом.
type DeliveryAction string

const (
	DeliveryAccept  DeliveryAction = "accept"
	DeliveryPickUp  DeliveryAction = "pick_up"
	DeliveryTransit DeliveryAction = "transit"
	DeliveryDeliver DeliveryAction = "deliver"
	DeliveryCancel  DeliveryAction = "cancel"
)

// Valid сообщает, известно ли действие над курьерским плечом.
func (a DeliveryAction) Valid() bool {
	switch a {
	case DeliveryAccept, DeliveryPickUp, DeliveryTransit, DeliveryDeliver, DeliveryCancel:
		return true
	}
	return false
}

type transition struct {
	From   model.OrderStatus
	Action Action
	Role   model.Role
	To     model.OrderStatus
}

// nonTerminal перечисляет статусы, из которых заказ можно отменить.
var nonTerminal = []model.OrderStatus{
	model.OrderStatusNew,
	model.OrderStatusOffersReceived,
	model.OrderStatusInProgress,
	model.OrderStatusAtPartner,
	model.OrderStatusPartnerWorking,
	model.OrderStatusCourierToPartner,
}

// orderTransitions содержит полную таблицу переходов заказа. Для accept_offer в партнёрском потоке
// целевой статус заменяется на at_partner.
var orderTransitions = append([]transition{
	{model.OrderStatusNew, ActionSubmitOffer, model.RoleProvider, model.OrderStatusOffersReceived},
	{model.OrderStatusOffersReceived, ActionSubmitOffer, model.RoleProvider, model.OrderStatusOffersReceived},
	{model.OrderStatusOffersReceived, ActionAcceptOffer, model.RoleClient, model.OrderStatusInProgress},
	{model.OrderStatusAtPartner, ActionStartWork, model.RolePartner, model.OrderStatusPartnerWorking},
	{model.OrderStatusPartnerWorking, ActionRequestCourier, model.RolePartner, model.OrderStatusCourierToPartner},
	{model.OrderStatusInProgress, ActionComplete, model.RoleProvider, model.OrderStatusCompleted},
	{model.OrderStatusPartnerWorking, ActionComplete, model.RolePartner, model.OrderStatusCompleted},
	{model.OrderStatusCourierToPartner, ActionComplete, model.RolePartner, model.OrderStatusCompleted},
	{model.OrderStatusCourierToPartner, ActionComplete, model.RoleCourier, model.OrderStatusCompleted},
}, cancelTransitions()...)

func cancelTransitions() []transition {
	res := make([]transition, 0, 2*len(nonTerminal))
	for _, s := range nonTerminal {
		res = append(res,
			transition{s, ActionCancel, model.RoleClient, model.OrderStatusCancelled},
			transition{s, ActionCancel, model.RoleProvider, model.OrderStatusCancelled},
		)
	}
	return res
}

func findTransition(from model.OrderStatus, action Action, role model.Role) (transition, bool) {
	for _, t := range orderTransitions {
		if t.From == from && t.Action == action && t.Role == role {
			return t, true
		}
	}
	return transition{}, false
}

// Allowed возвращает действия, допустимые в статусе для роли. Пустая роль означает любую роль.
func Allowed(status model.OrderStatus, role model.Role) []Action {
	var res []Action
	seen := make(map[Action]struct{})
	for _, t := range orderTransitions {
		if t.From != status || (role != "" && t.Role != role) {
			continue
		}
		if _, ok := seen[t.Action]; ok {
			continue
		}
		seen[t.Action] = struct{}{}
		res = append(res, t.Action)
	}
	return res
}

// StatusesFor возвращает статусы, из которых роль может выполнить действие.
func StatusesFor(action Action, role model.Role) []model.OrderStatus {
	var res []model.OrderStatus
	seen := make(map[model.OrderStatus]struct{})
	for _, t := range orderTransitions {
		if t.Action != action || t.Role != role {
			continue
		}
		if _, ok := seen[t.From]; ok {
			continue
		}
		seen[t.From] = struct{}{}
		res = append(res, t.From)
	}
	return res
}

type deliveryTransition struct {
	From   model.DeliveryStatus
	Action DeliveryAction
	To     model.DeliveryStatus
}

var deliveryTransitions = []deliveryTransition{
	{model.DeliveryStatusAssigned, DeliveryAccept, model.DeliveryStatusAccepted},
	{model.DeliveryStatusAccepted, DeliveryPickUp, model.DeliveryStatusPickedUp},
	{model.DeliveryStatusPickedUp, DeliveryTransit, model.DeliveryStatusInTransit},
	{model.DeliveryStatusInTransit, DeliveryDeliver, model.DeliveryStatusDelivered},
	{model.DeliveryStatusAssigned, DeliveryCancel, model.DeliveryStatusCancelled},
	{model.DeliveryStatusAccepted, DeliveryCancel, model.DeliveryStatusCancelled},
	{model.DeliveryStatusPickedUp, DeliveryCancel, model.DeliveryStatusCancelled},
	{model.DeliveryStatusInTransit, DeliveryCancel, model.DeliveryStatusCancelled},
}

func findDeliveryTransition(from model.DeliveryStatus, action DeliveryAction) (deliveryTransition, bool) {
	for _, t := range deliveryTransitions {
		if t.From == from && t.Action == action {
			return t, true
		}
	}
	return deliveryTransition{}, false
}
