package model

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusNew              OrderStatus = "new"
	OrderStatusOffersReceived   OrderStatus = "offers_received"
	OrderStatusInProgress       OrderStatus = "in_progress"
	OrderStatusAtPartner        OrderStatus = "at_partner"
	OrderStatusPartnerWorking   OrderStatus = "partner_working"
	OrderStatusCourierToPartner OrderStatus = "courier_to_partner"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// DeliveryStatus описывает статус курьерского плеча.
type DeliveryStatus string

const (
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusAccepted  DeliveryStatus = "accepted"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// Terminal сообщает, является ли статус доставки конечным.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

// DeliveryLeg описывает маршрут курьерского плеча.
type DeliveryLeg string

const (
	LegClientToPartner   DeliveryLeg = "client_to_partner"
	LegPartnerToProvider DeliveryLeg = "partner_to_provider"
	LegProviderToClient  DeliveryLeg = "provider_to_client"
	LegPartnerToClient   DeliveryLeg = "partner_to_client"
)

// Valid сообщает, известен ли маршрут.
func (l DeliveryLeg) Valid() bool {
	switch l {
	case LegClientToPartner, LegPartnerToProvider, LegProviderToClient, LegPartnerToClient:
		return true
	}
	return false
}

// Role описывает роль участника сделки.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RolePartner  Role = "partner"
	RoleCourier  Role = "courier"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RolePartner, RoleCourier:
		return true
	}
	return false
}

// Actor идентифицирует участника, выполняющего действие.
type Actor struct {
	Role Role
	ID   string
}
