package model

import "time"

// Delivery описывает одно курьерское плечо, привязанное к заказу.
type Delivery struct {
	ID          string
	OrderID     string
	CourierID   string
	Leg         DeliveryLeg
	Status      DeliveryStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
}
