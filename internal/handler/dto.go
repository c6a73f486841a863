package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

func newID() string {
	return uuid.NewString()
}

type errorResponse struct {
	Error string `json:"error"`
}

type orderResponse struct {
	ID               string                     `json:"id"`
	ClientID         string                     `json:"client_id"`
	Category         model.Category             `json:"category"`
	Subcategory      string                     `json:"subcategory,omitempty"`
	PriceOffer       int64                      `json:"price_offer"`
	FinalPrice       int64                      `json:"final_price,omitempty"`
	Urgency          model.Urgency              `json:"urgency"`
	Deadline         string                     `json:"deadline"`
	Status           model.OrderStatus          `json:"status"`
	ChosenProviderID *string                    `json:"chosen_provider_id,omitempty"`
	ChosenOfferID    *string                    `json:"chosen_offer_id,omitempty"`
	PartnerID        *string                    `json:"partner_id,omitempty"`
	CourierID        *string                    `json:"courier_id,omitempty"`
	Commission       *model.CommissionBreakdown `json:"commission,omitempty"`
	Fairness         *model.FairnessEvaluation  `json:"fairness,omitempty"`
	CancelReason     string                     `json:"cancel_reason,omitempty"`
	Version          int64                      `json:"version"`
	CreatedAt        string                     `json:"created_at"`
	UpdatedAt        string                     `json:"updated_at"`
	CompletedAt      string                     `json:"completed_at,omitempty"`
	CancelledAt      string                     `json:"cancelled_at,omitempty"`
}

type offerResponse struct {
	ID            string                    `json:"id"`
	ProviderID    string                    `json:"provider_id"`
	ProposedPrice int64                     `json:"proposed_price"`
	Comment       string                    `json:"comment"`
	ETA           model.ETA                 `json:"eta"`
	Fairness      *model.FairnessEvaluation `json:"fairness,omitempty"`
	CreatedAt     string                    `json:"created_at"`
}

type deliveryResponse struct {
	ID          string               `json:"id"`
	OrderID     string               `json:"order_id"`
	CourierID   string               `json:"courier_id"`
	Leg         model.DeliveryLeg    `json:"leg"`
	Status      model.DeliveryStatus `json:"status"`
	Version     int64                `json:"version"`
	UpdatedAt   string               `json:"updated_at"`
	DeliveredAt string               `json:"delivered_at,omitempty"`
}

type orderDetailsResponse struct {
	Order      orderResponse      `json:"order"`
	Offers     []offerResponse    `json:"offers"`
	Deliveries []deliveryResponse `json:"deliveries"`
	Allowed    []lifecycle.Action `json:"allowed_actions"`
}

type transitionResponse struct {
	Order      orderResponse  `json:"order"`
	Offer      *offerResponse `json:"offer,omitempty"`
	Recomputed bool           `json:"recomputed"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		ClientID:         o.ClientID,
		Category:         o.Category,
		Subcategory:      o.Subcategory,
		PriceOffer:       o.PriceOffer,
		FinalPrice:       o.FinalPrice,
		Urgency:          o.Urgency,
		Deadline:         formatTime(o.Deadline),
		Status:           o.Status,
		ChosenProviderID: o.ChosenProviderID,
		ChosenOfferID:    o.ChosenOfferID,
		PartnerID:        o.PartnerID,
		CourierID:        o.CourierID,
		Commission:       o.Commission,
		Fairness:         o.Fairness,
		CancelReason:     o.CancelReason,
		Version:          o.Version,
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
		CompletedAt:      formatOptionalTime(o.CompletedAt),
		CancelledAt:      formatOptionalTime(o.CancelledAt),
	}
}

func toOfferResponse(o model.Offer) offerResponse {
	return offerResponse{
		ID:            o.ID,
		ProviderID:    o.ProviderID,
		ProposedPrice: o.ProposedPrice,
		Comment:       o.Comment,
		ETA:           o.ETA,
		Fairness:      o.Fairness,
		CreatedAt:     formatTime(o.CreatedAt),
	}
}

func toDeliveryResponse(d model.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:          d.ID,
		OrderID:     d.OrderID,
		CourierID:   d.CourierID,
		Leg:         d.Leg,
		Status:      d.Status,
		Version:     d.Version,
		UpdatedAt:   formatTime(d.UpdatedAt),
		DeliveredAt: formatOptionalTime(d.DeliveredAt),
	}
}

func toDetailsResponse(d service.OrderDetails) orderDetailsResponse {
	resp := orderDetailsResponse{
		Order:      toOrderResponse(d.Order),
		Offers:     make([]offerResponse, 0, len(d.Offers)),
		Deliveries: make([]deliveryResponse, 0, len(d.Deliveries)),
		Allowed:    d.Allowed,
	}
	if resp.Allowed == nil {
		resp.Allowed = []lifecycle.Action{}
	}
	for _, o := range d.Offers {
		resp.Offers = append(resp.Offers, toOfferResponse(o))
	}
	for _, dl := range d.Deliveries {
		resp.Deliveries = append(resp.Deliveries, toDeliveryResponse(dl))
	}
	return resp
}

func toTransitionResponse(res lifecycle.Result) transitionResponse {
	resp := transitionResponse{
		Order:      toOrderResponse(res.Order),
		Recomputed: res.Recomputed,
	}
	if res.Offer != nil {
		offer := toOfferResponse(*res.Offer)
		resp.Offer = &offer
	}
	return resp
}
