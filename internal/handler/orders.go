package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

type createOrderRequest struct {
	Category    model.Category `json:"category" validate:"enum"`
	Subcategory string         `json:"subcategory"`
	PriceOffer  int64          `json:"price_offer" validate:"gte=0"`
	Urgency     model.Urgency  `json:"urgency" validate:"enum"`
}

// CreateOrder создаёт заказ текущего клиента.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), a, service.OrderInput{
		Category:    req.Category,
		Subcategory: req.Subcategory,
		PriceOffer:  req.PriceOffer,
		Urgency:     req.Urgency,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// ListOrders возвращает заказы текущего участника. С параметром open=1 исполнитель получает
// заказы, ещё открытые для предложений.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	list := h.service.ListOrders
	if open, _ := strconv.ParseBool(r.URL.Query().Get("open")); open {
		list = h.service.ListOpenOrders
	}

	orders, err := list(r.Context(), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ с предложениями, курьерскими плечами и действиями текущей роли.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.service.GetOrder(r.Context(), id, a.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailsResponse(details))
}

// GetActions возвращает действия, допустимые в текущем статусе для любой роли.
func (h *Handler) GetActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.service.GetOrder(r.Context(), id, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	allowed := details.Allowed
	if allowed == nil {
		allowed = []lifecycle.Action{}
	}
	writeJSON(w, http.StatusOK, struct {
		Status  model.OrderStatus  `json:"status"`
		Allowed []lifecycle.Action `json:"allowed_actions"`
	}{Status: details.Order.Status, Allowed: allowed})
}

type offerRequest struct {
	ProposedPrice int64     `json:"proposed_price"`
	Comment       string    `json:"comment"`
	ETA           model.ETA `json:"eta"`
}

type acceptRequest struct {
	OfferID   string `json:"offer_id" validate:"required"`
	PartnerID string `json:"partner_id,omitempty"`
}

type courierRequest struct {
	CourierID string `json:"courier_id" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// transition разбирает тело запроса в payload и применяет действие к заказу из пути.
func (h *Handler) transition(action lifecycle.Action, payload func(r *http.Request) (lifecycle.Payload, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		p, err := payload(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		res, err := h.service.Apply(r.Context(), id, action, a, p)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		status := http.StatusOK
		if res.Offer != nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, toTransitionResponse(res))
	}
}

func noPayload(*http.Request) (lifecycle.Payload, error) {
	return lifecycle.Payload{}, nil
}

func offerPayload(r *http.Request) (lifecycle.Payload, error) {
	var req offerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return lifecycle.Payload{}, err
	}
	return lifecycle.Payload{Offer: &lifecycle.OfferDraft{
		ProposedPrice: req.ProposedPrice,
		Comment:       req.Comment,
		ETA:           req.ETA,
	}}, nil
}

func acceptPayload(r *http.Request) (lifecycle.Payload, error) {
	var req acceptRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return lifecycle.Payload{}, err
	}
	return lifecycle.Payload{OfferID: req.OfferID, PartnerID: req.PartnerID}, nil
}

func courierPayload(r *http.Request) (lifecycle.Payload, error) {
	var req courierRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return lifecycle.Payload{}, err
	}
	return lifecycle.Payload{CourierID: req.CourierID}, nil
}

func cancelPayload(r *http.Request) (lifecycle.Payload, error) {
	var req cancelRequest
	if err := decodeJSON(r, &req, true); err != nil {
		return lifecycle.Payload{}, err
	}
	return lifecycle.Payload{Reason: req.Reason}, nil
}

type deliveryRequest struct {
	CourierID string            `json:"courier_id" validate:"required"`
	Leg       model.DeliveryLeg `json:"leg" validate:"enum"`
}

// CreateDelivery назначает курьера на плечо доставки заказа.
func (h *Handler) CreateDelivery(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req deliveryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	d, err := h.service.CreateDelivery(r.Context(), id, a, req.CourierID, req.Leg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeliveryResponse(d))
}

var deliveryActions = map[string]lifecycle.DeliveryAction{
	"accept":  lifecycle.DeliveryAccept,
	"pickup":  lifecycle.DeliveryPickUp,
	"transit": lifecycle.DeliveryTransit,
	"deliver": lifecycle.DeliveryDeliver,
	"cancel":  lifecycle.DeliveryCancel,
}

// ApplyDelivery применяет действие курьера к плечу доставки.
func (h *Handler) ApplyDelivery(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	action, ok := deliveryActions[chi.URLParam(r, "action")]
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	d, err := h.service.ApplyDelivery(r.Context(), id, action, a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeliveryResponse(d))
}
