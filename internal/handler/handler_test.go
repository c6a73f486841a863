package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/commission"
	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/middleware"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/repository"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

const (
	orderID    = "5b0c7d8e-8f5e-4f0a-9d7c-1a2b3c4d5e6f"
	clientID   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	providerID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

var stubNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type applyCall struct {
	orderID string
	action  lifecycle.Action
	actor   model.Actor
	payload lifecycle.Payload
}

type stubService struct {
	order    model.Order
	orders   []model.Order
	open     []model.Order
	details  service.OrderDetails
	result   lifecycle.Result
	delivery model.Delivery
	tier     service.TierQuote
	err      error

	createInput service.OrderInput
	applyCalls  []applyCall
	deliveryAct lifecycle.DeliveryAction
	detailsRole model.Role
}

func (s *stubService) CreateOrder(_ context.Context, _ model.Actor, in service.OrderInput) (model.Order, error) {
	s.createInput = in
	return s.order, s.err
}

func (s *stubService) GetOrder(_ context.Context, _ string, role model.Role) (service.OrderDetails, error) {
	s.detailsRole = role
	return s.details, s.err
}

func (s *stubService) ListOrders(context.Context, model.Actor) ([]model.Order, error) {
	return s.orders, s.err
}

func (s *stubService) ListOpenOrders(_ context.Context, a model.Actor) ([]model.Order, error) {
	if a.Role != model.RoleProvider {
		return nil, &model.InvalidTransitionError{Action: string(lifecycle.ActionSubmitOffer)}
	}
	return s.open, s.err
}

func (s *stubService) Apply(_ context.Context, id string, action lifecycle.Action, actor model.Actor, p lifecycle.Payload) (lifecycle.Result, error) {
	s.applyCalls = append(s.applyCalls, applyCall{orderID: id, action: action, actor: actor, payload: p})
	return s.result, s.err
}

func (s *stubService) CreateDelivery(context.Context, string, model.Actor, string, model.DeliveryLeg) (model.Delivery, error) {
	return s.delivery, s.err
}

func (s *stubService) ApplyDelivery(_ context.Context, _ string, action lifecycle.DeliveryAction, _ model.Actor) (model.Delivery, error) {
	s.deliveryAct = action
	return s.delivery, s.err
}

func (s *stubService) QuoteCommission(price int64, urgency model.Urgency, tier model.ProviderTier) (model.CommissionBreakdown, error) {
	return commission.Compute(price, urgency, tier)
}

func (s *stubService) QuoteFairness(context.Context, model.Category, string, int64) (model.FairnessEvaluation, error) {
	return model.FairnessEvaluation{Index: 100, Band: model.BandMarket}, s.err
}

func (s *stubService) QuoteIndex(model.Category, int64) (model.IndexEvaluation, error) {
	return model.IndexEvaluation{Index: 120, Level: model.LevelPremium, ProtectionEnabled: true}, s.err
}

func (s *stubService) MarketPrices(context.Context, model.Category) ([]model.MarketPriceEntry, error) {
	return []model.MarketPriceEntry{{Category: model.CategoryShoes, Subcategory: "suede", Price: 4000}}, s.err
}

func (s *stubService) ProviderTier(context.Context, string) (service.TierQuote, error) {
	return s.tier, s.err
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()
	return NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"))
}

func sampleOrder() model.Order {
	return model.Order{
		ID:         orderID,
		ClientID:   clientID,
		Category:   model.CategoryClothing,
		PriceOffer: 3000,
		Urgency:    model.UrgencyFast,
		Deadline:   stubNow.Add(8 * time.Hour),
		Status:     model.OrderStatusNew,
		Version:    1,
		CreatedAt:  stubNow,
		UpdatedAt:  stubNow,
	}
}

// do выполняет запрос через роутер; actor == nil означает анонимный запрос.
func do(t *testing.T, h *Handler, method, target, body string, a *model.Actor) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if a != nil {
		rec := httptest.NewRecorder()
		h.authMiddleware.SetActorCookie(rec, *a)
		req.AddCookie(rec.Result().Cookies()[0])
	}

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestCreateSession(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := do(t, h, http.MethodPost, "/api/session", `{"role":"provider","id":"`+providerID+`"}`, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Cookies())

	var body sessionResponse
	decode(t, res, &body)
	assert.Equal(t, model.RoleProvider, body.Role)
	assert.Equal(t, providerID, body.ID)

	res = do(t, h, http.MethodPost, "/api/session", `{"role":"courier"}`, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	decode(t, res, &body)
	assert.NotEmpty(t, body.ID)

	res = do(t, h, http.MethodPost, "/api/session", `{"role":"admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, h, http.MethodPost, "/api/session", `{"role":"client","id":"not-a-uuid"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateOrder(t *testing.T) {
	client := model.Actor{Role: model.RoleClient, ID: clientID}

	tests := []struct {
		name       string
		body       string
		actor      *model.Actor
		err        error
		wantStatus int
	}{
		{
			name:       "created",
			body:       `{"category":"clothing","subcategory":"suit","price_offer":3000,"urgency":"fast"}`,
			actor:      &client,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "anonymous",
			body:       `{"category":"clothing","price_offer":3000,"urgency":"fast"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown category",
			body:       `{"category":"boats","price_offer":3000,"urgency":"fast"}`,
			actor:      &client,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative price",
			body:       `{"category":"shoes","price_offer":-1,"urgency":"fast"}`,
			actor:      &client,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"category":`,
			actor:      &client,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "provider may not create orders",
			body:       `{"category":"shoes","price_offer":100,"urgency":"fast"}`,
			actor:      &model.Actor{Role: model.RoleProvider, ID: providerID},
			err:        &model.InvalidTransitionError{Action: "create_order"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "storage failure",
			body:       `{"category":"shoes","price_offer":100,"urgency":"fast"}`,
			actor:      &client,
			err:        fmt.Errorf("insert order: %w", context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{order: sampleOrder(), err: tt.err}
			h := newTestHandler(t, svc)

			res := do(t, h, http.MethodPost, "/api/orders", tt.body, tt.actor)
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatus, res.StatusCode)

			if tt.wantStatus == http.StatusCreated {
				var body orderResponse
				decode(t, res, &body)
				assert.Equal(t, orderID, body.ID)
				assert.Equal(t, model.OrderStatusNew, body.Status)
				assert.Equal(t, "suit", svc.createInput.Subcategory)
			}
		})
	}
}

func TestListOrders(t *testing.T) {
	client := model.Actor{Role: model.RoleClient, ID: clientID}

	h := newTestHandler(t, &stubService{})
	res := do(t, h, http.MethodGet, "/api/orders", "", &client)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	h = newTestHandler(t, &stubService{orders: []model.Order{sampleOrder()}})
	res = do(t, h, http.MethodGet, "/api/orders", "", &client)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var body []orderResponse
	decode(t, res, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "2026-03-01T20:00:00Z", body[0].Deadline)
}

func TestListOpenOrders(t *testing.T) {
	provider := model.Actor{Role: model.RoleProvider, ID: providerID}
	open := sampleOrder()
	mine := sampleOrder()
	mine.ID = clientID
	h := newTestHandler(t, &stubService{orders: []model.Order{mine}, open: []model.Order{open}})

	tests := []struct {
		name       string
		target     string
		actor      model.Actor
		wantStatus int
		wantID     string
	}{
		{name: "open orders for provider", target: "/api/orders?open=1", actor: provider, wantStatus: http.StatusOK, wantID: orderID},
		{name: "open=true is accepted", target: "/api/orders?open=true", actor: provider, wantStatus: http.StatusOK, wantID: orderID},
		{name: "own orders without flag", target: "/api/orders", actor: provider, wantStatus: http.StatusOK, wantID: clientID},
		{name: "client may not browse", target: "/api/orders?open=1", actor: model.Actor{Role: model.RoleClient, ID: clientID}, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, h, http.MethodGet, tt.target, "", &tt.actor)
			defer res.Body.Close()
			require.Equal(t, tt.wantStatus, res.StatusCode)

			if tt.wantID != "" {
				var body []orderResponse
				decode(t, res, &body)
				require.Len(t, body, 1)
				assert.Equal(t, tt.wantID, body[0].ID)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	provider := model.Actor{Role: model.RoleProvider, ID: providerID}
	svc := &stubService{details: service.OrderDetails{
		Order:   sampleOrder(),
		Offers:  []model.Offer{{ID: "o1", ProviderID: providerID, ProposedPrice: 3100, ETA: model.ETASameDay, CreatedAt: stubNow}},
		Allowed: lifecycle.Allowed(model.OrderStatusNew, model.RoleProvider),
	}}
	h := newTestHandler(t, svc)

	res := do(t, h, http.MethodGet, "/api/orders/"+orderID, "", &provider)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body orderDetailsResponse
	decode(t, res, &body)
	assert.Equal(t, orderID, body.Order.ID)
	require.Len(t, body.Offers, 1)
	assert.Empty(t, body.Deliveries)
	assert.ElementsMatch(t, []lifecycle.Action{lifecycle.ActionSubmitOffer, lifecycle.ActionCancel}, body.Allowed)
	assert.Equal(t, model.RoleProvider, svc.detailsRole)

	res = do(t, h, http.MethodGet, "/api/orders/42", "", &provider)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	svc.err = fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
	res = do(t, h, http.MethodGet, "/api/orders/"+orderID, "", &provider)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetActions(t *testing.T) {
	client := model.Actor{Role: model.RoleClient, ID: clientID}
	order := sampleOrder()
	order.Status = model.OrderStatusCompleted
	svc := &stubService{details: service.OrderDetails{Order: order}}
	h := newTestHandler(t, svc)

	res := do(t, h, http.MethodGet, "/api/orders/"+orderID+"/actions", "", &client)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Status  model.OrderStatus  `json:"status"`
		Allowed []lifecycle.Action `json:"allowed_actions"`
	}
	decode(t, res, &body)
	assert.Equal(t, model.OrderStatusCompleted, body.Status)
	assert.NotNil(t, body.Allowed)
	assert.Empty(t, body.Allowed)
	assert.Equal(t, model.Role(""), svc.detailsRole)
}

func TestTransitions(t *testing.T) {
	client := model.Actor{Role: model.RoleClient, ID: clientID}
	provider := model.Actor{Role: model.RoleProvider, ID: providerID}

	tests := []struct {
		name        string
		path        string
		body        string
		actor       model.Actor
		wantAction  lifecycle.Action
		wantStatus  int
		checkParams func(t *testing.T, p lifecycle.Payload)
	}{
		{
			name:       "submit offer",
			path:       "/offers",
			body:       `{"proposed_price":3200,"comment":"pickup tonight","eta":"next_day"}`,
			actor:      provider,
			wantAction: lifecycle.ActionSubmitOffer,
			wantStatus: http.StatusOK,
			checkParams: func(t *testing.T, p lifecycle.Payload) {
				require.NotNil(t, p.Offer)
				assert.Equal(t, int64(3200), p.Offer.ProposedPrice)
				assert.Equal(t, model.ETANextDay, p.Offer.ETA)
			},
		},
		{
			name:       "accept via partner",
			path:       "/accept",
			body:       `{"offer_id":"offer-1","partner_id":"partner-9"}`,
			actor:      client,
			wantAction: lifecycle.ActionAcceptOffer,
			wantStatus: http.StatusOK,
			checkParams: func(t *testing.T, p lifecycle.Payload) {
				assert.Equal(t, "offer-1", p.OfferID)
				assert.Equal(t, "partner-9", p.PartnerID)
			},
		},
		{
			name:       "start work",
			path:       "/start",
			actor:      model.Actor{Role: model.RolePartner, ID: providerID},
			wantAction: lifecycle.ActionStartWork,
			wantStatus: http.StatusOK,
		},
		{
			name:       "request courier",
			path:       "/courier",
			body:       `{"courier_id":"courier-3"}`,
			actor:      model.Actor{Role: model.RolePartner, ID: providerID},
			wantAction: lifecycle.ActionRequestCourier,
			wantStatus: http.StatusOK,
			checkParams: func(t *testing.T, p lifecycle.Payload) {
				assert.Equal(t, "courier-3", p.CourierID)
			},
		},
		{
			name:       "complete",
			path:       "/complete",
			actor:      provider,
			wantAction: lifecycle.ActionComplete,
			wantStatus: http.StatusOK,
		},
		{
			name:       "cancel without body",
			path:       "/cancel",
			actor:      client,
			wantAction: lifecycle.ActionCancel,
			wantStatus: http.StatusOK,
		},
		{
			name:       "cancel with reason",
			path:       "/cancel",
			body:       `{"reason":"plans changed"}`,
			actor:      client,
			wantAction: lifecycle.ActionCancel,
			wantStatus: http.StatusOK,
			checkParams: func(t *testing.T, p lifecycle.Payload) {
				assert.Equal(t, "plans changed", p.Reason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{result: lifecycle.Result{Order: sampleOrder()}}
			h := newTestHandler(t, svc)

			res := do(t, h, http.MethodPost, "/api/orders/"+orderID+tt.path, tt.body, &tt.actor)
			defer res.Body.Close()
			require.Equal(t, tt.wantStatus, res.StatusCode)

			require.Len(t, svc.applyCalls, 1)
			call := svc.applyCalls[0]
			assert.Equal(t, orderID, call.orderID)
			assert.Equal(t, tt.wantAction, call.action)
			assert.Equal(t, tt.actor, call.actor)
			if tt.checkParams != nil {
				tt.checkParams(t, call.payload)
			}
		})
	}
}

func TestTransitionErrors(t *testing.T) {
	client := model.Actor{Role: model.RoleClient, ID: clientID}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "invalid transition", body: `{"offer_id":"o1"}`, err: &model.InvalidTransitionError{Status: "new", Action: "accept_offer"}, wantStatus: http.StatusConflict},
		{name: "duplicate offer", body: `{"offer_id":"o1"}`, err: repository.ErrDuplicateOffer, wantStatus: http.StatusConflict},
		{name: "exhausted conflicts", body: `{"offer_id":"o1"}`, err: repository.ErrVersionConflict, wantStatus: http.StatusConflict},
		{name: "missing offer id", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "not found", body: `{"offer_id":"o1"}`, err: repository.ErrOrderNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{err: tt.err})

			res := do(t, h, http.MethodPost, "/api/orders/"+orderID+"/accept", tt.body, &client)
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatus, res.StatusCode)
		})
	}
}

func TestSubmitOfferReturnsCreated(t *testing.T) {
	provider := model.Actor{Role: model.RoleProvider, ID: providerID}
	offer := model.Offer{ID: "offer-1", ProviderID: providerID, ProposedPrice: 3100, ETA: model.ETATwoHours, CreatedAt: stubNow}
	h := newTestHandler(t, &stubService{result: lifecycle.Result{Order: sampleOrder(), Offer: &offer}})

	res := do(t, h, http.MethodPost, "/api/orders/"+orderID+"/offers", `{"proposed_price":3100,"comment":"fast","eta":"2h"}`, &provider)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body transitionResponse
	decode(t, res, &body)
	require.NotNil(t, body.Offer)
	assert.Equal(t, "offer-1", body.Offer.ID)
}

func TestDeliveries(t *testing.T) {
	courier := model.Actor{Role: model.RoleCourier, ID: providerID}
	delivered := stubNow
	svc := &stubService{delivery: model.Delivery{
		ID:          orderID,
		OrderID:     orderID,
		CourierID:   providerID,
		Leg:         model.LegPartnerToClient,
		Status:      model.DeliveryStatusDelivered,
		Version:     5,
		UpdatedAt:   stubNow,
		DeliveredAt: &delivered,
	}}
	h := newTestHandler(t, svc)

	res := do(t, h, http.MethodPost, "/api/orders/"+orderID+"/deliveries", `{"courier_id":"`+providerID+`","leg":"partner_to_client"}`, &model.Actor{Role: model.RoleClient, ID: clientID})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = do(t, h, http.MethodPost, "/api/orders/"+orderID+"/deliveries", `{"courier_id":"x","leg":"by_air"}`, &model.Actor{Role: model.RoleClient, ID: clientID})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, h, http.MethodPost, "/api/deliveries/"+orderID+"/pickup", "", &courier)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, lifecycle.DeliveryPickUp, svc.deliveryAct)

	var body deliveryResponse
	decode(t, res, &body)
	assert.Equal(t, model.DeliveryStatusDelivered, body.Status)
	assert.Equal(t, "2026-03-01T12:00:00Z", body.DeliveredAt)

	res = do(t, h, http.MethodPost, "/api/deliveries/"+orderID+"/teleport", "", &courier)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestQuotes(t *testing.T) {
	h := newTestHandler(t, &stubService{tier: service.TierQuote{
		Stats: model.ProviderStats{ProviderID: providerID, CompletedOrders: 250, Rating: 4.75},
		Tier:  model.TierPremium,
	}})

	res := do(t, h, http.MethodGet, "/api/quotes/commission?price=5000&urgency=standard&tier=standard", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var c model.CommissionBreakdown
	decode(t, res, &c)
	assert.Equal(t, int64(450), c.PlatformReceives)
	assert.Equal(t, int64(4550), c.CleanerReceives)

	res = do(t, h, http.MethodGet, "/api/quotes/commission?price=abc&urgency=standard", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, h, http.MethodGet, "/api/quotes/commission?price=-5&urgency=standard", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, h, http.MethodGet, "/api/quotes/fairness?category=shoes&subcategory=suede&price=4000", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, h, http.MethodGet, "/api/quotes/index?category=cleaning&price=12000", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var idx model.IndexEvaluation
	decode(t, res, &idx)
	assert.True(t, idx.ProtectionEnabled)

	res = do(t, h, http.MethodGet, "/api/market/shoes", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var prices []model.MarketPriceEntry
	decode(t, res, &prices)
	require.Len(t, prices, 1)

	res = do(t, h, http.MethodGet, "/api/providers/"+providerID+"/tier", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tier service.TierQuote
	decode(t, res, &tier)
	assert.Equal(t, model.TierPremium, tier.Tier)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
