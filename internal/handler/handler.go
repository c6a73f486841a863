// Package handler содержит HTTP-обработчики API маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/middleware"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/repository"
	"github.com/mmeshcher/taza-marketplace/internal/service"
	"github.com/mmeshcher/taza-marketplace/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOrder(ctx context.Context, actor model.Actor, in service.OrderInput) (model.Order, error)
	GetOrder(ctx context.Context, id string, role model.Role) (service.OrderDetails, error)
	ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error)
	ListOpenOrders(ctx context.Context, actor model.Actor) ([]model.Order, error)
	Apply(ctx context.Context, orderID string, action lifecycle.Action, actor model.Actor, p lifecycle.Payload) (lifecycle.Result, error)
	CreateDelivery(ctx context.Context, orderID string, actor model.Actor, courierID string, leg model.DeliveryLeg) (model.Delivery, error)
	ApplyDelivery(ctx context.Context, deliveryID string, action lifecycle.DeliveryAction, actor model.Actor) (model.Delivery, error)
	QuoteCommission(price int64, urgency model.Urgency, tier model.ProviderTier) (model.CommissionBreakdown, error)
	QuoteFairness(ctx context.Context, category model.Category, subcategory string, price int64) (model.FairnessEvaluation, error)
	QuoteIndex(category model.Category, price int64) (model.IndexEvaluation, error)
	MarketPrices(ctx context.Context, category model.Category) ([]model.MarketPriceEntry, error)
	ProviderTier(ctx context.Context, providerID string) (service.TierQuote, error)
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON читает тело запроса в v. Пустое тело допустимо, если allowEmpty.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return model.InvalidInput("malformed json: %v", err)
	}
	return validation.Struct(v)
}

// writeError переводит доменную ошибку в HTTP-статус.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, repository.ErrDeliveryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicateOffer),
		errors.Is(err, repository.ErrVersionConflict):
		status = http.StatusConflict
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// actor возвращает участника из контекста; если его нет, отвечает 401.
func actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return a, ok
}

// pathID возвращает параметр пути, если это корректный UUID; иначе отвечает 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !validation.IsValidID(id) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return "", false
	}
	return id, true
}

type sessionRequest struct {
	Role model.Role `json:"role" validate:"enum"`
	ID   string     `json:"id,omitempty" validate:"omitempty,uuid"`
}

type sessionResponse struct {
	Role model.Role `json:"role"`
	ID   string     `json:"id"`
}

// CreateSession выдаёт подписанный cookie участника. Без идентификатора создаётся новый участник.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.ID == "" {
		req.ID = newID()
	}

	a := model.Actor{Role: req.Role, ID: req.ID}
	h.authMiddleware.SetActorCookie(w, a)
	writeJSON(w, http.StatusOK, sessionResponse{Role: a.Role, ID: a.ID})
}
