package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	custommiddleware "github.com/mmeshcher/taza-marketplace/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.CreateSession)

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/commission", h.QuoteCommission)
			r.Get("/fairness", h.QuoteFairness)
			r.Get("/index", h.QuoteIndex)
		})
		r.Get("/market/{category}", h.MarketPrices)
		r.Get("/providers/{id}/tier", h.ProviderTier)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)

			r.Route("/orders/{id}", func(r chi.Router) {
				r.Get("/", h.GetOrder)
				r.Get("/actions", h.GetActions)
				r.Post("/offers", h.transition(lifecycle.ActionSubmitOffer, offerPayload))
				r.Post("/accept", h.transition(lifecycle.ActionAcceptOffer, acceptPayload))
				r.Post("/start", h.transition(lifecycle.ActionStartWork, noPayload))
				r.Post("/courier", h.transition(lifecycle.ActionRequestCourier, courierPayload))
				r.Post("/complete", h.transition(lifecycle.ActionComplete, noPayload))
				r.Post("/cancel", h.transition(lifecycle.ActionCancel, cancelPayload))
				r.Post("/deliveries", h.CreateDelivery)
			})

			r.Post("/deliveries/{id}/{action}", h.ApplyDelivery)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
