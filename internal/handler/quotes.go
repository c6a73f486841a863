package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

func queryPrice(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("price")
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.InvalidInput("price %q is not an integer", raw)
	}
	return price, nil
}

// QuoteCommission рассчитывает комиссию по цене, срочности и уровню исполнителя.
func (h *Handler) QuoteCommission(w http.ResponseWriter, r *http.Request) {
	price, err := queryPrice(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	tier := model.ProviderTier(q.Get("tier"))
	if tier == "" {
		tier = model.TierNew
	}

	res, err := h.service.QuoteCommission(price, model.Urgency(q.Get("urgency")), tier)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QuoteFairness оценивает цену относительно рыночной цены подкатегории.
func (h *Handler) QuoteFairness(w http.ResponseWriter, r *http.Request) {
	price, err := queryPrice(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.service.QuoteFairness(r.Context(), model.Category(q.Get("category")), q.Get("subcategory"), price)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QuoteIndex рассчитывает ценовой индекс относительно средней цены категории.
func (h *Handler) QuoteIndex(w http.ResponseWriter, r *http.Request) {
	price, err := queryPrice(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.QuoteIndex(model.Category(r.URL.Query().Get("category")), price)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MarketPrices возвращает рыночные цены подкатегорий.
func (h *Handler) MarketPrices(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.MarketPrices(r.Context(), model.Category(chi.URLParam(r, "category")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ProviderTier возвращает текущий уровень исполнителя.
func (h *Handler) ProviderTier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.service.ProviderTier(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
