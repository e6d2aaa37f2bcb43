package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordercraft/fulfillment-core/internal/orders"
	"github.com/ordercraft/fulfillment-core/internal/shipping"
)

type ShippingService interface {
	AllStatuses() []orders.StatusInfo
	AvailableTransitions(current string) ([]orders.ShippingStatus, error)
	Transition(ctx context.Context, orderID, target, reason string) error
	BatchTransition(ctx context.Context, orderIDs []string, target, reason string) ([]shipping.BatchResult, error)
	Statistics(ctx context.Context, from, to time.Time) ([]shipping.StatusCount, error)
}

type ShippingHandler struct {
	Svc ShippingService
}

func (h *ShippingHandler) Register(r *chi.Mux) {
	r.Get("/orders/shipping-statuses", h.allStatuses)
	r.Get("/orders/shipping-statuses/available/{current_status}", h.available)
	r.Put("/orders/{id}/shipping-status", h.transition)
	r.Put("/orders/batch/shipping-status", h.batchTransition)
	r.Get("/orders/shipping-statistics", h.statistics)
}

func (h *ShippingHandler) allStatuses(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.Svc.AllStatuses())
}

func (h *ShippingHandler) available(w http.ResponseWriter, r *http.Request) {
	next, err := h.Svc.AvailableTransitions(chi.URLParam(r, "current_status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, next)
}

type transitionReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *ShippingHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	orderID := chi.URLParam(r, "id")
	if err := h.Svc.Transition(r.Context(), orderID, req.Status, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"order_id":        orderID,
		"shipping_status": req.Status,
	})
}

type batchTransitionReq struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
	Reason   string   `json:"reason"`
}

func (h *ShippingHandler) batchTransition(w http.ResponseWriter, r *http.Request) {
	var req batchTransitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	results, err := h.Svc.BatchTransition(r.Context(), req.OrderIDs, req.Status, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	ok := 0
	for _, res := range results {
		if res.OK {
			ok++
		}
	}
	writeDataMeta(w, http.StatusOK, map[string]any{"results": results},
		map[string]int{"total": len(results), "succeeded": ok, "failed": len(results) - ok})
}

func (h *ShippingHandler) statistics(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDate(r.URL.Query().Get("date_from"))
	if !ok {
		badRequest(w, "date_from is required (RFC3339 or YYYY-MM-DD)")
		return
	}
	to, ok := parseDate(r.URL.Query().Get("date_to"))
	if !ok {
		badRequest(w, "date_to is required (RFC3339 or YYYY-MM-DD)")
		return
	}
	data, err := h.Svc.Statistics(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, data)
}
