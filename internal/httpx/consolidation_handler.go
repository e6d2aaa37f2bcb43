package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordercraft/fulfillment-core/internal/consolidation"
	"github.com/ordercraft/fulfillment-core/internal/orders"
)

type ConsolidationService interface {
	Candidates(ctx context.Context, customerID string) ([]orders.OrderSummary, error)
	Opportunities(ctx context.Context, customerID string, from, to *time.Time) ([]orders.OrderSummary, error)
	Execute(ctx context.Context, customerID string, plan consolidation.Plan) (consolidation.ExecuteResult, error)
	ConsolidatedOrderDetails(ctx context.Context, consolidatedID string) (consolidation.Details, error)
}

type ConsolidationHandler struct {
	Svc ConsolidationService
}

func (h *ConsolidationHandler) Register(r *chi.Mux) {
	r.Get("/orders/consolidation-candidates/{customer_id}", h.candidates)
	r.Get("/orders/consolidation-opportunities/{customer_id}", h.opportunities)
	r.Post("/orders/execute-consolidation", h.execute)
	r.Get("/orders/consolidated/{id}", h.details)
}

func (h *ConsolidationHandler) candidates(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.Candidates(r.Context(), chi.URLParam(r, "customer_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDataMeta(w, http.StatusOK, data, map[string]int{"count": len(data)})
}

func (h *ConsolidationHandler) opportunities(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	if q := r.URL.Query().Get("date_from"); q != "" {
		t, ok := parseDate(q)
		if !ok {
			badRequest(w, "date_from must be RFC3339 or YYYY-MM-DD")
			return
		}
		from = &t
	}
	if q := r.URL.Query().Get("date_to"); q != "" {
		t, ok := parseDate(q)
		if !ok {
			badRequest(w, "date_to must be RFC3339 or YYYY-MM-DD")
			return
		}
		to = &t
	}
	data, err := h.Svc.Opportunities(r.Context(), chi.URLParam(r, "customer_id"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDataMeta(w, http.StatusOK, data, map[string]int{"count": len(data)})
}

type executeReq struct {
	CustomerID string             `json:"customer_id"`
	Plan       consolidation.Plan `json:"consolidation_plan"`
}

func (h *ConsolidationHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req executeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res, err := h.Svc.Execute(r.Context(), req.CustomerID, req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (h *ConsolidationHandler) details(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.ConsolidatedOrderDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, data)
}
