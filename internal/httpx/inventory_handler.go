package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ordercraft/fulfillment-core/internal/inventory"
)

type InventoryService interface {
	CheckAvailability(ctx context.Context, items []inventory.CheckItem) ([]inventory.Availability, inventory.CheckMeta, error)
	Adjust(ctx context.Context, req inventory.AdjustRequest) (inventory.AdjustResult, error)
	LowStock(ctx context.Context, threshold int64) ([]inventory.StockLevel, error)
	OutOfStock(ctx context.Context) ([]inventory.StockLevel, error)
	History(ctx context.Context, variantID string, limit int) ([]inventory.LedgerEntry, error)
	Report(ctx context.Context, period string) (inventory.Report, error)
}

type InventoryHandler struct {
	Svc InventoryService
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Post("/inventory/check", h.check)
	r.Post("/inventory/adjust", h.adjust)
	r.Get("/inventory/low-stock", h.lowStock)
	r.Get("/inventory/out-of-stock", h.outOfStock)
	r.Get("/inventory/history/{variant_id}", h.history)
	r.Get("/inventory/report", h.report)
}

type checkReq struct {
	Items []inventory.CheckItem `json:"items"`
}

func (h *InventoryHandler) check(w http.ResponseWriter, r *http.Request) {
	var req checkReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	data, meta, err := h.Svc.CheckAvailability(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDataMeta(w, http.StatusOK, data, meta)
}

type adjustReq struct {
	ProductVariationID string `json:"product_variation_id"`
	Quantity           int64  `json:"quantity"` // signed delta
	Reason             string `json:"reason"`
	ReferenceID        string `json:"reference_id"`
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res, err := h.Svc.Adjust(r.Context(), inventory.AdjustRequest{
		ProductVariationID: req.ProductVariationID,
		Delta:              req.Quantity,
		Reason:             req.Reason,
		ReferenceID:        req.ReferenceID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	// absent means default; an explicit value, 0 included, is validated as is
	threshold := int64(inventory.DefaultLowStockThreshold)
	if q := r.URL.Query().Get("threshold"); q != "" {
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			badRequest(w, "threshold must be an integer")
			return
		}
		threshold = n
	}
	data, err := h.Svc.LowStock(r.Context(), threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDataMeta(w, http.StatusOK, data, map[string]int{"count": len(data)})
}

func (h *InventoryHandler) outOfStock(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.OutOfStock(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeDataMeta(w, http.StatusOK, data, map[string]int{"count": len(data)})
}

func (h *InventoryHandler) history(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variant_id")
	var limit int
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			badRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}
	data, err := h.Svc.History(r.Context(), variantID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

func (h *InventoryHandler) report(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.Report(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, data)
}
