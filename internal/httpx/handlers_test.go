package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordercraft/fulfillment-core/internal/consolidation"
	"github.com/ordercraft/fulfillment-core/internal/inventory"
	"github.com/ordercraft/fulfillment-core/internal/orders"
	"github.com/ordercraft/fulfillment-core/internal/shipping"
)

type fakeInventory struct {
	adjustErr    error
	gotThreshold int64
}

func (f *fakeInventory) CheckAvailability(_ context.Context, items []inventory.CheckItem) ([]inventory.Availability, inventory.CheckMeta, error) {
	if len(items) == 0 {
		return nil, inventory.CheckMeta{}, orders.E(orders.KindValidation, "items must not be empty")
	}
	out := make([]inventory.Availability, 0, len(items))
	meta := inventory.CheckMeta{TotalItems: len(items)}
	for _, it := range items {
		a := inventory.Availability{
			ProductVariationID: it.ProductVariationID,
			Available:          it.Quantity <= 5,
			CurrentBalance:     5,
			RequestedQty:       it.Quantity,
		}
		if a.Available {
			meta.AvailableItems++
		} else {
			meta.UnavailableItems++
		}
		out = append(out, a)
	}
	return out, meta, nil
}

func (f *fakeInventory) Adjust(_ context.Context, req inventory.AdjustRequest) (inventory.AdjustResult, error) {
	if f.adjustErr != nil {
		return inventory.AdjustResult{}, f.adjustErr
	}
	return inventory.AdjustResult{
		ProductVariationID: req.ProductVariationID,
		QuantityAdjusted:   req.Delta,
		Reason:             req.Reason,
		ReferenceID:        req.ReferenceID,
		NewBalance:         10 + req.Delta,
	}, nil
}

func (f *fakeInventory) LowStock(_ context.Context, threshold int64) ([]inventory.StockLevel, error) {
	f.gotThreshold = threshold
	if threshold < 1 || threshold > inventory.MaxLowStockThreshold {
		return nil, orders.E(orders.KindValidation, "threshold out of range")
	}
	return []inventory.StockLevel{{ProductVariationID: "v1", Balance: 2}}, nil
}

func (f *fakeInventory) OutOfStock(context.Context) ([]inventory.StockLevel, error) {
	return []inventory.StockLevel{}, nil
}

func (f *fakeInventory) History(_ context.Context, variantID string, _ int) ([]inventory.LedgerEntry, error) {
	if variantID == "missing" {
		return nil, orders.E(orders.KindNotFound, "product variation %s not found", variantID)
	}
	return []inventory.LedgerEntry{{ProductVariationID: variantID, ResultingBalance: 5}}, nil
}

func (f *fakeInventory) Report(_ context.Context, period string) (inventory.Report, error) {
	if period == "decade" {
		return inventory.Report{}, orders.E(orders.KindValidation, "unknown report period")
	}
	return inventory.Report{}, nil
}

func newInventoryRouter(f *fakeInventory) http.Handler {
	r := NewRouter()
	(&InventoryHandler{Svc: f}).Register(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestInventoryCheckEndpoint(t *testing.T) {
	h := newInventoryRouter(&fakeInventory{})

	w, body := doJSON(t, h, http.MethodPost, "/inventory/check",
		`{"items":[{"product_variation_id":"v1","quantity":3},{"product_variation_id":"v2","quantity":9}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "v1", first["product_variation_id"])
	assert.Equal(t, true, first["available"])

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 2, meta["total_items"])
	assert.EqualValues(t, 1, meta["available_items"])
	assert.EqualValues(t, 1, meta["unavailable_items"])
}

func TestInventoryAdjustEndpoint(t *testing.T) {
	h := newInventoryRouter(&fakeInventory{})

	w, body := doJSON(t, h, http.MethodPost, "/inventory/adjust",
		`{"product_variation_id":"v1","quantity":-4,"reason":"damage","reference_id":"ref-7"}`)
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "v1", data["product_variation_id"])
	assert.EqualValues(t, -4, data["quantity_adjusted"])
	assert.Equal(t, "damage", data["reason"])
	assert.Equal(t, "ref-7", data["reference_id"])

	w, _ = doJSON(t, h, http.MethodPost, "/inventory/adjust", `{not json}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryErrorMapping(t *testing.T) {
	h := newInventoryRouter(&fakeInventory{
		adjustErr: orders.E(orders.KindInsufficientStock, "insufficient stock"),
	})

	w, body := doJSON(t, h, http.MethodPost, "/inventory/adjust",
		`{"product_variation_id":"v1","quantity":-999,"reason":"damage"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	e := body["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_STOCK", e["kind"])
	assert.NotEmpty(t, e["message"])

	w, body = doJSON(t, h, http.MethodGet, "/inventory/history/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	e = body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", e["kind"])
}

func TestInventoryLowStockQuery(t *testing.T) {
	svc := &fakeInventory{}
	h := newInventoryRouter(svc)

	w, body := doJSON(t, h, http.MethodGet, "/inventory/low-stock?threshold=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"].([]any), 1)
	assert.Equal(t, int64(3), svc.gotThreshold)

	// absent threshold falls back to the default
	w, _ = doJSON(t, h, http.MethodGet, "/inventory/low-stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(inventory.DefaultLowStockThreshold), svc.gotThreshold)

	// an explicit 0 is out of range, not the default
	w, body = doJSON(t, h, http.MethodGet, "/inventory/low-stock?threshold=0", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", e["kind"])
	assert.Equal(t, int64(0), svc.gotThreshold)

	w, _ = doJSON(t, h, http.MethodGet, "/inventory/low-stock?threshold=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeShipping struct{}

func (fakeShipping) AllStatuses() []orders.StatusInfo { return orders.AllShippingStatuses() }

func (fakeShipping) AvailableTransitions(current string) ([]orders.ShippingStatus, error) {
	st, ok := orders.ParseShippingStatus(current)
	if !ok {
		return nil, orders.E(orders.KindValidation, "unknown shipping status %q", current)
	}
	return orders.AvailableTransitions(st), nil
}

func (fakeShipping) Transition(_ context.Context, orderID, target, _ string) error {
	if orderID == "missing" {
		return orders.E(orders.KindNotFound, "order %s not found", orderID)
	}
	if target == "delivered" {
		return orders.E(orders.KindInvalidTransition, "cannot move to delivered")
	}
	return nil
}

func (f fakeShipping) BatchTransition(ctx context.Context, orderIDs []string, target, reason string) ([]shipping.BatchResult, error) {
	if len(orderIDs) == 0 {
		return nil, orders.E(orders.KindValidation, "order_ids must not be empty")
	}
	out := make([]shipping.BatchResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		res := shipping.BatchResult{OrderID: id, OK: true}
		if err := f.Transition(ctx, id, target, reason); err != nil {
			res.OK = false
			res.Error = string(orders.KindOf(err))
		}
		out = append(out, res)
	}
	return out, nil
}

func (fakeShipping) Statistics(context.Context, time.Time, time.Time) ([]shipping.StatusCount, error) {
	return []shipping.StatusCount{{Status: "pending", Count: 2}}, nil
}

func newShippingRouter() http.Handler {
	r := NewRouter()
	(&ShippingHandler{Svc: fakeShipping{}}).Register(r)
	return r
}

func TestShippingStatusEndpoints(t *testing.T) {
	h := newShippingRouter()

	w, body := doJSON(t, h, http.MethodGet, "/orders/shipping-statuses", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].([]any)
	require.Len(t, data, 6)
	first := data[0].(map[string]any)
	assert.Equal(t, "pending", first["key"])
	assert.Equal(t, "Pending", first["label"])

	w, body = doJSON(t, h, http.MethodGet, "/orders/shipping-statuses/available/pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"].([]any), 3)

	w, _ = doJSON(t, h, http.MethodGet, "/orders/shipping-statuses/available/bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchShippingEndpoint(t *testing.T) {
	h := newShippingRouter()

	w, body := doJSON(t, h, http.MethodPut, "/orders/batch/shipping-status",
		`{"order_ids":["a","missing"],"status":"shipped","reason":"carrier pickup"}`)
	require.Equal(t, http.StatusOK, w.Code)

	results := body["data"].(map[string]any)["results"].([]any)
	require.Len(t, results, 2)
	ra := results[0].(map[string]any)
	assert.Equal(t, "a", ra["order_id"])
	assert.Equal(t, true, ra["ok"])
	rb := results[1].(map[string]any)
	assert.Equal(t, false, rb["ok"])
	assert.Equal(t, "NOT_FOUND", rb["error"])

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 1, meta["succeeded"])
	assert.EqualValues(t, 1, meta["failed"])
}

func TestSingleTransitionEndpoint(t *testing.T) {
	h := newShippingRouter()

	w, _ := doJSON(t, h, http.MethodPut, "/orders/o1/shipping-status",
		`{"status":"processing"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, h, http.MethodPut, "/orders/o1/shipping-status",
		`{"status":"delivered"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", body["error"].(map[string]any)["kind"])
}

func TestShippingStatisticsEndpoint(t *testing.T) {
	h := newShippingRouter()

	w, _ := doJSON(t, h, http.MethodGet, "/orders/shipping-statistics?date_from=2026-01-01&date_to=2026-02-01", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, h, http.MethodGet, "/orders/shipping-statistics?date_from=2026-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeConsolidation struct{}

func (fakeConsolidation) Candidates(_ context.Context, customerID string) ([]orders.OrderSummary, error) {
	if customerID == "" {
		return nil, orders.E(orders.KindValidation, "customer_id is required")
	}
	return []orders.OrderSummary{{ID: "o1", CustomerID: customerID}}, nil
}

func (f fakeConsolidation) Opportunities(ctx context.Context, customerID string, _, _ *time.Time) ([]orders.OrderSummary, error) {
	return f.Candidates(ctx, customerID)
}

func (fakeConsolidation) Execute(_ context.Context, customerID string, plan consolidation.Plan) (consolidation.ExecuteResult, error) {
	if len(plan.OrderIDs) < 2 {
		return consolidation.ExecuteResult{}, orders.E(orders.KindValidation, "consolidation requires at least 2 orders")
	}
	if plan.OrderIDs[0] == "stale" {
		return consolidation.ExecuteResult{}, orders.E(orders.KindConsolidationConflict, "order stale is no longer eligible")
	}
	return consolidation.ExecuteResult{
		ConsolidatedOrderID: "co-1",
		CustomerID:          customerID,
		MergedOrdersCount:   len(plan.OrderIDs),
		CombinedCents:       750,
	}, nil
}

func (fakeConsolidation) ConsolidatedOrderDetails(_ context.Context, id string) (consolidation.Details, error) {
	if id != "co-1" {
		return consolidation.Details{}, orders.E(orders.KindNotFound, "consolidated order %s not found", id)
	}
	return consolidation.Details{ID: id, CustomerID: "c1", Status: "active"}, nil
}

func newConsolidationRouter() http.Handler {
	r := NewRouter()
	(&ConsolidationHandler{Svc: fakeConsolidation{}}).Register(r)
	return r
}

func TestExecuteConsolidationEndpoint(t *testing.T) {
	h := newConsolidationRouter()

	w, body := doJSON(t, h, http.MethodPost, "/orders/execute-consolidation",
		`{"customer_id":"c1","consolidation_plan":{"order_ids":["o1","o2"],"discount_amount":50}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "co-1", data["consolidated_order_id"])
	assert.Equal(t, "c1", data["customer_id"])
	assert.EqualValues(t, 2, data["merged_orders_count"])

	w, body = doJSON(t, h, http.MethodPost, "/orders/execute-consolidation",
		`{"customer_id":"c1","consolidation_plan":{"order_ids":["stale","o2"]}}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONSOLIDATION_CONFLICT", body["error"].(map[string]any)["kind"])

	w, _ = doJSON(t, h, http.MethodPost, "/orders/execute-consolidation",
		`{"customer_id":"c1","consolidation_plan":{"order_ids":["only"]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsolidationReadEndpoints(t *testing.T) {
	h := newConsolidationRouter()

	w, body := doJSON(t, h, http.MethodGet, "/orders/consolidation-candidates/c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"].([]any), 1)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["count"])

	w, _ = doJSON(t, h, http.MethodGet, "/orders/consolidation-opportunities/c1?date_from=2026-01-01", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, h, http.MethodGet, "/orders/consolidation-opportunities/c1?date_from=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, h, http.MethodGet, "/orders/consolidated/co-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, h, http.MethodGet, "/orders/consolidated/co-2", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["kind"])
}
