package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"data": data})
}

func writeDataMeta(w http.ResponseWriter, code int, data, meta any) {
	writeJSON(w, code, map[string]any{"data": data, "meta": meta})
}

func writeError(w http.ResponseWriter, err error) {
	kind := orders.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case orders.KindValidation:
		code = http.StatusBadRequest
	case orders.KindNotFound:
		code = http.StatusNotFound
	case orders.KindInvalidTransition:
		code = http.StatusUnprocessableEntity
	case orders.KindInsufficientStock, orders.KindConsolidationConflict:
		code = http.StatusConflict
	}
	body := errorBody{Kind: string(kind), Message: err.Error()}
	if e, ok := err.(*orders.Error); ok {
		body.Message = e.Message
	}
	if body.Kind == "" {
		body.Kind = "INTERNAL"
		body.Message = "internal error"
	}
	writeJSON(w, code, map[string]any{"error": body})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, orders.E(orders.KindValidation, "%s", msg))
}

// parseDate accepts RFC3339 or a bare date.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
