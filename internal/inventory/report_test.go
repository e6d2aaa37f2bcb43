package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)

	from, to, err := ParsePeriod("today", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)

	from, _, err = ParsePeriod("week", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), from)

	from, _, err = ParsePeriod("quarter", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, -3, 0), from)

	// empty defaults to today
	from, _, err = ParsePeriod("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), from)

	_, _, err = ParsePeriod("decade", now)
	require.Error(t, err)
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))
}

func entry(variant string, ct ChangeType, qty int64, reason Reason) LedgerEntry {
	return LedgerEntry{ProductVariationID: variant, ChangeType: ct, Quantity: qty, Reason: reason}
}

func TestBuildReport(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	entries := []LedgerEntry{
		entry("v1", ChangeIncrease, 10, ReasonRestock),
		entry("v1", ChangeDecrease, 3, ReasonOrderPlaced),
		entry("v1", ChangeDecrease, 2, ReasonOrderPlaced),
		entry("v2", ChangeIncrease, 5, ReasonRestock),
		entry("v2", ChangeDecrease, 1, ReasonDamage),
	}

	r := BuildReport(from, to, entries)

	assert.Equal(t, 5, r.Summary.TotalEntries)
	assert.Equal(t, int64(15), r.Summary.TotalIncreased)
	assert.Equal(t, int64(6), r.Summary.TotalDecreased)
	assert.Equal(t, int64(9), r.Summary.NetChange)
	assert.Equal(t, 2, r.Summary.VariantsTouched)

	require.Len(t, r.ChangesByReason, 3)
	byKey := map[string]ReasonBreakdown{}
	for _, rb := range r.ChangesByReason {
		byKey[string(rb.Reason)+"/"+string(rb.ChangeType)] = rb
	}
	assert.Equal(t, 2, byKey["order_placed/decrease"].Transactions)
	assert.Equal(t, int64(5), byKey["order_placed/decrease"].TotalQuantity)
	assert.Equal(t, 2, byKey["restock/increase"].Transactions)
	assert.Equal(t, int64(15), byKey["restock/increase"].TotalQuantity)
	assert.Equal(t, 1, byKey["damage/decrease"].Transactions)

	require.Len(t, r.MostActive, 2)
	assert.Equal(t, "v1", r.MostActive[0].ProductVariationID)
	assert.Equal(t, 3, r.MostActive[0].Entries)
	assert.Equal(t, int64(10), r.MostActive[0].TotalIncreased)
	assert.Equal(t, int64(5), r.MostActive[0].TotalDecreased)
}

func TestBuildReportTopTen(t *testing.T) {
	from := time.Now().Add(-time.Hour)
	var entries []LedgerEntry
	for i := 0; i < 15; i++ {
		v := string(rune('a' + i))
		// variant "a" gets the most entries, "b" the next most, and so on
		for j := 0; j < 16-i; j++ {
			entries = append(entries, entry(v, ChangeIncrease, 1, ReasonRestock))
		}
	}

	r := BuildReport(from, time.Now(), entries)
	require.Len(t, r.MostActive, 10)
	assert.Equal(t, "a", r.MostActive[0].ProductVariationID)
	assert.Equal(t, 16, r.MostActive[0].Entries)
	assert.Equal(t, "j", r.MostActive[9].ProductVariationID)
}

func TestBuildReportEmpty(t *testing.T) {
	r := BuildReport(time.Now().Add(-time.Hour), time.Now(), nil)
	assert.Zero(t, r.Summary.TotalEntries)
	assert.Empty(t, r.ChangesByReason)
	assert.Empty(t, r.MostActive)
}
