package inventory

import (
	"sort"
	"time"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

const mostActiveLimit = 10

// ParsePeriod resolves a report period keyword to a half-open [from, to)
// window ending now.
func ParsePeriod(period string, now time.Time) (from, to time.Time, err error) {
	to = now
	switch period {
	case "", "today":
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		from = now.AddDate(0, 0, -7)
	case "month":
		from = now.AddDate(0, -1, 0)
	case "quarter":
		from = now.AddDate(0, -3, 0)
	case "year":
		from = now.AddDate(-1, 0, 0)
	default:
		return time.Time{}, time.Time{}, orders.E(orders.KindValidation, "unknown report period %q", period)
	}
	return from, to, nil
}

type ReasonBreakdown struct {
	Reason        Reason     `json:"reason"`
	ChangeType    ChangeType `json:"change_type"`
	Transactions  int        `json:"transactions"`
	TotalQuantity int64      `json:"total_quantity"`
}

type VariantActivity struct {
	ProductVariationID string `json:"product_variation_id"`
	Entries            int    `json:"entries"`
	TotalIncreased     int64  `json:"total_increased"`
	TotalDecreased     int64  `json:"total_decreased"`
}

type ReportSummary struct {
	TotalEntries    int   `json:"total_entries"`
	TotalIncreased  int64 `json:"total_increased"`
	TotalDecreased  int64 `json:"total_decreased"`
	NetChange       int64 `json:"net_change"`
	VariantsTouched int   `json:"variants_touched"`
}

type Report struct {
	From            time.Time         `json:"date_from"`
	To              time.Time         `json:"date_to"`
	ChangesByReason []ReasonBreakdown `json:"changes_by_reason"`
	MostActive      []VariantActivity `json:"most_active_variants"`
	Summary         ReportSummary     `json:"summary"`
}

// BuildReport aggregates ledger entries already filtered to [from, to).
func BuildReport(from, to time.Time, entries []LedgerEntry) Report {
	type key struct {
		reason Reason
		change ChangeType
	}
	byReason := map[key]*ReasonBreakdown{}
	byVariant := map[string]*VariantActivity{}
	var sum ReportSummary

	for _, e := range entries {
		k := key{e.Reason, e.ChangeType}
		rb := byReason[k]
		if rb == nil {
			rb = &ReasonBreakdown{Reason: e.Reason, ChangeType: e.ChangeType}
			byReason[k] = rb
		}
		rb.Transactions++
		rb.TotalQuantity += e.Quantity

		va := byVariant[e.ProductVariationID]
		if va == nil {
			va = &VariantActivity{ProductVariationID: e.ProductVariationID}
			byVariant[e.ProductVariationID] = va
		}
		va.Entries++

		sum.TotalEntries++
		if e.ChangeType == ChangeIncrease {
			va.TotalIncreased += e.Quantity
			sum.TotalIncreased += e.Quantity
		} else {
			va.TotalDecreased += e.Quantity
			sum.TotalDecreased += e.Quantity
		}
	}
	sum.NetChange = sum.TotalIncreased - sum.TotalDecreased
	sum.VariantsTouched = len(byVariant)

	reasons := make([]ReasonBreakdown, 0, len(byReason))
	for _, rb := range byReason {
		reasons = append(reasons, *rb)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Reason != reasons[j].Reason {
			return reasons[i].Reason < reasons[j].Reason
		}
		return reasons[i].ChangeType < reasons[j].ChangeType
	})

	active := make([]VariantActivity, 0, len(byVariant))
	for _, va := range byVariant {
		active = append(active, *va)
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Entries != active[j].Entries {
			return active[i].Entries > active[j].Entries
		}
		return active[i].ProductVariationID < active[j].ProductVariationID
	})
	if len(active) > mostActiveLimit {
		active = active[:mostActiveLimit]
	}

	return Report{
		From:            from,
		To:              to,
		ChangesByReason: reasons,
		MostActive:      active,
		Summary:         sum,
	}
}
