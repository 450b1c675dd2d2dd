// Package aggregate groups filtered transactions and computes per-group
// amount statistics.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/outbank-dev/outbank-mcp/internal/errs"
	"github.com/outbank-dev/outbank-mcp/internal/model"
	"github.com/outbank-dev/outbank-mcp/internal/query"
	"github.com/outbank-dev/outbank-mcp/internal/store"
)

// UnknownGroup labels transactions whose grouping field is blank or null.
const UnknownGroup = "Unknown"

// GroupByValues are the accepted grouping dimensions, in the order they
// are reported to callers on validation failure.
var GroupByValues = []string{"category", "subcategory", "account", "counterparty", "month"}

// Group is one aggregation bucket. Count covers only transactions with a
// defined amount, so Average = Total / Count; a group whose every
// transaction has a null amount reports zeros throughout.
type Group struct {
	Group   string  `json:"group"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summary reports totals across all groups. GrandTotal is the sum of the
// per-group totals, rounded to 2 decimals.
type Summary struct {
	TransactionsMatched int     `json:"transactions_matched"`
	GroupsReturned      int     `json:"groups_returned"`
	GrandTotal          float64 `json:"grand_total"`
}

type accumulator struct {
	label    string
	count    int
	sum      decimal.Decimal
	min, max decimal.Decimal
}

// Run groups the snapshot's transactions matching the filters by the given
// dimension. Groups are sorted by total descending, ties broken by label
// ascending. Zero matching transactions yields an empty group list, not an
// error.
func Run(snap *store.Snapshot, groupBy string, filters query.Filters) (Summary, []Group, error) {
	if !validGroupBy(groupBy) {
		return Summary{}, nil, errs.Validationf(
			"group_by must be one of: %s", strings.Join(GroupByValues, ", "))
	}
	if err := filters.ValidateRanges(); err != nil {
		return Summary{}, nil, err
	}

	buckets := make(map[string]*accumulator)
	var order []string
	matched := 0

	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if !filters.Match(t) {
			continue
		}
		matched++

		label := groupLabel(t, groupBy)
		acc, ok := buckets[label]
		if !ok {
			acc = &accumulator{label: label}
			buckets[label] = acc
			order = append(order, label)
		}
		if !t.Amount.Valid {
			continue
		}
		amount := t.Amount.Decimal
		if acc.count == 0 || amount.LessThan(acc.min) {
			acc.min = amount
		}
		if acc.count == 0 || amount.GreaterThan(acc.max) {
			acc.max = amount
		}
		acc.sum = acc.sum.Add(amount)
		acc.count++
	}

	groups := make([]Group, 0, len(order))
	grand := decimal.Zero
	for _, label := range order {
		acc := buckets[label]
		g := Group{Group: acc.label, Count: acc.count}
		if acc.count > 0 {
			total := acc.sum.Round(2)
			g.Total = total.InexactFloat64()
			g.Average = acc.sum.Div(decimal.NewFromInt(int64(acc.count))).Round(2).InexactFloat64()
			g.Min = acc.min.InexactFloat64()
			g.Max = acc.max.InexactFloat64()
			grand = grand.Add(total)
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Total != groups[j].Total {
			return groups[i].Total > groups[j].Total
		}
		return groups[i].Group < groups[j].Group
	})

	return Summary{
		TransactionsMatched: matched,
		GroupsReturned:      len(groups),
		GrandTotal:          grand.Round(2).InexactFloat64(),
	}, groups, nil
}

func validGroupBy(groupBy string) bool {
	for _, v := range GroupByValues {
		if v == groupBy {
			return true
		}
	}
	return false
}

// groupLabel picks the grouping key for one transaction. For "month" it is
// the booking date truncated to YYYY-MM; blank or null values bucket under
// UnknownGroup.
func groupLabel(t *model.Transaction, groupBy string) string {
	var label string
	switch groupBy {
	case "category":
		label = t.Category
	case "subcategory":
		label = t.Subcategory
	case "account":
		label = t.Account
	case "counterparty":
		label = t.Name
	case "month":
		if t.BookingDate != nil {
			label = t.BookingDate.Format("2006-01")
		}
	}
	if label == "" {
		return UnknownGroup
	}
	return label
}
