// Package query filters, scores, sorts and truncates store snapshots.
package query

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/outbank-dev/outbank-mcp/internal/model"
	"github.com/outbank-dev/outbank-mcp/internal/store"
)

// DefaultMinScore is the fuzzy-match threshold applied when a free-text
// query is present.
const DefaultMinScore = 0.55

// Request is one search invocation against a snapshot.
type Request struct {
	Query      string
	Filters    Filters
	Sort       string // "date", "-date", "amount", "-amount"
	MaxResults int
	MinScore   float64
}

// Row is the externally visible shape of a matched transaction.
type Row struct {
	ID           string   `json:"id"`
	Date         *string  `json:"date"`
	ValueDate    *string  `json:"value_date"`
	Amount       *float64 `json:"amount"`
	Currency     string   `json:"currency"`
	Account      string   `json:"account"`
	IBAN         string   `json:"iban"`
	Counterparty string   `json:"counterparty"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	CategoryPath string   `json:"category_path"`
	Tags         []string `json:"tags"`
	Note         string   `json:"note"`
	PostingText  string   `json:"posting_text"`
	SourceFile   string   `json:"source_file"`
	Score        float64  `json:"score"`
}

// Summary reports match counts for one search.
type Summary struct {
	Matched   int  `json:"matched"`
	Returned  int  `json:"returned"`
	Truncated bool `json:"truncated"`
}

type match struct {
	txn   *model.Transaction
	score float64
}

// Search applies the request's predicates and fuzzy scoring to the
// snapshot, sorts the matches and returns at most max(1, MaxResults) rows.
// The snapshot is read-only; Search has no side effects.
func Search(snap *store.Snapshot, req Request) (Summary, []Row) {
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	var matches []match
	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if !req.Filters.Match(t) {
			continue
		}
		score := Score(needle, haystack(t))
		if needle != "" && score < req.MinScore {
			continue
		}
		matches = append(matches, match{txn: t, score: score})
	}

	sortMatches(matches, req.Sort)

	limit := req.MaxResults
	if limit < 1 {
		limit = 1
	}
	returned := matches
	if len(returned) > limit {
		returned = returned[:limit]
	}

	rows := make([]Row, 0, len(returned))
	for _, m := range returned {
		rows = append(rows, rowFor(m.txn, m.score))
	}

	return Summary{
		Matched:   len(matches),
		Returned:  len(rows),
		Truncated: len(rows) < len(matches),
	}, rows
}

// haystack joins the searchable text fields of a transaction, lowercased
// and space-separated.
func haystack(t *model.Transaction) string {
	fields := []string{
		t.Account,
		t.Number,
		t.Reason,
		t.Name,
		t.PostingText,
		t.Category,
		t.Subcategory,
		t.CategoryPath,
	}
	for i, f := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return strings.Join(fields, " ")
}

// sortMatches orders matches by date or amount, descending when the key
// has a "-" prefix. Unrecognized keys leave the filter-pass order intact.
// Nil dates sort as the minimum date; nil amounts sort as 0.0. The sort is
// stable so repeated queries return identical orderings.
func sortMatches(matches []match, key string) {
	desc := strings.HasPrefix(key, "-")
	field := strings.TrimPrefix(key, "-")

	var less func(a, b *model.Transaction) bool
	switch field {
	case "date":
		less = func(a, b *model.Transaction) bool {
			return dateKey(a).Before(dateKey(b))
		}
	case "amount":
		less = func(a, b *model.Transaction) bool {
			return amountKey(a) < amountKey(b)
		}
	default:
		return
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if desc {
			return less(matches[j].txn, matches[i].txn)
		}
		return less(matches[i].txn, matches[j].txn)
	})
}

func dateKey(t *model.Transaction) time.Time {
	if t.BookingDate == nil {
		return time.Time{}
	}
	return *t.BookingDate
}

func amountKey(t *model.Transaction) float64 {
	if !t.Amount.Valid {
		return 0.0
	}
	return t.Amount.Decimal.InexactFloat64()
}

func rowFor(t *model.Transaction, score float64) Row {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	row := Row{
		ID:           t.ID,
		Date:         isoDate(t.BookingDate),
		ValueDate:    isoDate(t.ValueDate),
		Currency:     t.Currency,
		Account:      t.Account,
		IBAN:         t.Number,
		Counterparty: t.Name,
		Description:  t.Description(),
		Category:     t.Category,
		Subcategory:  t.Subcategory,
		CategoryPath: t.CategoryPath,
		Tags:         tags,
		Note:         t.Note,
		PostingText:  t.PostingText,
		SourceFile:   t.SourceFile,
		Score:        math.Round(score*10000) / 10000,
	}
	if t.Amount.Valid {
		amount := t.Amount.Decimal.InexactFloat64()
		row.Amount = &amount
	}
	return row
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
