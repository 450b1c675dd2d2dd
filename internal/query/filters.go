package query

import (
	"math"
	"strings"
	"time"

	"github.com/outbank-dev/outbank-mcp/internal/errs"
	"github.com/outbank-dev/outbank-mcp/internal/ingest"
	"github.com/outbank-dev/outbank-mcp/internal/model"
)

// amountTolerance is the absolute tolerance for exact-amount matches.
const amountTolerance = 0.0001

// FilterParams carries raw, unparsed filter inputs as received over RPC.
type FilterParams struct {
	Account   string   `json:"account,omitempty"`
	IBAN      string   `json:"iban,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	AmountMin *float64 `json:"amount_min,omitempty"`
	AmountMax *float64 `json:"amount_max,omitempty"`
	Date      string   `json:"date,omitempty"`
	DateStart string   `json:"date_start,omitempty"`
	DateEnd   string   `json:"date_end,omitempty"`
}

// Filters is the parsed, normalized form of FilterParams. All predicates
// are optional and AND-combined.
type Filters struct {
	Account   string // lowercased
	IBAN      string // lowercased, spaces stripped
	Amount    *float64
	AmountMin *float64
	AmountMax *float64
	DateExact *time.Time
	DateStart *time.Time
	DateEnd   *time.Time
}

// Parse normalizes the string filters and parses the date filters, failing
// with a ValidationError on any unparseable date.
func (p FilterParams) Parse() (Filters, error) {
	f := Filters{
		Account:   strings.ToLower(strings.TrimSpace(p.Account)),
		IBAN:      strings.ReplaceAll(strings.ToLower(strings.TrimSpace(p.IBAN)), " ", ""),
		Amount:    p.Amount,
		AmountMin: p.AmountMin,
		AmountMax: p.AmountMax,
	}

	var err error
	if f.DateExact, err = parseFilterDate(p.Date, "date"); err != nil {
		return Filters{}, err
	}
	if f.DateStart, err = parseFilterDate(p.DateStart, "date_start"); err != nil {
		return Filters{}, err
	}
	if f.DateEnd, err = parseFilterDate(p.DateEnd, "date_end"); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func parseFilterDate(value, name string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d := ingest.ParseDate(value)
	if d == nil {
		return nil, errs.Validationf("%s must be ISO format like YYYY-MM-DD", name)
	}
	return d, nil
}

// ValidateRanges rejects inverted date or amount ranges before any row is
// scanned.
func (f Filters) ValidateRanges() error {
	if f.DateStart != nil && f.DateEnd != nil && f.DateStart.After(*f.DateEnd) {
		return errs.Validationf("date_start must be less than or equal to date_end")
	}
	if f.AmountMin != nil && f.AmountMax != nil && *f.AmountMin > *f.AmountMax {
		return errs.Validationf("amount_min must be less than or equal to amount_max")
	}
	return nil
}

// Match reports whether a transaction passes every configured predicate.
// A nil amount fails any amount predicate; a nil booking date fails any
// date predicate.
func (f Filters) Match(t *model.Transaction) bool {
	if f.Account != "" && !strings.Contains(strings.ToLower(t.Account), f.Account) {
		return false
	}
	if f.IBAN != "" {
		iban := strings.ReplaceAll(strings.ToLower(t.Number), " ", "")
		if !strings.Contains(iban, f.IBAN) {
			return false
		}
	}

	var amount float64
	if t.Amount.Valid {
		amount = t.Amount.Decimal.InexactFloat64()
	}
	if f.Amount != nil && (!t.Amount.Valid || math.Abs(amount-*f.Amount) > amountTolerance) {
		return false
	}
	if f.AmountMin != nil && (!t.Amount.Valid || amount < *f.AmountMin) {
		return false
	}
	if f.AmountMax != nil && (!t.Amount.Valid || amount > *f.AmountMax) {
		return false
	}

	if f.DateExact != nil && (t.BookingDate == nil || !t.BookingDate.Equal(*f.DateExact)) {
		return false
	}
	if f.DateStart != nil && (t.BookingDate == nil || t.BookingDate.Before(*f.DateStart)) {
		return false
	}
	if f.DateEnd != nil && (t.BookingDate == nil || t.BookingDate.After(*f.DateEnd)) {
		return false
	}
	return true
}
