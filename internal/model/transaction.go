package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one normalized bank-statement line item. It is built once
// by the ingest parser and never structurally mutated afterwards.
type Transaction struct {
	ID           string
	Account      string
	BookingDate  *time.Time // nil when the source cell was blank or unparseable
	ValueDate    *time.Time
	Amount       decimal.NullDecimal // negative = expense, positive = income
	Currency     string
	Name         string // counterparty name
	Number       string // counterparty account number / IBAN
	Bank         string
	Reason       string
	Category     string
	Subcategory  string
	CategoryPath string
	Tags         []string
	Note         string
	PostingText  string
	SourceFile   string
	RecordKey    string // "<source_file>:<id>", the deduplication identity
}

// Description returns the reason, falling back to the posting text.
func (t *Transaction) Description() string {
	if t.Reason != "" {
		return t.Reason
	}
	return t.PostingText
}
