package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/outbank-dev/outbank-mcp/internal/errs"
	"github.com/outbank-dev/outbank-mcp/internal/model"
	"github.com/outbank-dev/outbank-mcp/internal/recordkey"
)

// ExpectedHeaders is the canonical column set of an Outbank CSV export.
// Every column must be present; order does not matter and extras are allowed.
var ExpectedHeaders = []string{
	"#",
	"Account",
	"Date",
	"Value Date",
	"Amount",
	"Currency",
	"Name",
	"Number",
	"Bank",
	"Reason",
	"Category",
	"Subcategory",
	"Category-Path",
	"Tags",
	"Note",
	"Posting Text",
}

const fieldSeparator = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ValidateHeaders checks that every expected column is present.
func ValidateHeaders(fields []string, sourceFile string) error {
	if len(fields) == 0 {
		return errs.Validationf("%s has no headers", sourceFile)
	}
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	var missing []string
	for _, header := range ExpectedHeaders {
		if !present[header] {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		return errs.Validationf("%s is missing headers: %s", sourceFile, strings.Join(missing, ", "))
	}
	return nil
}

// readRows parses a semicolon-delimited CSV stream, tolerating a UTF-8 BOM
// and rows with varying field counts.
func readRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = fieldSeparator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return rows, nil
}

// ParseAmount parses an Outbank-formatted amount like "1.234,56": spaces
// are stripped, "." is treated as a thousands separator and "," as the
// decimal mark. Plain ISO decimals like "12.50" therefore parse as 1250 —
// a known constraint of the source format, kept on purpose. Blank or
// unparseable input yields an invalid NullDecimal, never an error.
func ParseAmount(value string) decimal.NullDecimal {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// dateLayouts are tried in order against date cells and filter inputs.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"02.01.2006",
}

// ParseDate parses a date or datetime string, returning the calendar day in
// UTC. Blank or unparseable input yields nil, never an error.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}

// SplitTags splits a comma-separated tag cell into trimmed, non-empty tags.
func SplitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// rowReader gives named access to a single CSV row via the header index.
type rowReader struct {
	index map[string]int
	row   []string
}

func (r rowReader) get(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.row) {
		return ""
	}
	return r.row[i]
}

func (r rowReader) isBlank() bool {
	for _, field := range r.row {
		if field != "" {
			return false
		}
	}
	return true
}

// normalizeRow maps a CSV row to a Transaction. String fields are trimmed
// and normalize to "", while amount and dates normalize to null when
// unparseable — a single malformed cell never aborts ingestion.
func normalizeRow(r rowReader, sourceFile string, rowIndex int) model.Transaction {
	rowID := strings.TrimSpace(r.get("#"))
	if rowID == "" {
		rowID = strconv.Itoa(rowIndex)
	}

	return model.Transaction{
		ID:           rowID,
		Account:      strings.TrimSpace(r.get("Account")),
		BookingDate:  ParseDate(r.get("Date")),
		ValueDate:    ParseDate(r.get("Value Date")),
		Amount:       ParseAmount(r.get("Amount")),
		Currency:     strings.TrimSpace(r.get("Currency")),
		Name:         strings.TrimSpace(r.get("Name")),
		Number:       strings.TrimSpace(r.get("Number")),
		Bank:         strings.TrimSpace(r.get("Bank")),
		Reason:       strings.TrimSpace(r.get("Reason")),
		Category:     strings.TrimSpace(r.get("Category")),
		Subcategory:  strings.TrimSpace(r.get("Subcategory")),
		CategoryPath: strings.TrimSpace(r.get("Category-Path")),
		Tags:         SplitTags(r.get("Tags")),
		Note:         strings.TrimSpace(r.get("Note")),
		PostingText:  strings.TrimSpace(r.get("Posting Text")),
		SourceFile:   sourceFile,
		RecordKey:    recordkey.Format(sourceFile, rowID),
	}
}
