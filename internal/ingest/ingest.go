// Package ingest loads Outbank CSV exports into normalized transactions.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/outbank-dev/outbank-mcp/internal/errs"
	"github.com/outbank-dev/outbank-mcp/internal/exclusion"
	"github.com/outbank-dev/outbank-mcp/internal/model"
)

// Result is the outcome of one full load from disk.
type Result struct {
	Transactions  []model.Transaction
	Keys          map[string]struct{}
	FilesScanned  int
	ExcludedCount int
	TotalParsed   int
}

// ListFiles returns the CSV files matching glob under dir, sorted by path.
func ListFiles(dir, glob string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errs.Configurationf("CSV folder not found: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, errs.Configurationf("invalid CSV glob %q: %v", glob, err)
	}
	if len(files) == 0 {
		return nil, errs.Configurationf("No CSV files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// Load reads every matching file in sorted order, normalizes rows, applies
// the exclusion rules and deduplicates by record key (first occurrence
// wins). Rows dropped by dedup count neither as excluded nor as errors.
func Load(dir, glob string, rules exclusion.Rules) (*Result, error) {
	files, err := ListFiles(dir, glob)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Keys:         make(map[string]struct{}),
		FilesScanned: len(files),
	}

	for _, path := range files {
		if err := loadFile(path, rules, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func loadFile(path string, rules exclusion.Rules, res *Result) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	sourceFile := filepath.Base(path)
	if len(rows) == 0 {
		return ValidateHeaders(nil, sourceFile)
	}
	header := rows[0]
	if err := ValidateHeaders(header, sourceFile); err != nil {
		return err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	// Row ordinals are 1-based and count blank rows too, matching the
	// fallback IDs a client may already have seen.
	for rowIndex, row := range rows[1:] {
		r := rowReader{index: index, row: row}
		if r.isBlank() {
			continue
		}
		txn := normalizeRow(r, sourceFile, rowIndex+1)
		res.TotalParsed++

		if rules.ShouldExclude(&txn) {
			res.ExcludedCount++
			continue
		}

		if _, dup := res.Keys[txn.RecordKey]; dup {
			continue
		}
		res.Keys[txn.RecordKey] = struct{}{}
		res.Transactions = append(res.Transactions, txn)
	}
	return nil
}
