// Package server exposes the store's operations over JSON-RPC 2.0, on
// stdio or HTTP transport.
package server

import (
	"log/slog"
	"math"
	"time"

	"github.com/outbank-dev/outbank-mcp/internal/aggregate"
	"github.com/outbank-dev/outbank-mcp/internal/config"
	"github.com/outbank-dev/outbank-mcp/internal/ingest"
	"github.com/outbank-dev/outbank-mcp/internal/query"
	"github.com/outbank-dev/outbank-mcp/internal/store"
)

// Service implements the exposed operations. Every operation is
// synchronous, idempotent except reload_transactions, and side-effect-free
// except reload's snapshot replacement. Authentication, rate limiting and
// audit logging happen in the transport before any of these run.
type Service struct {
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger
	start time.Time
}

// NewService wires a Service to a store and configuration.
func NewService(cfg *config.Config, st *store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, store: st, log: log, start: time.Now()}
}

// SearchParams are the named arguments of search_transactions. Pointers
// distinguish "absent" from zero values so the filter echo is faithful.
type SearchParams struct {
	Query      *string  `json:"query"`
	Account    *string  `json:"account"`
	IBAN       *string  `json:"iban"`
	Amount     *float64 `json:"amount"`
	AmountMin  *float64 `json:"amount_min"`
	AmountMax  *float64 `json:"amount_max"`
	Date       *string  `json:"date"`
	DateStart  *string  `json:"date_start"`
	DateEnd    *string  `json:"date_end"`
	MaxResults *int     `json:"max_results"`
	Sort       *string  `json:"sort"`
}

// SearchFilterEcho mirrors the caller's filters back in the result.
type SearchFilterEcho struct {
	Query      *string  `json:"query"`
	Account    *string  `json:"account"`
	IBAN       *string  `json:"iban"`
	Amount     *float64 `json:"amount"`
	AmountMin  *float64 `json:"amount_min"`
	AmountMax  *float64 `json:"amount_max"`
	Date       *string  `json:"date"`
	DateStart  *string  `json:"date_start"`
	DateEnd    *string  `json:"date_end"`
	Sort       string   `json:"sort"`
	MaxResults int      `json:"max_results"`
}

// SearchResult is the search_transactions response.
type SearchResult struct {
	Filters SearchFilterEcho `json:"filters"`
	Summary query.Summary    `json:"summary"`
	Results []query.Row      `json:"results"`
}

// SearchTransactions runs a fuzzy search with optional filters over the
// current snapshot, loading it on first use.
func (s *Service) SearchTransactions(p SearchParams) (*SearchResult, error) {
	snap, err := s.store.EnsureLoaded()
	if err != nil {
		return nil, err
	}

	filters, err := filterParams(p).Parse()
	if err != nil {
		return nil, err
	}

	sortKey := strDeref(p.Sort)
	if sortKey == "" {
		sortKey = "-date"
	}
	maxResults := 25
	if p.MaxResults != nil {
		maxResults = *p.MaxResults
	}

	summary, rows := query.Search(snap, query.Request{
		Query:      strDeref(p.Query),
		Filters:    filters,
		Sort:       sortKey,
		MaxResults: maxResults,
		MinScore:   s.cfg.MinScore,
	})

	return &SearchResult{
		Filters: SearchFilterEcho{
			Query:      p.Query,
			Account:    p.Account,
			IBAN:       p.IBAN,
			Amount:     p.Amount,
			AmountMin:  p.AmountMin,
			AmountMax:  p.AmountMax,
			Date:       p.Date,
			DateStart:  p.DateStart,
			DateEnd:    p.DateEnd,
			Sort:       sortKey,
			MaxResults: maxResults,
		},
		Summary: summary,
		Results: rows,
	}, nil
}

// AggregateParams are the named arguments of aggregate_transactions.
type AggregateParams struct {
	GroupBy   *string  `json:"group_by"`
	Account   *string  `json:"account"`
	IBAN      *string  `json:"iban"`
	Amount    *float64 `json:"amount"`
	AmountMin *float64 `json:"amount_min"`
	AmountMax *float64 `json:"amount_max"`
	Date      *string  `json:"date"`
	DateStart *string  `json:"date_start"`
	DateEnd   *string  `json:"date_end"`
}

// AggregateFilterEcho mirrors the caller's arguments back in the result.
type AggregateFilterEcho struct {
	GroupBy   string   `json:"group_by"`
	Account   *string  `json:"account"`
	IBAN      *string  `json:"iban"`
	Amount    *float64 `json:"amount"`
	AmountMin *float64 `json:"amount_min"`
	AmountMax *float64 `json:"amount_max"`
	Date      *string  `json:"date"`
	DateStart *string  `json:"date_start"`
	DateEnd   *string  `json:"date_end"`
}

// AggregateResult is the aggregate_transactions response.
type AggregateResult struct {
	Filters AggregateFilterEcho `json:"filters"`
	Summary aggregate.Summary   `json:"summary"`
	Groups  []aggregate.Group   `json:"groups"`
}

// AggregateTransactions groups the filtered snapshot by the requested
// dimension and returns per-group amount statistics.
func (s *Service) AggregateTransactions(p AggregateParams) (*AggregateResult, error) {
	snap, err := s.store.EnsureLoaded()
	if err != nil {
		return nil, err
	}

	filters, err := query.FilterParams{
		Account:   strDeref(p.Account),
		IBAN:      strDeref(p.IBAN),
		Amount:    p.Amount,
		AmountMin: p.AmountMin,
		AmountMax: p.AmountMax,
		Date:      strDeref(p.Date),
		DateStart: strDeref(p.DateStart),
		DateEnd:   strDeref(p.DateEnd),
	}.Parse()
	if err != nil {
		return nil, err
	}

	groupBy := strDeref(p.GroupBy)
	if groupBy == "" {
		groupBy = "category"
	}

	summary, groups, err := aggregate.Run(snap, groupBy, filters)
	if err != nil {
		return nil, err
	}

	return &AggregateResult{
		Filters: AggregateFilterEcho{
			GroupBy:   groupBy,
			Account:   p.Account,
			IBAN:      p.IBAN,
			Amount:    p.Amount,
			AmountMin: p.AmountMin,
			AmountMax: p.AmountMax,
			Date:      p.Date,
			DateStart: p.DateStart,
			DateEnd:   p.DateEnd,
		},
		Summary: summary,
		Groups:  groups,
	}, nil
}

// DescribeResult is the describe_fields response.
type DescribeResult struct {
	CSVDir          string   `json:"csv_dir"`
	CSVGlob         string   `json:"csv_glob"`
	ExpectedHeaders []string `json:"expected_headers"`
	FilesScanned    int      `json:"files_scanned"`
	TotalRecords    int      `json:"total_records"`
}

// DescribeFields returns the CSV configuration and expected headers.
func (s *Service) DescribeFields() (*DescribeResult, error) {
	snap, err := s.store.EnsureLoaded()
	if err != nil {
		return nil, err
	}
	headers := make([]string, len(ingest.ExpectedHeaders))
	copy(headers, ingest.ExpectedHeaders)
	return &DescribeResult{
		CSVDir:          s.cfg.CSVDir,
		CSVGlob:         s.cfg.CSVGlob,
		ExpectedHeaders: headers,
		FilesScanned:    snap.FilesScanned,
		TotalRecords:    len(snap.Transactions),
	}, nil
}

// ReloadTransactions re-scans the CSV directory and reports the diff.
func (s *Service) ReloadTransactions() (store.ReloadStats, error) {
	stats, err := s.store.Reload()
	if err != nil {
		return store.ReloadStats{}, err
	}
	s.log.Info("reloaded transactions",
		"files_scanned", stats.FilesScanned,
		"total_records", stats.TotalRecords,
		"new_records", stats.NewRecords,
		"removed_records", stats.RemovedRecords)
	return stats, nil
}

// HealthResult is the health_check response.
type HealthResult struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	DataLoaded    bool    `json:"data_loaded"`
	RecordCount   int     `json:"record_count"`
	FilesScanned  int     `json:"files_scanned"`
	TransportMode string  `json:"transport_mode"`
}

// HealthCheck reports server status without touching disk.
func (s *Service) HealthCheck() (*HealthResult, error) {
	uptime := time.Since(s.start).Seconds()
	res := &HealthResult{
		Status:        "healthy",
		UptimeSeconds: math.Round(uptime*100) / 100,
		DataLoaded:    s.store.Loaded(),
		TransportMode: s.cfg.Transport,
	}
	if snap := s.store.Current(); snap != nil {
		res.RecordCount = len(snap.Transactions)
		res.FilesScanned = snap.FilesScanned
	}
	return res, nil
}

func filterParams(p SearchParams) query.FilterParams {
	return query.FilterParams{
		Account:   strDeref(p.Account),
		IBAN:      strDeref(p.IBAN),
		Amount:    p.Amount,
		AmountMin: p.AmountMin,
		AmountMax: p.AmountMax,
		Date:      strDeref(p.Date),
		DateStart: strDeref(p.DateStart),
		DateEnd:   strDeref(p.DateEnd),
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
