// Package store owns the in-memory transaction snapshot.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/outbank-dev/outbank-mcp/internal/exclusion"
	"github.com/outbank-dev/outbank-mcp/internal/ingest"
	"github.com/outbank-dev/outbank-mcp/internal/model"
)

// Snapshot is the complete transaction list plus load metadata at a point
// in time. Snapshots are immutable once published; readers must not mutate.
type Snapshot struct {
	Transactions  []model.Transaction
	Keys          map[string]struct{}
	FilesScanned  int
	ExcludedCount int
	TotalParsed   int
}

// ReloadStats describes the transition from one snapshot to the next.
type ReloadStats struct {
	FilesScanned   int `json:"files_scanned"`
	TotalRecords   int `json:"total_records"`
	NewRecords     int `json:"new_records"`
	RemovedRecords int `json:"removed_records"`
	ExcludedCount  int `json:"excluded_count"`
	TotalParsed    int `json:"total_parsed"`
}

// Store holds the current snapshot and replaces it wholesale on reload.
// Reads never block: the snapshot is published with a single pointer swap,
// so in-flight readers observe either the fully-old or fully-new state.
type Store struct {
	dir   string
	glob  string
	rules exclusion.Rules

	mu   sync.Mutex // serializes loads; readers go through snap only
	snap atomic.Pointer[Snapshot]
}

// New creates an empty, unloaded Store.
func New(dir, glob string, rules exclusion.Rules) *Store {
	return &Store{dir: dir, glob: glob, rules: rules}
}

// Loaded reports whether a snapshot has been published.
func (s *Store) Loaded() bool {
	return s.snap.Load() != nil
}

// Current returns the live snapshot, or nil if nothing is loaded yet.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

// EnsureLoaded loads from disk on first use and is idempotent afterwards.
// It returns the live snapshot.
func (s *Store) EnsureLoaded() (*Snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s.snap.Load(), nil
}

// Reload re-scans the CSV directory and replaces the snapshot. It is
// all-or-nothing: on any ingestion error the previous snapshot stays
// untouched and the error propagates.
func (s *Store) Reload() (ReloadStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()

	res, err := ingest.Load(s.dir, s.glob, s.rules)
	if err != nil {
		return ReloadStats{}, err
	}

	next := &Snapshot{
		Transactions:  res.Transactions,
		Keys:          res.Keys,
		FilesScanned:  res.FilesScanned,
		ExcludedCount: res.ExcludedCount,
		TotalParsed:   res.TotalParsed,
	}

	stats := ReloadStats{
		FilesScanned:  res.FilesScanned,
		TotalRecords:  len(res.Keys),
		ExcludedCount: res.ExcludedCount,
		TotalParsed:   res.TotalParsed,
	}
	for key := range res.Keys {
		if old == nil {
			stats.NewRecords++
			continue
		}
		if _, ok := old.Keys[key]; !ok {
			stats.NewRecords++
		}
	}
	if old != nil {
		for key := range old.Keys {
			if _, ok := res.Keys[key]; !ok {
				stats.RemovedRecords++
			}
		}
	}

	s.snap.Store(next)
	return stats, nil
}
