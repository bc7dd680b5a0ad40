package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

// Columns is the persisted row layout shared by every backend and the CSV export.
var Columns = []string{"source", "title", "company", "location", "posted_at", "url", "skills", "fetched_at"}

// Store is an append-only sink for collected postings.
type Store interface {
	// Append stamps and persists postings, returning the stored rows.
	Append(ctx context.Context, runID string, postings []posting.Posting) ([]posting.Row, error)
	// Load returns every stored row in insertion order.
	Load(ctx context.Context) ([]posting.Row, error)
	Close() error
}

const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// Open creates the store for kind.
func Open(ctx context.Context, kind, csvPath, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindCSV:
		return NewCSVStore(csvPath), nil
	case KindSQLite:
		store, err := NewSQLiteStore(ctx, sqlitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// Stamper hands out fetch timestamps that never go backwards, even if the
// wall clock does. Timestamps have second precision to survive RFC3339.
type Stamper struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewStamper() *Stamper {
	return &Stamper{now: time.Now}
}

func (s *Stamper) Stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC().Truncate(time.Second)
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

func stampRows(stamper *Stamper, postings []posting.Posting) []posting.Row {
	at := stamper.Stamp()
	rows := make([]posting.Row, len(postings))
	for i, p := range postings {
		fetched := at
		rows[i] = posting.Row{Posting: p, FetchedAt: &fetched}
	}
	return rows
}
