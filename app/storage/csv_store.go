package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lysyi3m/skills-monitor/app/posting"
)

// CSVStore appends rows to a single CSV file.
type CSVStore struct {
	path    string
	mu      sync.Mutex
	stamper *Stamper
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path, stamper: NewStamper()}
}

func (s *CSVStore) Append(ctx context.Context, runID string, postings []posting.Posting) ([]posting.Row, error) {
	if len(postings) == 0 {
		return []posting.Row{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	rows := stampRows(s.stamper, postings)
	if err := WriteCSV(f, rows, info.Size() == 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to sync %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", s.path, err)
	}

	return rows, nil
}

// Load reads every row. A missing file is an empty store.
func (s *CSVStore) Load(ctx context.Context) ([]posting.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []posting.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.path, err)
	}
	return rows, nil
}

func (s *CSVStore) Close() error {
	return nil
}
