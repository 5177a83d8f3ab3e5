// Package memory is an in-process spreadsheet mirror. Each owner's tab is
// kept as the rows that would be written to a real sheet.
package memory

import (
	"context"
	"slices"
	"sync"

	"smartspend/internal/core"
	"smartspend/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes map[string]int
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]any), writes: make(map[string]int)}
}

// ReplaceTransactions overwrites the owner's tab.
func (s *Store) ReplaceTransactions(ctx context.Context, owner string, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := sheets.Rows(txs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[owner] = rows
	s.writes[owner]++
	return nil
}

// ListTransactions parses the owner's tab. An owner never written has none.
func (s *Store) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	rows := slices.Clone(s.tabs[owner])
	s.mu.Unlock()
	return sheets.ParseRows(rows), nil
}

// Rows returns a copy of the owner's tab.
func (s *Store) Rows(owner string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.tabs[owner]))
	for i, r := range s.tabs[owner] {
		out[i] = slices.Clone(r)
	}
	return out
}

// Writes counts how many times the owner's tab was overwritten.
func (s *Store) Writes(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[owner]
}
