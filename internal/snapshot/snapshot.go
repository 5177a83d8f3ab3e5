// Package snapshot reads and writes the JSON backup document of an owner's data.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"smartspend/internal/core"
	"smartspend/internal/store"
)

// BackupFileName is the default name of an exported backup.
const BackupFileName = "smartspend-backup.json"

// Preferences are display settings carried alongside the data.
type Preferences struct {
	Currency string `json:"currency,omitempty"`
}

// Document is the backup file. SavingsGoals is kept verbatim and never interpreted.
type Document struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	Loans        []core.Loan        `json:"loans,omitempty"`
	SavingsGoals json.RawMessage    `json:"savingsGoals,omitempty"`
	Preferences  *Preferences       `json:"preferences,omitempty"`
}

// Export copies the store's collections into a document.
func Export(s *store.Store, prefs *Preferences) Document {
	d := s.Snapshot()
	doc := Document{
		Transactions: d.Transactions,
		Categories:   d.Categories,
		Loans:        d.Loans,
		SavingsGoals: d.SavingsGoals,
		Preferences:  prefs,
	}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	if doc.Categories == nil {
		doc.Categories = []core.Category{}
	}
	return doc
}

// Data converts the document into the store's restore input.
func (d Document) Data() store.Data {
	return store.Data{
		Transactions: d.Transactions,
		Categories:   d.Categories,
		Loans:        d.Loans,
		SavingsGoals: d.SavingsGoals,
	}
}

// Import restores the document into s. Ids in the document are kept.
func Import(ctx context.Context, s *store.Store, d Document) error {
	if err := s.Restore(ctx, d.Data()); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// Encode writes d as indented JSON.
func Encode(w io.Writer, d Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Decode reads a document. Both the transactions and categories keys must be
// present; malformed input is reported as a validation error.
func Decode(r io.Reader) (Document, error) {
	var wire struct {
		Transactions *[]core.Transaction `json:"transactions"`
		Categories   *[]core.Category    `json:"categories"`
		Loans        []core.Loan         `json:"loans"`
		SavingsGoals json.RawMessage     `json:"savingsGoals"`
		Preferences  *Preferences        `json:"preferences"`
	}
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return Document{}, err
		}
		return Document{}, &core.ValidationError{Field: "document", Message: err.Error()}
	}
	if wire.Transactions == nil {
		return Document{}, &core.ValidationError{Field: "transactions", Message: "is required"}
	}
	if wire.Categories == nil {
		return Document{}, &core.ValidationError{Field: "categories", Message: "is required"}
	}
	goals := wire.SavingsGoals
	if bytes.Equal(bytes.TrimSpace(goals), []byte("null")) {
		goals = nil
	}
	return Document{
		Transactions: *wire.Transactions,
		Categories:   *wire.Categories,
		Loans:        wire.Loans,
		SavingsGoals: goals,
		Preferences:  wire.Preferences,
	}, nil
}

// WriteFile writes d to path, creating parent directories. The file is
// written to a temporary name first and renamed into place.
func WriteFile(path string, d Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".smartspend-*.json")
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, d); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move backup file: %w", err)
	}
	return nil
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
