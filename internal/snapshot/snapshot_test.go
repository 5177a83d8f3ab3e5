package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartspend/internal/core"
	"smartspend/internal/identity"
	"smartspend/internal/storage/memory"
	"smartspend/internal/store"
)

func loadedStore(t *testing.T, owner string) *store.Store {
	t.Helper()
	s, err := store.New(store.Options{Backend: memory.New(), Identity: identity.Fixed(owner)})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func seeded(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s := loadedStore(t, "alice")
	_, err := s.AddCategory(ctx, core.Category{Name: "Rent", Type: core.Expense, Budget: core.Money{Cents: 120000}, Color: "#fb923c"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 2550}, Type: core.Expense, Category: "Rent",
		Description: "March", Date: time.Date(2023, 3, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	l, err := s.AddLoan(ctx, core.Loan{
		Amount: core.Money{Cents: 100000}, Type: core.Borrowed, PersonName: "Jean",
		StartDate: core.NewDate(2023, 1, 10), InterestRate: decimal.RequireFromString("2.5"),
	})
	require.NoError(t, err)
	_, err = s.AddPayment(ctx, l.ID, core.Payment{Amount: core.Money{Cents: 25000}, Date: time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), Note: "Feb"})
	require.NoError(t, err)
	return s
}

func encoded(t *testing.T, d Document) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d))
	return buf.String()
}

func TestExportImportRoundTrip(t *testing.T) {
	src := seeded(t)
	doc := Export(src, &Preferences{Currency: "RWF"})
	raw := encoded(t, doc)

	decoded, err := Decode(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "RWF", decoded.Preferences.Currency)

	dst := loadedStore(t, "bob")
	require.NoError(t, Import(context.Background(), dst, decoded))

	assert.Equal(t, raw, encoded(t, Export(dst, &Preferences{Currency: "RWF"})))
	assert.Equal(t, src.Snapshot().Transactions, dst.Snapshot().Transactions)
	assert.Equal(t, src.Snapshot().Categories, dst.Snapshot().Categories)
}

func TestEncodeShape(t *testing.T) {
	raw := encoded(t, Export(seeded(t), nil))

	var generic map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &generic))
	assert.Contains(t, generic, "transactions")
	assert.Contains(t, generic, "categories")
	assert.Contains(t, generic, "loans")
	assert.NotContains(t, generic, "preferences")

	tx := generic["transactions"].([]any)[0].(map[string]any)
	assert.Equal(t, 25.5, tx["amount"])
	assert.Equal(t, "expense", tx["type"])

	loan := generic["loans"].([]any)[0].(map[string]any)
	assert.Equal(t, "Jean", loan["personName"])
	assert.Equal(t, "2023-01-10", loan["startDate"])
	assert.Len(t, loan["paymentHistory"], 1)
}

func TestExportEmptyStore(t *testing.T) {
	raw := encoded(t, Export(loadedStore(t, "alice"), nil))
	assert.Contains(t, raw, `"transactions": []`)
	assert.Contains(t, raw, `"categories": []`)
	assert.NotContains(t, raw, "loans")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"minimal", `{"transactions":[],"categories":[]}`, false},
		{"legacy backup without loans", `{"transactions":[{"id":"t1","amount":10,"type":"expense","category":"Food","description":"","date":"2023-04-01T00:00:00Z"}],"categories":[]}`, false},
		{"missing categories", `{"transactions":[]}`, true},
		{"missing transactions", `{"categories":[]}`, true},
		{"not json", `backup`, true},
		{"bad amount", `{"transactions":[{"amount":"ten"}],"categories":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSavingsGoalsPassThrough(t *testing.T) {
	in := `{"transactions":[],"categories":[],"savingsGoals":[{"name":"Car","target":5000}]}`
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Car","target":5000}]`, string(doc.SavingsGoals))
	assert.Contains(t, encoded(t, doc), `"savingsGoals"`)

	doc, err = Decode(strings.NewReader(`{"transactions":[],"categories":[],"savingsGoals":null}`))
	require.NoError(t, err)
	assert.Nil(t, doc.SavingsGoals)
}

func TestSavingsGoalsSurviveImport(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s, err := store.New(store.Options{Backend: backend, Identity: identity.Fixed("alice")})
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))

	in := `{"transactions":[],"categories":[],"savingsGoals":[{"name":"Car","target":5000}]}`
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.NoError(t, Import(ctx, s, doc))
	assert.JSONEq(t, `[{"name":"Car","target":5000}]`, string(Export(s, nil).SavingsGoals))

	// a document without goals leaves the stored ones alone
	require.NoError(t, Import(ctx, s, Document{Transactions: []core.Transaction{}, Categories: []core.Category{}}))

	reloaded, err := store.New(store.Options{Backend: backend, Identity: identity.Fixed("alice")})
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))
	assert.JSONEq(t, `[{"name":"Car","target":5000}]`, string(Export(reloaded, nil).SavingsGoals))

	assert.Nil(t, Export(loadedStore(t, "bob"), nil).SavingsGoals)
}

func TestImportRejectsInvalidRecords(t *testing.T) {
	s := loadedStore(t, "alice")
	doc := Document{Transactions: []core.Transaction{{ID: "t1", Type: core.Expense, Category: "Food", Date: time.Now()}}}
	err := Import(context.Background(), s, doc)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, s.Transactions())
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backups", BackupFileName)
	doc := Export(seeded(t), &Preferences{Currency: "USD"})
	require.NoError(t, WriteFile(path, doc))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, encoded(t, doc), encoded(t, got))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
