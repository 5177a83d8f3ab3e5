package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartspend/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "t1", Amount: core.Money{Cents: 2550}, Type: core.Expense, Category: "Groceries", Description: "Market", Date: time.Date(2023, 4, 1, 18, 30, 0, 0, time.UTC)},
		{ID: "t2", Amount: core.Money{Cents: 500000}, Type: core.Income, Category: "Salary", Date: time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "t3", Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "=SUM(A1)", Description: "-5 refund"},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sample())
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []any{"2023-04-03", "income", "Salary", "", "5000.00", "t2"}, rows[1])
	assert.Equal(t, []any{"2023-04-01", "expense", "Groceries", "Market", "25.50", "t1"}, rows[2])
	assert.Equal(t, []any{"", "expense", "'=SUM(A1)", "'-5 refund", "1.00", "t3"}, rows[3], "undated last, formulas escaped")
}

func TestParseRowsRoundTrip(t *testing.T) {
	parsed := ParseRows(Rows(sample()))
	require.Len(t, parsed, 3)
	assert.Equal(t, "t2", parsed[0].ID)
	assert.Equal(t, core.Money{Cents: 2550}, parsed[1].Amount)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), parsed[1].Date)
	assert.Equal(t, "=SUM(A1)", parsed[2].Category)
	assert.True(t, parsed[2].Date.IsZero())
	assert.True(t, Equal(sample(), parsed))
}

func TestParseRowsUnformattedValues(t *testing.T) {
	values := [][]any{
		{"Date", "Type", "Category", "Description", "Amount", "ID"},
		{45019.0, "Expense", "Food", "", 12.5, "t1"},
		{},
		{"", "", "", "", "", ""},
		{"2023-04-02", "expense", "Food", "", "not money", "t2"},
		{"2023-04-02", "expense", "Food", "", "7,25", "t3"},
	}
	got := ParseRows(values)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, core.Expense, got[0].Type)
	assert.Equal(t, core.Money{Cents: 1250}, got[0].Amount)
	assert.Equal(t, core.Money{Cents: 725}, got[1].Amount)
}

func TestEqual(t *testing.T) {
	a := sample()
	b := sample()
	assert.True(t, Equal(a, b))

	b[0].Date = b[0].Date.Add(2 * time.Hour)
	assert.True(t, Equal(a, b), "time of day is not mirrored")

	b[0].Amount = core.Money{Cents: 2551}
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, a[:2]))
	assert.True(t, Equal(nil, []core.Transaction{}))
}
