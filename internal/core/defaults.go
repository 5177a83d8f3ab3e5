package core

// DefaultCategories returns the starter categories offered to a new owner.
// Ids are left empty; the store assigns them.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Salary", Budget: Money{Cents: 500000}, Type: Income, Color: "#4ade80"},
		{Name: "Groceries", Budget: Money{Cents: 50000}, Type: Expense, Color: "#f87171"},
		{Name: "Rent", Budget: Money{Cents: 120000}, Type: Expense, Color: "#fb923c"},
		{Name: "Utilities", Budget: Money{Cents: 20000}, Type: Expense, Color: "#60a5fa"},
		{Name: "Entertainment", Budget: Money{Cents: 30000}, Type: Expense, Color: "#c084fc"},
		{Name: "Transportation", Budget: Money{Cents: 15000}, Type: Expense, Color: "#34d399"},
		{Name: "Shopping", Budget: Money{Cents: 40000}, Type: Expense, Color: "#a3e635"},
		{Name: "Health", Budget: Money{Cents: 10000}, Type: Expense, Color: "#e879f9"},
	}
}
