package domain

import "time"

// ExpenseType distinguishes recurring fixed payments from ad-hoc spending.
type ExpenseType string

const (
	ExpenseTypeFixed    ExpenseType = "fixed"
	ExpenseTypeVariable ExpenseType = "variable"
)

// RecentWindow bounds how long after creation a transaction is still
// considered "the one we just talked about" for edit, delete and reclassify.
const RecentWindow = 5 * time.Minute

// Transaction is a single ledger entry. Amounts are stored in minor currency
// units and are always positive; direction is carried by IsIncome.
type Transaction struct {
	ID             int64
	UserID         int64
	Amount         int64
	CategoryID     int64
	Description    string
	Date           time.Time
	IsIncome       bool
	ExpenseType    ExpenseType
	FixedExpenseID *int64
	CreatedAt      time.Time
}

// Recent reports whether the transaction was created inside the edit window.
func (t *Transaction) Recent(now time.Time) bool {
	return t != nil && now.Sub(t.CreatedAt) <= RecentWindow
}
