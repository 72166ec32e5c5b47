package domain

// FixedExpense is a user-declared recurring payment. At most one row exists
// per (user, case-insensitive description).
//
// An inactive row is either a paused recurring expense or a rejected
// suggestion placeholder; the placeholder exists only so the same description
// is never suggested again.
type FixedExpense struct {
	ID          int64
	UserID      int64
	Description string
	Amount      int64
	CategoryID  int64
	// ReminderDay is the day of month (1-31) the monthly reminder fires on,
	// nil when no reminder is configured.
	ReminderDay *int
	IsActive    bool
}
