package domain

// Budget is a monthly spending limit, unique per (user, category).
type Budget struct {
	ID           int64
	UserID       int64
	CategoryID   int64
	MonthlyLimit int64
}

// PercentUsed returns spent/limit as a percentage, degrading to 0 when the
// limit is zero or negative so callers never divide by zero.
func (b *Budget) PercentUsed(spent int64) float64 {
	if b == nil || b.MonthlyLimit <= 0 {
		return 0
	}
	return float64(spent) / float64(b.MonthlyLimit) * 100
}
