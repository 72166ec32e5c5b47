package domain

import "time"

// AlertType identifies a deduplicated alert family.
type AlertType string

const (
	AlertFinancialHealth AlertType = "financial_health"
)

// FinancialAlert is a dedup ledger row, not a user-facing entity: one row per
// (user, type, calendar day) caps how often an alert family may fire.
type FinancialAlert struct {
	UserID    int64
	AlertType AlertType
	AlertDate time.Time
}
