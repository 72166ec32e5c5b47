// Package pending tracks the single outstanding conversational context a
// user is inside, consumed by their next message.
package pending

import "time"

// Kind discriminates the pending-action variants.
type Kind string

const (
	KindNone                     Kind = "none"
	KindAwaitingReminderDay      Kind = "awaiting_reminder_day"
	KindAwaitingFixedExpenseEdit Kind = "awaiting_fixed_expense_edit"
	KindAwaitingBulkReminder     Kind = "awaiting_bulk_reminder_response"
	KindAwaitingDeletionConfirm  Kind = "awaiting_account_deletion_confirm"
	KindAwaitingTransactionEdit  Kind = "awaiting_transaction_edit"
	KindAwaitingMarkFixedConfirm Kind = "awaiting_mark_as_fixed_confirm"
)

// Action is the tagged pending-action variant. Exactly one Action is active
// per user; setting a new one replaces the previous one, there is no stacking.
type Action struct {
	Kind           Kind      `json:"kind"`
	FixedExpenseID int64     `json:"fixed_expense_id,omitempty"`
	TransactionID  int64     `json:"transaction_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// None is the empty pending action.
func None() Action {
	return Action{Kind: KindNone}
}

// AwaitingReminderDay waits for a reminder day for the given fixed expense.
func AwaitingReminderDay(fixedExpenseID int64) Action {
	return Action{Kind: KindAwaitingReminderDay, FixedExpenseID: fixedExpenseID}
}

// AwaitingFixedExpenseEdit waits for new values for the given fixed expense.
func AwaitingFixedExpenseEdit(fixedExpenseID int64) Action {
	return Action{Kind: KindAwaitingFixedExpenseEdit, FixedExpenseID: fixedExpenseID}
}

// AwaitingBulkReminder waits for the register-all / adjust / skip response to
// a monthly reminder message.
func AwaitingBulkReminder() Action {
	return Action{Kind: KindAwaitingBulkReminder}
}

// AwaitingDeletionConfirm waits for the exact account-deletion confirmation.
func AwaitingDeletionConfirm() Action {
	return Action{Kind: KindAwaitingDeletionConfirm}
}

// AwaitingTransactionEdit waits for edit instructions for a transaction.
func AwaitingTransactionEdit(transactionID int64) Action {
	return Action{Kind: KindAwaitingTransactionEdit, TransactionID: transactionID}
}

// AwaitingMarkFixedConfirm waits for the "is this recurring?" answer.
func AwaitingMarkFixedConfirm(transactionID int64) Action {
	return Action{Kind: KindAwaitingMarkFixedConfirm, TransactionID: transactionID}
}

// IsNone reports whether no pending action is active.
func (a Action) IsNone() bool {
	return a.Kind == "" || a.Kind == KindNone
}
