// Package classifier is the bridge to the external intent classifier.
package classifier

import "encoding/json"

// IntentTag identifies the classified purpose of a user message.
type IntentTag string

const (
	IntentRegisterTransaction  IntentTag = "register_transaction"
	IntentRegisterBatch        IntentTag = "register_batch"
	IntentEditTransaction      IntentTag = "edit_transaction"
	IntentDeleteTransaction    IntentTag = "delete_transaction"
	IntentEditTransactionAt    IntentTag = "edit_transaction_at"
	IntentDeleteTransactionAt  IntentTag = "delete_transaction_at"
	IntentReclassify           IntentTag = "reclassify_transaction"
	IntentQuerySummary         IntentTag = "query_summary"
	IntentQueryTransactions    IntentTag = "query_transactions"
	IntentSetBudget            IntentTag = "set_budget"
	IntentListBudgets          IntentTag = "list_budgets"
	IntentDeleteBudget         IntentTag = "delete_budget"
	IntentAddFixedExpense      IntentTag = "add_fixed_expense"
	IntentListFixedExpenses    IntentTag = "list_fixed_expenses"
	IntentPauseFixedExpense    IntentTag = "pause_fixed_expense"
	IntentActivateFixedExpense IntentTag = "activate_fixed_expense"
	IntentDeleteFixedExpense   IntentTag = "delete_fixed_expense"
	IntentEditFixedExpense     IntentTag = "edit_fixed_expense"
	IntentSetReminderDay       IntentTag = "set_reminder_day"
	IntentIncomeUpdateResponse IntentTag = "income_update_response"
	IntentAskAdvice            IntentTag = "ask_advice"
	IntentGreeting             IntentTag = "greeting"
	IntentDeleteAccount        IntentTag = "delete_account"
	// IntentOther is the neutral fallback: unknown messages, classifier
	// failures and malformed payloads all land here.
	IntentOther IntentTag = "other"
)

var knownIntents = map[IntentTag]struct{}{
	IntentRegisterTransaction:  {},
	IntentRegisterBatch:        {},
	IntentEditTransaction:      {},
	IntentDeleteTransaction:    {},
	IntentEditTransactionAt:    {},
	IntentDeleteTransactionAt:  {},
	IntentReclassify:           {},
	IntentQuerySummary:         {},
	IntentQueryTransactions:    {},
	IntentSetBudget:            {},
	IntentListBudgets:          {},
	IntentDeleteBudget:         {},
	IntentAddFixedExpense:      {},
	IntentListFixedExpenses:    {},
	IntentPauseFixedExpense:    {},
	IntentActivateFixedExpense: {},
	IntentDeleteFixedExpense:   {},
	IntentEditFixedExpense:     {},
	IntentSetReminderDay:       {},
	IntentIncomeUpdateResponse: {},
	IntentAskAdvice:            {},
	IntentGreeting:             {},
	IntentDeleteAccount:        {},
	IntentOther:                {},
}

// Known reports whether the tag belongs to the closed intent set.
func Known(tag IntentTag) bool {
	_, ok := knownIntents[tag]
	return ok
}

// Result is the classifier's answer: a tag from the closed set plus a
// loosely-typed payload whose shape depends on the tag.
type Result struct {
	Type IntentTag       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Fallback is the neutral result used whenever classification fails.
func Fallback() Result {
	return Result{Type: IntentOther}
}

// TransactionPayload carries a single classified transaction.
type TransactionPayload struct {
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	IsIncome    bool   `json:"isIncome"`
}

// BatchPayload carries several transactions extracted from one message.
type BatchPayload struct {
	Transactions []TransactionPayload `json:"transactions"`
}

// IndexPayload carries a 1-based positional reference.
type IndexPayload struct {
	Index int `json:"index"`
}

// DayPayload carries a day of month.
type DayPayload struct {
	Day int `json:"day"`
}

// AcceptedPayload carries a yes/no answer.
type AcceptedPayload struct {
	Accepted bool `json:"accepted"`
}

// BudgetPayload carries a budget configuration request.
type BudgetPayload struct {
	Category string `json:"category"`
	Limit    int64  `json:"limit"`
}

// CategoryPayload names a category.
type CategoryPayload struct {
	Category string `json:"category"`
}

// FixedExpensePayload carries a fixed-expense creation or edit request.
type FixedExpensePayload struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Day         int    `json:"day"`
}

// QuestionPayload carries a free-text advice question.
type QuestionPayload struct {
	Question string `json:"question"`
}

// Decode unmarshals the result payload into out. A missing or malformed
// payload returns false; callers treat that exactly like a message they
// did not understand.
func (r Result) Decode(out any) bool {
	if len(r.Data) == 0 {
		return false
	}

	return json.Unmarshal(r.Data, out) == nil
}
