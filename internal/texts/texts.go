// Package texts renders user-facing message bodies shared by the
// conversation handlers and the background jobs.
package texts

import (
	"fmt"
	"strings"
	"time"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
)

// Money formats a minor-unit amount with a dollar sign and dot-grouped
// thousands, the way amounts are written in Colombia.
func Money(amount int64) string {
	if amount < 0 {
		return "-$" + groupThousands(-amount)
	}
	return "$" + groupThousands(amount)
}

func groupThousands(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	return string(out)
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish lowercase name of the month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// ReminderMessage renders the monthly payment reminder for one user.
func ReminderMessage(tr i18n.Translator, group fixedexpense.DueGroup) string {
	var b strings.Builder
	b.WriteString(tr.T("reminder.header"))
	for _, item := range group.Items {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(tr.T("reminder.row"), item.Description, Money(item.Amount)))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(tr.T("reminder.total"), Money(group.Total)))
	b.WriteString("\n\n")
	b.WriteString(tr.T("reminder.footer"))
	return b.String()
}

// SuggestionPrompt renders the mark-as-fixed suggestion for a transaction.
func SuggestionPrompt(tr i18n.Translator, tx domain.Transaction) string {
	return fmt.Sprintf(tr.T("suggestion.prompt"), tx.Description)
}

// TransactionList renders the numbered list of a month's transactions. The
// numbering matches the positions stored for positional references.
func TransactionList(tr i18n.Translator, month time.Time, txs []domain.Transaction) string {
	if len(txs) == 0 {
		return tr.T("transaction.list_empty")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(tr.T("transaction.list_header"), MonthName(month.Month())))
	for i, tx := range txs {
		kind := tr.T("transaction.kind_expense")
		if tx.IsIncome {
			kind = tr.T("transaction.kind_income")
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(tr.T("transaction.list_row"), i+1, tx.Description, Money(tx.Amount), kind))
	}
	return b.String()
}

// FixedExpenseList renders the numbered list of a user's fixed expenses.
func FixedExpenseList(tr i18n.Translator, items []domain.FixedExpense) string {
	if len(items) == 0 {
		return tr.T("fixedexpense.list_empty")
	}

	var b strings.Builder
	b.WriteString(tr.T("fixedexpense.list_header"))
	for i, item := range items {
		var reminder string
		if item.ReminderDay != nil {
			reminder = fmt.Sprintf(tr.T("fixedexpense.list_row_reminder"), *item.ReminderDay)
		}
		status := ""
		if !item.IsActive {
			status = tr.T("fixedexpense.list_row_paused")
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(tr.T("fixedexpense.list_row"), i+1, item.Description, Money(item.Amount), reminder+status))
	}
	return b.String()
}
