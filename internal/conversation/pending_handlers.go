package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/texts"
)

// handleIncomeWindow answers the income re-estimation prompt while its short
// reply window is open. Anything outside the yes/no vocabulary falls through
// to the rest of the pipeline so normal usage is never hijacked.
func (r *Router) handleIncomeWindow(ctx context.Context, user *domain.User, body string) (string, bool) {
	average, open, err := r.incomeWindow.Get(ctx, user.Phone)
	if err != nil {
		r.log.ErrorContext(ctx, "income window lookup failed", "error", err)
		return "", false
	}
	if !open {
		return "", false
	}

	tr := r.tr()

	switch {
	case isAffirmative(body):
		if err := r.alerts.ResolveIncomePrompt(ctx, user, true, average); err != nil {
			return r.errs.Handle(ctx, err), true
		}
		_ = r.incomeWindow.Close(ctx, user.Phone)
		return fmt.Sprintf(tr.T("income_prompt.accepted"), texts.Money(average)), true

	case isNegative(body):
		if err := r.alerts.ResolveIncomePrompt(ctx, user, false, average); err != nil {
			return r.errs.Handle(ctx, err), true
		}
		_ = r.incomeWindow.Close(ctx, user.Phone)
		return fmt.Sprintf(tr.T("income_prompt.declined"), texts.Money(user.MonthlyIncome)), true
	}

	return "", false
}

// handlePending resolves the stored pending action against the new message.
// The bool result is false only for the mark-as-fixed decline, which records
// the rejection and lets the original message continue to classification.
func (r *Router) handlePending(ctx context.Context, user *domain.User, action pending.Action, body string) (string, bool) {
	switch action.Kind {
	case pending.KindAwaitingBulkReminder:
		return r.resolveBulkReminder(ctx, user, body), true
	case pending.KindAwaitingDeletionConfirm:
		return r.resolveDeletionConfirm(ctx, user, body), true
	case pending.KindAwaitingTransactionEdit:
		return r.resolveTransactionEdit(ctx, user, action, body), true
	case pending.KindAwaitingReminderDay:
		return r.resolveReminderDay(ctx, user, action, body), true
	case pending.KindAwaitingFixedExpenseEdit:
		return r.resolveFixedExpenseEdit(ctx, user, action, body), true
	case pending.KindAwaitingMarkFixedConfirm:
		return r.resolveMarkFixedConfirm(ctx, user, action, body)
	}

	r.clearPending(ctx, user.Phone)
	return "", false
}

var registerAllTokens = map[string]struct{}{
	"registra todos": {}, "registrar todos": {}, "registralos": {},
	"registra todo": {}, "todos": {},
}

var skipTokens = map[string]struct{}{
	"omitir": {}, "omite": {}, "ninguno": {}, "skip": {},
}

func (r *Router) resolveBulkReminder(ctx context.Context, user *domain.User, body string) string {
	tr := r.tr()
	norm := normalize(body)

	_, wantsAll := registerAllTokens[norm]
	_, wantsSkip := skipTokens[norm]

	switch {
	case wantsAll || isAffirmative(body):
		created, skipped, err := r.fixed.RegisterAll(ctx, user)
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		switch {
		case created > 0 && skipped > 0:
			return fmt.Sprintf(tr.T("reminder.registered_all_skipped"), created, skipped)
		case created > 0:
			return fmt.Sprintf(tr.T("reminder.registered_all"), created)
		default:
			return tr.T("reminder.registered_none")
		}

	case strings.Contains(norm, "ajust"):
		r.clearPending(ctx, user.Phone)
		return tr.T("reminder.adjust")

	case wantsSkip || isNegative(body):
		r.clearPending(ctx, user.Phone)
		return tr.T("reminder.skipped")
	}

	return tr.T("reminder.invalid")
}

func (r *Router) resolveDeletionConfirm(ctx context.Context, user *domain.User, body string) string {
	tr := r.tr()

	switch {
	case strings.TrimSpace(body) == "ELIMINAR":
		if err := r.users.Delete(ctx, user.ID); err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		_ = r.incomeWindow.Close(ctx, user.Phone)
		return tr.T("account.deleted")

	case normalize(body) == "cancelar":
		r.clearPending(ctx, user.Phone)
		return tr.T("account.deletion_cancelled")
	}

	return tr.T("account.deletion_invalid")
}

var deleteTokens = map[string]struct{}{
	"eliminar": {}, "elimina": {}, "borrar": {}, "borra": {}, "borralo": {},
}

func (r *Router) resolveTransactionEdit(ctx context.Context, user *domain.User, action pending.Action, body string) string {
	tr := r.tr()
	norm := normalize(body)

	if norm == "cancelar" {
		r.clearPending(ctx, user.Phone)
		return tr.T("common.cancelled")
	}

	tx, err := r.transactions.FindByID(ctx, user.ID, action.TransactionID)
	if err != nil {
		r.clearPending(ctx, user.Phone)
		return tr.T("transaction.none_recent")
	}

	if _, wantsDelete := deleteTokens[norm]; wantsDelete {
		if err := r.ledger.Delete(ctx, user.ID, tx.ID); err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		return fmt.Sprintf(tr.T("transaction.deleted"), tx.Description, texts.Money(tx.Amount))
	}

	if isNumericMessage(body) {
		amount, ok := parseAmount(body)
		if !ok || amount <= 0 {
			return tr.T("transaction.edit_invalid")
		}
		if err := r.ledger.UpdateAmount(ctx, tx, amount); err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		return fmt.Sprintf(tr.T("transaction.updated_amount"), texts.Money(amount))
	}

	description := collapseSpaces(body)
	if description == "" {
		return tr.T("transaction.edit_invalid")
	}
	if err := r.ledger.UpdateDescription(ctx, tx, description); err != nil {
		return r.errs.Handle(ctx, err)
	}
	r.clearPending(ctx, user.Phone)
	return fmt.Sprintf(tr.T("transaction.updated_description"), description)
}

func (r *Router) resolveReminderDay(ctx context.Context, user *domain.User, action pending.Action, body string) string {
	tr := r.tr()
	norm := normalize(body)

	switch {
	case norm == "cancelar":
		r.clearPending(ctx, user.Phone)
		return tr.T("common.cancelled")

	case strings.Contains(norm, "quitar") || strings.Contains(norm, "sin recordatorio"):
		fe, err := r.fixed.RemoveReminder(ctx, user.ID, action.FixedExpenseID)
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		return fmt.Sprintf(tr.T("fixedexpense.reminder_removed"), fe.Description)
	}

	day, ok := parseAmount(body)
	if !ok || day < 1 || day > 31 {
		return tr.T("fixedexpense.reminder_day_invalid")
	}

	fe, err := r.fixed.SetReminderDay(ctx, user.ID, action.FixedExpenseID, int(day))
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	r.clearPending(ctx, user.Phone)
	return fmt.Sprintf(tr.T("fixedexpense.reminder_set"), fe.Description, int(day))
}

func (r *Router) resolveFixedExpenseEdit(ctx context.Context, user *domain.User, action pending.Action, body string) string {
	tr := r.tr()
	norm := normalize(body)

	switch {
	case norm == "cancelar":
		r.clearPending(ctx, user.Phone)
		return tr.T("common.cancelled")

	case strings.Contains(norm, "quitar") || strings.Contains(norm, "sin recordatorio"):
		fe, err := r.fixed.RemoveReminder(ctx, user.ID, action.FixedExpenseID)
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
		r.clearPending(ctx, user.Phone)
		return fmt.Sprintf(tr.T("fixedexpense.reminder_removed"), fe.Description)
	}

	numbers := parseNumbers(body)
	var amount, day int64
	for _, n := range numbers {
		switch {
		case n >= 1 && n <= 31 && day == 0:
			day = n
		case n > 31 && amount == 0:
			amount = n
		}
	}

	if amount == 0 && day == 0 {
		return tr.T("fixedexpense.edit_invalid")
	}

	var fe *domain.FixedExpense
	var err error
	if amount > 0 {
		fe, err = r.fixed.UpdateAmount(ctx, user.ID, action.FixedExpenseID, amount)
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
	}
	if day > 0 {
		fe, err = r.fixed.SetReminderDay(ctx, user.ID, action.FixedExpenseID, int(day))
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
	}

	r.clearPending(ctx, user.Phone)
	switch {
	case amount > 0 && day > 0:
		return fmt.Sprintf(tr.T("fixedexpense.amount_updated"), fe.Description, texts.Money(amount)) +
			"\n" + fmt.Sprintf(tr.T("fixedexpense.reminder_set"), fe.Description, int(day))
	case amount > 0:
		return fmt.Sprintf(tr.T("fixedexpense.amount_updated"), fe.Description, texts.Money(amount))
	default:
		return fmt.Sprintf(tr.T("fixedexpense.reminder_set"), fe.Description, int(day))
	}
}

func (r *Router) resolveMarkFixedConfirm(ctx context.Context, user *domain.User, action pending.Action, body string) (string, bool) {
	tr := r.tr()

	tx, err := r.transactions.FindByID(ctx, user.ID, action.TransactionID)
	if err != nil {
		r.clearPending(ctx, user.Phone)
		return "", false
	}

	if isAffirmative(body) {
		fe, err := r.fixed.MarkAsFixed(ctx, tx)
		if errors.Is(err, fixedexpense.ErrAlreadyActive) {
			r.clearPending(ctx, user.Phone)
			return fmt.Sprintf(tr.T("fixedexpense.already_active"), fe.Description), true
		}
		if err != nil {
			r.clearPending(ctx, user.Phone)
			return r.errs.Handle(ctx, err), true
		}
		r.setPending(ctx, user.Phone, pending.AwaitingReminderDay(fe.ID))
		return fmt.Sprintf(tr.T("suggestion.accepted"), fe.Description) +
			"\n\n" + fmt.Sprintf(tr.T("fixedexpense.ask_reminder_day"), fe.Description), true
	}

	// Anything except an explicit yes is a rejection; the message itself
	// still deserves a normal answer, so classification continues.
	if err := r.fixed.RejectSuggestion(ctx, tx); err != nil {
		r.log.ErrorContext(ctx, "record suggestion rejection failed", "error", err)
	}
	r.clearPending(ctx, user.Phone)
	return "", false
}

// isNumericMessage reports whether the message is nothing but an amount.
func isNumericMessage(s string) bool {
	stripped := strings.Map(func(ch rune) rune {
		switch {
		case ch >= '0' && ch <= '9':
			return -1
		case ch == '.' || ch == ',' || ch == '$' || ch == ' ' || ch == '-':
			return -1
		}
		return ch
	}, s)
	return strings.TrimSpace(stripped) == "" && strings.ContainsAny(s, "0123456789")
}
