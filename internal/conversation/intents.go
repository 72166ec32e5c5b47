package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/ledger"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/reply"
	"github.com/plata-bot/plata/internal/repository"
	"github.com/plata-bot/plata/internal/texts"
	"github.com/plata-bot/plata/pkg/metrics"
)

// dispatch runs the classifier with the live category names and routes the
// resulting intent. Classification never fails upward; the worst outcome is
// the neutral fallback intent.
func (r *Router) dispatch(ctx context.Context, user *domain.User, body string) string {
	expenseCats, err := r.categories.ListActive(ctx, domain.CategoryExpense)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	incomeCats, err := r.categories.ListActive(ctx, domain.CategoryIncome)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}

	result := r.classifier.Classify(ctx, classifier.Request{
		Message:           body,
		MonthlyIncome:     user.MonthlyIncome,
		SavingsGoal:       user.SavingsGoal,
		ExpenseCategories: categoryNames(expenseCats),
		IncomeCategories:  categoryNames(incomeCats),
	})
	metrics.RecordIntent(string(result.Type))

	tr := r.tr()

	switch result.Type {
	case classifier.IntentRegisterTransaction:
		return r.intentRegister(ctx, user, result)
	case classifier.IntentRegisterBatch:
		return r.intentRegisterBatch(ctx, user, result)
	case classifier.IntentEditTransaction:
		return r.intentEditRecent(ctx, user, result)
	case classifier.IntentDeleteTransaction:
		return r.intentDeleteRecent(ctx, user)
	case classifier.IntentEditTransactionAt:
		return r.intentEditAt(ctx, user, result)
	case classifier.IntentDeleteTransactionAt:
		return r.intentDeleteAt(ctx, user, result)
	case classifier.IntentReclassify:
		return r.intentReclassify(ctx, user, result)
	case classifier.IntentQuerySummary:
		return r.intentSummary(ctx, user)
	case classifier.IntentQueryTransactions:
		return r.intentListTransactions(ctx, user)
	case classifier.IntentSetBudget:
		return r.intentSetBudget(ctx, user, result)
	case classifier.IntentListBudgets:
		return r.intentListBudgets(ctx, user)
	case classifier.IntentDeleteBudget:
		return r.intentDeleteBudget(ctx, user, result)
	case classifier.IntentAddFixedExpense:
		return r.intentAddFixedExpense(ctx, user, result)
	case classifier.IntentListFixedExpenses:
		return r.intentListFixedExpenses(ctx, user)
	case classifier.IntentPauseFixedExpense:
		return r.intentFixedExpenseState(ctx, user, result, "pause")
	case classifier.IntentActivateFixedExpense:
		return r.intentFixedExpenseState(ctx, user, result, "activate")
	case classifier.IntentDeleteFixedExpense:
		return r.intentFixedExpenseState(ctx, user, result, "delete")
	case classifier.IntentEditFixedExpense:
		return r.intentEditFixedExpense(ctx, user, result)
	case classifier.IntentSetReminderDay:
		return r.intentSetReminderDay(ctx, user, result)
	case classifier.IntentIncomeUpdateResponse:
		return r.intentIncomeUpdateResponse(ctx, user, result)
	case classifier.IntentAskAdvice:
		return r.intentAskAdvice(ctx, result, body)
	case classifier.IntentGreeting:
		variants := tr.Variants("greeting.variants")
		seed := user.ID + int64(r.now().YearDay())
		return reply.Pick(variants, seed)
	case classifier.IntentDeleteAccount:
		r.setPending(ctx, user.Phone, pending.AwaitingDeletionConfirm())
		return tr.T("account.confirm_deletion")
	}

	return tr.T("fallback.not_understood")
}

func (r *Router) intentRegister(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.TransactionPayload
	if !result.Decode(&p) {
		return tr.T("fallback.not_understood")
	}

	tx, category, err := r.ledger.Create(ctx, user, ledger.Entry{
		Amount:      p.Amount,
		Category:    p.Category,
		Description: p.Description,
		IsIncome:    p.IsIncome,
	})
	if err != nil {
		return r.errs.Handle(ctx, err)
	}

	key := "transaction.created_expense"
	if tx.IsIncome {
		key = "transaction.created_income"
	}
	answer := fmt.Sprintf(tr.T(key), texts.Money(tx.Amount), category.Name, tx.Description)

	if tx.IsIncome {
		r.maybeIncomePrompt(ctx, user)
	} else {
		r.afterExpenseWrite(ctx, user, tx, category)
	}
	return answer
}

func (r *Router) intentRegisterBatch(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.BatchPayload
	if !result.Decode(&p) || len(p.Transactions) == 0 {
		return tr.T("fallback.not_understood")
	}

	entries := make([]ledger.Entry, len(p.Transactions))
	for i, item := range p.Transactions {
		entries[i] = ledger.Entry{
			Amount:      item.Amount,
			Category:    item.Category,
			Description: item.Description,
			IsIncome:    item.IsIncome,
		}
	}

	batch, err := r.ledger.CreateBatch(ctx, user, entries)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}

	r.afterBatchWrite(ctx, user, p.Transactions)

	if batch.Skipped > 0 {
		return fmt.Sprintf(tr.T("transaction.created_batch_skipped"), batch.Created, batch.Skipped)
	}
	return fmt.Sprintf(tr.T("transaction.created_batch"), batch.Created)
}

func (r *Router) intentEditRecent(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	tx, err := r.ledger.Recent(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoRecent) {
			return tr.T("transaction.none_recent")
		}
		return r.errs.Handle(ctx, err)
	}

	var p classifier.TransactionPayload
	result.Decode(&p)

	switch {
	case p.Amount > 0:
		if err := r.ledger.UpdateAmount(ctx, tx, p.Amount); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return fmt.Sprintf(tr.T("transaction.updated_amount"), texts.Money(p.Amount))

	case strings.TrimSpace(p.Description) != "":
		description := collapseSpaces(p.Description)
		if err := r.ledger.UpdateDescription(ctx, tx, description); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return fmt.Sprintf(tr.T("transaction.updated_description"), description)
	}

	r.setPending(ctx, user.Phone, pending.AwaitingTransactionEdit(tx.ID))
	return fmt.Sprintf(tr.T("transaction.edit_prompt"), tx.Description, texts.Money(tx.Amount))
}

func (r *Router) intentDeleteRecent(ctx context.Context, user *domain.User) string {
	tr := r.tr()

	tx, err := r.ledger.Recent(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNoRecent) {
			return tr.T("transaction.none_recent")
		}
		return r.errs.Handle(ctx, err)
	}

	if err := r.ledger.Delete(ctx, user.ID, tx.ID); err != nil {
		return r.errs.Handle(ctx, err)
	}
	return fmt.Sprintf(tr.T("transaction.deleted"), tx.Description, texts.Money(tx.Amount))
}

func (r *Router) intentEditAt(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	tx, errReply := r.resolveIndexedTransaction(ctx, user, result)
	if errReply != "" {
		return errReply
	}

	r.setPending(ctx, user.Phone, pending.AwaitingTransactionEdit(tx.ID))
	return fmt.Sprintf(tr.T("transaction.edit_prompt"), tx.Description, texts.Money(tx.Amount))
}

func (r *Router) intentDeleteAt(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	tx, errReply := r.resolveIndexedTransaction(ctx, user, result)
	if errReply != "" {
		return errReply
	}

	if err := r.ledger.Delete(ctx, user.ID, tx.ID); err != nil {
		return r.errs.Handle(ctx, err)
	}
	return fmt.Sprintf(tr.T("transaction.deleted"), tx.Description, texts.Money(tx.Amount))
}

func (r *Router) resolveIndexedTransaction(ctx context.Context, user *domain.User, result classifier.Result) (*domain.Transaction, string) {
	tr := r.tr()

	var p classifier.IndexPayload
	if !result.Decode(&p) || p.Index < 1 {
		return nil, tr.T("transaction.position_not_found")
	}

	tx, err := r.ledger.ResolvePosition(ctx, user, p.Index)
	if err != nil {
		if errors.Is(err, ledger.ErrPositionNotFound) {
			return nil, tr.T("transaction.position_not_found")
		}
		return nil, r.errs.Handle(ctx, err)
	}
	return tx, ""
}

func (r *Router) intentReclassify(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.CategoryPayload
	if !result.Decode(&p) || strings.TrimSpace(p.Category) == "" {
		return tr.T("fallback.not_understood")
	}

	tx, category, err := r.ledger.Reclassify(ctx, user.ID, p.Category)
	switch {
	case errors.Is(err, ledger.ErrNoRecent):
		return tr.T("transaction.none_recent")
	case errors.Is(err, ledger.ErrIncomeReclassify):
		return tr.T("transaction.income_reclassify")
	case errors.Is(err, ledger.ErrUnknownCategory):
		return tr.T("transaction.unknown_category")
	case errors.Is(err, ledger.ErrAlreadyInCategory):
		return tr.T("transaction.already_in_category")
	case err != nil:
		return r.errs.Handle(ctx, err)
	}

	answer := fmt.Sprintf(tr.T("transaction.reclassified"), tx.Description, category.Name)
	r.afterExpenseWrite(ctx, user, tx, category)
	return answer
}

func (r *Router) intentSummary(ctx context.Context, user *domain.User) string {
	tr := r.tr()

	// Refreshes the positional list so "delete #2" after a summary stays
	// coherent with what the user last saw.
	if _, err := r.ledger.ListMonth(ctx, user); err != nil {
		return r.errs.Handle(ctx, err)
	}

	income, expenses, totals, err := r.ledger.MonthSummary(ctx, user.ID)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}

	now := r.now()
	var b strings.Builder
	b.WriteString(fmt.Sprintf(tr.T("summary.month"),
		texts.MonthName(now.Month()), texts.Money(income), texts.Money(expenses), texts.Money(income-expenses)))

	if len(totals) > 0 {
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf(tr.T("summary.categories_header"), texts.MonthName(now.Month())))
		for _, total := range totals {
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf(tr.T("summary.categories_row"), total.CategoryName, texts.Money(total.Total)))
		}
	}
	return b.String()
}

func (r *Router) intentListTransactions(ctx context.Context, user *domain.User) string {
	txs, err := r.ledger.ListMonth(ctx, user)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	return texts.TransactionList(r.tr(), r.now(), txs)
}

func (r *Router) intentSetBudget(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.BudgetPayload
	if !result.Decode(&p) || strings.TrimSpace(p.Category) == "" {
		return tr.T("fallback.not_understood")
	}
	if p.Limit <= 0 {
		return tr.T("budget.invalid_limit")
	}

	category, err := r.categories.FindByName(ctx, domain.CategoryExpense, p.Category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return tr.T("transaction.unknown_category")
		}
		return r.errs.Handle(ctx, err)
	}

	budget := &domain.Budget{UserID: user.ID, CategoryID: category.ID, MonthlyLimit: p.Limit}
	if err := r.budgets.Upsert(ctx, budget); err != nil {
		return r.errs.Handle(ctx, err)
	}
	return fmt.Sprintf(tr.T("budget.set"), category.Name, texts.Money(p.Limit))
}

func (r *Router) intentListBudgets(ctx context.Context, user *domain.User) string {
	tr := r.tr()

	budgets, err := r.budgets.ListByUser(ctx, user.ID)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	if len(budgets) == 0 {
		return tr.T("budget.list_empty")
	}

	now := r.now()
	var b strings.Builder
	b.WriteString(tr.T("budget.list_header"))
	for i := range budgets {
		budget := &budgets[i]
		category, err := r.categories.FindByID(ctx, budget.CategoryID)
		if err != nil {
			continue
		}
		spent, err := r.transactions.CategoryExpensesMonth(ctx, user.ID, budget.CategoryID, now)
		if err != nil {
			continue
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(tr.T("budget.list_row"),
			category.Name, texts.Money(spent), texts.Money(budget.MonthlyLimit), int(budget.PercentUsed(spent))))
	}
	return b.String()
}

func (r *Router) intentDeleteBudget(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.CategoryPayload
	if !result.Decode(&p) || strings.TrimSpace(p.Category) == "" {
		return tr.T("fallback.not_understood")
	}

	category, err := r.categories.FindByName(ctx, domain.CategoryExpense, p.Category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return tr.T("transaction.unknown_category")
		}
		return r.errs.Handle(ctx, err)
	}

	if _, err := r.budgets.FindByCategory(ctx, user.ID, category.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return tr.T("budget.not_found")
		}
		return r.errs.Handle(ctx, err)
	}

	if err := r.budgets.Delete(ctx, user.ID, category.ID); err != nil {
		return r.errs.Handle(ctx, err)
	}
	return fmt.Sprintf(tr.T("budget.deleted"), category.Name)
}

func categoryNames(categories []domain.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}
