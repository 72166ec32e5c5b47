package conversation

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/texts"
	"github.com/plata-bot/plata/pkg/metrics"
)

// afterExpenseWrite runs the proactive checks that follow every expense
// write. Alert evaluation happens synchronously inside the handling flow;
// delivery is deferred so the confirmation stays the one primary reply.
func (r *Router) afterExpenseWrite(ctx context.Context, user *domain.User, tx *domain.Transaction, category *domain.Category) {
	r.budgetCheck(ctx, user, category)
	r.healthCheck(ctx, user)
	r.maybeSuggestFixed(ctx, user, tx)
}

// afterBatchWrite runs the budget check once per distinct expense category
// in the batch, then the composite health check.
func (r *Router) afterBatchWrite(ctx context.Context, user *domain.User, items []classifier.TransactionPayload) {
	seen := make(map[int64]struct{})
	for _, item := range items {
		if item.IsIncome || item.Amount <= 0 {
			continue
		}
		category, err := r.ledger.ResolveCategory(ctx, domain.CategoryExpense, item.Category)
		if err != nil {
			continue
		}
		if _, done := seen[category.ID]; done {
			continue
		}
		seen[category.ID] = struct{}{}
		r.budgetCheck(ctx, user, category)
	}

	if len(seen) > 0 {
		r.healthCheck(ctx, user)
	}
}

func (r *Router) budgetCheck(ctx context.Context, user *domain.User, category *domain.Category) {
	msg, err := r.alerts.BudgetAlert(ctx, user.ID, category)
	if err != nil {
		r.log.ErrorContext(ctx, "budget alert evaluation failed",
			"user_id", user.ID, "category", category.Name, "error", err)
		return
	}
	if msg == "" {
		return
	}

	metrics.RecordAlert("budget")
	r.sendLater(ctx, user.Phone, msg)
}

func (r *Router) healthCheck(ctx context.Context, user *domain.User) {
	msg, err := r.alerts.HealthAlert(ctx, user)
	if err != nil {
		r.log.ErrorContext(ctx, "health alert evaluation failed", "user_id", user.ID, "error", err)
		return
	}
	if msg == "" {
		return
	}

	metrics.RecordAlert(string(domain.AlertFinancialHealth))
	r.sendLater(ctx, user.Phone, msg)
}

// maybeSuggestFixed defers the "is this recurring?" question so it lands a
// few minutes after the confirmation, not on top of it.
func (r *Router) maybeSuggestFixed(ctx context.Context, user *domain.User, tx *domain.Transaction) {
	ok, err := r.fixed.ShouldSuggest(ctx, tx)
	if err != nil || !ok {
		return
	}

	task, err := jobs.NewSuggestionPromptTask(user.ID, tx.ID)
	if err != nil {
		r.log.ErrorContext(ctx, "build suggestion task failed", "error", err)
		return
	}

	if _, err := r.enqueuer.Enqueue(ctx, task, asynq.ProcessIn(r.bot.SuggestionDelay)); err != nil {
		r.log.ErrorContext(ctx, "enqueue suggestion task failed", "error", err)
	}
}

// maybeIncomePrompt opens the short income re-estimation window when the
// trailing average has drifted far enough from the declared income.
func (r *Router) maybeIncomePrompt(ctx context.Context, user *domain.User) {
	estimate, err := r.alerts.IncomeReestimate(ctx, user)
	if err != nil {
		r.log.ErrorContext(ctx, "income re-estimation failed", "user_id", user.ID, "error", err)
		return
	}
	if estimate == nil {
		return
	}

	if err := r.incomeWindow.Open(ctx, user.Phone, estimate.Average); err != nil {
		r.log.ErrorContext(ctx, "open income window failed", "error", err)
		return
	}
	if err := r.alerts.MarkIncomePrompted(ctx, user); err != nil {
		r.log.ErrorContext(ctx, "mark income prompted failed", "error", err)
	}

	tr := r.tr()
	msg := fmt.Sprintf(tr.T("income_prompt.suggest"),
		texts.Money(estimate.Average), texts.Money(user.MonthlyIncome), texts.Money(estimate.Average))
	r.sendLater(ctx, user.Phone, msg)
}
