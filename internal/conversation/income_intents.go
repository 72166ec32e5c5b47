package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/texts"
)

// intentIncomeUpdateResponse answers the re-estimation prompt when the
// classifier recognized a yes/no even outside the fast-path vocabulary.
func (r *Router) intentIncomeUpdateResponse(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	average, open, err := r.incomeWindow.Get(ctx, user.Phone)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	if !open {
		return tr.T("income_prompt.expired")
	}

	var p classifier.AcceptedPayload
	if !result.Decode(&p) {
		return tr.T("fallback.not_understood")
	}

	if err := r.alerts.ResolveIncomePrompt(ctx, user, p.Accepted, average); err != nil {
		return r.errs.Handle(ctx, err)
	}
	_ = r.incomeWindow.Close(ctx, user.Phone)

	if p.Accepted {
		return fmt.Sprintf(tr.T("income_prompt.accepted"), texts.Money(average))
	}
	return fmt.Sprintf(tr.T("income_prompt.declined"), texts.Money(user.MonthlyIncome))
}

func (r *Router) intentAskAdvice(ctx context.Context, result classifier.Result, body string) string {
	question := body

	var p classifier.QuestionPayload
	if result.Decode(&p) && strings.TrimSpace(p.Question) != "" {
		question = p.Question
	}

	return r.advisor.Tip(ctx, question, "tus finanzas")
}
