package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/plata-bot/plata/internal/domain"
)

// handleOnboarding walks a user through first-contact setup. Invalid input
// re-prompts without advancing the step.
func (r *Router) handleOnboarding(ctx context.Context, user *domain.User, body string) string {
	tr := r.tr()

	switch user.OnboardingStep {
	case domain.StepAwaitingName:
		user.OnboardingStep = domain.StepAwaitingNameResponse
		if err := r.users.Update(ctx, user); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return tr.T("onboarding.welcome")

	case domain.StepAwaitingNameResponse:
		name := collapseSpaces(body)
		if name == "" {
			return tr.T("onboarding.welcome")
		}
		user.Name = name
		user.OnboardingStep = domain.StepAwaitingIncome
		if err := r.users.Update(ctx, user); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return fmt.Sprintf(tr.T("onboarding.ask_income"), user.Name)

	case domain.StepAwaitingIncome:
		amount, ok := parseAmount(body)
		if !ok || amount <= 0 {
			return tr.T("onboarding.ask_income_invalid")
		}
		user.MonthlyIncome = amount
		user.OnboardingStep = domain.StepAwaitingSavingsGoal
		if err := r.users.Update(ctx, user); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return tr.T("onboarding.ask_savings_goal")

	case domain.StepAwaitingSavingsGoal:
		amount, ok := parseAmount(body)
		if !ok || amount < 0 {
			return tr.T("onboarding.ask_savings_goal_invalid")
		}
		user.SavingsGoal = amount
		user.OnboardingStep = domain.StepComplete
		if err := r.users.Update(ctx, user); err != nil {
			return r.errs.Handle(ctx, err)
		}
		return fmt.Sprintf(tr.T("onboarding.done"), user.Name)
	}

	return tr.T("fallback.generic_error")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
